package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGrpcUrl(t *testing.T) {
	target, err := ParseGrpcUrl("tcp://scheduler")
	assert.NoError(t, err)
	assert.Equal(t, "scheduler:9090", target)

	target, err = ParseGrpcUrl("tcp://localhost:7000")
	assert.NoError(t, err)
	assert.Equal(t, "localhost:7000", target)

	target, err = ParseGrpcUrl("unix:///run/grid.sock")
	assert.NoError(t, err)
	assert.Equal(t, "unix:///run/grid.sock", target)

	_, err = ParseGrpcUrl("http://scheduler")
	assert.Error(t, err)
}

func TestParseListenUrl(t *testing.T) {
	network, address, err := ParseListenUrl("tcp://:9090", 9090)
	assert.NoError(t, err)
	assert.Equal(t, "tcp", network)
	assert.Equal(t, ":9090", address)

	network, address, err = ParseListenUrl("tcp://0.0.0.0", 8080)
	assert.NoError(t, err)
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "0.0.0.0:8080", address)

	network, address, err = ParseListenUrl("unix:///tmp/grid.sock", 9090)
	assert.NoError(t, err)
	assert.Equal(t, "unix", network)
	assert.Equal(t, "/tmp/grid.sock", address)

	_, _, err = ParseListenUrl("udp://:53", 53)
	assert.Error(t, err)
}

func TestParseHttpUrl(t *testing.T) {
	host, err := ParseHttpUrl("tcp://:8080")
	assert.NoError(t, err)
	assert.Equal(t, ":8080", host)

	host, err = ParseHttpUrl("tcp://localhost")
	assert.NoError(t, err)
	assert.Equal(t, "localhost:8080", host)
}
