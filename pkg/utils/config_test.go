package utils

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Threads  int           `mapstructure:"threads"`
	Compress bool          `mapstructure:"compress"`
	Poll     time.Duration `mapstructure:"poll_interval"`
	Nested   struct {
		Size string `mapstructure:"size"`
	} `mapstructure:"nested"`
}

func TestUnmarshalConfigFromStrings(t *testing.T) {
	v := viper.New()
	v.Set("threads", "8")
	v.Set("compress", "yes")
	v.Set("poll_interval", "250ms")
	v.Set("nested.size", "4MiB")

	var cfg sampleConfig
	require.NoError(t, UnmarshalConfig(*v, &cfg))
	assert.Equal(t, 8, cfg.Threads)
	assert.True(t, cfg.Compress)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll)
	assert.Equal(t, "4MiB", cfg.Nested.Size)
}

func TestUnmarshalConfigRejectsGarbage(t *testing.T) {
	v := viper.New()
	v.Set("threads", "many")

	var cfg sampleConfig
	assert.Error(t, UnmarshalConfig(*v, &cfg))
}
