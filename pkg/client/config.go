package client

import (
	"errors"
	"net/url"
	"runtime"
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
)

const DefaultBatchTimeout = 5 * time.Second

type Config struct {
	Grpc utils.GRPCOptions `mapstructure:"grpc"`

	// gRPC URI to the scheduler service. Empty means compute locally.
	SchedulerGrpcUri string `mapstructure:"scheduler_uri"`

	// Bearer token presented to the scheduler.
	Token string `mapstructure:"token"`

	// Longest wait for one remote batch before it is computed locally.
	Timeout time.Duration `mapstructure:"timeout"`

	// Number of batches a job is split into.
	Batches int `mapstructure:"batches"`

	// Batches in flight at once.
	Parallelism int `mapstructure:"parallelism"`

	// Priority of submitted batches, e.g. "NORMAL".
	Priority string `mapstructure:"priority"`

	// Compress calls with zstd.
	Compress bool `mapstructure:"compress"`
}

func (c *Config) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultBatchTimeout
	}
	if c.Batches <= 0 {
		c.Batches = 4
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	if c.Priority == "" {
		c.Priority = protocol.Priority_NORMAL.String()
	}
	if c.Compress && c.Grpc.Compression == "" {
		c.Grpc.Compression = protocol.CompressorName
	}
}

func (c *Config) Validate() error {
	if c.SchedulerGrpcUri != "" {
		if _, err := url.Parse(c.SchedulerGrpcUri); err != nil {
			return errors.New("The scheduler URI is not a valid URI")
		}
	}

	if c.Batches <= 0 {
		return errors.New("The batch count must be greater than zero")
	}

	if _, err := protocol.ParsePriority(c.Priority); err != nil {
		return err
	}

	return c.Grpc.Validate()
}

func (c *Config) priority() protocol.Priority {
	p, err := protocol.ParsePriority(c.Priority)
	if err != nil {
		return protocol.Priority_NORMAL
	}
	return p
}

func (c *Config) Log() {
	log.Debug("Client configuration:")
	log.Debugf("  scheduler_uri = %s", c.SchedulerGrpcUri)
	log.Debugf("  timeout = %v", c.Timeout)
	log.Debugf("  batches = %d", c.Batches)
	log.Debugf("  parallelism = %d", c.Parallelism)
	log.Debugf("  priority = %s", c.Priority)
	log.Debugf("  compress = %v", c.Compress)
}
