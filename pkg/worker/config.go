package worker

import (
	"errors"
	"net/url"
	"runtime"
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
)

const DefaultPollInterval = 500 * time.Millisecond

type WorkerConfig struct {
	Grpc utils.GRPCOptions `mapstructure:"grpc"`

	// gRPC URI to the scheduler service.
	SchedulerGrpcUri string `mapstructure:"scheduler_grpc_uri"`

	// Bearer token presented to the scheduler.
	Token string `mapstructure:"token"`

	// Hostname reported at registration. Defaults to the OS hostname.
	Hostname string `mapstructure:"hostname"`

	// Thread count for the worker.
	ThreadCount int `mapstructure:"threads"`

	// Delay between task requests while the queue is empty.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Compress calls with zstd.
	Compress bool `mapstructure:"compress"`

	// Niceness of the worker process, 0 to 19. Lets hosts run a worker
	// alongside interactive work.
	Nice int `mapstructure:"nice"`
}

func (c *WorkerConfig) SetDefaults() {
	if c.ThreadCount <= 0 {
		c.ThreadCount = runtime.NumCPU()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Compress && c.Grpc.Compression == "" {
		c.Grpc.Compression = protocol.CompressorName
	}
}

// Checks if the worker configuration is valid.
func (c *WorkerConfig) Validate() error {
	// Validate the scheduler URI.
	if c.SchedulerGrpcUri == "" {
		return errors.New("A scheduler URI is required")
	}

	// Validate the scheduler URI is a valid URL.
	if _, err := url.Parse(c.SchedulerGrpcUri); err != nil {
		return errors.New("The scheduler URI is not a valid URI")
	}

	// Validate the thread count.
	if c.ThreadCount <= 0 {
		return errors.New("The thread count must be greater than zero")
	}
	if c.ThreadCount > runtime.NumCPU() {
		return errors.New("The thread count must be less than or equal to the number of CPUs")
	}

	if c.PollInterval < 0 {
		return errors.New("The poll interval must not be negative")
	}

	if c.Nice < 0 || c.Nice > 19 {
		return errors.New("The niceness must be between 0 and 19")
	}

	return c.Grpc.Validate()
}

func (c *WorkerConfig) Log() {
	log.Info("Worker configuration:")
	log.Infof("  scheduler_grpc_uri = %s", c.SchedulerGrpcUri)
	log.Infof("  hostname = %s", c.Hostname)
	log.Infof("  token = %v", c.Token != "")
	log.Infof("  thread_count = %v", c.ThreadCount)
	log.Infof("  poll_interval = %v", c.PollInterval)
	log.Infof("  compress = %v", c.Compress)
	log.Infof("  nice = %d", c.Nice)
	c.Grpc.Log()
}
