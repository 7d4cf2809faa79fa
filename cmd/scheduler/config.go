package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/resultstash"
	"github.com/jscience/grid/pkg/scheduler"
	"github.com/jscience/grid/pkg/utils"
)

type TokenConfig struct {
	Token     string `mapstructure:"token"`
	Principal string `mapstructure:"principal"`
	Role      string `mapstructure:"role"`
}

type AuthConfig struct {
	// Accepted bearer tokens. Without tokens every caller is an admin.
	Tokens []TokenConfig `mapstructure:"tokens"`
}

// Token table for the authorizer. Tokens are listed rather than used as
// map keys because configuration keys are case insensitive.
func (c *AuthConfig) Grants() map[string]scheduler.TokenGrant {
	grants := map[string]scheduler.TokenGrant{}
	for _, t := range c.Tokens {
		grants[t.Token] = scheduler.TokenGrant{Principal: t.Principal, Role: t.Role}
	}
	return grants
}

func (c *AuthConfig) Validate() error {
	for i, t := range c.Tokens {
		if t.Token == "" {
			return fmt.Errorf("auth token %d is empty", i)
		}
		switch t.Role {
		case scheduler.RoleAdmin, scheduler.RoleWorker, scheduler.RoleClient:
		default:
			return fmt.Errorf("auth token %d has invalid role: %q", i, t.Role)
		}
	}
	return nil
}

type Config struct {
	utils.GRPCOptions `mapstructure:"grpc"`

	// Addresses to listen on for gRPC.
	ListenGrpc []string `mapstructure:"listen_grpc"`
	// Addresses to listen on for HTTP.
	ListenHttp []string `mapstructure:"listen_http"`
	// Caller authorization.
	Auth AuthConfig `mapstructure:"auth"`
	// Storage of task results.
	Results resultstash.Config `mapstructure:"results"`
	// How long uncollected results are kept.
	ResultTTL time.Duration `mapstructure:"result_ttl"`
	// Silent workers are removed after this long. Zero disables.
	WorkerTimeout time.Duration `mapstructure:"worker_timeout"`
	// Longest time a client may wait for a result in one call.
	MaxWait time.Duration `mapstructure:"max_wait"`
	// Telemetry configuration.
	Telemetry *TelemetryConfig `mapstructure:"telemetry"`
	// Log sinks.
	Logging log.Config `mapstructure:"log"`
}

func (c *Config) GetDashboardUri() string {
	if c.Telemetry != nil {
		return c.Telemetry.GetDashboardUri()
	}
	return ""
}

func (c *Config) SchedulerConfig() scheduler.Config {
	sc := scheduler.Config{
		ResultTTL:     c.ResultTTL,
		WorkerTimeout: c.WorkerTimeout,
		MaxWait:       c.MaxWait,
	}
	sc.SetDefaults()
	return sc
}

func (c *Config) SetDefaults() {
	c.Results.SetDefaults()
}

func (c *Config) Validate() error {
	if len(c.ListenGrpc) == 0 {
		return errors.New("At least one gRPC listen address is required")
	}
	if c.WorkerTimeout < 0 {
		return errors.New("The worker timeout must not be negative")
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Results.Validate(); err != nil {
		return err
	}
	return c.GRPCOptions.Validate()
}

func (c *Config) Log() {
	sc := c.SchedulerConfig()

	log.Info("Scheduler configuration:")
	log.Infof("  gRPC listen addresses: %v", c.ListenGrpc)
	log.Infof("  HTTP listen addresses: %v", c.ListenHttp)
	log.Infof("  Auth tokens: %d", len(c.Auth.Tokens))
	log.Infof("  Result TTL: %v", sc.ResultTTL)
	log.Infof("  Worker timeout: %v", sc.WorkerTimeout)
	log.Infof("  Max wait: %v", sc.MaxWait)
	if uri := c.GetDashboardUri(); uri != "" {
		log.Infof("  Dashboard: %s", uri)
	}
	c.Results.Log()
	c.Logging.Log()
	c.GRPCOptions.Log()
}
