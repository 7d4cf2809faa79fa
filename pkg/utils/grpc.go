package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/jscience/grid/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

type GRPCOptions struct {
	// The interval in milliseconds between PING frames.
	KeepAliveTime *time.Duration `mapstructure:"keep_alive_time"`
	// The timeout in milliseconds for a PING frame to be acknowledged.
	KeepAliveTimeout *time.Duration `mapstructure:"keep_alive_timeout"`
	// Send keepalive pings even if there are no active streams (client).
	KeepAliveWithoutCalls *bool `mapstructure:"keep_alive_without_calls"`
	// Are clients allowed to send keepalive pings without active streams (server).
	PermitKeepAliveWithoutCalls *bool `mapstructure:"permit_keep_alive_without_calls"`
	// Minimum allowed time between a server receiving successive ping frames without sending any data/header frame.
	PermitKeepAliveTime *time.Duration `mapstructure:"permit_keep_alive_time"`
	// Maximum message size, e.g. "16MiB". Payloads carry whole simulation states.
	MaxMessageSize string `mapstructure:"max_message_size"`
	// Compressor used for outgoing calls (client), e.g. "zstd".
	Compression string `mapstructure:"compression"`
}

func (o *GRPCOptions) Validate() error {
	if o.MaxMessageSize != "" {
		if _, err := ParseSize(o.MaxMessageSize); err != nil {
			return fmt.Errorf("invalid grpc max_message_size: %w", err)
		}
	}
	return nil
}

func (o *GRPCOptions) maxMessageSize() int {
	if o.MaxMessageSize == "" {
		return 0
	}
	size, err := ParseSize(o.MaxMessageSize)
	if err != nil {
		return 0
	}
	return int(size)
}

func (o *GRPCOptions) ToServerOptions() []grpc.ServerOption {
	opts := []grpc.ServerOption{}

	serverParameters := keepalive.ServerParameters{}
	enforcePolicy := keepalive.EnforcementPolicy{}

	// Check server parameters
	if o.KeepAliveTime != nil {
		serverParameters.Time = *o.KeepAliveTime
	}

	if o.KeepAliveTimeout != nil {
		serverParameters.Timeout = *o.KeepAliveTimeout
	}

	if o.KeepAliveTime != nil || o.KeepAliveTimeout != nil {
		opts = append(opts, grpc.KeepaliveParams(serverParameters))
	}

	// Check enforcement policy
	if o.PermitKeepAliveWithoutCalls != nil {
		enforcePolicy.PermitWithoutStream = *o.PermitKeepAliveWithoutCalls
	}

	if o.PermitKeepAliveTime != nil {
		enforcePolicy.MinTime = *o.PermitKeepAliveTime
	}

	if o.PermitKeepAliveWithoutCalls != nil || o.PermitKeepAliveTime != nil {
		opts = append(opts, grpc.KeepaliveEnforcementPolicy(enforcePolicy))
	}

	if size := o.maxMessageSize(); size > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(size), grpc.MaxSendMsgSize(size))
	}

	return opts
}

func (o *GRPCOptions) ToDialOptions() []grpc.DialOption {
	opts := []grpc.DialOption{}

	kaParams := keepalive.ClientParameters{}

	if o.KeepAliveTime != nil {
		kaParams.Time = *o.KeepAliveTime
	}

	if o.KeepAliveTimeout != nil {
		kaParams.Timeout = *o.KeepAliveTimeout
	}

	if o.KeepAliveWithoutCalls != nil {
		kaParams.PermitWithoutStream = *o.KeepAliveWithoutCalls
	}

	if o.KeepAliveTime != nil || o.KeepAliveTimeout != nil || o.KeepAliveWithoutCalls != nil {
		opts = append(opts, grpc.WithKeepaliveParams(kaParams))
	}

	callOpts := []grpc.CallOption{}

	if size := o.maxMessageSize(); size > 0 {
		callOpts = append(callOpts, grpc.MaxCallRecvMsgSize(size), grpc.MaxCallSendMsgSize(size))
	}

	if o.Compression != "" {
		callOpts = append(callOpts, grpc.UseCompressor(o.Compression))
	}

	if len(callOpts) > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(callOpts...))
	}

	return opts
}

func (o *GRPCOptions) Log() {
	settings := []struct {
		key   string
		value any
		set   bool
	}{
		{"keep_alive_time", deref(o.KeepAliveTime), o.KeepAliveTime != nil},
		{"keep_alive_timeout", deref(o.KeepAliveTimeout), o.KeepAliveTimeout != nil},
		{"keep_alive_without_calls", deref(o.KeepAliveWithoutCalls), o.KeepAliveWithoutCalls != nil},
		{"permit_keep_alive_without_calls", deref(o.PermitKeepAliveWithoutCalls), o.PermitKeepAliveWithoutCalls != nil},
		{"permit_keep_alive_time", deref(o.PermitKeepAliveTime), o.PermitKeepAliveTime != nil},
		{"max_message_size", o.MaxMessageSize, o.MaxMessageSize != ""},
		{"compression", o.Compression, o.Compression != ""},
	}

	header := false
	for _, setting := range settings {
		if !setting.set {
			continue
		}
		if !header {
			log.Info("  gRPC options:")
			header = true
		}
		log.Infof("    %s = %v", setting.key, setting.value)
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Bearer token sent in the authorization metadata of every call.
type TokenCredentials string

func (t TokenCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	if t == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + string(t)}, nil
}

// Tokens are sent on plaintext connections inside the cluster.
func (t TokenCredentials) RequireTransportSecurity() bool {
	return false
}
