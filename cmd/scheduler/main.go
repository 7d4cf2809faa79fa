package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/resultstash"
	"github.com/jscience/grid/pkg/scheduler"
	"github.com/jscience/grid/pkg/telemetry"
	"github.com/jscience/grid/pkg/utils"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var config = &Config{}

var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Compute grid task scheduler service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvPrefix("grid")
		viper.AutomaticEnv()

		viper.SetConfigName("scheduler.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/grid/")
		viper.AddConfigPath("$HOME/.config/grid")
		viper.AddConfigPath(".")

		viper.ReadInConfig()

		if err := utils.UnmarshalConfig(*viper.GetViper(), config); err != nil {
			log.Fatal(err)
		}

		if err := log.Setup(config.Logging); err != nil {
			log.Fatal(err)
		}

		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			panic(err)
		}

		switch {
		case verbosity >= 2:
			log.SetLevel(log.TraceLevel)
		case verbosity >= 1:
			log.SetLevel(log.DebugLevel)
		}

		config.SetDefaults()
		config.Log()

		if err := config.Validate(); err != nil {
			log.Fatal(err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		defer log.Close()

		// Create filesystem storage for results
		stashFs, err := config.Results.CreateFs()
		if err != nil {
			log.Fatal(err)
		}

		stash := resultstash.NewResultStash(&config.Results, stashFs)

		// Create scheduler.
		sched := scheduler.NewPriorityScheduler(config.SchedulerConfig(), stash)

		// Create dashboard telemetry provider if configured
		if config.GetDashboardUri() != "" {
			hooks := telemetry.NewDashboardTelemetryHook(config)
			defer hooks.Close()
			sched.AddObserver(hooks)
		}

		authorizer := scheduler.NewTokenAuthorizer(config.Auth.Grants())

		// Start listening for gRPC connections on all configured addresses
		server, healthServer := newGrpcServer(sched, authorizer)
		for _, uri := range config.ListenGrpc {
			go serveGrpc(server, uri)
		}

		// Start listening for HTTP connections on all configured addresses
		var httpServers []*http.Server
		for _, uri := range config.ListenHttp {
			httpServers = append(httpServers, serveHttp(sched, uri))
		}

		ctx, cancel := utils.SignalContext(context.Background())
		defer cancel()

		// Ready to run the scheduler
		sched.Run(ctx)

		log.Info("Shutting down")
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		for _, s := range httpServers {
			s.Shutdown(shutdownCtx)
		}

		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			// Result waits can hold streams open for max_wait
			server.Stop()
		}
	},
}

func init() {
	rootCmd.Flags().StringSliceP("listen-http", "l", []string{"tcp://:8080"}, "Addresses to listen on for HTTP connections")
	rootCmd.Flags().StringSliceP("listen-grpc", "g", []string{"tcp://:9090"}, "Addresses to listen on for GRPC connections")
	rootCmd.Flags().Duration("result-ttl", 10*time.Minute, "How long uncollected results are kept")
	rootCmd.Flags().Duration("worker-timeout", 0, "Remove workers silent for this long (0 disables)")
	rootCmd.Flags().Duration("max-wait", 30*time.Second, "Longest result wait per call")
	rootCmd.Flags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("listen_grpc", rootCmd.Flags().Lookup("listen-grpc"))
	viper.BindPFlag("listen_http", rootCmd.Flags().Lookup("listen-http"))
	viper.BindPFlag("result_ttl", rootCmd.Flags().Lookup("result-ttl"))
	viper.BindPFlag("worker_timeout", rootCmd.Flags().Lookup("worker-timeout"))
	viper.BindPFlag("max_wait", rootCmd.Flags().Lookup("max-wait"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
