package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/tasks"
	"github.com/jscience/grid/pkg/utils"
	"github.com/jscience/grid/pkg/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Compute grid worker agent",
	Run: func(cmd *cobra.Command, args []string) {
		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			log.Fatal(err)
		}
		switch {
		case verbosity >= 2:
			log.SetLevel(log.TraceLevel)
		case verbosity >= 1:
			log.SetLevel(log.DebugLevel)
		}

		workerConfig, err := LoadConfig()
		if err != nil {
			log.Fatal(err)
		}

		if workerConfig.Nice > 0 {
			if err := utils.SetNice(workerConfig.Nice); err != nil {
				log.Warn("Failed to lower process priority:", err)
			}
		}

		client, conn, err := worker.NewWorkerClient(workerConfig)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		dispatcher := tasks.NewDispatcher(workerConfig.ThreadCount)
		log.Info("Task types:", dispatcher.Kinds())

		ctx, cancel := utils.SignalContext(context.Background())
		defer cancel()

		agent := worker.NewAgent(client, workerConfig, dispatcher)
		if err := agent.Run(ctx); err != nil {
			log.Fatal(err)
		}
	},
}

func main() {
	rootCmd.Flags().StringP("scheduler-uri", "s", "tcp://scheduler:9090", "Scheduler service URI")
	rootCmd.Flags().StringP("token", "t", "", "Bearer token presented to the scheduler")
	rootCmd.Flags().String("hostname", "", "Hostname reported to the scheduler")
	rootCmd.Flags().IntP("threads", "j", runtime.NumCPU(), "Maximum thread count")
	rootCmd.Flags().Duration("poll-interval", worker.DefaultPollInterval, "Delay between task requests while idle")
	rootCmd.Flags().BoolP("compress", "z", false, "Compress calls with zstd")
	rootCmd.Flags().Int("nice", 0, "Process niceness, 0 to 19")
	rootCmd.Flags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("scheduler_grpc_uri", rootCmd.Flags().Lookup("scheduler-uri"))
	viper.BindPFlag("token", rootCmd.Flags().Lookup("token"))
	viper.BindPFlag("hostname", rootCmd.Flags().Lookup("hostname"))
	viper.BindPFlag("threads", rootCmd.Flags().Lookup("threads"))
	viper.BindPFlag("poll_interval", rootCmd.Flags().Lookup("poll-interval"))
	viper.BindPFlag("compress", rootCmd.Flags().Lookup("compress"))
	viper.BindPFlag("nice", rootCmd.Flags().Lookup("nice"))
	viper.SetEnvPrefix("grid")
	viper.AutomaticEnv()

	viper.SetConfigName("worker.yaml")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/grid/")
	viper.AddConfigPath("$HOME/.config/grid")
	viper.AddConfigPath(".")
	viper.ReadInConfig()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
