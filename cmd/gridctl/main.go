package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jscience/grid/pkg/client"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "gridctl",
	Short: "Compute grid control command",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetConfigName("gridctl.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/grid/")
		viper.AddConfigPath("$HOME/.config/grid")
		viper.AddConfigPath(".")
		viper.ReadInConfig()

		viper.SetEnvPrefix("grid")
		viper.AutomaticEnv()

		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			log.Fatal(err)
		}
		switch {
		case verbosity >= 2:
			log.SetLevel(log.TraceLevel)
		case verbosity >= 1:
			log.SetLevel(log.DebugLevel)
		default:
			log.SetLevel(log.WarningLevel)
		}

		if err := utils.UnmarshalConfig(*viper.GetViper(), &configData); err != nil {
			log.Fatal(err)
		}

		configData.SetDefaults()
		if err := configData.Validate(); err != nil {
			log.Fatal(err)
		}
		configData.Log()
	},
}

var configData = client.Config{}

func main() {
	rootCmd.PersistentFlags().StringP("scheduler-uri", "s", "tcp://scheduler:9090", "Scheduler service URI")
	rootCmd.PersistentFlags().StringP("token", "t", "", "Bearer token presented to the scheduler")
	rootCmd.PersistentFlags().Duration("timeout", client.DefaultBatchTimeout, "Longest wait for one remote batch")
	rootCmd.PersistentFlags().BoolP("compress", "z", false, "Compress calls with zstd")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("scheduler_uri", rootCmd.PersistentFlags().Lookup("scheduler-uri"))
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("compress", rootCmd.PersistentFlags().Lookup("compress"))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Deadline for single administrative calls.
const callTimeout = 30 * time.Second
