package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/jscience/grid/pkg/client"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/tasks"
	"github.com/jscience/grid/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a job on the grid, computing unanswered batches locally",
}

// Runs a job against the configured scheduler, or locally with --local.
func runJob(cmd *cobra.Command, job client.Job) *client.Report {
	ctx, cancel := utils.SignalContext(context.Background())
	defer cancel()

	var remote protocol.ComputeClient
	if local, _ := cmd.Flags().GetBool("local"); !local {
		r, conn := NewComputeClient()
		defer conn.Close()
		remote = r
	}

	c := client.NewClient(remote, tasks.NewDispatcher(runtime.NumCPU()), &configData)
	report, err := c.Run(ctx, job)
	if err != nil {
		log.Fatal(err)
	}
	return report
}

func printReport(cmd *cobra.Command, report *client.Report) {
	if show, _ := cmd.Flags().GetBool("report"); !show {
		return
	}

	format, _ := cmd.Flags().GetString("output")
	if printStructured(os.Stderr, format, report) {
		return
	}

	for _, b := range report.Batches {
		where := "remote"
		if b.Local {
			where = "local"
		}
		fmt.Fprintf(os.Stderr, "batch %d: %-6s %-15s %v %s\n", b.Index, where, b.Outcome, b.Duration.Round(1e6), b.Error)
	}
}

func init() {
	runCmd.PersistentFlags().IntP("batches", "b", 4, "Number of batches")
	runCmd.PersistentFlags().IntP("parallelism", "p", runtime.NumCPU(), "Batches in flight at once")
	runCmd.PersistentFlags().String("priority", "NORMAL", "Batch priority: LOW, NORMAL, HIGH or CRITICAL")
	runCmd.PersistentFlags().Bool("local", false, "Compute every batch locally")
	runCmd.PersistentFlags().BoolP("report", "r", false, "Print where each batch ran")
	runCmd.PersistentFlags().StringP("output", "o", "text", "Report format: text, json or yaml")

	viper.BindPFlag("batches", runCmd.PersistentFlags().Lookup("batches"))
	viper.BindPFlag("parallelism", runCmd.PersistentFlags().Lookup("parallelism"))
	viper.BindPFlag("priority", runCmd.PersistentFlags().Lookup("priority"))

	rootCmd.AddCommand(runCmd)
}
