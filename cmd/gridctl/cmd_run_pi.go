package main

import (
	"fmt"
	"math"

	"github.com/jscience/grid/pkg/client"
	"github.com/spf13/cobra"
)

var runPiCmd = &cobra.Command{
	Use:   "pi",
	Short: "Estimate pi by Monte Carlo sampling",
	Run: func(cmd *cobra.Command, args []string) {
		samples, _ := cmd.Flags().GetInt64("samples")
		seed, _ := cmd.Flags().GetUint64("seed")

		job := client.NewPiJob(configData.Batches, samples, seed)
		report := runJob(cmd, job)

		estimate := job.Estimate()
		fmt.Printf("pi ~ %.10f (error %.2e, %d samples, %d remote, %d local)\n",
			estimate, math.Abs(estimate-math.Pi), job.Result.Samples, report.Remote(), report.Local())
		printReport(cmd, report)
	},
}

func init() {
	runPiCmd.Flags().Int64("samples", 10_000_000, "Samples per batch")
	runPiCmd.Flags().Uint64("seed", 1, "Seed of the first batch")
	runCmd.AddCommand(runPiCmd)
}
