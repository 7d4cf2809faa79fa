package main

import (
	"fmt"
	"os"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		remote, conn := NewComputeClient()
		defer conn.Close()

		status, err := remote.GetStatus(ctx, &protocol.Empty{})
		if err != nil {
			log.Fatal(err)
		}

		format, _ := cmd.Flags().GetString("output")
		if printStructured(os.Stdout, format, status) {
			return
		}

		fmt.Printf("Workers:   %d\n", status.ActiveWorkers)
		fmt.Printf("Queued:    %d\n", status.QueuedTasks)
		fmt.Printf("Assigned:  %d\n", status.AssignedTasks)
		fmt.Printf("Completed: %d\n", status.CompletedTasks)
		fmt.Printf("Failed:    %d\n", status.FailedTasks)
	},
}

func init() {
	statusCmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(statusCmd)
}
