package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
	"github.com/spf13/cobra"
)

var workerListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List workers",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		remote, conn := NewComputeClient()
		defer conn.Close()

		response, err := remote.ListWorkers(ctx, &protocol.Empty{})
		if err != nil {
			log.Fatal(err)
		}

		format, _ := cmd.Flags().GetString("output")
		if printStructured(os.Stdout, format, response) {
			return
		}

		workerCount := len(response.Workers)
		workerPad := fmt.Sprint(len(fmt.Sprint(workerCount)))

		for index, worker := range response.Workers {
			fmt.Printf("%"+workerPad+"d: %s\n", index+1, worker.WorkerId)
			fmt.Printf("    Host:       %s\n", worker.Hostname)
			fmt.Printf("    Cores:      %d\n", worker.Cores)
			fmt.Printf("    Memory:     %s\n", utils.HumanByteSize(worker.MemoryBytes))
			if worker.Principal != "" {
				fmt.Printf("    Principal:  %s\n", worker.Principal)
			}
			fmt.Printf("    Registered: %s\n", time.UnixMilli(worker.RegisteredAt).Format(time.DateTime))
			fmt.Printf("    Last seen:  %s\n", time.UnixMilli(worker.LastSeen).Format(time.DateTime))
			if worker.CurrentTask != "" {
				fmt.Printf("    Task:       %s\n", worker.CurrentTask)
			}
			fmt.Println()
		}
	},
}

func init() {
	workerListCmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
	workerCmd.AddCommand(workerListCmd)
}
