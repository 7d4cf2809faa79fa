package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Submit raw task payloads and collect their results",
}

var taskSubmitCmd = &cobra.Command{
	Use:   "submit <payload-file>",
	Short: "Submit a payload file as a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal(err)
		}

		id, _ := cmd.Flags().GetString("id")
		if id == "" {
			id = uuid.NewString()
		}

		name, _ := cmd.Flags().GetString("priority")
		priority, err := protocol.ParsePriority(name)
		if err != nil {
			log.Fatal(err)
		}

		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		remote, conn := NewComputeClient()
		defer conn.Close()

		response, err := remote.SubmitTask(ctx, &protocol.TaskRequest{
			TaskId:    id,
			Payload:   payload,
			Priority:  priority,
			Timestamp: time.Now().UnixMilli(),
		})
		if err != nil {
			log.Fatal(err)
		}

		if response.Status != protocol.SubmitStatus_QUEUED {
			log.Fatal("Task rejected:", response.Reason)
		}
		fmt.Println(response.TaskId)
	},
}

var taskWaitCmd = &cobra.Command{
	Use:   "wait <task-id>",
	Short: "Wait for a task and write its result data to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		wait, _ := cmd.Flags().GetDuration("wait")

		ctx, cancel := context.WithTimeout(context.Background(), wait+callTimeout)
		defer cancel()

		remote, conn := NewComputeClient()
		defer conn.Close()

		stream, err := remote.StreamResults(ctx, &protocol.TaskIdentifier{TaskId: args[0], TimeoutMillis: wait.Milliseconds()})
		if err != nil {
			log.Fatal(err)
		}

		result, err := stream.Recv()
		if err != nil {
			log.Fatal(err)
		}

		switch result.Status {
		case protocol.TaskStatus_TASK_COMPLETED:
			os.Stdout.Write(result.Data)
		case protocol.TaskStatus_TASK_FAILED:
			fmt.Fprintln(os.Stderr, "task failed:", result.ErrorMessage)
			os.Exit(1)
		default:
			fmt.Fprintln(os.Stderr, "task still", result.Status)
			os.Exit(2)
		}
	},
}

func init() {
	taskSubmitCmd.Flags().String("id", "", "Task id (default random)")
	taskSubmitCmd.Flags().String("priority", "NORMAL", "Task priority")
	taskWaitCmd.Flags().Duration("wait", 30*time.Second, "Longest time to wait")

	taskCmd.AddCommand(taskSubmitCmd)
	taskCmd.AddCommand(taskWaitCmd)
	rootCmd.AddCommand(taskCmd)
}
