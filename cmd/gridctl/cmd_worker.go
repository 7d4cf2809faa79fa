package main

import "github.com/spf13/cobra"

var workerCmd = &cobra.Command{
	Use:     "worker",
	Aliases: []string{"workers"},
	Short:   "Inspect the workers registered with the scheduler",
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
