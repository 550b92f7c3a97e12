package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "eventhub",
		Short:        "Run the in-process event hub sample and load tools",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.AddCommand(newDemoCmd(), newStressCmd())

	return cmd
}
