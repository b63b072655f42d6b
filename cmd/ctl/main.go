package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/codekeeper/cmd/ctl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "ctl",
		Short:        "Operator tools for codekeeper",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.VisionCmd())
	rootCmd.AddCommand(cmd.NotifyCmd())
	rootCmd.AddCommand(cmd.KeygenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
