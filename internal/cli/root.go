// Package cli wires the trading pipeline behind a cobra command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootFlags are the persistent flags shared by every subcommand.
type RootFlags struct {
	ConfigPath string
	LogLevel   string
}

func NewRootCmd() *cobra.Command {
	flags := &RootFlags{}

	cmd := &cobra.Command{
		Use:           "quantpipe",
		Short:         "quantpipe — autonomous trading decision pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")

	cmd.AddCommand(
		newRunCmd(flags),
		newConfigCmd(),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("quantpipe (dev)")
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
