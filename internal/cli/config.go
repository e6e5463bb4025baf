package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantpipe/quantpipe/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(args[0]); err != nil {
				return err
			}
			fmt.Println("wrote", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadFromFile(args[0]); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	})

	return cmd
}
