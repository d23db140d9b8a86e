package main

import (
	"fmt"

	"github.com/danmuck/levellog/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "levellog.toml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or validate a levellog config file",
	}

	var force bool
	template := &cobra.Command{
		Use:   "template [path]",
		Short: "Write an example config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := defaultConfigPath
			if len(args) == 1 {
				target = args[0]
			}
			if target == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), config.Template())
				return err
			}
			if err := config.WriteTemplate(target, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote config template to %s\n", target)
			return nil
		},
	}
	template.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validate := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Validated config at %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(template, validate)
	return cmd
}
