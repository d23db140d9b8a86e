package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/levellog/internal/config"
	"github.com/danmuck/levellog/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	logging.ConfigureRuntime()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "levellog: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "levellog",
		Short:         "Capture and analyze level-sensor telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel == "" {
				return nil
			}
			lvl, ok := logging.ParseLevel(opts.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", opts.logLevel)
			}
			zerolog.SetGlobalLevel(lvl)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (trace|debug|info|warn|error)")

	root.AddCommand(
		newCaptureCmd(opts),
		newStatsCmd(opts),
		newAverageCmd(opts),
		newConfigCmd(),
	)
	return root
}

func (o *rootOptions) load() (config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}
