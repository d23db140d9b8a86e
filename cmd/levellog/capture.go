package main

import (
	"fmt"

	"github.com/danmuck/levellog/internal/capture"
	"github.com/danmuck/levellog/internal/config"
	"github.com/danmuck/levellog/internal/observability"
	"github.com/danmuck/levellog/internal/store"
	"github.com/danmuck/levellog/internal/transport"
	"github.com/spf13/cobra"
)

type captureFlags struct {
	transport       string
	port            string
	baud            int
	output          string
	mode            string
	strict          bool
	echo            bool
	syncEvery       int
	metricsTextfile string
}

func newCaptureCmd(root *rootOptions) *cobra.Command {
	f := &captureFlags{}
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Read telemetry lines from the controller and append them to the CSV log",
		Long: `Opens the configured serial port (or a replay file), stamps every valid
line with the host receipt time, and appends it to the output log until
interrupted or the transport closes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, &cfg); err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return runCapture(cmd, cfg.Capture)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.transport, "transport", "", "transport kind (serial|replay)")
	fl.StringVarP(&f.port, "port", "p", "", "serial device or replay file")
	fl.IntVarP(&f.baud, "baud", "b", 0, "baud rate")
	fl.StringVarP(&f.output, "output", "o", "", "CSV log path")
	fl.StringVar(&f.mode, "mode", "", "output mode (truncate|append|exclusive)")
	fl.BoolVar(&f.strict, "strict", false, "reject lines with non-numeric fields")
	fl.BoolVar(&f.echo, "echo", false, "log every accepted record")
	fl.IntVar(&f.syncEvery, "sync-every", 0, "fsync the log every N rows")
	fl.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on status ticks")
	return cmd
}

// apply overlays explicitly set flags onto cfg.
func (f *captureFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	c := &cfg.Capture
	fl := cmd.Flags()
	if fl.Changed("transport") {
		c.Transport.Kind = transport.Kind(f.transport)
	}
	if fl.Changed("port") {
		c.Transport.Name = f.port
	}
	if fl.Changed("baud") {
		c.Transport.Baud = f.baud
	}
	if fl.Changed("output") {
		c.Output = f.output
	}
	if fl.Changed("mode") {
		mode, err := store.ParseOpenMode(f.mode)
		if err != nil {
			return err
		}
		c.Mode = mode
	}
	if fl.Changed("strict") {
		c.Parser.Strict = f.strict
	}
	if fl.Changed("echo") {
		c.Echo = f.echo
	}
	if fl.Changed("sync-every") {
		c.SyncEvery = f.syncEvery
	}
	if fl.Changed("metrics-textfile") {
		c.MetricsTextfile = f.metricsTextfile
	}
	return nil
}

func runCapture(cmd *cobra.Command, cfg capture.Config) error {
	observability.RegisterMetrics()
	loop := capture.New(cfg)
	sum, err := loop.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("capture %s: %w", sum.Reason, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records, %d ignored, %d rejected (%s)\n",
		sum.Output, sum.Records, sum.Ignored, sum.Rejected, sum.Reason)
	return nil
}
