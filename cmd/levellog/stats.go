package main

import (
	"fmt"
	"os"

	"github.com/danmuck/levellog/internal/analysis"
	"github.com/spf13/cobra"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var (
		threshold float64
		bins      int
		plotDir   string
	)
	cmd := &cobra.Command{
		Use:   "stats <log.csv>",
		Short: "Report distance-from-center statistics for a capture log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			sc := cfg.Stats
			if cmd.Flags().Changed("threshold") {
				sc.ThresholdMM = threshold
			}
			if cmd.Flags().Changed("bins") {
				sc.Bins = bins
			}
			if cmd.Flags().Changed("plot-dir") {
				sc.PlotDir = plotDir
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			samples, skipped, err := analysis.ReadLog(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			res, err := analysis.Analyze(samples, sc.ThresholdMM)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			res.Report.Skipped = skipped
			if err := res.Report.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}
			if sc.PlotDir == "" {
				return nil
			}
			paths, err := analysis.WriteCharts(res, sc.PlotDir, sc.Bins)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "coverage radius in mm")
	cmd.Flags().IntVar(&bins, "bins", 0, "histogram bins")
	cmd.Flags().StringVar(&plotDir, "plot-dir", "", "write PNG charts to this directory")
	return cmd
}
