package main

import (
	"fmt"

	"github.com/danmuck/levellog/internal/runavg"
	"github.com/spf13/cobra"
)

func newAverageCmd(root *rootOptions) *cobra.Command {
	var (
		dataDir string
		cutoff  float64
		points  int
		chart   string
	)
	cmd := &cobra.Command{
		Use:   "average",
		Short: "Average aligned-position runs onto a shared time grid and chart them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			ac := cfg.Average
			fl := cmd.Flags()
			if fl.Changed("data-dir") {
				ac.DataDir = dataDir
			}
			if fl.Changed("cutoff") {
				ac.Cutoff = cutoff
			}
			if fl.Changed("points") {
				ac.Points = points
			}
			if fl.Changed("chart") {
				ac.Chart = chart
			}

			ds, err := runavg.Load(ac.Config)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "averaged %d runs over %.1f min (%d points)\n", len(ds.Runs), ac.Cutoff, ac.Points)
			last := len(ds.Grid) - 1
			fmt.Fprintf(out, "final average: align_x=%.5f align_y=%.5f\n", ds.Mean.AlignX[last], ds.Mean.AlignY[last])
			if ac.Chart == "" {
				return nil
			}
			if err := runavg.WriteChart(ds, ac.Chart); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", ac.Chart)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory holding run and baseline files")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0, "time cutoff in minutes")
	cmd.Flags().IntVar(&points, "points", 0, "grid points")
	cmd.Flags().StringVar(&chart, "chart", "", "PNG output path (empty skips the chart)")
	return cmd
}
