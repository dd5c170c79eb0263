package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mtdbench/pkg/analysis"
	"mtdbench/pkg/dataset"
	"mtdbench/pkg/plots"
)

var (
	plotOut     string
	plotLevels  []int
	plotSummary bool

	recoveryOut         string
	recoveryDeletedAt   string
	recoveryDeletedNode string
)

var plotCmd = &cobra.Command{
	Use:   "plot <study-dir>",
	Short: "Render the study figures from <study-dir>/<n>-loaded/<run>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		study, err := analysis.LoadStudy(args[0], plotLevels)
		if err != nil {
			return err
		}
		out := plotOut
		if out == "" {
			out = args[0]
		}
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		if _, err := plots.WriteStudyPlots(study, out); err != nil {
			return err
		}
		if plotSummary {
			return analysis.WriteStudySummary(cmd.OutOrStdout(), study)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "num negative loads %d\n", study.NegativeLoads())
		return err
	},
}

var recoveryPlotCmd = &cobra.Command{
	Use:   "recovery-plot <run-dir>",
	Short: "Render the leader timeline of a recovery run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := analysis.LoadTimeline(args[0])
		if err != nil {
			return err
		}
		var markers []analysis.Marker
		if recoveryDeletedAt != "" {
			at, err := dataset.ParseTime(recoveryDeletedAt)
			if err != nil {
				return err
			}
			markers = tl.RecoveryMarkers(recoveryDeletedNode, at)
			if len(markers) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "first lead START after deletion: %s (%s later)\n",
					markers[1].Time.Format(dataset.TimeLayout), markers[1].Time.Sub(at).Round(time.Millisecond))
			}
		}
		return plots.Recovery(tl, markers, recoveryOut)
	},
}

func init() {
	plotCmd.Flags().StringVar(&plotOut, "out", "", "Output directory (default: the study directory)")
	plotCmd.Flags().IntSliceVar(&plotLevels, "levels", analysis.DefaultLoadedLevels, "Loaded levels to read")
	plotCmd.Flags().BoolVar(&plotSummary, "summary", false, "Also print summary tables")

	recoveryPlotCmd.Flags().StringVar(&recoveryOut, "out", "recovery.png", "Output PNG")
	recoveryPlotCmd.Flags().StringVar(&recoveryDeletedAt, "deleted-at", "", "Pod deletion time, e.g. 2023-07-28T11:41:57.124")
	recoveryPlotCmd.Flags().StringVar(&recoveryDeletedNode, "deleted-node", "", "Node of the deleted pod, for the legend")

	rootCmd.AddCommand(plotCmd, recoveryPlotCmd)
}
