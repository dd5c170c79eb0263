package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mtdbench/pkg/analysis"
	"mtdbench/pkg/dataset"
)

var summarizeLevels []int

var examineCmd = &cobra.Command{
	Use:   "examine <summary-log>",
	Short: "Check a run summary log for inconsistent runs and report timing extremes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		runs, err := analysis.ParseRunSummaries(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		ex := analysis.Examine(runs)
		out := cmd.OutOrStdout()
		for _, run := range ex.Suspicious {
			fmt.Fprintf(out, "WARNING, examine %s\n", run)
		}
		fmt.Fprintf(out, "runs: %d\n", ex.Runs)
		fmt.Fprintf(out, "shortest: %s %s\n", ex.Shortest.Run, ex.Shortest.Delta)
		fmt.Fprintf(out, "longest: %s %s\n", ex.Longest.Run, ex.Longest.Delta)
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <study-dir>",
	Short: "Write the run summary log of a study to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var summaries []*analysis.RunSummary
		for _, level := range summarizeLevels {
			levelDir := dataset.LoadedDirName(level)
			entries, err := os.ReadDir(filepath.Join(args[0], levelDir))
			if err != nil {
				return err
			}
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				s, err := analysis.SummarizeRun(levelDir+"/"+e.Name(), filepath.Join(args[0], levelDir, e.Name()))
				if err != nil {
					return err
				}
				summaries = append(summaries, s)
			}
		}
		return analysis.WriteRunSummaries(cmd.OutOrStdout(), summaries)
	},
}

func init() {
	summarizeCmd.Flags().IntSliceVar(&summarizeLevels, "levels", analysis.DefaultLoadedLevels, "Loaded levels to read")

	rootCmd.AddCommand(examineCmd, summarizeCmd)
}
