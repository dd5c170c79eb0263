package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mtdbench/pkg/cluster"
	"mtdbench/pkg/dataset"
	"mtdbench/pkg/workload"
)

var (
	deletePodName      string
	deletePodNamespace string
)

var deletePodCmd = &cobra.Command{
	Use:   "delete-pod",
	Short: "Delete one ensemble pod and print when it happened",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := cluster.NewClient(deletePodNamespace)
		if err != nil {
			return err
		}
		loc, err := time.LoadLocation(workload.DefaultLocation)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleting Pod %s at %s.\n", deletePodName, time.Now().In(loc).Format(dataset.TimeLayout))
		return cl.DeletePod(cmd.Context(), deletePodName)
	},
}

func init() {
	deletePodCmd.Flags().StringVar(&deletePodName, "pod", "mtd-zk-0", "Pod to delete")
	deletePodCmd.Flags().StringVar(&deletePodNamespace, "namespace", cluster.DefaultNamespace, "Ensemble namespace")

	rootCmd.AddCommand(deletePodCmd)
}
