package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"mtdbench/pkg/workload"
)

var (
	clientOut      string
	clientInterval time.Duration
	clientTimeout  time.Duration
	clientTZ       string
)

var clientCmd = &cobra.Command{
	Use:   "client <service-ip> <port> <duration-seconds>",
	Short: "Poll the ensemble service and write client.csv rows",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[1], err)
		}
		seconds, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", args[2], err)
		}
		loc, err := time.LoadLocation(clientTZ)
		if err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if clientOut != "" {
			f, err := os.Create(clientOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		poller := workload.NewPoller(workload.Config{
			URL:      workload.ServiceURL(args[0], port),
			Interval: clientInterval,
			Timeout:  clientTimeout,
			Duration: time.Duration(seconds) * time.Second,
			Location: loc,
		})
		summary, err := poller.Run(cmd.Context(), out)
		if err != nil {
			return err
		}
		klog.InfoS("Client summary", "requests", summary.Requests, "nodes", summary.Nodes)
		return nil
	},
}

func init() {
	f := clientCmd.Flags()
	f.StringVar(&clientOut, "out", "", "Write rows to this file instead of stdout")
	f.DurationVar(&clientInterval, "interval", workload.DefaultInterval, "Pause between polls")
	f.DurationVar(&clientTimeout, "timeout", workload.DefaultTimeout, "Request timeout")
	f.StringVar(&clientTZ, "tz", workload.DefaultLocation, "Time zone of the timestamps")

	rootCmd.AddCommand(clientCmd)
}
