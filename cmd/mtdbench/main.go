package main

import (
	"flag"
	"net/http"
	"os"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"
)

var metricsAddr string

var rootCmd = &cobra.Command{
	Use:           "mtdbench",
	Short:         "Run and analyse MTD ensemble experiments on Kubernetes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if metricsAddr != "" {
			startMetricsServer(metricsAddr)
		}
	},
}

func init() {
	fs := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	klog.InfoS("Starting metrics server", "address", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			klog.ErrorS(err, "Metrics server failed")
		}
	}()
}

func main() {
	defer klog.Flush()

	ctx := signals.SetupSignalHandler()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		klog.ErrorS(err, "Command failed")
		klog.Flush()
		os.Exit(1)
	}
}
