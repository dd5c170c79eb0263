package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"mtdbench/pkg/capture"
	"mtdbench/pkg/cluster"
	"mtdbench/pkg/dataset"
	"mtdbench/pkg/experiment"
	"mtdbench/pkg/workload"
)

var (
	runConfigFile string
	runFlags      = experiment.DefaultConfig()
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one experiment per random weight",
	Long: `Builds and deploys the ensemble for each random weight, polls its service
while the pod logs are captured into <experiment-dir>/<duration>-<size>-<weight>,
tears it down and checks that every pod reported the intended parameters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig(cmd)
		if err != nil {
			return err
		}
		runner, cleanup, err := newRunner(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		reports, err := runner.RunAll(cmd.Context())
		printReports(reports)
		return err
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runConfigFile, "config", "", "YAML experiment config; flags override it")
	f.StringVar(&runFlags.ExperimentDir, "experiment-dir", "", "Existing directory receiving one run directory per weight")
	f.StringVar(&runFlags.PomDir, "pom-dir", "", "Directory of the ensemble's maven project")
	f.StringVar(&runFlags.YAMLFile, "yaml", "", "Kubernetes manifest deploying the ensemble")
	f.IntVar(&runFlags.EnsembleSize, "ensemble-size", 0, "Number of ensemble members")
	f.Float64SliceVar(&runFlags.RandomWeights, "weights", nil, "Random weights to run, e.g. 0.0,0.5,1.0")
	f.BoolVar(&runFlags.MicroK8s, "microk8s", false, "Target microk8s instead of kind")
	f.DurationVar(&runFlags.Duration.Duration, "duration", 0, "Measured client phase per run, e.g. 1h")
	f.StringVar(&runFlags.Namespace, "namespace", runFlags.Namespace, "Ensemble namespace")
	f.StringVar(&runFlags.ServiceIP, "service-ip", "", "Override the platform's load balancer address")
	f.IntVar(&runFlags.ServicePort, "service-port", runFlags.ServicePort, "Load balancer port")
	f.StringVar(&runFlags.CaptureMode, "capture", runFlags.CaptureMode, "Log capture: kubectl or api")
	f.DurationVar(&runFlags.PollInterval.Duration, "poll-interval", runFlags.PollInterval.Duration, "Pod list interval")
	f.DurationVar(&runFlags.ReadyTimeout.Duration, "ready-timeout", 0, "Bound the wait for the first running pod (0 waits forever)")
	f.DurationVar(&runFlags.DrainTimeout.Duration, "drain-timeout", 0, "Bound each namespace drain wait on teardown (0 waits forever)")
	f.DurationVar(&runFlags.ClientInterval.Duration, "client-interval", runFlags.ClientInterval.Duration, "Pause between client polls")
	f.DurationVar(&runFlags.ClientTimeout.Duration, "client-timeout", runFlags.ClientTimeout.Duration, "Client request timeout")
	f.StringVar(&runFlags.TimeZone, "tz", runFlags.TimeZone, "Time zone of client.csv timestamps")
	f.BoolVar(&runFlags.SkipImageCheck, "skip-image-check", false, "Do not inspect the built image in the local docker daemon")

	rootCmd.AddCommand(runCmd)
}

// loadRunConfig layers defaults, the config file, the environment and the
// flags that were set explicitly.
func loadRunConfig(cmd *cobra.Command) (experiment.Config, error) {
	cfg := experiment.DefaultConfig()
	if runConfigFile != "" {
		if err := experiment.LoadConfigFile(runConfigFile, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("experiment-dir", func() { cfg.ExperimentDir = runFlags.ExperimentDir })
	set("pom-dir", func() { cfg.PomDir = runFlags.PomDir })
	set("yaml", func() { cfg.YAMLFile = runFlags.YAMLFile })
	set("ensemble-size", func() { cfg.EnsembleSize = runFlags.EnsembleSize })
	set("weights", func() { cfg.RandomWeights = runFlags.RandomWeights })
	set("microk8s", func() { cfg.MicroK8s = runFlags.MicroK8s })
	set("duration", func() { cfg.Duration = runFlags.Duration })
	set("namespace", func() { cfg.Namespace = runFlags.Namespace })
	set("service-ip", func() { cfg.ServiceIP = runFlags.ServiceIP })
	set("service-port", func() { cfg.ServicePort = runFlags.ServicePort })
	set("capture", func() { cfg.CaptureMode = runFlags.CaptureMode })
	set("poll-interval", func() { cfg.PollInterval = runFlags.PollInterval })
	set("ready-timeout", func() { cfg.ReadyTimeout = runFlags.ReadyTimeout })
	set("drain-timeout", func() { cfg.DrainTimeout = runFlags.DrainTimeout })
	set("client-interval", func() { cfg.ClientInterval = runFlags.ClientInterval })
	set("client-timeout", func() { cfg.ClientTimeout = runFlags.ClientTimeout })
	set("tz", func() { cfg.TimeZone = runFlags.TimeZone })
	set("skip-image-check", func() { cfg.SkipImageCheck = runFlags.SkipImageCheck })

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid experiment config: %w", err)
	}
	return cfg, nil
}

func newRunner(cfg experiment.Config) (*experiment.Runner, func(), error) {
	cleanup := func() {}

	cl, err := cluster.NewClient(cfg.Namespace)
	if err != nil {
		return nil, cleanup, err
	}

	platform := experiment.PlatformFor(cfg.MicroK8s)
	if cfg.ServiceIP != "" {
		platform.ServiceIP = cfg.ServiceIP
	}

	opts := capture.Options{Namespace: cfg.Namespace}
	var launcher capture.Launcher
	if cfg.CaptureMode == experiment.CaptureAPI {
		launcher = capture.NewAPILauncher(cl.Clientset, opts)
	} else {
		launcher = capture.NewKubectlLauncher(opts, cfg.MicroK8s)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, cleanup, err
	}
	poller := workload.NewPoller(workload.Config{
		URL:      workload.ServiceURL(platform.ServiceIP, cfg.ServicePort),
		Interval: cfg.ClientInterval.Duration,
		Timeout:  cfg.ClientTimeout.Duration,
		Duration: cfg.Duration.Duration,
		Location: loc,
	})

	runner := &experiment.Runner{
		Config:   cfg,
		Platform: platform,
		Commands: experiment.ExecRunner{},
		Pods:     cl,
		Launcher: launcher,
		Drainer:  cl,
		Workload: poller,
	}
	if !cfg.SkipImageCheck {
		dv, err := experiment.NewDockerVerifier()
		if err != nil {
			return nil, cleanup, err
		}
		runner.Images = dv
		cleanup = func() {
			if err := dv.Close(); err != nil {
				klog.ErrorS(err, "Close docker client")
			}
		}
	}
	return runner, cleanup, nil
}

func printReports(reports []experiment.Report) {
	if len(reports) == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run", "Pods", "Requests", "OK", "Timeouts", "Conn failures"})
	for _, r := range reports {
		table.Append([]string{
			dataset.RunDirName(r.Key),
			strconv.Itoa(r.Pods),
			strconv.Itoa(r.Workload.Requests),
			strconv.Itoa(r.Workload.ByOutcome[workload.OutcomeOK]),
			strconv.Itoa(r.Workload.ByOutcome[workload.OutcomeTimeout]),
			strconv.Itoa(r.Workload.ByOutcome[workload.OutcomeConnectionFailure]),
		})
	}
	table.Render()
}
