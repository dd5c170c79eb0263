package experiment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"mtdbench/pkg/capture"
	"mtdbench/pkg/dataset"
	"mtdbench/pkg/workload"
)

// Workload is the foreground client of a run.
type Workload interface {
	Run(ctx context.Context, w io.Writer) (workload.Summary, error)
}

// Drainer waits until a namespace has no pods left. *cluster.Client
// implements it.
type Drainer interface {
	WaitForDrained(ctx context.Context, namespace string, interval, timeout time.Duration) error
}

// Report is the outcome of one successful run.
type Report struct {
	Key      dataset.RunKey
	Dir      string
	Pods     int
	Workload workload.Summary
}

// Runner runs one experiment per configured random weight.
type Runner struct {
	Config   Config
	Platform Platform
	Commands CommandRunner
	// Images is optional; nil skips image verification.
	Images   ImageVerifier
	Pods     capture.PodLister
	Launcher capture.Launcher
	Drainer  Drainer
	Workload Workload
}

// RunAll runs every weight in order and stops at the first failed run.
func (r *Runner) RunAll(ctx context.Context) ([]Report, error) {
	var reports []Report
	for _, w := range r.Config.RandomWeights {
		rep, err := r.RunWeight(ctx, w)
		if err != nil {
			return reports, fmt.Errorf("run random weight %s: %w", dataset.FormatWeight(w), err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// RunWeight runs a single experiment: build and deploy, capture logs while
// the workload runs, tear down, then verify what the pods reported.
func (r *Runner) RunWeight(ctx context.Context, weight float64) (Report, error) {
	cfg := r.Config
	key := dataset.RunKey{
		DurationSeconds: cfg.DurationSeconds(),
		EnsembleSize:    cfg.EnsembleSize,
		RandomWeight:    weight,
	}
	dir := filepath.Join(cfg.ExperimentDir, dataset.RunDirName(key))
	klog.InfoS("Running experiment", "randomWeight", dataset.FormatWeight(weight), "dir", dir)

	if err := os.Mkdir(dir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create run directory: %w", err)
	}

	runSequence(ctx, r.Commands, cfg.PomDir, "init", r.Platform.InitCommands(cfg.EnsembleSize, weight, cfg.YAMLFile))

	if r.Images != nil {
		if err := r.Images.VerifyImage(ctx, r.Platform.Image); err != nil {
			r.teardown(ctx)
			return Report{}, err
		}
	}

	coord := &capture.Coordinator{
		Pods:         r.Pods,
		Launcher:     r.Launcher,
		Dir:          dir,
		Interval:     cfg.PollInterval.Duration,
		ReadyTimeout: cfg.ReadyTimeout.Duration,
	}

	g, gctx := errgroup.WithContext(ctx)
	var result *capture.Result
	g.Go(func() error {
		var err error
		result, err = coord.Run(gctx)
		return err
	})

	summary, clientErr := r.runWorkload(gctx, dir)

	klog.InfoS("Terminating experiment", "randomWeight", dataset.FormatWeight(weight))
	r.teardown(ctx)

	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("capture logs: %w", err)
	}
	if clientErr != nil {
		return Report{}, clientErr
	}

	pods, err := result.Verify(cfg.EnsembleSize, weight)
	if err != nil {
		return Report{}, err
	}
	klog.InfoS("Sanity check passed",
		"ensembleSize", cfg.EnsembleSize,
		"randomWeight", dataset.FormatWeight(weight),
		"captureProcesses", pods)

	return Report{Key: key, Dir: dir, Pods: pods, Workload: summary}, nil
}

func (r *Runner) runWorkload(ctx context.Context, dir string) (workload.Summary, error) {
	path := filepath.Join(dir, dataset.ClientFileName)
	f, err := os.Create(path)
	if err != nil {
		return workload.Summary{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	summary, err := r.Workload.Run(ctx, f)
	if err != nil {
		return summary, fmt.Errorf("run workload: %w", err)
	}
	return summary, nil
}

// teardown deletes the ensemble and waits for both namespaces to drain.
// Failures are logged; a run whose pods keep running is caught by the
// coordinator never returning.
func (r *Runner) teardown(ctx context.Context) {
	cfg := r.Config
	runSequence(ctx, r.Commands, cfg.PomDir, "teardown", r.Platform.TeardownCommands(cfg.YAMLFile))

	if r.Drainer == nil {
		return
	}
	interval := cfg.PollInterval.Duration
	if interval <= 0 {
		interval = capture.DefaultPollInterval
	}
	for _, ns := range []string{cfg.Namespace, "default"} {
		if err := r.Drainer.WaitForDrained(ctx, ns, interval, cfg.DrainTimeout.Duration); err != nil {
			klog.ErrorS(err, "Namespace did not drain", "namespace", ns)
		}
	}
}
