package capture

// Package capture implements the log-capture coordinator: it watches the
// ensemble namespace, starts one log tail and one sanity check per pod
// identity, and reconciles what it started against what the pods reported.

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	"mtdbench/pkg/cluster"
	"mtdbench/pkg/dataset"
)

// DefaultPollInterval is how often the namespace is listed.
const DefaultPollInterval = 3 * time.Second

// PodLister lists the ensemble pods. *cluster.Client implements it.
type PodLister interface {
	ListPods(ctx context.Context) ([]cluster.PodObservation, error)
}

// Coordinator captures the logs of every ensemble pod for one experiment run.
type Coordinator struct {
	Pods     PodLister
	Launcher Launcher
	// Dir receives one <pod>-<uid>.csv file per pod identity.
	Dir string
	// Interval between polls. Defaults to DefaultPollInterval.
	Interval time.Duration
	// ReadyTimeout bounds the wait for the first running pod. Zero waits
	// until ctx is done.
	ReadyTimeout time.Duration
}

// captures is owned by the goroutine running the poll loop.
type captures struct {
	seen     sets.Set[string]
	tails    []Capture
	sanities []Capture
}

// Run blocks until a pod is running, captures logs until no pod is running,
// then joins every capture and returns the reconciliation result. A failed
// sanity check is returned as an error; a failed tail only logs a warning.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	if err := c.WaitForFirstRunning(ctx); err != nil {
		return nil, err
	}

	caps, loopErr := c.capture(ctx)
	metricUniquePods.Set(float64(caps.seen.Len()))

	c.joinTails(caps.tails)
	result, sanityErr := c.joinSanityChecks(caps)
	if loopErr != nil {
		return nil, loopErr
	}
	if sanityErr != nil {
		return nil, sanityErr
	}
	return result, nil
}

// WaitForFirstRunning polls until at least one pod is in Running phase.
func (c *Coordinator) WaitForFirstRunning(ctx context.Context) error {
	condition := func(ctx context.Context) (bool, error) {
		pods, err := c.Pods.ListPods(ctx)
		if err != nil {
			klog.ErrorS(err, "List pods while waiting for first running pod")
			return false, nil
		}
		running := cluster.CountRunning(pods)
		metricRunningPods.Set(float64(running))
		return running > 0, nil
	}

	var err error
	if c.ReadyTimeout > 0 {
		err = wait.PollUntilContextTimeout(ctx, c.interval(), c.ReadyTimeout, true, condition)
	} else {
		err = wait.PollUntilContextCancel(ctx, c.interval(), true, condition)
	}
	if err != nil {
		return fmt.Errorf("wait for first running pod: %w", err)
	}
	klog.InfoS("Ensemble pod running, starting log capture", "dir", c.Dir)
	return nil
}

func (c *Coordinator) capture(ctx context.Context) (*captures, error) {
	caps := &captures{seen: sets.New[string]()}

	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	for {
		pods, err := c.Pods.ListPods(ctx)
		if err != nil {
			// A failed list says nothing about running pods; try again next tick.
			klog.ErrorS(err, "List pods during log capture")
		} else {
			running := c.observe(ctx, caps, pods)
			metricRunningPods.Set(float64(running))
			if running == 0 {
				klog.InfoS("No running pods left, ending log capture", "pods", caps.seen.Len())
				return caps, nil
			}
		}

		select {
		case <-ctx.Done():
			return caps, fmt.Errorf("capture logs: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// observe starts captures for running pods not seen before and returns the
// number of running pods.
func (c *Coordinator) observe(ctx context.Context, caps *captures, pods []cluster.PodObservation) int {
	running := 0
	for _, pod := range pods {
		if !pod.Running() {
			continue
		}
		running++

		id := pod.Identity()
		if caps.seen.Has(id) {
			continue
		}
		caps.seen.Insert(id)
		klog.InfoS("Capturing logs", "pod", pod.Name, "uid", pod.UID, "node", pod.NodeName)

		// A launch failure leaves the identity seen without a capture, which
		// the count reconciliation reports.
		path := filepath.Join(c.Dir, dataset.PodLogFileName(id))
		if tail, err := c.Launcher.StartTail(ctx, pod, path); err != nil {
			metricCaptureFailures.WithLabelValues(kindTail).Inc()
			klog.ErrorS(err, "Start log capture", "pod", pod.Name)
		} else {
			metricCapturesStarted.WithLabelValues(kindTail).Inc()
			caps.tails = append(caps.tails, tail)
		}

		if check, err := c.Launcher.StartSanityCheck(ctx, pod); err != nil {
			metricCaptureFailures.WithLabelValues(kindSanity).Inc()
			klog.ErrorS(err, "Start sanity check", "pod", pod.Name)
		} else {
			metricCapturesStarted.WithLabelValues(kindSanity).Inc()
			caps.sanities = append(caps.sanities, check)
		}
	}
	return running
}

func (c *Coordinator) joinTails(tails []Capture) {
	for _, tail := range tails {
		output, err := tail.Wait()
		if err != nil {
			metricCaptureFailures.WithLabelValues(kindTail).Inc()
			klog.Warningf("Log capture for pod %s returned with error: %v. Output: %s", tail.Pod().Name, err, output)
		}
	}
}

func (c *Coordinator) joinSanityChecks(caps *captures) (*Result, error) {
	result := NewResult(caps.seen.Len(), len(caps.tails), len(caps.sanities))

	var errs []error
	for _, check := range caps.sanities {
		pod := check.Pod()
		output, err := check.Wait()
		if err != nil {
			metricCaptureFailures.WithLabelValues(kindSanity).Inc()
			errs = append(errs, fmt.Errorf("sanity check of %s: %w: %s", pod.Identity(), err, output))
			continue
		}
		size, weight, err := ParseInit(output)
		if err != nil {
			errs = append(errs, fmt.Errorf("sanity check of %s: %w", pod.Identity(), err))
			continue
		}
		klog.V(2).InfoS("Sanity check output", "pod", pod.Name, "ensembleSize", size, "randomWeight", weight)
		result.Observe(size, weight)
	}

	if agg := utilerrors.NewAggregate(errs); agg != nil {
		return nil, agg
	}
	return result, nil
}

func (c *Coordinator) interval() time.Duration {
	if c.Interval <= 0 {
		return DefaultPollInterval
	}
	return c.Interval
}
