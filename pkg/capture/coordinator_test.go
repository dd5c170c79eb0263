package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/sets"

	"mtdbench/pkg/cluster"
)

// fakeLister replays one frame per ListPods call and repeats the last one.
type fakeLister struct {
	mu     sync.Mutex
	frames [][]cluster.PodObservation
	errAt  map[int]error
	calls  int
}

func (f *fakeLister) ListPods(ctx context.Context) ([]cluster.PodObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if err := f.errAt[i]; err != nil {
		return nil, err
	}
	if i >= len(f.frames) {
		i = len(f.frames) - 1
	}
	return f.frames[i], nil
}

type fakeCapture struct {
	pod    cluster.PodObservation
	output string
	err    error
}

func (c *fakeCapture) Pod() cluster.PodObservation { return c.pod }
func (c *fakeCapture) Wait() (string, error)       { return c.output, c.err }

// fakeLauncher counts launches per pod identity.
type fakeLauncher struct {
	mu          sync.Mutex
	tails       map[string]int
	sanities    map[string]int
	paths       []string
	failStart   sets.Set[string]
	tailErr     error
	sanityError map[string]error
	sizes       map[string]int
	weight      string
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		tails:       map[string]int{},
		sanities:    map[string]int{},
		failStart:   sets.New[string](),
		sanityError: map[string]error{},
		sizes:       map[string]int{},
		weight:      "0.500000",
	}
}

func (l *fakeLauncher) StartTail(ctx context.Context, pod cluster.PodObservation, path string) (Capture, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failStart.Has(pod.Name) {
		return nil, fmt.Errorf("kubectl not found")
	}
	l.tails[pod.Identity()]++
	l.paths = append(l.paths, path)
	return &fakeCapture{pod: pod, output: "tail output", err: l.tailErr}, nil
}

func (l *fakeLauncher) StartSanityCheck(ctx context.Context, pod cluster.PodObservation) (Capture, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failStart.Has(pod.Name) {
		return nil, fmt.Errorf("kubectl not found")
	}
	l.sanities[pod.Identity()]++
	size := 3
	if s, ok := l.sizes[pod.Name]; ok {
		size = s
	}
	output := fmt.Sprintf("INIT: ensemble size=%d, random weight=%s\n", size, l.weight)
	return &fakeCapture{pod: pod, output: output, err: l.sanityError[pod.Name]}, nil
}

func running(name, uid string) cluster.PodObservation {
	return cluster.PodObservation{Name: name, UID: uid, Phase: corev1.PodRunning, NodeName: "ubuntu22-b"}
}

func pending(name, uid string) cluster.PodObservation {
	return cluster.PodObservation{Name: name, UID: uid, Phase: corev1.PodPending}
}

func threePodFrames() [][]cluster.PodObservation {
	all := []cluster.PodObservation{running("mtd-zk-0", "u0"), running("mtd-zk-1", "u1"), running("mtd-zk-2", "u2")}
	return [][]cluster.PodObservation{
		{pending("mtd-zk-0", "u0")},
		{running("mtd-zk-0", "u0")},
		all,
		all,
		all,
		{},
	}
}

func newTestCoordinator(lister PodLister, launcher Launcher, dir string) *Coordinator {
	return &Coordinator{
		Pods:     lister,
		Launcher: launcher,
		Dir:      dir,
		Interval: time.Millisecond,
	}
}

func TestCoordinator_OneCapturePairPerIdentity(t *testing.T) {
	frames := [][]cluster.PodObservation{
		{pending("mtd-zk-0", "u0")},
		{running("mtd-zk-0", "u0")},
		{running("mtd-zk-0", "u0"), pending("mtd-zk-1", "u1")},
		{running("mtd-zk-0", "u0"), running("mtd-zk-1", "u1")},
		{running("mtd-zk-0", "u0"), running("mtd-zk-1", "u1"), running("mtd-zk-2", "u2")},
		{running("mtd-zk-0", "u0"), running("mtd-zk-1", "u1"), running("mtd-zk-2", "u2")},
		// mtd-zk-1 restarted: same name, new UID.
		{running("mtd-zk-0", "u0"), running("mtd-zk-1", "u1b"), running("mtd-zk-2", "u2")},
		{running("mtd-zk-1", "u1b")},
		{pending("mtd-zk-1", "u1b")},
	}
	launcher := newFakeLauncher()
	startedBefore := testutil.ToFloat64(metricCapturesStarted.WithLabelValues(kindTail))

	c := newTestCoordinator(&fakeLister{frames: frames}, launcher, "/data/run")
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[string]int{"mtd-zk-0-u0": 1, "mtd-zk-1-u1": 1, "mtd-zk-2-u2": 1, "mtd-zk-1-u1b": 1}
	if diff := cmp.Diff(want, launcher.tails); diff != "" {
		t.Errorf("Tail launches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, launcher.sanities); diff != "" {
		t.Errorf("Sanity launches mismatch (-want +got):\n%s", diff)
	}
	if launcher.paths[0] != "/data/run/mtd-zk-0-u0.csv" {
		t.Errorf("Unexpected capture path %s", launcher.paths[0])
	}

	count, err := result.Verify(3, 0.5)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if count != 4 {
		t.Errorf("Expected 4 capture pairs, got %d", count)
	}

	startedAfter := testutil.ToFloat64(metricCapturesStarted.WithLabelValues(kindTail))
	if startedAfter-startedBefore != 4 {
		t.Errorf("Expected 4 tail starts in metrics, got %v", startedAfter-startedBefore)
	}
}

func TestCoordinator_ReconcilesParameters(t *testing.T) {
	c := newTestCoordinator(&fakeLister{frames: threePodFrames()}, newFakeLauncher(), t.TempDir())

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.EnsembleSizes.Equal(sets.New(3)) {
		t.Errorf("Expected sizes {3}, got %v", sets.List(result.EnsembleSizes))
	}
	if !result.RandomWeights.Equal(sets.New(0.5)) {
		t.Errorf("Expected weights {0.5}, got %v", sets.List(result.RandomWeights))
	}
	if count, err := result.Verify(3, 0.5); err != nil || count != 3 {
		t.Errorf("Verify = (%d, %v), want (3, nil)", count, err)
	}
}

func TestCoordinator_MixedEnsembleSizesFail(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.sizes["mtd-zk-2"] = 4

	c := newTestCoordinator(&fakeLister{frames: threePodFrames()}, launcher, t.TempDir())
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.EnsembleSizes.Equal(sets.New(3, 4)) {
		t.Errorf("Expected sizes {3,4}, got %v", sets.List(result.EnsembleSizes))
	}
	if _, err := result.Verify(3, 0.5); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Expected ErrInconsistent, got %v", err)
	}
}

func TestCoordinator_MissingCapturePairFails(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.failStart.Insert("mtd-zk-2")

	c := newTestCoordinator(&fakeLister{frames: threePodFrames()}, launcher, t.TempDir())
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Counts.Len() <= 1 {
		t.Fatalf("Expected non-singleton counts, got %v", sets.List(result.Counts))
	}
	if !result.Counts.Equal(sets.New(3, 2)) {
		t.Errorf("Expected counts {2,3}, got %v", sets.List(result.Counts))
	}
	if _, err := result.Verify(3, 0.5); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Expected ErrInconsistent, got %v", err)
	}
}

func TestCoordinator_SanityFailureIsFatal(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.sanityError["mtd-zk-1"] = errors.New("exit status 1")

	c := newTestCoordinator(&fakeLister{frames: threePodFrames()}, launcher, t.TempDir())
	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("Expected sanity check failure to abort the run")
	}
}

func TestCoordinator_MissingInitMarkerIsFatal(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.weight = "high"

	c := newTestCoordinator(&fakeLister{frames: threePodFrames()}, launcher, t.TempDir())
	_, err := c.Run(context.Background())
	if !errors.Is(err, ErrNoInitMarker) {
		t.Errorf("Expected ErrNoInitMarker, got %v", err)
	}
}

func TestCoordinator_TailFailureIsWarning(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.tailErr = errors.New("exit status 1")

	c := newTestCoordinator(&fakeLister{frames: threePodFrames()}, launcher, t.TempDir())
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Tail failures should not abort the run: %v", err)
	}
	if _, err := result.Verify(3, 0.5); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestCoordinator_ListErrorDoesNotEndCapture(t *testing.T) {
	lister := &fakeLister{
		frames: threePodFrames(),
		errAt:  map[int]error{2: errors.New("connection refused")},
	}
	launcher := newFakeLauncher()

	c := newTestCoordinator(lister, launcher, t.TempDir())
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if count, err := result.Verify(3, 0.5); err != nil || count != 3 {
		t.Errorf("Verify = (%d, %v), want (3, nil)", count, err)
	}
}

func TestCoordinator_ReadyTimeout(t *testing.T) {
	lister := &fakeLister{frames: [][]cluster.PodObservation{{pending("mtd-zk-0", "u0")}}}
	c := newTestCoordinator(lister, newFakeLauncher(), t.TempDir())
	c.ReadyTimeout = 30 * time.Millisecond

	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("Expected timeout waiting for first running pod")
	}
}

func TestCoordinator_CancelWhileWaiting(t *testing.T) {
	lister := &fakeLister{frames: [][]cluster.PodObservation{{}}}
	c := newTestCoordinator(lister, newFakeLauncher(), t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := c.Run(ctx); err == nil {
		t.Fatal("Expected error after cancellation")
	}
}

func TestResult_Verify(t *testing.T) {
	r := NewResult(3, 3, 3)
	r.Observe(3, 0.5)
	r.Observe(3, 0.5)
	if _, err := r.Verify(3, 0.5); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
	if _, err := r.Verify(5, 0.5); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Expected size mismatch, got %v", err)
	}
	if _, err := r.Verify(3, 0.1); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Expected weight mismatch, got %v", err)
	}

	r.Observe(3, 0.6)
	if _, err := r.Verify(3, 0.5); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Expected non-singleton weights to fail, got %v", err)
	}
}
