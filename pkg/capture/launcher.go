package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"mtdbench/pkg/cluster"
)

const (
	// DefaultContainer is the ensemble container whose logs are captured.
	DefaultContainer = "mtd-coordinator"
	// DefaultTailMarker selects experiment rows (EXP-LEAD, EXP-LOAD).
	DefaultTailMarker = "EXP"
	// DefaultSanityMarker selects the ensemble's startup parameter line.
	DefaultSanityMarker = "INIT"

	maxLineBytes = 1024 * 1024
)

// Capture is a running log capture for one pod. Wait blocks until the
// underlying stream ends and returns the diagnostic output gathered.
type Capture interface {
	Pod() cluster.PodObservation
	Wait() (string, error)
}

// Launcher starts captures. StartTail writes filtered experiment rows to
// path; StartSanityCheck keeps the filtered startup lines in memory and
// returns them from Wait.
type Launcher interface {
	StartTail(ctx context.Context, pod cluster.PodObservation, path string) (Capture, error)
	StartSanityCheck(ctx context.Context, pod cluster.PodObservation) (Capture, error)
}

// Options are shared by all launchers.
type Options struct {
	Namespace    string
	Container    string
	TailMarker   string
	SanityMarker string
}

func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = cluster.DefaultNamespace
	}
	if o.Container == "" {
		o.Container = DefaultContainer
	}
	if o.TailMarker == "" {
		o.TailMarker = DefaultTailMarker
	}
	if o.SanityMarker == "" {
		o.SanityMarker = DefaultSanityMarker
	}
	return o
}

// handle is the Capture returned by the built-in launchers.
type handle struct {
	pod    cluster.PodObservation
	done   chan struct{}
	output string
	err    error
}

func newHandle(pod cluster.PodObservation) *handle {
	return &handle{pod: pod, done: make(chan struct{})}
}

func (h *handle) finish(output string, err error) {
	h.output = output
	h.err = err
	close(h.done)
}

func (h *handle) Pod() cluster.PodObservation { return h.pod }

func (h *handle) Wait() (string, error) {
	<-h.done
	return h.output, h.err
}

// stream is an open pod log stream. wait is called once body is drained and
// reports how the stream ended plus any diagnostic text.
type stream struct {
	body io.ReadCloser
	wait func() (string, error)
}

type opener func(ctx context.Context, pod cluster.PodObservation) (*stream, error)

func startTail(ctx context.Context, open opener, pod cluster.PodObservation, marker, path string) (Capture, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	s, err := open(ctx, pod)
	if err != nil {
		f.Close()
		return nil, err
	}

	h := newHandle(pod)
	go func() {
		w := bufio.NewWriter(f)
		_, filterErr := FilterLines(s.body, marker, w)
		diag, waitErr := s.wait()
		flushErr := w.Flush()
		closeErr := f.Close()
		h.finish(diag, firstError(waitErr, filterErr, flushErr, closeErr))
	}()
	return h, nil
}

func startSanity(ctx context.Context, open opener, pod cluster.PodObservation, marker string) (Capture, error) {
	s, err := open(ctx, pod)
	if err != nil {
		return nil, err
	}

	h := newHandle(pod)
	go func() {
		var buf bytes.Buffer
		_, filterErr := FilterLines(s.body, marker, &buf)
		diag, waitErr := s.wait()
		h.finish(buf.String()+diag, firstError(waitErr, filterErr))
	}()
	return h, nil
}

// FilterLines copies every line of r containing marker to w and returns the
// number of lines written. r is always drained, even after a write error, so
// the producer never blocks on a full pipe.
func FilterLines(r io.Reader, marker string, w io.Writer) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	n := 0
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, marker) {
			continue
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			_, _ = io.Copy(io.Discard, r)
			return n, fmt.Errorf("write filtered line: %w", err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return n, fmt.Errorf("read log stream: %w", err)
	}
	return n, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
