// Package workload is the foreground client of an experiment. It polls the
// service fronting the ensemble's target and records which node answered
// and how long it took.
package workload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"k8s.io/klog/v2"

	"mtdbench/pkg/dataset"
)

const (
	// DefaultInterval is the pause between two polls.
	DefaultInterval = 200 * time.Millisecond
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 5 * time.Second
	// DefaultLocation is the zone client timestamps are written in.
	DefaultLocation = "Europe/Paris"
)

// Config configures a Poller.
type Config struct {
	// URL of the service, e.g. http://172.18.255.200:5678/.
	URL      string
	Interval time.Duration
	Timeout  time.Duration
	// Duration of the measured phase, counted from the first answer.
	Duration time.Duration
	// Location for timestamps. Nil means UTC.
	Location *time.Location
}

// ServiceURL builds the URL polled for a service address.
func ServiceURL(ip string, port int) string {
	return fmt.Sprintf("http://%s:%d/", ip, port)
}

// Summary counts the samples of one measured phase.
type Summary struct {
	Requests  int
	ByOutcome map[Outcome]int
	Nodes     map[string]int
}

// Poller polls the service at a fixed interval.
type Poller struct {
	cfg  Config
	http *resty.Client
	now  func() time.Time
}

// NewPoller creates a Poller, filling unset intervals with defaults.
func NewPoller(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Poller{
		cfg:  cfg,
		http: resty.New().SetTimeout(cfg.Timeout),
		now:  time.Now,
	}
}

// Probe sends one request and classifies the result.
func (p *Poller) Probe(ctx context.Context) Sample {
	start := p.now()
	resp, err := p.http.R().SetContext(ctx).Get(p.cfg.URL)
	latency := p.now().Sub(start)

	s := Sample{Time: start, Outcome: classify(err), Err: err}
	if err == nil {
		s.Node = strings.TrimRight(resp.String(), "\n")
		s.Latency = latency
	}
	observe(s)
	return s
}

// WaitForService polls until the service answers once. Timeouts and refused
// connections are retried; any other failure is returned.
func (p *Poller) WaitForService(ctx context.Context) error {
	for {
		s := p.Probe(ctx)
		if s.OK() {
			klog.InfoS("Service is answering", "url", p.cfg.URL, "node", s.Node)
			return nil
		}
		if !s.Transient() {
			return fmt.Errorf("wait for service %s: %w", p.cfg.URL, s.Err)
		}
		klog.V(4).InfoS("Service not ready", "url", p.cfg.URL, "outcome", s.Outcome)
		if err := sleep(ctx, p.cfg.Interval); err != nil {
			return fmt.Errorf("wait for service %s: %w", p.cfg.URL, err)
		}
	}
}

// Run waits for the service, then polls it for the configured duration,
// writing one client.csv row per poll to w. Failed polls are written as
// blank rows and never end the run.
func (p *Poller) Run(ctx context.Context, w io.Writer) (Summary, error) {
	summary := Summary{ByOutcome: map[Outcome]int{}, Nodes: map[string]int{}}
	if err := p.WaitForService(ctx); err != nil {
		return summary, err
	}

	deadline := p.now().Add(p.cfg.Duration)
	klog.InfoS("Starting workload", "url", p.cfg.URL, "duration", p.cfg.Duration)
	for p.now().Before(deadline) {
		s := p.Probe(ctx)
		if ctx.Err() != nil {
			return summary, fmt.Errorf("run workload: %w", ctx.Err())
		}
		if !s.OK() {
			klog.V(2).InfoS("Request failed", "outcome", s.Outcome, "err", s.Err)
		}

		summary.Requests++
		summary.ByOutcome[s.Outcome]++
		if s.OK() {
			summary.Nodes[s.Node]++
		}
		if err := dataset.WriteClientRow(w, s.Row(), p.cfg.Location); err != nil {
			return summary, err
		}

		if err := sleep(ctx, p.cfg.Interval); err != nil {
			return summary, fmt.Errorf("run workload: %w", err)
		}
	}
	klog.InfoS("Workload finished", "requests", summary.Requests, "ok", summary.ByOutcome[OutcomeOK])
	return summary, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
