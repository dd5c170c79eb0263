package workload

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"mtdbench/pkg/dataset"
)

// Outcome classifies a single poll of the service.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeTimeout           Outcome = "timeout"
	OutcomeConnectionFailure Outcome = "connection_failure"
	OutcomeError             Outcome = "error"
)

// Sample is the result of one poll. Node and Latency are only set for
// OutcomeOK.
type Sample struct {
	Time    time.Time
	Node    string
	Latency time.Duration
	Outcome Outcome
	Err     error
}

// OK reports whether the service answered.
func (s Sample) OK() bool { return s.Outcome == OutcomeOK }

// Row converts the sample to a client.csv row.
func (s Sample) Row() dataset.ClientRow {
	return dataset.ClientRow{
		Time:    s.Time,
		Node:    s.Node,
		Latency: s.Latency,
		Failed:  !s.OK(),
	}
}

// Transient reports whether a failed poll is worth retrying while waiting for
// the service to come up.
func (s Sample) Transient() bool {
	return s.Outcome == OutcomeTimeout || s.Outcome == OutcomeConnectionFailure
}

func classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return OutcomeConnectionFailure
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Connection reset or closed mid-response.
		return OutcomeConnectionFailure
	}
	return OutcomeError
}
