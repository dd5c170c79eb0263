package capture

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"

	"mtdbench/pkg/cluster"
)

// APILauncher follows pod logs through the Kubernetes API instead of a
// kubectl subprocess. Useful where kubectl is not installed next to the
// harness.
type APILauncher struct {
	Options
	Clientset kubernetes.Interface
}

// NewAPILauncher creates a launcher streaming logs with clientset.
func NewAPILauncher(clientset kubernetes.Interface, opts Options) *APILauncher {
	return &APILauncher{Options: opts.withDefaults(), Clientset: clientset}
}

func (l *APILauncher) StartTail(ctx context.Context, pod cluster.PodObservation, path string) (Capture, error) {
	return startTail(ctx, l.open, pod, l.Options.withDefaults().TailMarker, path)
}

func (l *APILauncher) StartSanityCheck(ctx context.Context, pod cluster.PodObservation) (Capture, error) {
	return startSanity(ctx, l.open, pod, l.Options.withDefaults().SanityMarker)
}

func (l *APILauncher) open(ctx context.Context, pod cluster.PodObservation) (*stream, error) {
	opts := l.Options.withDefaults()
	req := l.Clientset.CoreV1().Pods(opts.Namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
		Container: opts.Container,
		Follow:    true,
	})
	body, err := req.Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("stream logs of %s/%s: %w", opts.Namespace, pod.Name, err)
	}
	return &stream{
		body: body,
		wait: func() (string, error) {
			return "", body.Close()
		},
	}, nil
}
