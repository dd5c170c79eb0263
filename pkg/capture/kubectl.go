package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"mtdbench/pkg/cluster"
)

// KubectlCommand returns the kubectl invocation prefix for the platform.
func KubectlCommand(microk8s bool) []string {
	if microk8s {
		return []string{"microk8s", "kubectl"}
	}
	return []string{"kubectl"}
}

// KubectlLauncher streams pod logs by running `kubectl logs -f` per capture
// and filtering its stdout.
type KubectlLauncher struct {
	Options
	// Command is the kubectl invocation prefix, see KubectlCommand.
	Command []string
}

// NewKubectlLauncher creates a launcher using the plain or microk8s kubectl.
func NewKubectlLauncher(opts Options, microk8s bool) *KubectlLauncher {
	return &KubectlLauncher{
		Options: opts.withDefaults(),
		Command: KubectlCommand(microk8s),
	}
}

// LogsArgs returns the full argv used to follow a pod's logs.
func (l *KubectlLauncher) LogsArgs(pod cluster.PodObservation) []string {
	opts := l.Options.withDefaults()
	args := make([]string, 0, len(l.Command)+7)
	args = append(args, l.Command...)
	return append(args, "logs", "-n", opts.Namespace, pod.Name, "-c", opts.Container, "-f")
}

func (l *KubectlLauncher) StartTail(ctx context.Context, pod cluster.PodObservation, path string) (Capture, error) {
	return startTail(ctx, l.open, pod, l.Options.withDefaults().TailMarker, path)
}

func (l *KubectlLauncher) StartSanityCheck(ctx context.Context, pod cluster.PodObservation) (Capture, error) {
	return startSanity(ctx, l.open, pod, l.Options.withDefaults().SanityMarker)
}

func (l *KubectlLauncher) open(ctx context.Context, pod cluster.PodObservation) (*stream, error) {
	args := l.LogsArgs(pod)
	if len(args) == 0 || len(l.Command) == 0 {
		return nil, fmt.Errorf("kubectl command not configured")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	configureCommandProcess(cmd)
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd)
		return nil
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", strings.Join(args, " "), err)
	}

	return &stream{
		body: stdout,
		wait: func() (string, error) {
			err := cmd.Wait()
			return stderr.String(), err
		},
	}, nil
}
