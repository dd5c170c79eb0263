//go:build !windows

package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKubectlLauncher_LogsArgs(t *testing.T) {
	pod := running("mtd-zk-0", "u0")

	plain := NewKubectlLauncher(Options{}, false)
	want := []string{"kubectl", "logs", "-n", "mtd", "mtd-zk-0", "-c", "mtd-coordinator", "-f"}
	if diff := cmp.Diff(want, plain.LogsArgs(pod)); diff != "" {
		t.Errorf("kubectl args mismatch (-want +got):\n%s", diff)
	}

	micro := NewKubectlLauncher(Options{Namespace: "bench"}, true)
	want = []string{"microk8s", "kubectl", "logs", "-n", "bench", "mtd-zk-0", "-c", "mtd-coordinator", "-f"}
	if diff := cmp.Diff(want, micro.LogsArgs(pod)); diff != "" {
		t.Errorf("microk8s args mismatch (-want +got):\n%s", diff)
	}
}

// scriptLauncher replaces kubectl with a shell script; the logs arguments
// end up as ignored positional parameters.
func scriptLauncher(script string) *KubectlLauncher {
	l := NewKubectlLauncher(Options{}, false)
	l.Command = []string{"sh", "-c", script}
	return l
}

func TestKubectlLauncher_TailAndSanity(t *testing.T) {
	script := `printf 'INIT: ensemble size=3, random weight=0.500000\nEXP-LEAD, 2023-07-28T11:40:01.120, ubuntu22-b, c-0001, START\nother\n'`
	l := scriptLauncher(script)
	pod := running("mtd-zk-0", "u0")

	path := filepath.Join(t.TempDir(), "mtd-zk-0-u0.csv")
	tail, err := l.StartTail(context.Background(), pod, path)
	if err != nil {
		t.Fatalf("StartTail failed: %v", err)
	}
	if out, err := tail.Wait(); err != nil {
		t.Fatalf("tail failed: %v (%s)", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "EXP-LEAD, 2023-07-28T11:40:01.120, ubuntu22-b, c-0001, START\n" {
		t.Errorf("Unexpected capture file %q", data)
	}

	check, err := l.StartSanityCheck(context.Background(), pod)
	if err != nil {
		t.Fatalf("StartSanityCheck failed: %v", err)
	}
	out, err := check.Wait()
	if err != nil {
		t.Fatalf("sanity check failed: %v", err)
	}
	size, weight, err := ParseInit(out)
	if err != nil || size != 3 || weight != 0.5 {
		t.Errorf("ParseInit = (%d, %v, %v), want (3, 0.5, nil)", size, weight, err)
	}
}

func TestKubectlLauncher_NonZeroExit(t *testing.T) {
	l := scriptLauncher(`echo 'error: pod not found' >&2; exit 1`)

	check, err := l.StartSanityCheck(context.Background(), running("mtd-zk-0", "u0"))
	if err != nil {
		t.Fatalf("StartSanityCheck failed: %v", err)
	}
	out, err := check.Wait()
	if err == nil {
		t.Fatal("Expected non-zero exit to be reported")
	}
	if out != "error: pod not found\n" {
		t.Errorf("Expected stderr in output, got %q", out)
	}
}

func TestKubectlLauncher_CancelKillsStream(t *testing.T) {
	l := scriptLauncher(`sleep 30`)
	ctx, cancel := context.WithCancel(context.Background())

	check, err := l.StartSanityCheck(ctx, running("mtd-zk-0", "u0"))
	if err != nil {
		t.Fatalf("StartSanityCheck failed: %v", err)
	}
	cancel()
	if _, err := check.Wait(); err == nil {
		t.Error("Expected error from a killed stream")
	}
}
