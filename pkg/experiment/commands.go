package experiment

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"k8s.io/klog/v2"
)

// CommandResult is the outcome of one external command.
type CommandResult struct {
	Args   []string
	Output string
	Err    error
}

// CommandRunner runs an external command in dir.
type CommandRunner interface {
	Run(ctx context.Context, dir string, args []string) CommandResult
}

// ExecRunner runs commands with os/exec, combining stdout and stderr.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, args []string) CommandResult {
	if len(args) == 0 {
		return CommandResult{Err: fmt.Errorf("empty command")}
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return CommandResult{Args: args, Output: strings.TrimSpace(string(out)), Err: err}
}

// runSequence runs every command in order. Failures are logged and do not
// stop the sequence; the number of failed commands is returned.
func runSequence(ctx context.Context, r CommandRunner, dir, stage string, commands [][]string) int {
	failed := 0
	for _, args := range commands {
		line := strings.Join(args, " ")
		klog.InfoS("Executing command", "stage", stage, "command", line)
		res := r.Run(ctx, dir, args)
		if res.Err != nil {
			failed++
			klog.ErrorS(res.Err, "Command failed", "stage", stage, "command", line, "output", res.Output)
			continue
		}
		klog.V(4).InfoS("Command output", "command", line, "output", res.Output)
	}
	return failed
}
