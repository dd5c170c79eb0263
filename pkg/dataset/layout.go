package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// ClientFileName is the workload client's output file in a run directory.
const ClientFileName = "client.csv"

// PodLogFileName returns the capture file name for a pod identity
// (<name>-<uid>).
func PodLogFileName(identity string) string {
	return identity + ".csv"
}

// RunKey identifies one experiment run directory.
type RunKey struct {
	DurationSeconds int
	EnsembleSize    int
	RandomWeight    float64
}

// RunDirName returns <duration>-<size>-<weight>.
func RunDirName(key RunKey) string {
	return fmt.Sprintf("%d-%d-%s", key.DurationSeconds, key.EnsembleSize, FormatWeight(key.RandomWeight))
}

// ParseRunDirName is the inverse of RunDirName.
func ParseRunDirName(name string) (RunKey, error) {
	parts := strings.Split(name, "-")
	if len(parts) != 3 {
		return RunKey{}, fmt.Errorf("run directory %q: expected <duration>-<size>-<weight>", name)
	}
	duration, err := strconv.Atoi(parts[0])
	if err != nil {
		return RunKey{}, fmt.Errorf("run directory %q: duration: %w", name, err)
	}
	size, err := strconv.Atoi(parts[1])
	if err != nil {
		return RunKey{}, fmt.Errorf("run directory %q: ensemble size: %w", name, err)
	}
	weight, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return RunKey{}, fmt.Errorf("run directory %q: random weight: %w", name, err)
	}
	return RunKey{DurationSeconds: duration, EnsembleSize: size, RandomWeight: weight}, nil
}

// LoadedDirName returns the study directory for n artificially loaded nodes.
func LoadedDirName(n int) string {
	return fmt.Sprintf("%d-loaded", n)
}

// FormatWeight renders a weight the way the ensemble's launcher expects it:
// shortest representation, always with a decimal point (0.0, 0.5, 1.0).
func FormatWeight(w float64) string {
	s := strconv.FormatFloat(w, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
