package analysis

// Package analysis turns the CSV files of experiment runs into the numbers
// behind the figures: synchronization delays between consecutive leads,
// per-node load, election counts and the leader timeline of recovery runs.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"mtdbench/pkg/dataset"
)

// ErrMalformedRun is returned when a run directory breaks the one node per
// ensemble file rule.
var ErrMalformedRun = errors.New("malformed run")

// NodeStats is what one ensemble member's file says about its node.
type NodeStats struct {
	Node string
	File string
	// Loads holds the non-negative EXP-LOAD values in file order.
	Loads []float64
	// NegativeLoads counts dropped EXP-LOAD values below zero.
	NegativeLoads int
	// Elected counts rows whose value is START.
	Elected int
}

// Run is the analysed content of one run directory.
type Run struct {
	Key dataset.RunKey
	Dir string
	// Nodes is keyed by node name.
	Nodes map[string]*NodeStats
	// SyncDelays are the gaps between consecutive lead starts across the
	// whole ensemble, in seconds.
	SyncDelays []float64
}

// NegativeLoads sums the dropped load values of all nodes.
func (r *Run) NegativeLoads() int {
	n := 0
	for _, s := range r.Nodes {
		n += s.NegativeLoads
	}
	return n
}

// NodeNames returns the run's nodes in sorted order.
func (r *Run) NodeNames() []string {
	names := make([]string, 0, len(r.Nodes))
	for n := range r.Nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SyncDelays computes the delays between consecutive EXP-LEAD START rows,
// sorted by time, in seconds.
func SyncDelays(records []dataset.Record) ([]float64, error) {
	var starts []time.Time
	for _, r := range records {
		if r.Type != dataset.TypeLead || r.Value != dataset.PhaseStart {
			continue
		}
		t, err := r.Timestamp()
		if err != nil {
			return nil, err
		}
		starts = append(starts, t)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	delays := make([]float64, 0, len(starts))
	for i := 1; i < len(starts); i++ {
		delays = append(delays, starts[i].Sub(starts[i-1]).Seconds())
	}
	return delays, nil
}

// NodeStatsFor summarizes the records of one ensemble file. The file must
// name exactly one node.
func NodeStatsFor(file string, records []dataset.Record) (*NodeStats, error) {
	nodes := sets.New[string]()
	for _, r := range records {
		nodes.Insert(r.Node)
	}
	if nodes.Len() != 1 {
		return nil, fmt.Errorf("%w: %s lists nodes %v, expected exactly one", ErrMalformedRun, file, sets.List(nodes))
	}

	stats := &NodeStats{Node: sets.List(nodes)[0], File: file}
	for _, r := range records {
		if r.Value == dataset.PhaseStart {
			stats.Elected++
		}
		if r.Type != dataset.TypeLoad {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: parse load %q: %w", file, r.Value, err)
		}
		if v < 0 {
			stats.NegativeLoads++
			continue
		}
		stats.Loads = append(stats.Loads, v)
	}
	return stats, nil
}

// EnsembleFiles lists the ensemble log files of a run directory in name
// order, skipping client.csv.
func EnsembleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read run directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == dataset.ClientFileName || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// LoadRun reads every ensemble file of a run directory. The directory name
// must follow <duration>-<size>-<weight>.
func LoadRun(dir string) (*Run, error) {
	key, err := dataset.ParseRunDirName(filepath.Base(dir))
	if err != nil {
		return nil, err
	}
	files, err := EnsembleFiles(dir)
	if err != nil {
		return nil, err
	}

	run := &Run{Key: key, Dir: dir, Nodes: map[string]*NodeStats{}}
	var all []dataset.Record
	for _, f := range files {
		records, err := dataset.ReadRecordsFile(f)
		if err != nil {
			return nil, err
		}
		stats, err := NodeStatsFor(f, records)
		if err != nil {
			return nil, err
		}
		if prev, ok := run.Nodes[stats.Node]; ok {
			return nil, fmt.Errorf("%w: node %s appears in %s and %s", ErrMalformedRun, stats.Node, prev.File, f)
		}
		run.Nodes[stats.Node] = stats
		all = append(all, records...)
	}

	run.SyncDelays, err = SyncDelays(all)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return run, nil
}
