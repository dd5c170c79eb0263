package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"mtdbench/pkg/dataset"
)

// DefaultLoadedLevels are the numbers of artificially loaded nodes of the
// main study.
var DefaultLoadedLevels = []int{0, 1, 2, 3}

// studyLogFile sits next to the run directories and is not a run.
const studyLogFile = "log.txt"

// Study holds the runs of a study laid out as <base>/<n>-loaded/<run>.
type Study struct {
	Base   string
	Levels []int
	// Runs is keyed by loaded level, then random weight.
	Runs map[int]map[float64]*Run
}

// LoadStudy loads every run under base for the given loaded levels.
func LoadStudy(base string, levels []int) (*Study, error) {
	s := &Study{Base: base, Levels: append([]int(nil), levels...), Runs: map[int]map[float64]*Run{}}
	sort.Ints(s.Levels)

	for _, level := range s.Levels {
		dir := filepath.Join(base, dataset.LoadedDirName(level))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read study level %d: %w", level, err)
		}
		runs := map[float64]*Run{}
		for _, e := range entries {
			if e.Name() == studyLogFile || !e.IsDir() {
				continue
			}
			run, err := LoadRun(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("load run %s/%s: %w", dataset.LoadedDirName(level), e.Name(), err)
			}
			if _, dup := runs[run.Key.RandomWeight]; dup {
				return nil, fmt.Errorf("%w: two runs for weight %v in %s", ErrMalformedRun, run.Key.RandomWeight, dir)
			}
			runs[run.Key.RandomWeight] = run
		}
		klog.V(2).InfoS("Loaded study level", "level", level, "runs", len(runs))
		s.Runs[level] = runs
	}
	return s, nil
}

// Weights returns every random weight found in the study, ascending.
func (s *Study) Weights() []float64 {
	w := sets.New[float64]()
	for _, runs := range s.Runs {
		for weight := range runs {
			w.Insert(weight)
		}
	}
	return sets.List(w)
}

// Nodes returns every node name found in the study, sorted.
func (s *Study) Nodes() []string {
	n := sets.New[string]()
	for _, runs := range s.Runs {
		for _, run := range runs {
			n.Insert(run.NodeNames()...)
		}
	}
	return sets.List(n)
}

// Run returns the run for a level and weight, or nil.
func (s *Study) Run(level int, weight float64) *Run {
	return s.Runs[level][weight]
}

// SyncDelays returns the ensemble sync delays of one run; nil when the run
// is missing.
func (s *Study) SyncDelays(level int, weight float64) []float64 {
	if r := s.Run(level, weight); r != nil {
		return r.SyncDelays
	}
	return nil
}

// LoadsByNode pools the load values of each node over all weights of a
// level.
func (s *Study) LoadsByNode(level int) map[string][]float64 {
	out := map[string][]float64{}
	for _, weight := range s.Weights() {
		run := s.Run(level, weight)
		if run == nil {
			continue
		}
		for name, stats := range run.Nodes {
			out[name] = append(out[name], stats.Loads...)
		}
	}
	return out
}

// ElectionCounts returns, per node, the election count for each weight of
// a level. Missing runs or nodes count zero.
func (s *Study) ElectionCounts(level int) map[string][]int {
	weights := s.Weights()
	out := map[string][]int{}
	for _, node := range s.Nodes() {
		counts := make([]int, len(weights))
		for i, weight := range weights {
			if run := s.Run(level, weight); run != nil {
				if stats, ok := run.Nodes[node]; ok {
					counts[i] = stats.Elected
				}
			}
		}
		out[node] = counts
	}
	return out
}

// NegativeLoads counts dropped load values across the study.
func (s *Study) NegativeLoads() int {
	n := 0
	for _, runs := range s.Runs {
		for _, run := range runs {
			n += run.NegativeLoads()
		}
	}
	return n
}
