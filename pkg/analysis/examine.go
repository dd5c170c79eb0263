package analysis

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"mtdbench/pkg/dataset"
)

// Section headers of a run summary log.
const (
	summarySeparator = "==========================================================="
	headerLoadCounts = "individual candidate LOAD count"
	headerStartCount = "total ensemble START count"
	headerFirstLines = "first lines"
	headerLastLines  = "last lines"
)

// RunSummary is one block of a run summary log: per-file LOAD row counts,
// the ensemble's START count and the first and last timestamp of every file.
type RunSummary struct {
	Run        string
	LoadCounts []int
	StartCount int
	First      []time.Time
	Last       []time.Time
}

// Gap is the distance between a first and a last timestamp of a run.
type Gap struct {
	Run   string
	Delta time.Duration
}

// Examination is the result of checking a run summary log.
type Examination struct {
	Runs int
	// Suspicious lists runs whose LOAD and START counts differ by more
	// than one.
	Suspicious []string
	Shortest   Gap
	Longest    Gap
}

// SummarizeRun builds the summary block of a run directory. runID is
// usually <n>-loaded/<run-dir>.
func SummarizeRun(runID, dir string) (*RunSummary, error) {
	files, err := EnsembleFiles(dir)
	if err != nil {
		return nil, err
	}
	s := &RunSummary{Run: runID}
	for _, f := range files {
		records, err := dataset.ReadRecordsFile(f)
		if err != nil {
			return nil, err
		}
		loads := 0
		for _, r := range records {
			switch {
			case r.Type == dataset.TypeLoad:
				loads++
			case r.Value == dataset.PhaseStart:
				s.StartCount++
			}
		}
		s.LoadCounts = append(s.LoadCounts, loads)
		if len(records) == 0 {
			continue
		}
		first, err := records[0].Timestamp()
		if err != nil {
			return nil, err
		}
		last, err := records[len(records)-1].Timestamp()
		if err != nil {
			return nil, err
		}
		s.First = append(s.First, first)
		s.Last = append(s.Last, last)
	}

	rows, err := dataset.ReadClientFile(filepath.Join(dir, dataset.ClientFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if len(rows) > 0 {
		s.First = append(s.First, rows[0].Time)
		s.Last = append(s.Last, rows[len(rows)-1].Time)
	}
	return s, nil
}

// WriteRunSummaries writes summary blocks in the form ParseRunSummaries
// reads.
func WriteRunSummaries(w io.Writer, summaries []*RunSummary) error {
	bw := bufio.NewWriter(w)
	for _, s := range summaries {
		fmt.Fprintln(bw, summarySeparator)
		fmt.Fprintln(bw, s.Run)
		fmt.Fprintln(bw, headerLoadCounts)
		for _, c := range s.LoadCounts {
			fmt.Fprintln(bw, c)
		}
		fmt.Fprintln(bw, headerStartCount)
		fmt.Fprintln(bw, s.StartCount)
		fmt.Fprintln(bw, headerFirstLines)
		for _, t := range s.First {
			fmt.Fprintln(bw, t.Format(dataset.TimeLayout))
		}
		fmt.Fprintln(bw, headerLastLines)
		for _, t := range s.Last {
			fmt.Fprintln(bw, t.Format(dataset.TimeLayout))
		}
		fmt.Fprintln(bw, summarySeparator)
	}
	return bw.Flush()
}

type summaryState int

const (
	stateOutside summaryState = iota
	stateRunID
	stateLoadCounts
	stateStartCount
	stateFirstLines
	stateLastLines
)

// ParseRunSummaries reads a run summary log. Text between blocks is
// ignored; a block that breaks off is an error.
func ParseRunSummaries(r io.Reader) ([]*RunSummary, error) {
	var (
		out   []*RunSummary
		cur   *RunSummary
		state = stateOutside
		lineN int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineN++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fail := func(format string, args ...any) error {
			return fmt.Errorf("line %d: %s", lineN, fmt.Sprintf(format, args...))
		}

		if line == summarySeparator {
			switch state {
			case stateOutside:
				state = stateRunID
			case stateRunID:
				// Two separators in a row between blocks.
			case stateLastLines:
				out = append(out, cur)
				cur, state = nil, stateOutside
			default:
				return nil, fail("block for %s ends early", cur.Run)
			}
			continue
		}

		switch state {
		case stateOutside:
			continue
		case stateRunID:
			cur, state = &RunSummary{Run: line}, stateLoadCounts
			if next := nextHeader(scanner, &lineN); next != headerLoadCounts {
				return nil, fail("expected %q after run id, got %q", headerLoadCounts, next)
			}
		case stateLoadCounts:
			if line == headerStartCount {
				state = stateStartCount
				continue
			}
			n, err := strconv.Atoi(line)
			if err != nil {
				return nil, fail("LOAD count: %v", err)
			}
			cur.LoadCounts = append(cur.LoadCounts, n)
		case stateStartCount:
			if line == headerFirstLines {
				state = stateFirstLines
				continue
			}
			n, err := strconv.Atoi(line)
			if err != nil {
				return nil, fail("START count: %v", err)
			}
			cur.StartCount = n
		case stateFirstLines, stateLastLines:
			if state == stateFirstLines && line == headerLastLines {
				state = stateLastLines
				continue
			}
			t, err := dataset.ParseTime(line)
			if err != nil {
				return nil, fail("%v", err)
			}
			if state == stateFirstLines {
				cur.First = append(cur.First, t)
			} else {
				cur.Last = append(cur.Last, t)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read run summaries: %w", err)
	}
	if state != stateOutside && state != stateRunID {
		return nil, fmt.Errorf("run summary log ends inside a block")
	}
	return out, nil
}

func nextHeader(scanner *bufio.Scanner, lineN *int) string {
	if !scanner.Scan() {
		return ""
	}
	*lineN++
	return strings.TrimSpace(scanner.Text())
}

// Suspicious reports whether the LOAD counts and the START count of a run
// hold more than two distinct values, or two that differ by more than one.
func (s *RunSummary) Suspicious() bool {
	counts := sets.New(s.LoadCounts...)
	counts.Insert(s.StartCount)
	switch counts.Len() {
	case 0, 1:
		return false
	case 2:
		l := sets.List(counts)
		return l[1]-l[0] > 1
	default:
		return true
	}
}

// Examine checks every run and finds the shortest and longest distance
// between any first and any last timestamp of the same run.
func Examine(summaries []*RunSummary) Examination {
	ex := Examination{Runs: len(summaries)}
	found := false
	for _, s := range summaries {
		if s.Suspicious() {
			ex.Suspicious = append(ex.Suspicious, s.Run)
		}
		for _, first := range s.First {
			for _, last := range s.Last {
				d := last.Sub(first)
				if d < 0 {
					d = -d
				}
				if !found || d < ex.Shortest.Delta {
					ex.Shortest = Gap{Run: s.Run, Delta: d}
				}
				if !found || d > ex.Longest.Delta {
					ex.Longest = Gap{Run: s.Run, Delta: d}
				}
				found = true
			}
		}
	}
	return ex
}
