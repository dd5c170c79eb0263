package analysis

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"mtdbench/pkg/dataset"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func statsRow(prefix []string, s BoxStats) []string {
	return append(prefix,
		strconv.Itoa(s.N),
		formatStat(s.Min),
		formatStat(s.Q1),
		formatStat(s.Median),
		formatStat(s.Mean),
		formatStat(s.Q3),
		formatStat(s.Max),
	)
}

var statsHeader = []string{"n", "min", "q1", "median", "mean", "q3", "max"}

// WriteSyncDelayTable writes sync delay statistics per loaded level and
// random weight.
func WriteSyncDelayTable(w io.Writer, s *Study) {
	table := newTable(w, append([]string{"loaded", "weight"}, statsHeader...))
	for _, level := range s.Levels {
		for _, weight := range s.Weights() {
			row := statsRow([]string{strconv.Itoa(level), dataset.FormatWeight(weight)}, Summarize(s.SyncDelays(level, weight)))
			table.Append(row)
		}
	}
	table.Render()
}

// WriteLoadTable writes load statistics per loaded level and node.
func WriteLoadTable(w io.Writer, s *Study) {
	table := newTable(w, append([]string{"loaded", "node"}, statsHeader...))
	for _, level := range s.Levels {
		loads := s.LoadsByNode(level)
		for _, node := range s.Nodes() {
			table.Append(statsRow([]string{strconv.Itoa(level), node}, Summarize(loads[node])))
		}
	}
	table.Render()
}

// WriteElectionTable writes election counts, one column per weight.
func WriteElectionTable(w io.Writer, s *Study) {
	header := []string{"loaded", "node"}
	for _, weight := range s.Weights() {
		header = append(header, dataset.FormatWeight(weight))
	}
	table := newTable(w, header)
	for _, level := range s.Levels {
		counts := s.ElectionCounts(level)
		for _, node := range s.Nodes() {
			row := []string{strconv.Itoa(level), node}
			for _, c := range counts[node] {
				row = append(row, strconv.Itoa(c))
			}
			table.Append(row)
		}
	}
	table.Render()
}

// WriteStudySummary writes all study tables followed by the dropped load
// count.
func WriteStudySummary(w io.Writer, s *Study) error {
	sections := []struct {
		title string
		write func(io.Writer, *Study)
	}{
		{"Synchronization delay [s]", WriteSyncDelayTable},
		{"Relative load", WriteLoadTable},
		{"Election count", WriteElectionTable},
	}
	for _, sec := range sections {
		if _, err := fmt.Fprintf(w, "\n%s\n\n", sec.title); err != nil {
			return err
		}
		sec.write(w, s)
	}
	_, err := fmt.Fprintf(w, "\nnum negative loads %d\n", s.NegativeLoads())
	return err
}
