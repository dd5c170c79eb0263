package plots

import (
	"fmt"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"

	"mtdbench/pkg/analysis"
	"mtdbench/pkg/dataset"
)

// Output file names of the study figures.
const (
	FileSyncByLoaded = "sync-delay-by-loaded.png"
	FileLoadByNode   = "load-by-node.png"
	FileSyncByWeight = "sync-delay-by-weight.png"
	FileElections    = "election-count.png"
)

const syncLabel = "synchronization delay [s]"

func levelLabels(levels []int) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = strconv.Itoa(l)
	}
	return out
}

func weightLabels(weights []float64) []string {
	out := make([]string, len(weights))
	for i, w := range weights {
		out[i] = dataset.FormatWeight(w)
	}
	return out
}

// SyncByLoaded draws one panel per random weight with the sync delays of
// every loaded level.
func SyncByLoaded(s *analysis.Study, path string) error {
	var panels []*plot.Plot
	for _, w := range s.Weights() {
		p := newPlot("random weight "+dataset.FormatWeight(w), "# loaded nodes", syncLabel)
		samples := make([][]float64, len(s.Levels))
		for i, level := range s.Levels {
			samples[i] = s.SyncDelays(level, w)
		}
		if err := addBoxes(p, samples); err != nil {
			return err
		}
		p.NominalX(levelLabels(s.Levels)...)
		panels = append(panels, p)
	}
	if len(panels) == 0 {
		return fmt.Errorf("sync delay plot: study has no runs")
	}
	return saveTiles(grid(panels, 6), path, 12*vg.Inch, 8*vg.Inch)
}

// LoadByNode draws one panel per loaded level with the pooled load of every
// node.
func LoadByNode(s *analysis.Study, path string) error {
	nodes := s.Nodes()
	var panels []*plot.Plot
	for _, level := range s.Levels {
		p := newPlot(fmt.Sprintf("%d loaded", level), "cluster node", "relative load")
		loads := s.LoadsByNode(level)
		samples := make([][]float64, len(nodes))
		for i, n := range nodes {
			samples[i] = loads[n]
		}
		if err := addBoxes(p, samples); err != nil {
			return err
		}
		p.NominalX(nodes...)
		panels = append(panels, p)
	}
	return saveTiles(grid(panels, len(panels)), path, 12*vg.Inch, 5*vg.Inch)
}

// SyncByWeight draws one panel per loaded level with the sync delays of
// every random weight.
func SyncByWeight(s *analysis.Study, path string) error {
	weights := s.Weights()
	var panels []*plot.Plot
	for _, level := range s.Levels {
		p := newPlot(fmt.Sprintf("%d loaded", level), "random weight", syncLabel)
		samples := make([][]float64, len(weights))
		for i, w := range weights {
			samples[i] = s.SyncDelays(level, w)
		}
		if err := addBoxes(p, samples); err != nil {
			return err
		}
		p.NominalX(weightLabels(weights)...)
		panels = append(panels, p)
	}
	return saveTiles(grid(panels, len(panels)), path, 12*vg.Inch, 5*vg.Inch)
}

// Elections draws grouped bars of each node's election count per weight,
// one panel per loaded level.
func Elections(s *analysis.Study, path string) error {
	nodes := s.Nodes()
	weights := s.Weights()
	barWidth := vg.Points(6)

	var panels []*plot.Plot
	for _, level := range s.Levels {
		p := newPlot(fmt.Sprintf("%d loaded", level), "random weight", "election count")
		counts := s.ElectionCounts(level)
		for i, n := range nodes {
			values := make(plotter.Values, len(weights))
			for j, c := range counts[n] {
				values[j] = float64(c)
			}
			bars, err := plotter.NewBarChart(values, barWidth)
			if err != nil {
				return fmt.Errorf("create bar chart: %w", err)
			}
			bars.LineStyle.Width = 0
			bars.Color = plotutil.Color(i)
			bars.Offset = barWidth * vg.Length(float64(i)-float64(len(nodes)-1)/2)
			p.Add(bars)
			p.Legend.Add(n, bars)
		}
		p.Legend.Top = true
		p.NominalX(weightLabels(weights)...)
		panels = append(panels, p)
	}
	return saveTiles(grid(panels, 2), path, 12*vg.Inch, 7*vg.Inch)
}

// WriteStudyPlots renders every study figure into dir and returns the
// written paths.
func WriteStudyPlots(s *analysis.Study, dir string) ([]string, error) {
	figures := []struct {
		name   string
		render func(*analysis.Study, string) error
	}{
		{FileSyncByLoaded, SyncByLoaded},
		{FileLoadByNode, LoadByNode},
		{FileSyncByWeight, SyncByWeight},
		{FileElections, Elections},
	}
	var paths []string
	for _, f := range figures {
		path := filepath.Join(dir, f.name)
		if err := f.render(s, path); err != nil {
			return paths, err
		}
		klog.InfoS("Wrote figure", "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}
