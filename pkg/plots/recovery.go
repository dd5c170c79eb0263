package plots

import (
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"mtdbench/pkg/analysis"
	"mtdbench/pkg/dataset"
)

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Recovery draws the leader timeline of a recovery run: lead STARTs and
// ENDs per node, the leader's node over time, the node answering the client
// and the given markers as vertical lines.
func Recovery(tl *analysis.Timeline, markers []analysis.Marker, path string) error {
	if len(tl.Events) == 0 {
		return fmt.Errorf("recovery plot: no lead events")
	}
	p := newPlot("", "time", "cluster node")
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04:05"}

	var starts, ends, leader plotter.XYs
	for _, e := range tl.Events {
		xy := plotter.XY{X: unixSeconds(e.Time), Y: float64(tl.NodeIndex(e.Node))}
		leader = append(leader, xy)
		if e.Phase == dataset.PhaseStart {
			starts = append(starts, xy)
		} else {
			ends = append(ends, xy)
		}
	}

	line, err := plotter.NewLine(leader)
	if err != nil {
		return fmt.Errorf("create leader line: %w", err)
	}
	line.Color = colorLeader
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("MTD leader", line)

	for _, s := range []struct {
		pts   plotter.XYs
		color color.Color
	}{{starts, colorStart}, {ends, colorEnd}} {
		if len(s.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(s.pts)
		if err != nil {
			return fmt.Errorf("create lead scatter: %w", err)
		}
		sc.GlyphStyle.Color = s.color
		sc.GlyphStyle.Shape = draw.PlusGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
	}

	if len(tl.Client) > 0 {
		pts := make(plotter.XYs, len(tl.Client))
		for i, c := range tl.Client {
			pts[i] = plotter.XY{X: unixSeconds(c.Time), Y: float64(tl.NodeIndex(c.Node))}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("create client scatter: %w", err)
		}
		sc.GlyphStyle.Color = colorTarget
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(1)
		p.Add(sc)
		p.Legend.Add("target", sc)
	}

	top := float64(len(tl.Nodes)) + 0.2
	for i, m := range markers {
		x := unixSeconds(m.Time)
		ml, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
		if err != nil {
			return fmt.Errorf("create marker line: %w", err)
		}
		ml.Color = colorDelete
		if i > 0 {
			ml.Color = colorFirst
		}
		ml.Width = vg.Points(1.5)
		p.Add(ml)
		p.Legend.Add(m.Label, ml)
	}

	ticks := make([]plot.Tick, len(tl.Nodes))
	for i, n := range tl.Nodes {
		ticks[i] = plot.Tick{Value: float64(i + 1), Label: n}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Min = 0.5
	p.Y.Max = top
	p.Legend.Top = true

	return savePlot(p, path, 12*vg.Inch, 5*vg.Inch)
}
