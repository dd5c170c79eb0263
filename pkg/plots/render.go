package plots

// Package plots renders the study and recovery figures as PNG files.

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	colorStart  = color.RGBA{G: 128, A: 255}
	colorEnd    = color.RGBA{R: 220, A: 255}
	colorLeader = color.RGBA{R: 60, G: 179, B: 113, A: 255}
	colorTarget = color.RGBA{R: 244, G: 164, B: 96, A: 255}
	colorDelete = color.RGBA{R: 255, B: 255, A: 255}
	colorFirst  = color.RGBA{B: 255, A: 255}
)

const boxWidth = 18

// newBoxPlot creates a box plot without outlier glyphs.
func newBoxPlot(loc float64, values []float64) (*plotter.BoxPlot, error) {
	b, err := plotter.NewBoxPlot(vg.Points(boxWidth), loc, plotter.Values(values))
	if err != nil {
		return nil, fmt.Errorf("create box plot: %w", err)
	}
	b.GlyphStyle.Radius = 0
	return b, nil
}

// addBoxes adds one box per sample at positions 0..n-1; empty samples leave
// a gap.
func addBoxes(p *plot.Plot, samples [][]float64) error {
	for i, s := range samples {
		if len(s) == 0 {
			continue
		}
		b, err := newBoxPlot(float64(i), s)
		if err != nil {
			return err
		}
		p.Add(b)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func savePlot(p *plot.Plot, path string, width, height vg.Length) error {
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

// saveTiles draws a grid of plots into a single PNG. Nil plots leave their
// tile blank.
func saveTiles(plots [][]*plot.Plot, path string, width, height vg.Length) error {
	rows := len(plots)
	if rows == 0 {
		return fmt.Errorf("save tiles %s: no plots", path)
	}
	cols := len(plots[0])

	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			if plots[j][i] != nil {
				plots[j][i].Draw(canvases[j][i])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// grid lays n plots out row-major in rows of cols.
func grid(plots []*plot.Plot, cols int) [][]*plot.Plot {
	rows := (len(plots) + cols - 1) / cols
	out := make([][]*plot.Plot, rows)
	for r := range out {
		out[r] = make([]*plot.Plot, cols)
		for c := range out[r] {
			if i := r*cols + c; i < len(plots) {
				out[r][c] = plots[i]
			}
		}
	}
	return out
}
