package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tractml/tractml/tractometry"
)

var (
	meanColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bandColor = color.RGBA{R: 31, G: 119, B: 180, A: 120}
)

// WritePNGPlots writes one PNG per (tract, metric) profile into outDir and
// returns the generated file paths. Pairs with no observations at any node
// are skipped.
func WritePNGPlots(profiles []Profile, outDir string) ([]string, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles to render")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var files []string
	for _, prof := range profiles {
		file := filepath.Join(outDir, fmt.Sprintf("%s_%s.png", prof.Tract, prof.Metric))
		wrote, err := writeProfilePlot(prof, file)
		if err != nil {
			return files, fmt.Errorf("profile %s %s: %w", prof.Tract, prof.Metric, err)
		}
		if wrote {
			files = append(files, file)
		}
	}
	return files, nil
}

func writeProfilePlot(prof Profile, file string) (bool, error) {
	meanPts := make(plotter.XYs, 0, len(prof.Mean))
	upperPts := make(plotter.XYs, 0, len(prof.Mean))
	lowerPts := make(plotter.XYs, 0, len(prof.Mean))
	for node, v := range prof.Mean {
		if math.IsNaN(v) {
			continue
		}
		meanPts = append(meanPts, plotter.XY{X: float64(node), Y: v})
		if sd := prof.Std[node]; !math.IsNaN(sd) {
			upperPts = append(upperPts, plotter.XY{X: float64(node), Y: v + sd})
			lowerPts = append(lowerPts, plotter.XY{X: float64(node), Y: v - sd})
		}
	}
	if len(meanPts) == 0 {
		return false, nil
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", tractometry.BundleName(prof.Tract), prof.Metric)
	p.X.Label.Text = "Node"
	p.Y.Label.Text = prof.Metric

	meanLine, err := plotter.NewLine(meanPts)
	if err != nil {
		return false, err
	}
	meanLine.Color = meanColor
	meanLine.Width = vg.Points(2)
	p.Add(meanLine)
	p.Legend.Add("mean", meanLine)

	for _, band := range []plotter.XYs{upperPts, lowerPts} {
		if len(band) == 0 {
			continue
		}
		bandLine, err := plotter.NewLine(band)
		if err != nil {
			return false, err
		}
		bandLine.Color = bandColor
		bandLine.Width = vg.Points(1)
		bandLine.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(bandLine)
	}

	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 4*vg.Inch, file); err != nil {
		return false, fmt.Errorf("save profile plot: %w", err)
	}
	return true, nil
}
