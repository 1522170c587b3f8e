package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tractml/tractml/tractometry"
)

// WriteHTMLReport renders one line chart per tract into a single HTML page
// at outPath. Each chart carries a mean series per metric plus dashed
// one-standard-deviation bands; nodes without observations render as gaps.
func WriteHTMLReport(profiles []Profile, outPath string) error {
	if len(profiles) == 0 {
		return fmt.Errorf("no profiles to render")
	}

	// Group by tract, preserving the profile order within each.
	var tracts []string
	byTract := make(map[string][]Profile)
	for _, p := range profiles {
		if _, seen := byTract[p.Tract]; !seen {
			tracts = append(tracts, p.Tract)
		}
		byTract[p.Tract] = append(byTract[p.Tract], p)
	}

	page := components.NewPage()
	for _, tract := range tracts {
		page.AddCharts(tractChart(tract, byTract[tract]))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func tractChart(tract string, profiles []Profile) *charts.Line {
	nodeCount := 0
	for _, p := range profiles {
		if len(p.Mean) > nodeCount {
			nodeCount = len(p.Mean)
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    tractometry.BundleName(tract),
			Subtitle: fmt.Sprintf("tract=%s nodes=%d", tract, nodeCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "node"}),
	)

	xs := make([]string, nodeCount)
	for node := range xs {
		xs[node] = strconv.Itoa(node)
	}
	line.SetXAxis(xs)

	for _, p := range profiles {
		mean := make([]opts.LineData, nodeCount)
		upper := make([]opts.LineData, nodeCount)
		lower := make([]opts.LineData, nodeCount)
		for node := 0; node < nodeCount; node++ {
			if node >= len(p.Mean) || math.IsNaN(p.Mean[node]) {
				mean[node] = opts.LineData{Value: nil}
				upper[node] = opts.LineData{Value: nil}
				lower[node] = opts.LineData{Value: nil}
				continue
			}
			sd := p.Std[node]
			if math.IsNaN(sd) {
				sd = 0
			}
			mean[node] = opts.LineData{Value: p.Mean[node]}
			upper[node] = opts.LineData{Value: p.Mean[node] + sd}
			lower[node] = opts.LineData{Value: p.Mean[node] - sd}
		}

		line.AddSeries(p.Metric, mean,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)
		line.AddSeries(p.Metric+"+sd", upper,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 1, Type: "dashed"}),
		)
		line.AddSeries(p.Metric+"-sd", lower,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 1, Type: "dashed"}),
		)
	}
	return line
}
