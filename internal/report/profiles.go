// Package report summarises a long-format tractometry table into per-tract
// profile curves: node-wise mean and standard deviation for each
// (tract, metric) pair across subjects. Summaries render to an HTML page of
// interactive charts or to one PNG per pair.
package report

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/tractml/tractml/tractometry"
)

// Profile is the node-wise summary of one (tract, metric) pair. Mean and Std
// are indexed by node over the table's full node range; nodes no subject
// covers hold NaN. Std is the sample standard deviation, zero when only one
// observation exists.
type Profile struct {
	Tract  string
	Metric string
	Mean   []float64
	Std    []float64
	N      []int
}

type pairKey struct {
	tract  string
	metric string
}

// Profiles computes one summary per (tract, metric) pair, tracts and metrics
// in sorted order. An empty metric selection summarises every metric in the
// table.
func Profiles(table *tractometry.LongTable, metrics []string) ([]Profile, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, fmt.Errorf("no rows to summarise")
	}

	ms := append([]string(nil), metrics...)
	if len(ms) == 0 {
		ms = append(ms, table.Metrics...)
	}
	slices.Sort(ms)
	ms = slices.Compact(ms)

	midx := make(map[string]int, len(ms))
	for _, m := range ms {
		src := table.MetricIndex(m)
		if src < 0 {
			return nil, fmt.Errorf("%w: %q", tractometry.ErrUnknownMetric, m)
		}
		midx[m] = src
	}

	nodeCount := table.MaxNode() + 1

	obs := make(map[pairKey][][]float64)
	for _, row := range table.Rows {
		for _, m := range ms {
			v := row.Values[midx[m]]
			if math.IsNaN(v) {
				continue
			}
			key := pairKey{row.Tract, m}
			cols := obs[key]
			if cols == nil {
				cols = make([][]float64, nodeCount)
				obs[key] = cols
			}
			cols[row.Node] = append(cols[row.Node], v)
		}
	}

	tracts := table.Tracts()
	profiles := make([]Profile, 0, len(tracts)*len(ms))
	for _, tract := range tracts {
		for _, m := range ms {
			p := Profile{
				Tract:  tract,
				Metric: m,
				Mean:   make([]float64, nodeCount),
				Std:    make([]float64, nodeCount),
				N:      make([]int, nodeCount),
			}
			cols := obs[pairKey{tract, m}]
			for node := 0; node < nodeCount; node++ {
				var vals []float64
				if cols != nil {
					vals = cols[node]
				}
				p.N[node] = len(vals)
				switch len(vals) {
				case 0:
					p.Mean[node] = math.NaN()
					p.Std[node] = math.NaN()
				case 1:
					p.Mean[node] = vals[0]
				default:
					p.Mean[node], p.Std[node] = stat.MeanStdDev(vals, nil)
				}
			}
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}
