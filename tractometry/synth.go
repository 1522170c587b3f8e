package tractometry

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// Generator produces seeded synthetic studies: per-tract metric profiles
// with a bump shape, subject-level variation and a group effect on patient
// subjects. Useful for tests, demos and report smoke runs.
type Generator struct {
	Subjects int
	Tracts   []string
	Nodes    int
	Metrics  []string

	// GroupEffect shifts every metric of patient subjects; Noise is the
	// per-cell jitter; DropRate removes whole (subject, tract, node) rows
	// so the pivot sees genuinely missing combinations.
	GroupEffect float64
	Noise       float64
	DropRate    float64

	seed int64
	rng  *rand.Rand
}

// NewGenerator returns a generator with a small two-metric default study.
// The same seed always produces the same study.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Subjects:    8,
		Tracts:      []string{"CST_L", "CST_R", "SLF_L", "SLF_R"},
		Nodes:       100,
		Metrics:     []string{"fa", "md"},
		GroupEffect: 0.05,
		Noise:       0.02,
		seed:        seed,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// GenerateStudy builds the nodes and subjects tables. Even-indexed subjects
// are controls, odd-indexed are patients.
func (g *Generator) GenerateStudy() (*LongTable, *PhenotypeTable) {
	nodes := &LongTable{Metrics: append([]string(nil), g.Metrics...)}

	subjects := make([]string, g.Subjects)
	for s := range subjects {
		subjects[s] = fmt.Sprintf("sub-%03d", s)
	}

	base := make([]float64, len(g.Metrics))
	for m := range base {
		base[m] = 0.3 + 0.15*float64(m+1)
	}
	for s, subject := range subjects {
		patient := s%2 == 1
		offset := g.rng.NormFloat64() * g.Noise
		for ti, tract := range g.Tracts {
			center := float64(g.Nodes) * (0.3 + 0.1*float64(ti%4))
			width := float64(g.Nodes) / 8
			for n := 0; n < g.Nodes; n++ {
				if g.DropRate > 0 && g.rng.Float64() < g.DropRate {
					continue
				}
				row := LongRow{
					Subject: subject,
					Tract:   tract,
					Node:    n,
					Values:  make([]float64, len(g.Metrics)),
				}
				bump := math.Exp(-(float64(n) - center) * (float64(n) - center) / (2 * width * width))
				for m := range g.Metrics {
					v := base[m] + 0.1*bump + offset + g.rng.NormFloat64()*g.Noise
					if patient {
						v += g.GroupEffect
					}
					row.Values[m] = v
				}
				nodes.Rows = append(nodes.Rows, row)
			}
		}
	}

	ph := NewPhenotypeTable(colSubject, []string{"age", "class"})
	for s, subject := range subjects {
		class := "control"
		if s%2 == 1 {
			class = "patient"
		}
		age := 20 + g.rng.Float64()*40
		ph.AddRow(subject, []string{fmt.Sprintf("%.1f", age), class})
	}
	return nodes, ph
}

// WriteStudy generates a study and writes the full working directory
// layout: nodes.csv, subjects.csv and the two sidecar files, so the result
// feeds straight into Load and ProjectCoefficients.
func (g *Generator) WriteStudy(dir string) error {
	nodes, ph := g.GenerateStudy()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create study directory: %w", err)
	}
	if err := nodes.WriteFile(filepath.Join(dir, DefaultNodesFile)); err != nil {
		return err
	}
	if err := ph.WriteFile(filepath.Join(dir, DefaultSubjectsFile)); err != nil {
		return err
	}

	params, err := json.MarshalIndent(map[string]interface{}{
		"generator": "tractml-synth",
		"seed":      g.seed,
		"subjects":  g.Subjects,
		"tracts":    g.Tracts,
		"nodes":     g.Nodes,
		"metrics":   g.Metrics,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal study params: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "params.json"), params, 0644); err != nil {
		return fmt.Errorf("failed to write params sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "streamlines.json"), []byte("{}\n"), 0644); err != nil {
		return fmt.Errorf("failed to write streamlines sidecar: %w", err)
	}
	return nil
}
