// Package tractometry reshapes long-format tractometry studies into
// machine-learning-ready feature matrices and projects fitted coefficients
// back into the same study layout.
//
// A study lives in a working directory holding a nodes table (one row per
// subject, tract and node, one column per diffusion metric) and a phenotype
// table (one row per subject). Load pivots the nodes table into a dense
// subjects x features matrix with grouped, canonically ordered columns and
// aligns phenotype targets against it. ProjectCoefficients is the inverse
// trip: it reshapes a fitted coefficient vector into synthetic rows appended
// to a copy of the study.
package tractometry

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Reserved column names in a nodes table. Every other column is a metric.
const (
	colSubject = "subjectID"
	colSession = "sessionID"
	colTract   = "tractID"
	colNode    = "nodeID"
)

// LongRow is one observation: every metric value of one node of one tract of
// one subject. Values aligns with the owning table's Metrics slice; missing
// cells are NaN. Session is empty when the table has no session column.
type LongRow struct {
	Subject string
	Session string
	Tract   string
	Node    int
	Values  []float64
}

// LongTable is a long-format node table. Metrics keeps the metric columns in
// file order so a round trip preserves the study layout.
type LongTable struct {
	Metrics     []string
	Rows        []LongRow
	HasSessions bool
}

// MetricIndex returns the position of name in Metrics, or -1.
func (t *LongTable) MetricIndex(name string) int {
	for i, m := range t.Metrics {
		if m == name {
			return i
		}
	}
	return -1
}

// Tracts returns the distinct tract names in the table, sorted.
func (t *LongTable) Tracts() []string {
	return distinct(t.Rows, func(r LongRow) string { return r.Tract })
}

// Subjects returns the distinct subject IDs in the table, sorted.
func (t *LongTable) Subjects() []string {
	return distinct(t.Rows, func(r LongRow) string { return r.Subject })
}

// MaxNode returns the largest node index in the table, or -1 when empty.
func (t *LongTable) MaxNode() int {
	max := -1
	for _, r := range t.Rows {
		if r.Node > max {
			max = r.Node
		}
	}
	return max
}

func distinct(rows []LongRow, field func(LongRow) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if v := field(r); !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// ReadNodesFile reads a nodes CSV from path.
func ReadNodesFile(path string) (*LongTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open nodes file: %w", err)
	}
	defer f.Close()

	t, err := ReadNodes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadNodes parses a long-format nodes CSV. The header must contain
// subjectID, tractID and nodeID; sessionID is optional; index artifact
// columns named "Unnamed: N" are dropped; every remaining column is treated
// as a metric. Empty, NA and N/A cells parse as NaN.
func ReadNodes(r io.Reader) (*LongTable, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("nodes CSV is empty")
	}

	header := records[0]
	subjectCol, sessionCol, tractCol, nodeCol := -1, -1, -1, -1
	metricCols := make([]int, 0, len(header))
	metrics := make([]string, 0, len(header))
	for i, name := range header {
		switch {
		case name == colSubject:
			subjectCol = i
		case name == colSession:
			sessionCol = i
		case name == colTract:
			tractCol = i
		case name == colNode:
			nodeCol = i
		case strings.HasPrefix(name, "Unnamed:"):
			// Index column leaked by a previous export; ignore it.
		default:
			metricCols = append(metricCols, i)
			metrics = append(metrics, name)
		}
	}
	for _, req := range []struct {
		name string
		col  int
	}{{colSubject, subjectCol}, {colTract, tractCol}, {colNode, nodeCol}} {
		if req.col < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req.name)
		}
	}

	table := &LongTable{
		Metrics:     metrics,
		Rows:        make([]LongRow, 0, len(records)-1),
		HasSessions: sessionCol >= 0,
	}
	for i, record := range records[1:] {
		line := i + 2
		node, err := strconv.Atoi(strings.TrimSpace(record[nodeCol]))
		if err != nil {
			return nil, fmt.Errorf("invalid nodeID at line %d: %v", line, err)
		}
		if node < 0 {
			return nil, fmt.Errorf("negative nodeID %d at line %d", node, line)
		}
		row := LongRow{
			Subject: record[subjectCol],
			Tract:   record[tractCol],
			Node:    node,
			Values:  make([]float64, len(metricCols)),
		}
		if sessionCol >= 0 {
			row.Session = record[sessionCol]
		}
		for j, col := range metricCols {
			v, err := parseCell(record[col])
			if err != nil {
				return nil, fmt.Errorf("invalid %s value at line %d: %v", metrics[j], line, err)
			}
			row.Values[j] = v
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "N/A":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Write emits the table as CSV with identity columns first and metrics in
// their stored order. NaN cells are written empty.
func (t *LongTable) Write(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{colSubject}
	if t.HasSessions {
		header = append(header, colSession)
	}
	header = append(header, colTract, colNode)
	header = append(header, t.Metrics...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write nodes header: %w", err)
	}

	record := make([]string, 0, len(header))
	for _, r := range t.Rows {
		record = record[:0]
		record = append(record, r.Subject)
		if t.HasSessions {
			record = append(record, r.Session)
		}
		record = append(record, r.Tract, strconv.Itoa(r.Node))
		for _, v := range r.Values {
			record = append(record, formatCell(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write nodes row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path as CSV.
func (t *LongTable) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create nodes file: %w", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
