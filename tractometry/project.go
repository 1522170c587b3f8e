package tractometry

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// BetaHatSubject is the subject ID of the synthetic rows a projection
// appends to the nodes table.
const BetaHatSubject = "beta_hat"

// Sidecar files carried along when a study is projected to a new directory.
var sidecarFiles = []string{"streamlines.json", "params.json"}

// ProjectOptions configure ProjectCoefficients. Zero values select
// nodes.csv and subjects.csv on both sides and no rescaling.
type ProjectOptions struct {
	NodesIn     string
	SubjectsIn  string
	NodesOut    string
	SubjectsOut string

	// Scale rescales each (tract, metric) run of coefficients to the mean
	// and spread of that tract's observed metric values, so the synthetic
	// rows plot on the same axes as real subjects.
	Scale bool
}

// ProjectResult names the files written by a projection.
type ProjectResult struct {
	NodesFile    string
	SubjectsFile string
}

// ProjectCoefficients reshapes a fitted coefficient vector back into the
// long study layout: a copy of the input study is written to outDir with a
// synthetic beta_hat subject appended to the nodes and subjects tables and
// the study sidecar files carried over. beta and keys must align index for
// index. All transforms run in memory before the first byte is written, so
// a failed projection never leaves a half-written study behind.
func ProjectCoefficients(beta []float64, keys []ColumnKey, inDir, outDir string, opts ProjectOptions) (*ProjectResult, error) {
	if len(beta) != len(keys) {
		return nil, fmt.Errorf("%w: %d coefficients, %d keys", ErrLengthMismatch, len(beta), len(keys))
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no column keys to project")
	}

	nodesIn := fileOr(opts.NodesIn, DefaultNodesFile)
	subjectsIn := fileOr(opts.SubjectsIn, DefaultSubjectsFile)
	nodesOut := fileOr(opts.NodesOut, DefaultNodesFile)
	subjectsOut := fileOr(opts.SubjectsOut, DefaultSubjectsFile)

	inAbs, err := filepath.Abs(inDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input directory: %w", err)
	}
	outAbs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := checkDistinctDirs(inAbs, outAbs); err != nil {
		return nil, err
	}

	table, err := ReadNodesFile(filepath.Join(inAbs, nodesIn))
	if err != nil {
		return nil, err
	}
	betaRows, err := betaToRows(beta, keys, table)
	if err != nil {
		return nil, err
	}
	if opts.Scale {
		rescaleToStudy(betaRows, table, keys)
	}
	table.Rows = append(table.Rows, betaRows...)

	ph, err := ReadPhenotypeFile(filepath.Join(inAbs, subjectsIn), "")
	if err != nil {
		return nil, err
	}
	appendBetaHatRow(ph)

	var nodesBuf, subjectsBuf bytes.Buffer
	if err := table.Write(&nodesBuf); err != nil {
		return nil, err
	}
	if err := ph.Write(&subjectsBuf); err != nil {
		return nil, err
	}
	sidecars := make(map[string][]byte, len(sidecarFiles))
	for _, name := range sidecarFiles {
		data, err := os.ReadFile(filepath.Join(inAbs, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read sidecar: %w", err)
		}
		sidecars[name] = data
	}

	if err := os.MkdirAll(outAbs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	res := &ProjectResult{
		NodesFile:    filepath.Join(outAbs, nodesOut),
		SubjectsFile: filepath.Join(outAbs, subjectsOut),
	}
	if err := os.WriteFile(res.NodesFile, nodesBuf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write nodes file: %w", err)
	}
	if err := os.WriteFile(res.SubjectsFile, subjectsBuf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write subjects file: %w", err)
	}
	for _, name := range sidecarFiles {
		if err := os.WriteFile(filepath.Join(outAbs, name), sidecars[name], 0644); err != nil {
			return nil, fmt.Errorf("failed to write sidecar: %w", err)
		}
	}
	return res, nil
}

func fileOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// checkDistinctDirs rejects projections whose output would overwrite the
// input study. Both the cleaned paths and, when the output already exists,
// the underlying files are compared so symlinked aliases are caught too.
func checkDistinctDirs(inAbs, outAbs string) error {
	if filepath.Clean(inAbs) == filepath.Clean(outAbs) {
		return fmt.Errorf("%w: %s", ErrSameDirectory, outAbs)
	}
	fiIn, err := os.Stat(inAbs)
	if err != nil {
		return fmt.Errorf("failed to stat input directory: %w", err)
	}
	if fiOut, err := os.Stat(outAbs); err == nil && os.SameFile(fiIn, fiOut) {
		return fmt.Errorf("%w: %s", ErrSameDirectory, outAbs)
	}
	return nil
}

// betaToRows reshapes the coefficient vector into long rows, one per
// (tract, node) pair of the key space, under the study's metric layout.
// Metrics the model never saw stay NaN and are written as blank cells.
func betaToRows(beta []float64, keys []ColumnKey, table *LongTable) ([]LongRow, error) {
	idx := keyIndex(keys)
	metricCol := make(map[string]int)
	for _, k := range keys {
		if _, ok := metricCol[k.Metric]; ok {
			continue
		}
		col := table.MetricIndex(k.Metric)
		if col < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, k.Metric)
		}
		metricCol[k.Metric] = col
	}

	maxNode := 0
	tractSeen := make(map[string]bool)
	var tracts []string
	for _, k := range keys {
		if k.Node > maxNode {
			maxNode = k.Node
		}
		if !tractSeen[k.Tract] {
			tractSeen[k.Tract] = true
			tracts = append(tracts, k.Tract)
		}
	}

	var rows []LongRow
	for _, tract := range tracts {
		for node := 0; node <= maxNode; node++ {
			row := LongRow{
				Subject: BetaHatSubject,
				Tract:   tract,
				Node:    node,
				Values:  make([]float64, len(table.Metrics)),
			}
			for i := range row.Values {
				row.Values[i] = math.NaN()
			}
			populated := false
			for metric, col := range metricCol {
				if i, ok := idx[ColumnKey{Tract: tract, Metric: metric, Node: node}]; ok {
					row.Values[col] = beta[i]
					populated = true
				}
			}
			if populated {
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

// rescaleToStudy maps each (tract, metric) coefficient run onto the mean
// and spread of that tract's observed values: y = fMean + (x-bMean)*fStd/bStd.
// A zero or undefined bStd makes the ratio 1 so flat runs translate without
// blowing up. Runs with no observed values to map onto pass through
// unchanged.
func rescaleToStudy(betaRows []LongRow, table *LongTable, keys []ColumnKey) {
	type tm struct {
		tract  string
		metric string
	}
	seen := make(map[tm]bool)
	for _, k := range keys {
		seen[tm{k.Tract, k.Metric}] = true
	}

	for pair := range seen {
		col := table.MetricIndex(pair.metric)

		var observed []float64
		for _, r := range table.Rows {
			if r.Tract != pair.tract {
				continue
			}
			if v := r.Values[col]; !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		var bvals []float64
		for _, r := range betaRows {
			if r.Tract != pair.tract {
				continue
			}
			if v := r.Values[col]; !math.IsNaN(v) {
				bvals = append(bvals, v)
			}
		}
		if len(observed) == 0 || len(bvals) == 0 {
			continue
		}

		fMean, fStd := stat.MeanStdDev(observed, nil)
		bMean, bStd := stat.MeanStdDev(bvals, nil)
		ratio := fStd / bStd
		if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
			ratio = 1
		}
		for i := range betaRows {
			if betaRows[i].Tract != pair.tract {
				continue
			}
			if v := betaRows[i].Values[col]; !math.IsNaN(v) {
				betaRows[i].Values[col] = fMean + (v-bMean)*ratio
			}
		}
	}
}

// appendBetaHatRow adds the synthetic subject to the phenotype table. When
// the table carries an explicit subjectID column the label goes there and
// the index continues its positional numbering, matching tables exported
// with a leading index column.
func appendBetaHatRow(ph *PhenotypeTable) {
	row := make([]string, len(ph.Columns))
	label := BetaHatSubject
	if j := ph.ColumnIndex(colSubject); j >= 0 && ph.IndexCol != colSubject {
		row[j] = BetaHatSubject
		label = strconv.Itoa(len(ph.Index))
	}
	ph.AddRow(label, row)
}
