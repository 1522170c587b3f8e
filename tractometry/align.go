package tractometry

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// TargetSet holds phenotype targets aligned with the feature matrix: one
// row per matrix subject, in matrix row order, one column per requested
// target. Subjects absent from the phenotype table keep their row with
// empty raw cells and NaN numeric cells, so the row count invariant holds
// by construction.
type TargetSet struct {
	Columns []string

	// Raw carries the phenotype cells as read, "" where the subject is
	// absent. String-label consumers use this view.
	Raw [][]string

	// Values is the numeric view: parsed floats, label codes for encoded
	// columns, NaN for missing or non-numeric cells.
	Values *mat.Dense

	// Classes maps each encoded column to its sorted class labels; the
	// label's position is its code in Values.
	Classes map[string][]string
}

// Vector returns a copy of the only target column, or nil when the set
// holds zero or several columns.
func (ts *TargetSet) Vector() []float64 {
	if len(ts.Columns) != 1 {
		return nil
	}
	out := make([]float64, len(ts.Raw))
	for i := range out {
		out[i] = ts.Values.At(i, 0)
	}
	return out
}

// BuildTargets left-joins phenotype rows onto the matrix subjects and
// selects target columns. An empty targetCols selects every phenotype
// column. Columns named in encodeCols are label encoded; encodeCols must be
// a subset of the selected targets.
func BuildTargets(ph *PhenotypeTable, subjects []string, targetCols, encodeCols []string) (*TargetSet, error) {
	if len(targetCols) == 0 {
		targetCols = ph.Columns
	}
	if len(targetCols) == 0 {
		return nil, fmt.Errorf("subjects table has no target columns")
	}
	colIdx := make([]int, len(targetCols))
	for i, name := range targetCols {
		j := ph.ColumnIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
		}
		colIdx[i] = j
	}
	selected := make(map[string]bool, len(targetCols))
	for _, name := range targetCols {
		selected[name] = true
	}
	encode := make(map[string]bool, len(encodeCols))
	for _, name := range encodeCols {
		if !selected[name] {
			return nil, fmt.Errorf("%w: %s", ErrNotSubset, name)
		}
		encode[name] = true
	}

	ts := &TargetSet{
		Columns: append([]string(nil), targetCols...),
		Raw:     make([][]string, len(subjects)),
		Values:  mat.NewDense(len(subjects), len(targetCols), nil),
		Classes: make(map[string][]string),
	}
	for i, subject := range subjects {
		row := make([]string, len(targetCols))
		if cells, ok := ph.Lookup(subject); ok {
			for j, c := range colIdx {
				row[j] = cells[c]
			}
		}
		ts.Raw[i] = row
	}

	for j, name := range targetCols {
		col := make([]string, len(subjects))
		for i := range ts.Raw {
			col[i] = ts.Raw[i][j]
		}
		if encode[name] {
			var enc LabelEncoder
			enc.Fit(col)
			ts.Classes[name] = enc.Classes
			for i, code := range enc.Transform(col) {
				if code < 0 {
					ts.Values.Set(i, j, math.NaN())
					continue
				}
				ts.Values.Set(i, j, float64(code))
			}
			continue
		}
		for i, cell := range col {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				v = math.NaN()
			}
			ts.Values.Set(i, j, v)
		}
	}
	return ts, nil
}
