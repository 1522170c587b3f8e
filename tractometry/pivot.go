package tractometry

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Pivoted is the wide form of a long table: one row per subject, one column
// per (tract, metric, node) key. Cells with no observation are NaN.
type Pivoted struct {
	X        *mat.Dense
	Keys     []ColumnKey
	Subjects []string
	// Sessions aligns with Subjects and carries each subject's session
	// label. Nil when the source table has no session column. A subject
	// with rows under more than one session label fails the pivot; the
	// repeated-measures layout is ConcatSessions.
	Sessions []string
}

// ConcatSessions rewrites every subject ID as subject+session so that
// repeated-measures rows pivot into distinct matrix rows. No-op for tables
// without a session column.
func (t *LongTable) ConcatSessions() {
	if !t.HasSessions {
		return
	}
	for i := range t.Rows {
		t.Rows[i].Subject += t.Rows[i].Session
	}
}

// Pivot reshapes a long table into a dense subjects x features matrix. The
// column space is the full Cartesian product of observed tracts, selected
// metrics and nodes 0..max; combinations never observed become NaN cells
// rather than absent columns. A nil metrics slice selects every metric in
// the table. Row and column order are deterministic: subjects ascending,
// keys by (tract, metric, node).
func Pivot(t *LongTable, metrics []string) (*Pivoted, error) {
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("nodes table has no rows")
	}

	if len(metrics) == 0 {
		metrics = t.Metrics
	}
	for _, m := range metrics {
		if t.MetricIndex(m) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, m)
		}
	}

	tracts := t.Tracts()
	subjects := t.Subjects()
	nodeCount := t.MaxNode() + 1

	ms := append([]string(nil), metrics...)
	sort.Strings(ms)
	ms = slices.Compact(ms)
	msSrc := make([]int, len(ms))
	for i, m := range ms {
		msSrc[i] = t.MetricIndex(m)
	}
	keys := buildKeys(tracts, ms, nodeCount)

	tractRank := make(map[string]int, len(tracts))
	for i, tr := range tracts {
		tractRank[tr] = i
	}
	subjectRow := make(map[string]int, len(subjects))
	for i, s := range subjects {
		subjectRow[s] = i
	}

	data := make([]float64, len(subjects)*len(keys))
	for i := range data {
		data[i] = math.NaN()
	}
	x := mat.NewDense(len(subjects), len(keys), data)

	var sessions []string
	var sessionSet []bool
	if t.HasSessions {
		sessions = make([]string, len(subjects))
		sessionSet = make([]bool, len(subjects))
	}

	type rowKey struct {
		subject, tract string
		node           int
	}
	seen := make(map[rowKey]bool, len(t.Rows))
	perTract := len(ms) * nodeCount
	for _, r := range t.Rows {
		rk := rowKey{r.Subject, r.Tract, r.Node}
		if seen[rk] {
			return nil, fmt.Errorf("%w: subject %q tract %q node %d",
				ErrDuplicateKey, r.Subject, r.Tract, r.Node)
		}
		seen[rk] = true

		row := subjectRow[r.Subject]
		if sessionSet != nil {
			if !sessionSet[row] {
				sessions[row] = r.Session
				sessionSet[row] = true
			} else if sessions[row] != r.Session {
				return nil, fmt.Errorf("%w: subject %q has sessions %q and %q",
					ErrSessionConflict, r.Subject, sessions[row], r.Session)
			}
		}
		base := tractRank[r.Tract] * perTract
		for mi, src := range msSrc {
			x.Set(row, base+mi*nodeCount+r.Node, r.Values[src])
		}
	}

	return &Pivoted{X: x, Keys: keys, Subjects: subjects, Sessions: sessions}, nil
}
