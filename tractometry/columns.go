package tractometry

import (
	"fmt"
	"sort"
)

// ColumnKey identifies one feature column in the wide matrix: one metric
// sampled at one node position along one tract.
type ColumnKey struct {
	Tract  string `json:"tract"`
	Metric string `json:"metric"`
	Node   int    `json:"node"`
}

// String renders the key as tract.metric.node for headers and log lines.
// The rendering is display-only; structured keys travel as JSON so that
// tract or metric names containing separators never need to be re-parsed.
func (k ColumnKey) String() string {
	return fmt.Sprintf("%s.%s.%d", k.Tract, k.Metric, k.Node)
}

// Less reports whether k sorts before other in canonical column order:
// tract, then metric, then node.
func (k ColumnKey) Less(other ColumnKey) bool {
	if k.Tract != other.Tract {
		return k.Tract < other.Tract
	}
	if k.Metric != other.Metric {
		return k.Metric < other.Metric
	}
	return k.Node < other.Node
}

// GroupKey names a feature group: every node of one metric along one tract.
type GroupKey struct {
	Tract  string `json:"tract"`
	Metric string `json:"metric"`
}

func (g GroupKey) String() string {
	return fmt.Sprintf("%s.%s", g.Tract, g.Metric)
}

// FeatureGroup is a contiguous half-open column range [Start, End) covering
// every node of one (tract, metric) pair. Groups partition the column space:
// each column belongs to exactly one group.
type FeatureGroup struct {
	GroupKey
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of columns in the group.
func (g FeatureGroup) Len() int {
	return g.End - g.Start
}

// Columns returns the column indices covered by the group.
func (g FeatureGroup) Columns() []int {
	cols := make([]int, 0, g.Len())
	for i := g.Start; i < g.End; i++ {
		cols = append(cols, i)
	}
	return cols
}

// buildKeys returns canonical column keys for the Cartesian product of
// tracts x metrics x nodes 0..nodeCount-1, sorted by tract, metric, node.
// The inputs are copied and sorted; callers may pass them in any order.
func buildKeys(tracts, metrics []string, nodeCount int) []ColumnKey {
	ts := append([]string(nil), tracts...)
	ms := append([]string(nil), metrics...)
	sort.Strings(ts)
	sort.Strings(ms)

	keys := make([]ColumnKey, 0, len(ts)*len(ms)*nodeCount)
	for _, t := range ts {
		for _, m := range ms {
			for n := 0; n < nodeCount; n++ {
				keys = append(keys, ColumnKey{Tract: t, Metric: m, Node: n})
			}
		}
	}
	return keys
}

// Groups partitions canonically ordered keys into contiguous per-(tract,
// metric) ranges. Every key lands in exactly one group and group order
// follows column order.
func Groups(keys []ColumnKey) []FeatureGroup {
	var groups []FeatureGroup
	for i, k := range keys {
		gk := GroupKey{Tract: k.Tract, Metric: k.Metric}
		if len(groups) == 0 || groups[len(groups)-1].GroupKey != gk {
			groups = append(groups, FeatureGroup{GroupKey: gk, Start: i, End: i + 1})
			continue
		}
		groups[len(groups)-1].End = i + 1
	}
	return groups
}

// GroupNames returns the (tract, metric) name of each group in group order.
func GroupNames(groups []FeatureGroup) []GroupKey {
	names := make([]GroupKey, len(groups))
	for i, g := range groups {
		names[i] = g.GroupKey
	}
	return names
}

// keyIndex maps each column key to its position, for coefficient lookups.
func keyIndex(keys []ColumnKey) map[ColumnKey]int {
	idx := make(map[ColumnKey]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	return idx
}
