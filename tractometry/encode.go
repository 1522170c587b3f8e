package tractometry

import "sort"

// LabelEncoder maps categorical string labels to dense integer codes in
// sorted label order. Empty strings are treated as missing: they never
// become a class and encode to -1.
type LabelEncoder struct {
	Classes []string

	codes map[string]int
}

// Fit collects the distinct non-empty values and assigns codes in sorted
// order, so the mapping is independent of row order.
func (e *LabelEncoder) Fit(values []string) {
	seen := make(map[string]bool, len(values))
	e.Classes = e.Classes[:0]
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		e.Classes = append(e.Classes, v)
	}
	sort.Strings(e.Classes)

	e.codes = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.codes[c] = i
	}
}

// Code returns the code of v, or -1 for missing and unseen values.
func (e *LabelEncoder) Code(v string) int {
	if c, ok := e.codes[v]; ok {
		return c
	}
	return -1
}

// Transform encodes every value. Missing and unseen values become -1.
func (e *LabelEncoder) Transform(values []string) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = e.Code(v)
	}
	return out
}

// Decode returns the label of a code produced by Transform.
func (e *LabelEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}
