package tractometry

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Default study file names inside a working directory.
const (
	DefaultNodesFile    = "nodes.csv"
	DefaultSubjectsFile = "subjects.csv"
)

// Options configure Load. The zero value loads every metric and every
// phenotype column from nodes.csv and subjects.csv keyed by subjectID,
// imputing missing cells with column means.
type Options struct {
	// Metrics restricts the feature space to these metric columns. Empty
	// selects every metric in the nodes table.
	Metrics []string

	// TargetCols selects phenotype columns as targets. Empty selects all.
	TargetCols []string

	// LabelEncodeCols names target columns to label encode. Must be a
	// subset of the selected targets.
	LabelEncodeCols []string

	// IndexCol is the subject identity column of the subjects table.
	// Defaults to subjectID.
	IndexCol string

	// NodesFile and SubjectsFile override the default file names.
	NodesFile    string
	SubjectsFile string

	// Unsupervised skips the subjects table entirely; Dataset.Targets
	// stays nil.
	Unsupervised bool

	// ConcatSubjectSession folds the session label into the subject ID so
	// each visit becomes its own matrix row. Requires a sessionID column.
	ConcatSubjectSession bool

	// ReturnSessions populates Dataset.Sessions with each subject's
	// session label.
	ReturnSessions bool

	// Strategy selects the imputation statistic; FillEmpty, when set,
	// fills columns that have no observed values at all.
	Strategy  Strategy
	FillEmpty *float64
}

// Dataset is a loaded study: the dense feature matrix plus everything
// needed to interpret and invert it.
type Dataset struct {
	// X has one row per subject and one column per key. Imputation has
	// already run: no NaN cells remain.
	X *mat.Dense

	// Keys names each column; Groups partitions the columns into per
	// (tract, metric) ranges and GroupNames lists their names in order.
	Keys       []ColumnKey
	Groups     []FeatureGroup
	GroupNames []GroupKey

	// Subjects holds the row labels in row order. Sessions aligns with it
	// when requested and present.
	Subjects []string
	Sessions []string

	// Targets is nil for unsupervised loads.
	Targets *TargetSet
}

// Load reads a study from workdir and assembles the feature matrix, column
// metadata and aligned targets.
func Load(workdir string, opts Options) (*Dataset, error) {
	nodesFile := opts.NodesFile
	if nodesFile == "" {
		nodesFile = DefaultNodesFile
	}
	subjectsFile := opts.SubjectsFile
	if subjectsFile == "" {
		subjectsFile = DefaultSubjectsFile
	}
	indexCol := opts.IndexCol
	if indexCol == "" {
		indexCol = colSubject
	}

	table, err := ReadNodesFile(filepath.Join(workdir, nodesFile))
	if err != nil {
		return nil, err
	}
	if opts.ConcatSubjectSession {
		if !table.HasSessions {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, colSession)
		}
		table.ConcatSessions()
	}

	pivoted, err := Pivot(table, opts.Metrics)
	if err != nil {
		return nil, err
	}

	imputer := Imputer{Strategy: opts.Strategy, Fallback: opts.FillEmpty}
	if err := imputer.FitTransform(pivoted.X); err != nil {
		return nil, fmt.Errorf("failed to impute features: %w", err)
	}

	groups := Groups(pivoted.Keys)
	ds := &Dataset{
		X:          pivoted.X,
		Keys:       pivoted.Keys,
		Groups:     groups,
		GroupNames: GroupNames(groups),
		Subjects:   pivoted.Subjects,
	}
	if opts.ReturnSessions {
		ds.Sessions = pivoted.Sessions
	}

	if !opts.Unsupervised {
		ph, err := ReadPhenotypeFile(filepath.Join(workdir, subjectsFile), indexCol)
		if err != nil {
			return nil, err
		}
		ds.Targets, err = BuildTargets(ph, ds.Subjects, opts.TargetCols, opts.LabelEncodeCols)
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}
