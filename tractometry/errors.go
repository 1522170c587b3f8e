package tractometry

import "errors"

// Sentinel errors returned by the reshaping pipeline. Callers can match them
// with errors.Is; wrapped messages carry the offending name or key.
var (
	// ErrMissingColumn indicates a required column (subjectID, tractID,
	// nodeID, or the configured index column) is absent from an input table.
	ErrMissingColumn = errors.New("tractometry: missing required column")

	// ErrUnknownMetric indicates a requested metric does not appear in the
	// nodes table.
	ErrUnknownMetric = errors.New("tractometry: unknown metric")

	// ErrUnknownTarget indicates a requested target column does not appear
	// in the phenotype table.
	ErrUnknownTarget = errors.New("tractometry: unknown target column")

	// ErrNotSubset indicates the label-encode column set is not a subset of
	// the target column set.
	ErrNotSubset = errors.New("tractometry: label-encode columns must be a subset of target columns")

	// ErrDuplicateKey indicates two rows share the same
	// (subject, tract, node) identity, which would make the pivot ambiguous.
	ErrDuplicateKey = errors.New("tractometry: duplicate subject/tract/node row")

	// ErrSessionConflict indicates a subject carries more than one session
	// label, which leaves the session side channel ambiguous. Concatenating
	// sessions into subject IDs is the supported layout for repeated
	// measures.
	ErrSessionConflict = errors.New("tractometry: subject has conflicting sessions")

	// ErrEmptyColumn indicates a feature column has zero observed values and
	// no fallback fill was configured.
	ErrEmptyColumn = errors.New("tractometry: column has no observed values")

	// ErrLengthMismatch indicates a coefficient vector and its column keys
	// disagree in length.
	ErrLengthMismatch = errors.New("tractometry: coefficients and column keys differ in length")

	// ErrSameDirectory indicates the reprojection output directory resolves
	// to the input directory, which would overwrite the source study.
	ErrSameDirectory = errors.New("tractometry: output directory is the input directory")
)
