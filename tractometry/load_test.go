package tractometry

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tractml/tractml/internal/testutil"
)

func writeStudyFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "nodes.csv", `subjectID,sessionID,tractID,nodeID,fa,md
sub-01,ses-01,CST_L,0,0.50,0.0007
sub-01,ses-01,CST_L,1,0.52,0.0008
sub-01,ses-01,ARC_L,0,0.40,0.0009
sub-01,ses-01,ARC_L,1,0.41,0.0010
sub-02,ses-01,CST_L,0,0.60,0.0011
sub-02,ses-01,CST_L,1,0.62,0.0012
sub-02,ses-01,ARC_L,0,0.30,0.0013
sub-02,ses-01,ARC_L,1,,0.0014
`)
	testutil.WriteFile(t, dir, "subjects.csv", `subjectID,age,class
sub-01,31.2,patient
sub-02,28.9,control
`)
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeStudyFixture(t)
	ds, err := Load(dir, Options{
		TargetCols:      []string{"class", "age"},
		LabelEncodeCols: []string{"class"},
		ReturnSessions:  true,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	rows, cols := ds.X.Dims()
	if rows != 2 || cols != 8 {
		t.Fatalf("got %dx%d matrix, want 2x8", rows, cols)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(ds.X.At(i, j)) {
				t.Fatalf("X[%d][%d] is NaN after Load", i, j)
			}
		}
	}
	// The one blank cell imputes to the only observed value in its column.
	hole := keyIndex(ds.Keys)[ColumnKey{Tract: "ARC_L", Metric: "fa", Node: 1}]
	if got := ds.X.At(1, hole); got != 0.41 {
		t.Errorf("imputed cell = %v, want 0.41", got)
	}

	if len(ds.Groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(ds.Groups))
	}
	if diff := cmp.Diff(GroupKey{Tract: "ARC_L", Metric: "fa"}, ds.GroupNames[0]); diff != "" {
		t.Errorf("first group name mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sub-01", "sub-02"}, ds.Subjects); diff != "" {
		t.Errorf("subjects mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ses-01", "ses-01"}, ds.Sessions); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}

	if ds.Targets == nil {
		t.Fatal("expected targets")
	}
	if diff := cmp.Diff([]string{"control", "patient"}, ds.Targets.Classes["class"]); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
	if got := ds.Targets.Values.At(0, 0); got != 1 {
		t.Errorf("sub-01 class code = %v, want 1 (patient)", got)
	}
	if got := ds.Targets.Values.At(1, 1); got != 28.9 {
		t.Errorf("sub-02 age = %v, want 28.9", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := writeStudyFixture(t)
	ds, err := Load(dir, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff([]string{"age", "class"}, ds.Targets.Columns); diff != "" {
		t.Errorf("default target columns mismatch (-want +got):\n%s", diff)
	}
	if ds.Sessions != nil {
		t.Error("sessions returned without ReturnSessions")
	}
}

func TestLoadMetricSubset(t *testing.T) {
	dir := writeStudyFixture(t)
	ds, err := Load(dir, Options{Metrics: []string{"md"}, Unsupervised: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, cols := ds.X.Dims(); cols != 4 {
		t.Fatalf("got %d columns, want 4", cols)
	}
	for _, k := range ds.Keys {
		if k.Metric != "md" {
			t.Errorf("unexpected metric %q", k.Metric)
		}
	}
	if ds.Targets != nil {
		t.Error("unsupervised load should not produce targets")
	}
}

func TestLoadUnsupervisedWithoutSubjectsFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "nodes.csv", "subjectID,tractID,nodeID,fa\nsub-01,CST,0,0.5\n")

	ds, err := Load(dir, Options{Unsupervised: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ds.Targets != nil {
		t.Error("expected nil targets")
	}

	// The same directory fails a supervised load: the subjects file is read
	// and missing.
	if _, err := Load(dir, Options{}); err == nil {
		t.Error("expected error for missing subjects file")
	}
}

func TestLoadConcatSessions(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "nodes.csv", `subjectID,sessionID,tractID,nodeID,fa
sub-01,01,CST,0,0.5
sub-01,02,CST,0,0.6
`)

	if _, err := Load(dir, Options{Unsupervised: true}); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("got %v, want ErrDuplicateKey", err)
	}

	ds, err := Load(dir, Options{Unsupervised: true, ConcatSubjectSession: true, ReturnSessions: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff([]string{"sub-0101", "sub-0102"}, ds.Subjects); diff != "" {
		t.Errorf("subjects mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"01", "02"}, ds.Sessions); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConcatWithoutSessionColumn(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "nodes.csv", "subjectID,tractID,nodeID,fa\nsub-01,CST,0,0.5\n")

	_, err := Load(dir, Options{Unsupervised: true, ConcatSubjectSession: true})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("got %v, want ErrMissingColumn", err)
	}
}

func TestLoadCustomFileNames(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "tracts.csv", "subjectID,tractID,nodeID,fa\nsub-01,CST,0,0.5\n")
	testutil.WriteFile(t, dir, "pheno.tsv", "sid\tage\nsub-01\t31.0\n")

	ds, err := Load(dir, Options{
		NodesFile:    "tracts.csv",
		SubjectsFile: "pheno.tsv",
		IndexCol:     "sid",
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := ds.Targets.Values.At(0, 0); got != 31.0 {
		t.Errorf("age = %v, want 31.0", got)
	}
}

func TestLoadMissingNodesFile(t *testing.T) {
	if _, err := Load(t.TempDir(), Options{}); err == nil {
		t.Fatal("expected error for missing nodes file")
	}
}

func TestLoadMedianStrategy(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "nodes.csv", `subjectID,tractID,nodeID,fa
sub-01,CST,0,1
sub-02,CST,0,2
sub-03,CST,0,9
sub-01,CST,1,5
sub-02,CST,1,5
sub-03,CST,1,
`)

	ds, err := Load(dir, Options{Unsupervised: true, Strategy: StrategyMedian})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	hole := keyIndex(ds.Keys)[ColumnKey{Tract: "CST", Metric: "fa", Node: 1}]
	if got := ds.X.At(2, hole); got != 5 {
		t.Errorf("median fill = %v, want 5", got)
	}
}
