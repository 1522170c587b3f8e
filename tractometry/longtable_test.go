package tractometry

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestReadNodes(t *testing.T) {
	csvData := `Unnamed: 0,subjectID,sessionID,tractID,nodeID,fa,md
0,sub-01,ses-01,CST_L,0,0.51,0.0007
1,sub-01,ses-01,CST_L,1,,0.0008
2,sub-02,ses-01,CST_L,0,NA,0.0009
`
	table, err := ReadNodes(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ReadNodes failed: %v", err)
	}

	if diff := cmp.Diff([]string{"fa", "md"}, table.Metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if !table.HasSessions {
		t.Error("expected HasSessions")
	}
	if len(table.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(table.Rows))
	}
	if got := table.Rows[0]; got.Subject != "sub-01" || got.Session != "ses-01" || got.Tract != "CST_L" || got.Node != 0 {
		t.Errorf("unexpected first row: %+v", got)
	}
	if got := table.Rows[0].Values[0]; got != 0.51 {
		t.Errorf("fa value = %v, want 0.51", got)
	}
	if !math.IsNaN(table.Rows[1].Values[0]) {
		t.Errorf("blank cell should parse as NaN, got %v", table.Rows[1].Values[0])
	}
	if !math.IsNaN(table.Rows[2].Values[0]) {
		t.Errorf("NA cell should parse as NaN, got %v", table.Rows[2].Values[0])
	}
}

func TestReadNodesMissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no subjectID", "tractID,nodeID,fa"},
		{"no tractID", "subjectID,nodeID,fa"},
		{"no nodeID", "subjectID,tractID,fa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadNodes(strings.NewReader(tt.header + "\n"))
			if !errors.Is(err, ErrMissingColumn) {
				t.Errorf("got %v, want ErrMissingColumn", err)
			}
		})
	}
}

func TestReadNodesBadValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"non-integer node", "subjectID,tractID,nodeID,fa\ns,CST,x,0.5\n"},
		{"negative node", "subjectID,tractID,nodeID,fa\ns,CST,-1,0.5\n"},
		{"non-numeric metric", "subjectID,tractID,nodeID,fa\ns,CST,0,abc\n"},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadNodes(strings.NewReader(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLongTableAccessors(t *testing.T) {
	table := scenarioTable()
	if diff := cmp.Diff([]string{"ARC", "CST"}, table.Tracts()); diff != "" {
		t.Errorf("tracts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, table.Subjects()); diff != "" {
		t.Errorf("subjects mismatch (-want +got):\n%s", diff)
	}
	if got := table.MaxNode(); got != 2 {
		t.Errorf("MaxNode() = %d, want 2", got)
	}
	if got := table.MetricIndex("fa"); got != 0 {
		t.Errorf("MetricIndex(fa) = %d, want 0", got)
	}
	if got := table.MetricIndex("md"); got != -1 {
		t.Errorf("MetricIndex(md) = %d, want -1", got)
	}
}

func TestLongTableWriteRoundTrip(t *testing.T) {
	table := &LongTable{
		Metrics:     []string{"fa", "md"},
		HasSessions: true,
		Rows: []LongRow{
			{Subject: "sub-01", Session: "ses-01", Tract: "CST_L", Node: 0, Values: []float64{0.5, 0.0007}},
			{Subject: "sub-01", Session: "ses-01", Tract: "CST_L", Node: 1, Values: []float64{math.NaN(), 0.0008}},
		},
	}

	var buf bytes.Buffer
	if err := table.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := ReadNodes(&buf)
	if err != nil {
		t.Fatalf("ReadNodes failed: %v", err)
	}
	if diff := cmp.Diff(table, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
