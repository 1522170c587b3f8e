package report

import (
	"errors"
	"math"
	"testing"

	"github.com/tractml/tractml/internal/testutil"
	"github.com/tractml/tractml/tractometry"
)

func profileFixture() *tractometry.LongTable {
	return &tractometry.LongTable{
		Metrics: []string{"fa", "md"},
		Rows: []tractometry.LongRow{
			{Subject: "sub-01", Tract: "CST_L", Node: 0, Values: []float64{0.5, 0.7}},
			{Subject: "sub-02", Tract: "CST_L", Node: 0, Values: []float64{0.7, 0.8}},
			{Subject: "sub-01", Tract: "CST_L", Node: 1, Values: []float64{0.6, math.NaN()}},
			{Subject: "sub-01", Tract: "SLF_L", Node: 0, Values: []float64{0.4, 0.5}},
		},
	}
}

func TestProfiles(t *testing.T) {
	profiles, err := Profiles(profileFixture(), nil)
	if err != nil {
		t.Fatalf("Profiles failed: %v", err)
	}

	// Tracts and metrics in sorted order, Cartesian over both.
	if len(profiles) != 4 {
		t.Fatalf("expected 4 profiles, got %d", len(profiles))
	}
	wantPairs := [][2]string{
		{"CST_L", "fa"},
		{"CST_L", "md"},
		{"SLF_L", "fa"},
		{"SLF_L", "md"},
	}
	for i, want := range wantPairs {
		if profiles[i].Tract != want[0] || profiles[i].Metric != want[1] {
			t.Errorf("profile %d: expected %s.%s, got %s.%s",
				i, want[0], want[1], profiles[i].Tract, profiles[i].Metric)
		}
	}

	cstFA := profiles[0]
	if len(cstFA.Mean) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(cstFA.Mean))
	}
	if !testutil.NearEqual(cstFA.Mean[0], 0.6, 1e-12) {
		t.Errorf("CST_L fa node 0: expected mean 0.6, got %g", cstFA.Mean[0])
	}
	if !testutil.NearEqual(cstFA.Std[0], math.Sqrt(0.02), 1e-12) {
		t.Errorf("CST_L fa node 0: expected std sqrt(0.02), got %g", cstFA.Std[0])
	}
	if cstFA.N[0] != 2 {
		t.Errorf("CST_L fa node 0: expected 2 observations, got %d", cstFA.N[0])
	}

	// Single observation: std is zero, not NaN.
	if !testutil.NearEqual(cstFA.Mean[1], 0.6, 1e-12) || cstFA.Std[1] != 0 || cstFA.N[1] != 1 {
		t.Errorf("CST_L fa node 1: expected mean 0.6 std 0 n 1, got %g %g %d",
			cstFA.Mean[1], cstFA.Std[1], cstFA.N[1])
	}

	// NaN input cells are dropped, leaving the node unobserved.
	cstMD := profiles[1]
	if !testutil.NearEqual(cstMD.Mean[0], 0.75, 1e-12) {
		t.Errorf("CST_L md node 0: expected mean 0.75, got %g", cstMD.Mean[0])
	}
	if !math.IsNaN(cstMD.Mean[1]) || !math.IsNaN(cstMD.Std[1]) || cstMD.N[1] != 0 {
		t.Errorf("CST_L md node 1: expected unobserved, got %g %g %d",
			cstMD.Mean[1], cstMD.Std[1], cstMD.N[1])
	}
}

func TestProfilesMetricSubset(t *testing.T) {
	profiles, err := Profiles(profileFixture(), []string{"md"})
	if err != nil {
		t.Fatalf("Profiles failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	for _, p := range profiles {
		if p.Metric != "md" {
			t.Errorf("expected metric md, got %s", p.Metric)
		}
	}
}

func TestProfilesUnknownMetric(t *testing.T) {
	_, err := Profiles(profileFixture(), []string{"bogus"})
	if !errors.Is(err, tractometry.ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric, got %v", err)
	}
}

func TestProfilesEmptyTable(t *testing.T) {
	if _, err := Profiles(&tractometry.LongTable{Metrics: []string{"fa"}}, nil); err == nil {
		t.Error("expected error for empty table")
	}
	if _, err := Profiles(nil, nil); err == nil {
		t.Error("expected error for nil table")
	}
}

func TestProfilesUncoveredNode(t *testing.T) {
	// SLF_L has no row at node 1, but the node range comes from the whole
	// table, so its profile spans both nodes with node 1 unobserved.
	profiles, err := Profiles(profileFixture(), []string{"md"})
	if err != nil {
		t.Fatalf("Profiles failed: %v", err)
	}

	slfMD := profiles[1]
	if slfMD.Tract != "SLF_L" {
		t.Fatalf("expected SLF_L profile, got %s", slfMD.Tract)
	}
	if !testutil.NearEqual(slfMD.Mean[0], 0.5, 1e-12) {
		t.Errorf("SLF_L md node 0: expected 0.5, got %g", slfMD.Mean[0])
	}
	if !math.IsNaN(slfMD.Mean[1]) {
		t.Errorf("SLF_L md node 1: expected NaN, got %g", slfMD.Mean[1])
	}
}
