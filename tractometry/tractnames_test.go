package tractometry

import (
	"sort"
	"testing"
)

func TestBundleName(t *testing.T) {
	tests := []struct {
		tractID string
		want    string
	}{
		{"CST_L", "Left Corticospinal"},
		{"FP", "Callosum Forceps Major"},
		{"my_custom_bundle", "my_custom_bundle"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.tractID, func(t *testing.T) {
			if got := BundleName(tt.tractID); got != tt.want {
				t.Errorf("BundleName(%q) = %q, want %q", tt.tractID, got, tt.want)
			}
		})
	}
}

func TestStandardBundles(t *testing.T) {
	ids := StandardBundles()
	if len(ids) != 20 {
		t.Errorf("got %d standard bundles, want 20", len(ids))
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("StandardBundles() is not sorted")
	}
	for _, id := range ids {
		if !IsStandardBundle(id) {
			t.Errorf("IsStandardBundle(%q) = false", id)
		}
	}
	if IsStandardBundle("CST") {
		t.Error("IsStandardBundle(CST) = true, want false")
	}
}
