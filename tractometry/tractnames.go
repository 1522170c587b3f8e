package tractometry

import "sort"

// Canonical names for the standard tractometry bundle abbreviations. Tract
// IDs outside this table are passed through untouched, so site-specific
// bundle sets keep working.
var bundleNames = map[string]string{
	"ATR_L": "Left Anterior Thalamic Radiation",
	"ATR_R": "Right Anterior Thalamic Radiation",
	"CGC_L": "Left Cingulum Cingulate",
	"CGC_R": "Right Cingulum Cingulate",
	"HCC_L": "Left Cingulum Hippocampus",
	"HCC_R": "Right Cingulum Hippocampus",
	"CST_L": "Left Corticospinal",
	"CST_R": "Right Corticospinal",
	"IFO_L": "Left Inferior Fronto-Occipital",
	"IFO_R": "Right Inferior Fronto-Occipital",
	"ILF_L": "Left Inferior Longitudinal",
	"ILF_R": "Right Inferior Longitudinal",
	"SLF_L": "Left Superior Longitudinal",
	"SLF_R": "Right Superior Longitudinal",
	"ARC_L": "Left Arcuate",
	"ARC_R": "Right Arcuate",
	"UNC_L": "Left Uncinate",
	"UNC_R": "Right Uncinate",
	"FA":    "Callosum Forceps Minor",
	"FP":    "Callosum Forceps Major",
}

// BundleName returns the display name of a tract ID, or the ID itself when
// it is not a standard abbreviation.
func BundleName(tractID string) string {
	if name, ok := bundleNames[tractID]; ok {
		return name
	}
	return tractID
}

// IsStandardBundle checks whether tractID is one of the standard bundles.
func IsStandardBundle(tractID string) bool {
	_, ok := bundleNames[tractID]
	return ok
}

// StandardBundles returns the standard abbreviations, sorted.
func StandardBundles() []string {
	ids := make([]string, 0, len(bundleNames))
	for id := range bundleNames {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
