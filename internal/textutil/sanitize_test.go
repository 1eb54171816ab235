package textutil_test

import (
	"testing"

	"exohunt/internal/textutil"
)

func TestNamingHelpers(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"clean tic", textutil.CleanTarget("TIC 307210830"), "TIC_307210830"},
		{"clean kepler", textutil.CleanTarget(" Kepler-10 "), "Kepler_10"},
		{"mission spaces", textutil.MissionLabel("TESS  Sector 14"), "TESS_Sector_14"},
		{"mission empty", textutil.MissionLabel("  "), "unknown"},
		{"sanitize", textutil.SanitizeFileName(`a/b:c?"`), "a-b-c"},
		{"stem", textutil.Stem("/data/TIC_1_s0001_lightcurve.csv"), "TIC_1_s0001_lightcurve"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, tc.got, tc.want)
		}
	}
}
