package archive

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Known mission names as reported by the archive's obs_collection column.
const (
	MissionTESS   = "TESS"
	MissionKepler = "Kepler"
	MissionK2     = "K2"
	// MissionAll disables the obs_collection filter of name lookups.
	MissionAll = "all"
)

var folder = cases.Fold()

// CanonicalMission maps any spelling of a supported mission ("tess",
// "KEPLER") to its archive name. Unknown missions are returned trimmed.
func CanonicalMission(name string) string {
	trimmed := strings.TrimSpace(name)
	switch folder.String(trimmed) {
	case "tess":
		return MissionTESS
	case "kepler":
		return MissionKepler
	case "k2":
		return MissionK2
	case "all", "*":
		return MissionAll
	}
	return trimmed
}

// AllMissions reports whether mission leaves the collection unfiltered.
func AllMissions(mission string) bool {
	m := CanonicalMission(mission)
	return m == "" || m == MissionAll
}

// SequencePrefix is the letter used in segment ids: S for TESS sectors,
// Q for Kepler quarters, C for K2 campaigns.
func SequencePrefix(mission string) string {
	switch CanonicalMission(mission) {
	case MissionKepler:
		return "Q"
	case MissionK2:
		return "C"
	default:
		return "S"
	}
}

// CatalogFor returns the catalog prefix used to build target names for a
// mission (TIC for TESS, KIC for Kepler, EPIC for K2).
func CatalogFor(mission string) string {
	switch CanonicalMission(mission) {
	case MissionKepler:
		return "KIC"
	case MissionK2:
		return "EPIC"
	default:
		return "TIC"
	}
}

var qualityPresets = map[string]map[string]uint32{
	MissionTESS: {
		"none":    0,
		"default": 175,
		"hard":    7407,
		"hardest": math.MaxUint32,
	},
	MissionKepler: {
		"none":    0,
		"default": 1130799,
		"hard":    1664431,
		"hardest": math.MaxUint32,
	},
}

// QualityBitmask resolves a preset name or integer string to the bitmask for
// mission. Samples whose QUALITY flags intersect the mask are dropped.
func QualityBitmask(mission, preset string) (uint32, error) {
	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" {
		preset = "default"
	}
	key := CanonicalMission(mission)
	if key == MissionK2 {
		key = MissionKepler
	}
	table, ok := qualityPresets[key]
	if !ok {
		table = qualityPresets[MissionTESS]
	}
	if mask, ok := table[preset]; ok {
		return mask, nil
	}
	n, err := strconv.ParseUint(preset, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown quality bitmask %q", preset)
	}
	return uint32(n), nil
}
