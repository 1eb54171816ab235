package textutil

import (
	"path/filepath"
	"strings"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

var targetReplacer = strings.NewReplacer(" ", "_", "-", "_")

// CleanTarget turns a target name such as "TIC 307210830" or "Kepler-10" into
// a file name component ("TIC_307210830", "Kepler_10").
func CleanTarget(target string) string {
	return SanitizeFileName(targetReplacer.Replace(strings.TrimSpace(target)))
}

// MissionLabel turns a mission string such as "TESS Sector 14" into a
// directory name component.
func MissionLabel(mission string) string {
	mission = strings.Join(strings.Fields(mission), "_")
	if mission == "" {
		return "unknown"
	}
	return SanitizeFileName(mission)
}

// Stem returns the file name of path without directory and final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
