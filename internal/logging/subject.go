package logging

import "strings"

// FormatSubject builds the target/index/stage subject string used in console output.
func FormatSubject(target, index, stage string) string {
	target = strings.TrimSpace(target)
	index = strings.TrimSpace(index)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 2)
	if stage != "" {
		parts = append(parts, strings.ToUpper(stage[:1])+stage[1:])
	}
	switch {
	case target != "" && index != "":
		parts = append(parts, "#"+index+" "+target)
	case target != "":
		parts = append(parts, target)
	case index != "":
		parts = append(parts, "#"+index)
	}
	return strings.Join(parts, " · ")
}
