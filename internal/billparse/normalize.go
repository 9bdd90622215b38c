package billparse

import "strings"

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Lines splits text on line breaks, trims every line and drops the empty ones.
func Lines(text string) []string {
	raw := strings.Split(lineBreaks.Replace(text), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
