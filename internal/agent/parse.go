package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// structuredResult is the JSON shape some agents emit instead of prose.
type structuredResult struct {
	Output      string   `json:"output"`
	Summary     string   `json:"summary"`
	Files       []string `json:"files"`
	Suggestions []string `json:"suggestions"`
}

type parsedOutput struct {
	Output      string
	Files       []string
	Suggestions int
	Structured  bool
}

// parseOutput attempts structured JSON parsing first and degrades to raw
// text. A parse failure is never fatal.
func parseOutput(raw string) parsedOutput {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var s structuredResult
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			out := s.Output
			if out == "" {
				out = s.Summary
			}
			if out != "" || len(s.Files) > 0 || len(s.Suggestions) > 0 {
				return parsedOutput{
					Output:      out,
					Files:       s.Files,
					Suggestions: len(s.Suggestions),
					Structured:  true,
				}
			}
		}
	}
	return parsedOutput{Output: raw}
}

var (
	numberedItem = regexp.MustCompile(`^\d+\.`)
	bulletItem   = regexp.MustCompile(`^[-*\x{2022}]\s+`)
)

var severityMarkers = []string{"critical:", "high:", "medium:", "low:"}

// CountSuggestions counts discrete feedback items in review output:
// numbered lines, bullet lines, and severity-tagged lines.
func CountSuggestions(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if numberedItem.MatchString(line) || bulletItem.MatchString(line) {
			count++
			continue
		}
		lower := strings.ToLower(line)
		for _, marker := range severityMarkers {
			if strings.Contains(lower, marker) {
				count++
				break
			}
		}
	}
	return count
}
