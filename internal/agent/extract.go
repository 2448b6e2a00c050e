package agent

import (
	"regexp"
	"strings"
)

// Extractor pulls file paths an agent claims to have touched out of its
// output. Best-effort: it may under- or over-report.
type Extractor interface {
	Files(output string) []string
}

type PatternExtractor struct{}

var (
	claimLine = regexp.MustCompile(`(?i)^\s*(?:[-*]\s*)?(?:modified|created|wrote|updated|added):\s*(.+)$`)
	codeSpan  = regexp.MustCompile("`([^`\\s]+\\.(?:go|py|js|ts|tsx|java|rs|c|cpp|h|rb|sh|sql|md|ya?ml|json|toml))`")
)

func (PatternExtractor) Files(output string) []string {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = strings.TrimSpace(strings.Trim(path, "`"))
		if path == "" || strings.ContainsAny(path, " \t") || seen[path] {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, line := range strings.Split(output, "\n") {
		if m := claimLine.FindStringSubmatch(line); m != nil {
			add(m[1])
		}
		for _, m := range codeSpan.FindAllStringSubmatch(line, -1) {
			add(m[1])
		}
	}
	return files
}
