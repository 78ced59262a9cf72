package history

import (
	"regexp"
	"strings"

	"whence/internal/scope"
)

// Rename detection is regex pattern matching over diff text, which is
// inherently fragile. It runs as a separate enrichment pass after
// extraction, never touches the extracted records' diffs, and every hit is
// flagged Heuristic so downstream consumers can present it as unverified.

// signaturePatterns extract a declared function name from one source line.
// Languages without an entry simply get no rename enrichment.
var signaturePatterns = map[scope.Language]*regexp.Regexp{
	scope.LangGo:         regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*\(`),
	scope.LangPython:     regexp.MustCompile(`^\s*def\s+([A-Za-z_]\w*)\s*\(`),
	scope.LangJavaScript: regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`),
	scope.LangTypeScript: regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`),
	scope.LangTSX:        regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`),
	scope.LangRust:       regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?fn\s+([A-Za-z_]\w*)`),
	scope.LangRuby:       regexp.MustCompile(`^\s*def\s+(?:self\.)?([A-Za-z_]\w*[?!]?)`),
}

// EnrichRenames annotates records whose hunk looks like a signature rename:
// exactly one removed and one added signature line with different names.
// Anything more ambiguous is left untouched.
func EnrichRenames(history *CommitHistory, lang scope.Language) {
	pattern, ok := signaturePatterns[lang]
	if !ok || history == nil {
		return
	}

	for i := range history.Records {
		oldName, newName := signatureRename(history.Records[i].OverlappingDiff, pattern)
		if oldName != "" && newName != "" && oldName != newName {
			history.Records[i].RenamedFrom = oldName
			history.Records[i].Heuristic = true
		}
	}
}

// signatureRename scans a pruned diff for a single removed/added signature
// pair. Returns empty strings unless the hunk contains exactly one of each.
func signatureRename(diff string, pattern *regexp.Regexp) (oldName, newName string) {
	var removed, added []string

	for _, line := range strings.Split(diff, "\n") {
		if len(line) < 2 {
			continue
		}
		marker, rest := line[0], line[1:]
		// Skip diff headers ("--- a/...", "+++ b/...").
		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") {
			continue
		}
		m := pattern.FindStringSubmatch(rest)
		if m == nil {
			continue
		}
		switch marker {
		case '-':
			removed = append(removed, m[1])
		case '+':
			added = append(added, m[1])
		}
	}

	if len(removed) == 1 && len(added) == 1 {
		return removed[0], added[0]
	}
	return "", ""
}
