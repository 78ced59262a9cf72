package synthesis

import "encoding/json"

// Fallback strings substituted when a response cannot be parsed. The raw
// response is never discarded: on total failure it lands verbatim in Verdict.
const (
	FallbackIntent   = "Could not determine intent (response parse failure)."
	FallbackAnalysis = "Could not extract analysis (response parse failure)."
	FallbackRisk     = "Could not assess risk (response parse failure)."
	MissingField     = "(not provided)"
)

// ParseResult extracts the four-field result from raw backend text. The
// boolean reports whether a JSON object was actually parsed; when false, the
// result carries the fixed fallbacks and the raw text in Verdict.
func ParseResult(raw string) (*Result, bool) {
	obj := firstBalancedObject(raw)
	if obj == "" {
		return fallbackResult(raw), false
	}

	var parsed struct {
		Intent   *string `json:"intent"`
		Analysis *string `json:"analysis"`
		Risk     *string `json:"risk"`
		Verdict  *string `json:"verdict"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return fallbackResult(raw), false
	}

	return &Result{
		Intent:   orMissing(parsed.Intent),
		Analysis: orMissing(parsed.Analysis),
		Risk:     orMissing(parsed.Risk),
		Verdict:  orMissing(parsed.Verdict),
	}, true
}

func orMissing(s *string) string {
	if s == nil {
		return MissingField
	}
	return *s
}

func fallbackResult(raw string) *Result {
	return &Result{
		Intent:   FallbackIntent,
		Analysis: FallbackAnalysis,
		Risk:     FallbackRisk,
		Verdict:  raw,
	}
}

// firstBalancedObject returns the first balanced {...} substring, tracking
// string literals and escapes so braces inside values do not miscount.
func firstBalancedObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
