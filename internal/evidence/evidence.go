// Package evidence aggregates the gathered provenance slices into an
// immutable payload and renders the bounded prompt text sent to the
// reasoning backend. The rendering rules are the wire format to the backend,
// so they are exact and covered by tests.
package evidence

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"whence/internal/history"
	"whence/internal/scope"
	"whence/internal/source"
	"whence/internal/usage"
)

// Limits are the deterministic caps applied during rendering. Relying on the
// backend's context window to truncate silently is not acceptable.
type Limits struct {
	ContextLines int // lines of source above and below the selection
	MaxCommits   int // commits rendered into the prompt
	MaxDiffBytes int // per-commit diff budget
}

// DefaultLimits match the documented defaults.
func DefaultLimits() Limits {
	return Limits{
		ContextLines: 6,
		MaxCommits:   20,
		MaxDiffBytes: 4096,
	}
}

// Payload is the immutable aggregate of one analysis request's evidence.
// Degraded slices are carried as nil/empty values plus their flags; the
// renderer marks them "(data unavailable)" instead of omitting the section.
type Payload struct {
	Target   source.Range   `json:"target"`
	Language scope.Language `json:"language"`
	Content  []byte         `json:"-"`

	Chain   scope.Chain            `json:"scopeChain"`
	History *history.CommitHistory `json:"history"`
	Usage   *usage.Report          `json:"usage"`

	// ScopeUnavailable and HistoryUnavailable record that the slice degraded
	// rather than came back legitimately empty.
	ScopeUnavailable   bool `json:"scopeUnavailable,omitempty"`
	HistoryUnavailable bool `json:"historyUnavailable,omitempty"`
}

// Assemble builds the payload. Nil history and usage are valid degraded
// inputs; the unavailability flags come from the gathering stage.
func Assemble(target source.Range, lang scope.Language, content []byte,
	chain scope.Chain, hist *history.CommitHistory, report *usage.Report,
	scopeUnavailable, historyUnavailable bool) *Payload {
	return &Payload{
		Target:             target,
		Language:           lang,
		Content:            content,
		Chain:              chain,
		History:            hist,
		Usage:              report,
		ScopeUnavailable:   scopeUnavailable,
		HistoryUnavailable: historyUnavailable,
	}
}

// Fingerprint returns a stable hex digest of the payload's evidence and the
// raw file content. Used as the journal and bundle key.
func (p *Payload) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	enc, _ := json.Marshal(p)
	h.Write(enc)
	h.Write(p.Content)
	return hex.EncodeToString(h.Sum(nil))
}

// RenderPrompt produces the bounded textual form of the payload.
func RenderPrompt(p *Payload, limits Limits) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing the provenance of a highlighted code region.\n")
	fmt.Fprintf(&b, "File: %s, lines %d-%d\n\n", p.Target.FilePath, p.Target.StartLine, p.Target.EndLine)

	b.WriteString("## TARGET CODE\n")
	renderTarget(&b, p, limits.ContextLines)

	b.WriteString("\n## ENCLOSING SCOPE\n")
	renderScope(&b, p)

	b.WriteString("\n## COMMIT HISTORY\n")
	renderHistory(&b, p, limits)

	b.WriteString("\n## USAGE\n")
	renderUsage(&b, p.Usage)

	b.WriteString("\n## INSTRUCTION\n")
	b.WriteString("Respond with ONLY one JSON object containing exactly these four string fields:\n")
	b.WriteString(`{"intent": "...", "analysis": "...", "risk": "...", "verdict": "..."}` + "\n")
	b.WriteString("Do not include any prose, markdown fences, or explanation outside the JSON object.\n")

	return b.String()
}

// renderTarget prints the selection with surrounding context, each line as
// "%4d%c %s" where the marker is '>' inside the selection and ' ' outside.
func renderTarget(b *strings.Builder, p *Payload, contextLines int) {
	lines := strings.Split(string(p.Content), "\n")
	// A trailing newline yields one phantom empty element.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		b.WriteString("(data unavailable)\n")
		return
	}

	first := p.Target.StartLine - contextLines
	if first < 1 {
		first = 1
	}
	last := p.Target.EndLine + contextLines
	if last > len(lines) {
		last = len(lines)
	}
	if first > len(lines) {
		b.WriteString("(data unavailable)\n")
		return
	}

	for n := first; n <= last; n++ {
		marker := byte(' ')
		if n >= p.Target.StartLine && n <= p.Target.EndLine {
			marker = '>'
		}
		fmt.Fprintf(b, "%4d%c %s\n", n, marker, lines[n-1])
	}
}

func renderScope(b *strings.Builder, p *Payload) {
	switch {
	case p.ScopeUnavailable:
		b.WriteString("(data unavailable)\n")
	case len(p.Chain) == 0:
		b.WriteString("top level of file, no enclosing container\n")
	default:
		b.WriteString(p.Chain.Path() + "\n")
	}
}

func renderHistory(b *strings.Builder, p *Payload, limits Limits) {
	if p.HistoryUnavailable || p.History == nil {
		b.WriteString("(data unavailable)\n")
		return
	}
	if p.History.Len() == 0 {
		b.WriteString("no commits touch these lines\n")
		return
	}

	records := p.History.Chronological()
	omitted := 0
	if len(records) > limits.MaxCommits {
		omitted = len(records) - limits.MaxCommits
		records = records[:limits.MaxCommits]
	}

	fmt.Fprintf(b, "%d commit(s), oldest first:\n", p.History.Len())
	for _, rec := range records {
		fmt.Fprintf(b, "\ncommit %s | %s | %s | %s\n",
			displayHash(rec.Hash), rec.Author, rec.Date.Format("2006-01-02"), rec.Message)
		if rec.RenamedFrom != "" {
			fmt.Fprintf(b, "possibly renamed from %q (heuristic)\n", rec.RenamedFrom)
		}
		if rec.OverlappingDiff != "" {
			b.WriteString(capDiff(rec.OverlappingDiff, limits.MaxDiffBytes) + "\n")
		}
	}
	if omitted > 0 {
		fmt.Fprintf(b, "\n(%d more commit(s) omitted)\n", omitted)
	}
	if p.History.Truncated {
		b.WriteString("\n(history truncated by output cap)\n")
	}
}

// renderUsage writes exactly one of the three usage lines.
func renderUsage(b *strings.Builder, report *usage.Report) {
	if report == nil || report.Availability != usage.Confirmed {
		b.WriteString("usage unknown: no reference capability available for this file\n")
		return
	}
	if report.TotalCount == 0 {
		b.WriteString("ORPHANED: 0 references found\n")
		return
	}
	fmt.Fprintf(b, "ACTIVE USAGE: %d references, sample: [%s]\n",
		report.TotalCount, sampleList(report.SampleLocations))
}

func sampleList(sites []usage.ReferenceSite) string {
	parts := make([]string, len(sites))
	for i, s := range sites {
		parts[i] = fmt.Sprintf("%s:%d", s.FilePath, s.Line)
	}
	return strings.Join(parts, ", ")
}

// displayHash shortens a full hash to the conventional 7 characters. The
// full hash stays in the payload data.
func displayHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

// capDiff enforces the per-commit diff budget at a line boundary.
func capDiff(diff string, maxBytes int) string {
	if len(diff) <= maxBytes {
		return diff
	}
	cut := diff[:maxBytes]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut + "\n... [diff truncated]"
}
