package evidence

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"whence/internal/history"
	"whence/internal/scope"
	"whence/internal/source"
	"whence/internal/usage"
)

const calcSource = `#!/usr/bin/env python
"""Tiny geometry helpers."""
import math

def area(r):
    # classic approximation kept for parity with the old reports
    return 3.14159 * r * r




`

func calcPayload() *Payload {
	target := source.Range{FilePath: "calc.py", StartLine: 5, EndLine: 7}
	nameRange := &source.Range{FilePath: "calc.py", StartLine: 5, EndLine: 5}
	chain := scope.Chain{
		{Kind: scope.KindFunction, Name: "area",
			BodyRange: source.Range{FilePath: "calc.py", StartLine: 5, EndLine: 7},
			NameRange: nameRange, NameColumn: 4},
	}
	hist := &history.CommitHistory{Records: []history.CommitRecord{
		{
			Hash:            "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Author:          "Alice",
			Date:            time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Message:         "add area calc",
			OverlappingDiff: "@@ -0,0 +5,3 @@\n+def area(r):\n+    return 3.14159 * r * r",
		},
	}}
	report := &usage.Report{TotalCount: 0, SampleLocations: []usage.ReferenceSite{},
		Availability: usage.Confirmed}

	return Assemble(target, scope.LangPython, []byte(calcSource), chain, hist, report, false, false)
}

func TestRenderPromptOrphanedScenario(t *testing.T) {
	prompt := RenderPrompt(calcPayload(), DefaultLimits())

	if !strings.Contains(prompt, "ORPHANED: 0 references found") {
		t.Error("confirmed-zero usage must render the ORPHANED literal")
	}
	if strings.Contains(prompt, "usage unknown") {
		t.Error("ORPHANED and usage-unknown are mutually exclusive")
	}
	if strings.Contains(prompt, "ACTIVE USAGE") {
		t.Error("zero references must not render as active usage")
	}
	if !strings.Contains(prompt, "function: area") {
		t.Error("scope chain path missing")
	}
	if !strings.Contains(prompt, "commit aaaaaaa | Alice | 2024-03-01 | add area calc") {
		t.Error("commit line missing or wrongly formatted")
	}
	if !strings.Contains(prompt, "ONLY one JSON object") {
		t.Error("closing instruction missing")
	}
}

func TestRenderTargetMarkers(t *testing.T) {
	prompt := RenderPrompt(calcPayload(), DefaultLimits())

	if !strings.Contains(prompt, "   5> def area(r):") {
		t.Errorf("in-range line must carry the > marker:\n%s", prompt)
	}
	if !strings.Contains(prompt, "   3  import math") {
		t.Errorf("context line must carry a space marker:\n%s", prompt)
	}
	// 6 lines of context above line 5 clamps to line 1.
	if !strings.Contains(prompt, "   1  #!/usr/bin/env python") {
		t.Error("context window must clamp at the start of file")
	}
}

func TestRenderContextWindowBounds(t *testing.T) {
	content := strings.Repeat("x\n", 100)
	p := Assemble(source.Range{FilePath: "f.txt", StartLine: 50, EndLine: 50},
		scope.LangUnknown, []byte(content), nil, &history.CommitHistory{}, nil, false, false)

	prompt := RenderPrompt(p, DefaultLimits())

	if !strings.Contains(prompt, "  44  x") || !strings.Contains(prompt, "  56  x") {
		t.Error("context window must span 6 lines each side")
	}
	if strings.Contains(prompt, "  43  x") || strings.Contains(prompt, "  57  x") {
		t.Error("context window leaked beyond its bounds")
	}
}

func TestRenderUsageExclusivity(t *testing.T) {
	cases := []struct {
		name    string
		report  *usage.Report
		want    string
		forbid  []string
	}{
		{"active", &usage.Report{TotalCount: 3, Availability: usage.Confirmed,
			SampleLocations: []usage.ReferenceSite{{FilePath: "a.py", Line: 9}}},
			"ACTIVE USAGE: 3 references", []string{"ORPHANED", "usage unknown"}},
		{"orphaned", &usage.Report{TotalCount: 0, Availability: usage.Confirmed},
			"ORPHANED: 0 references found", []string{"ACTIVE USAGE", "usage unknown"}},
		{"unknown", &usage.Report{Availability: usage.Unavailable},
			"usage unknown", []string{"ACTIVE USAGE", "ORPHANED"}},
		{"nil report", nil,
			"usage unknown", []string{"ACTIVE USAGE", "ORPHANED"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			renderUsage(&b, tc.report)
			out := b.String()
			if !strings.Contains(out, tc.want) {
				t.Errorf("missing %q in %q", tc.want, out)
			}
			for _, f := range tc.forbid {
				if strings.Contains(out, f) {
					t.Errorf("forbidden %q in %q", f, out)
				}
			}
		})
	}
}

func TestRenderUnavailableMarkers(t *testing.T) {
	p := Assemble(source.Range{FilePath: "f.ts", StartLine: 1, EndLine: 1},
		scope.LangTypeScript, []byte("const x = 1;\n"), nil, nil, nil, true, true)

	prompt := RenderPrompt(p, DefaultLimits())

	if strings.Count(prompt, "(data unavailable)") != 2 {
		t.Errorf("degraded scope and history must each be marked:\n%s", prompt)
	}
}

func TestRenderCommitCap(t *testing.T) {
	var records []history.CommitRecord
	for i := 0; i < 30; i++ {
		records = append(records, history.CommitRecord{
			Hash:    fmt.Sprintf("%040d", i),
			Author:  "A",
			Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Message: fmt.Sprintf("change %d", i),
		})
	}
	p := Assemble(source.Range{FilePath: "f.go", StartLine: 1, EndLine: 1},
		scope.LangGo, []byte("package f\n"), nil,
		&history.CommitHistory{Records: records}, nil, false, false)

	prompt := RenderPrompt(p, DefaultLimits())

	if strings.Count(prompt, "commit ") != 20 {
		t.Errorf("expected 20 rendered commits, got %d", strings.Count(prompt, "commit "))
	}
	if !strings.Contains(prompt, "(10 more commit(s) omitted)") {
		t.Error("omitted-commit note missing")
	}
	// Oldest first: change 0 rendered, change 29 cut.
	if !strings.Contains(prompt, "change 0") || strings.Contains(prompt, "change 29") {
		t.Error("commit cap must keep the oldest commits")
	}
}

func TestCapDiff(t *testing.T) {
	long := strings.Repeat("+padding line for the diff budget\n", 300)
	capped := capDiff(long, 4096)

	if len(capped) > 4096+len("\n... [diff truncated]") {
		t.Errorf("capped diff still %d bytes", len(capped))
	}
	if !strings.HasSuffix(capped, "... [diff truncated]") {
		t.Error("truncation marker missing")
	}
	if got := capDiff("short", 4096); got != "short" {
		t.Errorf("small diff must pass through, got %q", got)
	}
}

func TestFingerprintStability(t *testing.T) {
	a := calcPayload()
	b := calcPayload()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical payloads must fingerprint identically")
	}

	c := calcPayload()
	c.Target.EndLine = 9
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different targets must fingerprint differently")
	}
}
