package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"whence/internal/evidence"
	"whence/internal/scope"
	"whence/internal/source"
	"whence/internal/synthesis"
)

func testBundle() *Bundle {
	payload := evidence.Assemble(
		source.Range{FilePath: "calc.py", StartLine: 5, EndLine: 7},
		scope.LangPython,
		[]byte("def area(r):\n    return 3.14159 * r * r\n"),
		nil, nil, nil, false, false)
	result := &synthesis.Result{
		Intent: "compute circle area", Analysis: "pure function",
		Risk: "low", Verdict: "safe to modify",
	}
	return Build("req-123", payload, "rendered prompt text", result)
}

func TestBundleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "area.whence.zst")

	original := testBundle()
	if err := Write(original, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if loaded.RequestID != "req-123" || loaded.Fingerprint != original.Fingerprint {
		t.Errorf("identity fields mangled: %+v", loaded)
	}
	if loaded.Result.Verdict != "safe to modify" {
		t.Errorf("verdict lost: %q", loaded.Result.Verdict)
	}
	if loaded.Prompt != "rendered prompt text" {
		t.Errorf("prompt lost: %q", loaded.Prompt)
	}
	if loaded.TargetSource == "" {
		t.Error("target source must survive the round trip")
	}
	if loaded.Payload.Target.StartLine != 5 {
		t.Errorf("payload target mangled: %+v", loaded.Payload.Target)
	}
}

func TestBundleIsCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.whence.zst")
	if err := Write(testBundle(), path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// zstd frame magic number.
	if len(raw) < 4 || raw[0] != 0x28 || raw[1] != 0xb5 || raw[2] != 0x2f || raw[3] != 0xfd {
		t.Errorf("bundle is not a zstd stream: % x", raw[:4])
	}
}

func TestReadMissingBundle(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "absent.zst")); err == nil {
		t.Error("missing bundle must error")
	}
}
