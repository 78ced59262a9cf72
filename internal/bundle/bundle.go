// Package bundle exports an analysis as a zstd-compressed JSON snapshot so
// the evidence and verdict can be inspected or replayed offline.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"whence/internal/evidence"
	"whence/internal/synthesis"
)

// FormatVersion identifies the bundle layout for future readers.
const FormatVersion = 1

// Bundle is the archived snapshot of one analysis.
type Bundle struct {
	FormatVersion int               `json:"formatVersion"`
	RequestID     string            `json:"requestId"`
	Fingerprint   string            `json:"fingerprint"`
	CreatedAt     time.Time         `json:"createdAt"`
	Payload       *evidence.Payload `json:"payload"`
	TargetSource  string            `json:"targetSource"` // raw file content at analysis time
	Prompt        string            `json:"prompt"`
	Result        *synthesis.Result `json:"result"`
}

// Build assembles a bundle from a finished analysis.
func Build(requestID string, payload *evidence.Payload, prompt string, result *synthesis.Result) *Bundle {
	return &Bundle{
		FormatVersion: FormatVersion,
		RequestID:     requestID,
		Fingerprint:   payload.Fingerprint(),
		CreatedAt:     time.Now().UTC(),
		Payload:       payload,
		TargetSource:  string(payload.Content),
		Prompt:        prompt,
		Result:        result,
	}
}

// Write compresses the bundle to path, creating parent directories.
func Write(b *Bundle, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create bundle directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bundle file: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		_ = zw.Close()
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish bundle compression: %w", err)
	}
	return f.Sync()
}

// Read loads a bundle back from disk.
func Read(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd stream: %w", err)
	}
	defer zr.Close()

	var b Bundle
	if err := json.NewDecoder(zr).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if b.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported bundle format version %d", b.FormatVersion)
	}
	return &b, nil
}
