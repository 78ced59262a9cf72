// Package history extracts the commits whose change sets intersected a
// specific line range, with per-commit diffs already pruned to that range.
package history

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"time"

	"whence/internal/errors"
	"whence/internal/logging"
	"whence/internal/repostate"
	"whence/internal/source"
)

const (
	// recordSentinel separates commit records in the git log output. ASCII
	// record separator; it cannot appear in commit metadata.
	recordSentinel = "\x1e"

	// DefaultMaxOutputBytes caps how much git log output is read (10 MB).
	DefaultMaxOutputBytes = 10 * 1024 * 1024

	// DefaultQueryTimeout bounds a single history query.
	DefaultQueryTimeout = 30 * time.Second
)

// CommitRecord is one commit that touched the queried range.
type CommitRecord struct {
	Hash    string    `json:"hash"` // full 40-char identifier
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"` // subject line
	// OverlappingDiff holds only the hunks that intersected the queried
	// range, never the whole-file diff.
	OverlappingDiff string `json:"overlappingDiff"`
	// RenamedFrom is filled by the heuristic rename enrichment pass.
	RenamedFrom string `json:"renamedFrom,omitempty"`
	// Heuristic marks RenamedFrom as unverified pattern matching.
	Heuristic bool `json:"heuristic,omitempty"`
}

// CommitHistory is the set of overlapping commits, keyed by hash (no
// duplicates), ordered newest first for presentation.
type CommitHistory struct {
	Records   []CommitRecord `json:"records"`
	Truncated bool           `json:"truncated"`
}

// Len returns the number of commits found.
func (h *CommitHistory) Len() int {
	return len(h.Records)
}

// Oldest returns the first commit that introduced the range, or nil.
func (h *CommitHistory) Oldest() *CommitRecord {
	if len(h.Records) == 0 {
		return nil
	}
	return &h.Records[len(h.Records)-1]
}

// Chronological returns the records oldest first, for first-introduction
// detection and prompt rendering.
func (h *CommitHistory) Chronological() []CommitRecord {
	out := make([]CommitRecord, len(h.Records))
	copy(out, h.Records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Extractor runs line-range history queries against one repository.
type Extractor struct {
	repoRoot       string
	maxOutputBytes int
	timeout        time.Duration
	logger         *logging.Logger
}

// NewExtractor creates a history extractor rooted at repoRoot.
func NewExtractor(repoRoot string, logger *logging.Logger) *Extractor {
	return &Extractor{
		repoRoot:       repoRoot,
		maxOutputBytes: DefaultMaxOutputBytes,
		timeout:        DefaultQueryTimeout,
		logger:         logger,
	}
}

// WithLimits overrides the output cap and timeout. Zero values keep defaults.
func (e *Extractor) WithLimits(maxOutputBytes int, timeout time.Duration) *Extractor {
	if maxOutputBytes > 0 {
		e.maxOutputBytes = maxOutputBytes
	}
	if timeout > 0 {
		e.timeout = timeout
	}
	return e
}

// Extract returns every commit whose change set intersected the range,
// tracked through renames across the full ancestry of the current branch.
// An empty history is a success; only repository-level failures error.
func (e *Extractor) Extract(ctx context.Context, rng source.Range) (*CommitHistory, error) {
	if !repostate.IsGitRepository(ctx, e.repoRoot) {
		return nil, errors.New(errors.NotVersionControlled,
			"file is not inside a git working tree", nil).WithDetails(map[string]interface{}{
			"repoRoot": e.repoRoot,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// git log -L tracks the exact line span through the commit graph and
	// emits, per commit, only the hunks overlapping that span. This is what
	// separates evolutionary history from blame's most-recent-touch view.
	args := []string{
		"log",
		"--no-color",
		fmt.Sprintf("-L%d,%d:%s", rng.StartLine, rng.EndLine, rng.FilePath),
		"--format=" + recordSentinel + "%H|%an|%aI|%s",
	}

	e.logger.Debug("Running line-range history query", map[string]interface{}{
		"range": rng.String(),
		"args":  args,
	})

	output, truncated, err := e.runBounded(ctx, args)
	if err != nil {
		return nil, err
	}

	records, parseTruncated := parseHistoryOutput(output, truncated)

	history := &CommitHistory{
		Records:   records,
		Truncated: truncated || parseTruncated,
	}

	e.logger.Debug("Line-range history extracted", map[string]interface{}{
		"range":     rng.String(),
		"commits":   history.Len(),
		"truncated": history.Truncated,
	})

	return history, nil
}

// runBounded executes git with the output cap applied, returning the raw
// output and whether the cap was hit.
func (e *Extractor) runBounded(ctx context.Context, args []string) (string, bool, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = e.repoRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", false, errors.New(errors.InternalError, "failed to open git stdout", err)
	}
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return "", false, ctxFailure(ctx)
		}
		return "", false, errors.New(errors.HistoryQueryFailed, "failed to start git", err)
	}

	limited := io.LimitReader(stdout, int64(e.maxOutputBytes)+1)
	raw, readErr := io.ReadAll(limited)

	truncated := len(raw) > e.maxOutputBytes
	if truncated {
		raw = raw[:e.maxOutputBytes]
		// Drain the rest so git does not block on a full pipe, then stop
		// caring about its exit status.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()

	// A killed git process must read as a context failure, not as a query
	// failure with empty stderr.
	if ctx.Err() != nil {
		return "", false, ctxFailure(ctx)
	}
	if readErr != nil {
		return "", false, errors.New(errors.HistoryQueryFailed, "failed reading git output", readErr)
	}
	if waitErr != nil && !truncated {
		msg := strings.TrimSpace(stderr.String())
		// A path absent from every commit is a valid empty history, not a
		// failure: brand-new or never-committed files land here.
		if isPathUnknown(msg) {
			return "", false, nil
		}
		return "", false, errors.New(errors.HistoryQueryFailed,
			"line-range history query failed", waitErr).WithDetails(map[string]interface{}{
			"stderr": msg,
		})
	}

	return string(raw), truncated, nil
}

// ctxFailure maps a context failure, separating the query deadline from
// caller cancellation.
func ctxFailure(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(errors.Timeout, "history query timed out", ctx.Err())
	}
	return errors.New(errors.Timeout, "history query cancelled", ctx.Err())
}

// isPathUnknown matches git's complaints about files with no committed
// history.
func isPathUnknown(stderr string) bool {
	return strings.Contains(stderr, "no such path") ||
		strings.Contains(stderr, "does not exist in") ||
		strings.Contains(stderr, "no commits yet")
}

// parseHistoryOutput splits raw git log output into commit records. Records
// are separated by the sentinel; the first line of each block is the
// metadata line, the remainder is the pruned diff. When the raw output was
// truncated mid-record, the trailing partial record is dropped and reported.
func parseHistoryOutput(output string, rawTruncated bool) ([]CommitRecord, bool) {
	if strings.TrimSpace(output) == "" {
		return nil, false
	}

	blocks := strings.Split(output, recordSentinel)
	droppedPartial := false

	seen := make(map[string]int)
	var records []CommitRecord

	for i, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}

		metaLine, body, _ := strings.Cut(block, "\n")
		parts := strings.SplitN(metaLine, "|", 4)
		if len(parts) != 4 || len(parts[0]) != 40 {
			// The last block may be cut off by the output cap.
			if rawTruncated && i == len(blocks)-1 {
				droppedPartial = true
				continue
			}
			continue
		}

		date, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			date = time.Time{}
		}

		diff := strings.Trim(body, "\n")

		// Hash uniqueness invariant: merge additional hunks of an already
		// seen commit instead of duplicating the record.
		if idx, ok := seen[parts[0]]; ok {
			if diff != "" {
				if records[idx].OverlappingDiff != "" {
					records[idx].OverlappingDiff += "\n"
				}
				records[idx].OverlappingDiff += diff
			}
			continue
		}

		seen[parts[0]] = len(records)
		records = append(records, CommitRecord{
			Hash:            parts[0],
			Author:          parts[1],
			Date:            date,
			Message:         parts[3],
			OverlappingDiff: diff,
		})
	}

	// Presentation order: newest first.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})

	return records, droppedPartial
}
