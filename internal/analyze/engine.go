// Package analyze orchestrates one provenance analysis: gather the evidence
// slices concurrently, assemble the payload, synthesize the verdict.
package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"whence/internal/config"
	"whence/internal/errors"
	"whence/internal/evidence"
	"whence/internal/history"
	"whence/internal/logging"
	"whence/internal/scope"
	"whence/internal/source"
	"whence/internal/store"
	"whence/internal/synthesis"
	"whence/internal/usage"
)

// Request is one analysis request. FilePath may be absolute or relative to
// the repository root.
type Request struct {
	FilePath  string
	StartLine int
	EndLine   int
}

// Outcome is the full result of one analysis.
type Outcome struct {
	RequestID string             `json:"requestId"`
	Target    source.Range       `json:"target"`
	Payload   *evidence.Payload  `json:"payload"`
	Prompt    string             `json:"-"`
	Result    *synthesis.Result  `json:"result"`
	// Coalesced marks outcomes shared with an identical in-flight request.
	Coalesced bool `json:"coalesced,omitempty"`
}

// Engine wires the gathering components to the synthesis backend. All
// collaborators are passed in explicitly; the engine holds no hidden
// globals and no cross-request mutable state beyond the dedup group.
type Engine struct {
	repoRoot   string
	limits     evidence.Limits
	resolver   *scope.Resolver
	extractor  *history.Extractor
	correlator *usage.Correlator
	backend    synthesis.Backend
	journal    *store.Store // nil disables journaling
	logger     *logging.Logger
	group      singleflight.Group
}

// New builds an engine. provider and journal may be nil.
func New(repoRoot string, cfg *config.Config, backend synthesis.Backend,
	provider usage.ReferenceProvider, journal *store.Store, logger *logging.Logger) *Engine {
	extractor := history.NewExtractor(repoRoot, logger).
		WithLimits(cfg.Limits.HistoryOutputBytes, msToDuration(cfg.Limits.HistoryTimeoutMs))

	return &Engine{
		repoRoot:  repoRoot,
		limits: evidence.Limits{
			ContextLines: cfg.Limits.ContextLines,
			MaxCommits:   cfg.Limits.MaxCommits,
			MaxDiffBytes: cfg.Limits.MaxDiffBytes,
		},
		resolver:   scope.NewResolver(),
		extractor:  extractor,
		correlator: usage.NewCorrelator(provider, logger).WithSampleCap(cfg.Limits.SampleCap),
		backend:    backend,
		journal:    journal,
		logger:     logger,
	}
}

// Analyze runs one request. Identical in-flight requests (same absolute
// path and range) are coalesced onto a single execution.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	absPath, err := filepath.Abs(filepath.Join(e.repoRoot, relativeOrSelf(req.FilePath, e.repoRoot)))
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to resolve file path", err)
	}

	key := fmt.Sprintf("%s:%d-%d", absPath, req.StartLine, req.EndLine)
	v, err, shared := e.group.Do(key, func() (interface{}, error) {
		return e.run(ctx, req, absPath)
	})
	if err != nil {
		return nil, err
	}

	outcome := v.(*Outcome)
	if shared {
		copied := *outcome
		copied.Coalesced = true
		return &copied, nil
	}
	return outcome, nil
}

func (e *Engine) run(ctx context.Context, req Request, absPath string) (*Outcome, error) {
	requestID := uuid.NewString()
	relPath, err := filepath.Rel(e.repoRoot, absPath)
	if err != nil {
		relPath = req.FilePath
	}
	relPath = filepath.ToSlash(relPath)

	logger := e.logger.With(map[string]interface{}{
		"requestId": requestID,
		"file":      relPath,
	})
	logger.Info("Starting analysis", map[string]interface{}{
		"startLine": req.StartLine,
		"endLine":   req.EndLine,
	})

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to read target file", err)
	}

	target, err := source.NewRange(relPath, req.StartLine, req.EndLine)
	if err != nil {
		return nil, err
	}
	lang := scope.FromPath(relPath)

	var (
		chain              scope.Chain
		hist               *history.CommitHistory
		report             *usage.Report
		scopeUnavailable   bool
		historyUnavailable bool
	)

	// History is independent of the other two; usage needs the resolved
	// chain for its anchor, so it runs after scope on the same goroutine,
	// still overlapping the git subprocess.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h, err := e.extractor.Extract(gctx, target)
		if err != nil {
			// Only a total absence of version control is fatal; a failed
			// query degrades to a missing history slice.
			if errors.CodeOf(err) == errors.NotVersionControlled || gctx.Err() != nil {
				return err
			}
			logger.Warn("Line-range history unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			historyUnavailable = true
			return nil
		}
		history.EnrichRenames(h, lang)
		hist = h
		return nil
	})

	g.Go(func() error {
		c, err := e.resolver.Resolve(gctx, content, lang, target)
		if err != nil {
			if !errors.IsFatal(err) {
				logger.Warn("Scope resolution unavailable", map[string]interface{}{
					"language": string(lang),
					"error":    err.Error(),
				})
				scopeUnavailable = true
			} else {
				return err
			}
		}
		chain = c

		r, err := e.correlator.Correlate(gctx, chain, relPath)
		if err != nil && errors.IsFatal(err) {
			return err
		}
		report = r
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(errors.Timeout, "analysis cancelled", ctx.Err())
		}
		return nil, err
	}
	historyUnavailable = historyUnavailable || hist == nil

	payload := evidence.Assemble(target, lang, content, chain, hist, report,
		scopeUnavailable, historyUnavailable)
	prompt := evidence.RenderPrompt(payload, e.limits)

	result, err := synthesis.Synthesize(ctx, payload, e.backend, e.limits, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Analysis complete", map[string]interface{}{
		"commits":      payloadCommits(payload),
		"usageKnown":   report != nil && report.Availability == usage.Confirmed,
		"verdictBytes": len(result.Verdict),
	})

	outcome := &Outcome{
		RequestID: requestID,
		Target:    target,
		Payload:   payload,
		Prompt:    prompt,
		Result:    result,
	}
	e.record(ctx, outcome, logger)
	return outcome, nil
}

// record journals the outcome; journal failures never fail the analysis.
func (e *Engine) record(ctx context.Context, o *Outcome, logger *logging.Logger) {
	if e.journal == nil {
		return
	}
	err := e.journal.Record(ctx, store.Entry{
		ID:          o.RequestID,
		Fingerprint: o.Payload.Fingerprint(),
		FilePath:    o.Target.FilePath,
		StartLine:   o.Target.StartLine,
		EndLine:     o.Target.EndLine,
		Backend:     e.backend.Name(),
		Intent:      o.Result.Intent,
		Analysis:    o.Result.Analysis,
		Risk:        o.Result.Risk,
		Verdict:     o.Result.Verdict,
	})
	if err != nil {
		logger.Warn("Failed to journal analysis", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func payloadCommits(p *evidence.Payload) int {
	if p.History == nil {
		return 0
	}
	return p.History.Len()
}

// relativeOrSelf strips the repo root prefix from already-absolute paths so
// Join does not double it.
func relativeOrSelf(path, root string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(root, path); err == nil {
			return rel
		}
	}
	return path
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
