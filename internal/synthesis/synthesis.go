// Package synthesis sends the rendered evidence prompt to a configured
// reasoning backend and parses the four-field result out of its response.
package synthesis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	wherr "whence/internal/errors"
	"whence/internal/evidence"
	"whence/internal/logging"
)

const (
	// DefaultTimeout bounds one backend round-trip. Exceeding it surfaces as
	// a Timeout error, never a hang.
	DefaultTimeout = 45 * time.Second

	// DefaultMaxTokens is generous for a four-field JSON object.
	DefaultMaxTokens = 1024
)

// Result is the fixed four-field verdict. All fields are always populated;
// parse failures substitute fallbacks rather than leaving fields empty.
type Result struct {
	Intent   string `json:"intent"`
	Analysis string `json:"analysis"`
	Risk     string `json:"risk"`
	Verdict  string `json:"verdict"`
}

// BackendConfig selects and parameterizes a reasoning backend.
type BackendConfig struct {
	Provider  string // "anthropic", "openai", "custom"
	Model     string
	BaseURL   string // required for "custom", optional override otherwise
	APIKey    string // resolved credential, may be empty for "custom"
	MaxTokens int
	Timeout   time.Duration
}

func (c BackendConfig) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}

func (c BackendConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// Backend is one reasoning service. Complete sends a single user prompt and
// returns the raw response text.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewBackend builds the backend named by the config.
func NewBackend(cfg BackendConfig, logger *logging.Logger) (Backend, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return newAnthropicBackend(cfg, logger), nil
	case "openai":
		return newOpenAIBackend(cfg, logger), nil
	case "custom":
		if cfg.BaseURL == "" {
			return nil, wherr.New(wherr.BackendUnavailable,
				"custom provider requires a base URL", nil)
		}
		return newCustomBackend(cfg, logger), nil
	default:
		return nil, wherr.New(wherr.BackendUnavailable,
			"unknown backend provider", nil).WithDetails(map[string]interface{}{
			"provider": cfg.Provider,
		})
	}
}

// Synthesize renders the payload, dispatches it, and parses the response.
// A malformed response degrades to fallback fields, never to a lost verdict.
func Synthesize(ctx context.Context, payload *evidence.Payload, backend Backend,
	limits evidence.Limits, logger *logging.Logger) (*Result, error) {
	prompt := evidence.RenderPrompt(payload, limits)

	logger.Debug("Dispatching synthesis request", map[string]interface{}{
		"backend":      backend.Name(),
		"promptLength": len(prompt),
	})

	raw, err := backend.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, ok := ParseResult(raw)
	if !ok {
		logger.Warn("Backend response had no parseable JSON object, raw text preserved in verdict",
			map[string]interface{}{
				"backend":        backend.Name(),
				"responseLength": len(raw),
			})
	}
	return result, nil
}

// mapTransportError classifies request-level failures. No retries here:
// callers surface these directly.
func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return wherr.New(wherr.Timeout, "backend request timed out", err)
	}
	return wherr.New(wherr.BackendUnavailable, "backend request failed", err)
}

// mapStatusError classifies non-200 responses per the error taxonomy.
func mapStatusError(status int, body string) error {
	details := map[string]interface{}{
		"status": status,
		"body":   clip(body, 512),
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return wherr.New(wherr.BackendAuthError,
			"backend rejected the credential", nil).WithDetails(details)
	case status == http.StatusTooManyRequests:
		return wherr.New(wherr.BackendRateLimited,
			"backend rate limit exceeded", nil).WithDetails(details)
	default:
		return wherr.New(wherr.BackendUnavailable,
			"backend returned an unexpected status", nil).WithDetails(details)
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
