package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	wherr "whence/internal/errors"
	"whence/internal/logging"
)

const (
	anthropicAPIVersion     = "2023-06-01"
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1/messages"
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicBackend struct {
	httpClient *http.Client
	cfg        BackendConfig
	baseURL    string
	logger     *logging.Logger
}

func newAnthropicBackend(cfg BackendConfig, logger *logging.Logger) *anthropicBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &anthropicBackend{
		httpClient: &http.Client{Timeout: cfg.timeout()},
		cfg:        cfg,
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (a *anthropicBackend) Name() string { return "anthropic" }

func (a *anthropicBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqPayload := anthropicRequest{
		Model:     a.cfg.Model,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens: a.cfg.maxTokens(),
	}

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return "", wherr.New(wherr.InternalError, "failed to marshal backend request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", wherr.New(wherr.InternalError, "failed to build backend request", err)
	}
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", mapTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wherr.New(wherr.BackendUnavailable, "failed reading backend response", err)
	}

	a.logger.Debug("Anthropic response received", map[string]interface{}{
		"status":     resp.StatusCode,
		"bodyLength": len(respBody),
		"model":      a.cfg.Model,
	})

	if resp.StatusCode != http.StatusOK {
		return "", mapStatusError(resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", wherr.New(wherr.BackendUnavailable, "backend response was not valid JSON", err)
	}
	if apiResp.Error != nil {
		return "", wherr.New(wherr.BackendUnavailable,
			"backend reported an error", nil).WithDetails(map[string]interface{}{
			"type":    apiResp.Error.Type,
			"message": apiResp.Error.Message,
		})
	}

	var text string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", wherr.New(wherr.BackendUnavailable, "backend returned no text content", nil)
	}
	return text, nil
}
