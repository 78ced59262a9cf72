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

const openAIDefaultBaseURL = "https://api.openai.com/v1/chat/completions"

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// openAIBackend speaks the chat-completions wire format. It doubles as the
// "custom" provider: any OpenAI-compatible endpoint (self-hosted, air-gapped)
// with an optional bearer token.
type openAIBackend struct {
	httpClient *http.Client
	cfg        BackendConfig
	baseURL    string
	name       string
	logger     *logging.Logger
}

func newOpenAIBackend(cfg BackendConfig, logger *logging.Logger) *openAIBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &openAIBackend{
		httpClient: &http.Client{Timeout: cfg.timeout()},
		cfg:        cfg,
		baseURL:    baseURL,
		name:       "openai",
		logger:     logger,
	}
}

func newCustomBackend(cfg BackendConfig, logger *logging.Logger) *openAIBackend {
	b := newOpenAIBackend(cfg, logger)
	b.name = "custom"
	return b
}

func (o *openAIBackend) Name() string { return o.name }

func (o *openAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqPayload := openAIRequest{
		Model:     o.cfg.Model,
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
		MaxTokens: o.cfg.maxTokens(),
	}

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return "", wherr.New(wherr.InternalError, "failed to marshal backend request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", wherr.New(wherr.InternalError, "failed to build backend request", err)
	}
	req.Header.Set("content-type", "application/json")
	// Self-hosted endpoints often run without auth; only send the header
	// when a credential is configured.
	if o.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", mapTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wherr.New(wherr.BackendUnavailable, "failed reading backend response", err)
	}

	o.logger.Debug("Chat-completions response received", map[string]interface{}{
		"backend":    o.name,
		"status":     resp.StatusCode,
		"bodyLength": len(respBody),
		"model":      o.cfg.Model,
	})

	if resp.StatusCode != http.StatusOK {
		return "", mapStatusError(resp.StatusCode, string(respBody))
	}

	var apiResp openAIResponse
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
	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", wherr.New(wherr.BackendUnavailable, "backend returned no text content", nil)
	}
	return apiResp.Choices[0].Message.Content, nil
}
