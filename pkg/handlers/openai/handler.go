// Package openai provides the openai.ask reaction handler, a thin wrapper
// around the chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/protocol"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4o-mini"
	requestTimeout  = 60 * time.Second
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Service() string { return "openai" }
func (*Factory) Action() string  { return "ask" }

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"api_key": map[string]any{
				"type": "string",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt to send. Supports {{variable}} placeholders.",
			},
			"model": map[string]any{
				"type":    "string",
				"default": defaultModel,
			},
			"endpoint": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"api_key", "prompt"},
	}
}

func (*Factory) Create(logger *slog.Logger) (protocol.Handler, error) {
	return &Handler{
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}, nil
}

// Handler asks a chat completion and publishes the answer as
// openai.response for downstream steps.
type Handler struct {
	client *http.Client
	logger *slog.Logger
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (h *Handler) Execute(ctx context.Context, area *models.Area, params map[string]any, event map[string]any) (map[string]any, error) {
	apiKey, _ := params["api_key"].(string)
	if apiKey == "" {
		return nil, fmt.Errorf("openai.ask requires an api_key")
	}

	prompt, _ := params["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("openai.ask requires a prompt")
	}

	model, _ := params["model"].(string)
	if model == "" {
		model = defaultModel
	}

	endpoint, _ := params["endpoint"].(string)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	body, err := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create openai request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, respBytes)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBytes, &completion); err != nil {
		return nil, fmt.Errorf("failed to decode openai response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	h.logger.InfoContext(ctx, "OpenAI completion received",
		"area_id", area.ID,
		"model", completion.Model,
		"tokens", completion.Usage.TotalTokens)

	return map[string]any{
		"openai.response": completion.Choices[0].Message.Content,
		"openai.model":    completion.Model,
		"openai.tokens":   completion.Usage.TotalTokens,
	}, nil
}
