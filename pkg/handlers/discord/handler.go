// Package discord provides the discord.send_message reaction handler, a thin
// wrapper around Discord webhook POSTs.
package discord

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

const requestTimeout = 15 * time.Second

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Service() string { return "discord" }
func (*Factory) Action() string  { return "send_message" }

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"webhook_url": map[string]any{
				"type": "string",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Message content. Supports {{variable}} placeholders.",
			},
			"username": map[string]any{
				"type":        "string",
				"description": "Override the webhook's display name.",
			},
		},
		"required": []string{"webhook_url", "content"},
	}
}

func (*Factory) Create(logger *slog.Logger) (protocol.Handler, error) {
	return &Handler{
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}, nil
}

type Handler struct {
	client *http.Client
	logger *slog.Logger
}

func (h *Handler) Execute(ctx context.Context, area *models.Area, params map[string]any, event map[string]any) (map[string]any, error) {
	webhookURL, _ := params["webhook_url"].(string)
	if webhookURL == "" {
		return nil, fmt.Errorf("discord.send_message requires a webhook_url")
	}

	content, _ := params["content"].(string)
	if content == "" {
		return nil, fmt.Errorf("discord.send_message requires content")
	}

	payload := map[string]any{"content": content}
	if username, ok := params["username"].(string); ok && username != "" {
		payload["username"] = username
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create discord request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("discord webhook returned status %d: %s", resp.StatusCode, detail)
	}

	h.logger.InfoContext(ctx, "Discord message sent", "area_id", area.ID, "status", resp.StatusCode)

	return map[string]any{
		"discord.message_sent": true,
		"discord.status_code":  resp.StatusCode,
	}, nil
}
