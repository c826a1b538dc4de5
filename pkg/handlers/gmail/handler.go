// Package gmail provides the gmail.send_email reaction handler, a thin
// wrapper around the Gmail messages.send endpoint.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
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
	sendEndpoint   = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"
	requestTimeout = 30 * time.Second
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Service() string { return "gmail" }
func (*Factory) Action() string  { return "send_email" }

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"access_token": map[string]any{
				"type": "string",
			},
			"to": map[string]any{
				"type": "string",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports {{variable}} placeholders.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text body. Supports {{variable}} placeholders.",
			},
		},
		"required": []string{"access_token", "to", "subject"},
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
	accessToken, _ := params["access_token"].(string)
	if accessToken == "" {
		return nil, fmt.Errorf("gmail.send_email requires an access_token")
	}

	to, _ := params["to"].(string)
	if to == "" {
		return nil, fmt.Errorf("gmail.send_email requires a recipient")
	}

	subject, _ := params["subject"].(string)
	body, _ := params["body"].(string)

	rfc822 := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s", to, subject, body)

	payload, err := json.Marshal(map[string]any{
		"raw": base64.URLEncoding.EncodeToString([]byte(rfc822)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode gmail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("gmail returned status %d: %s", resp.StatusCode, detail)
	}

	var sent struct {
		ID string `json:"id"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		sent.ID = ""
	}

	h.logger.InfoContext(ctx, "Email sent", "area_id", area.ID, "to", to)

	return map[string]any{
		"gmail.message_sent": true,
		"gmail.message_id":   sent.ID,
	}, nil
}
