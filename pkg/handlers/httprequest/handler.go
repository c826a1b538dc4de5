// Package httprequest provides the generic http.request reaction handler.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Service() string { return "http" }
func (*Factory) Action() string  { return "request" }

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL. Supports {{variable}} placeholders.",
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				"default": "GET",
			},
			"headers": map[string]any{
				"type": "object",
			},
			"body": map[string]any{
				"type": "string",
			},
			"timeout_seconds": map[string]any{
				"type": "number",
			},
		},
		"required": []string{"url"},
	}
}

func (*Factory) Create(logger *slog.Logger) (protocol.Handler, error) {
	return &Handler{
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Handler performs one HTTP request and publishes the response under the
// http.* namespace (http.status_code, http.body).
type Handler struct {
	client *http.Client
	logger *slog.Logger
}

func (h *Handler) Execute(ctx context.Context, area *models.Area, params map[string]any, event map[string]any) (map[string]any, error) {
	url, _ := params["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http.request requires a url")
	}

	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)

	timeout := defaultTimeout
	if seconds, ok := params["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader

	body, _ := params["body"].(string)
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	if headers, ok := params["headers"].(map[string]any); ok {
		for key, value := range headers {
			if str, ok := value.(string); ok {
				req.Header.Set(key, str)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	h.logger.InfoContext(ctx, "HTTP request completed",
		"area_id", area.ID,
		"method", method,
		"url", url,
		"status", resp.StatusCode)

	var parsed any
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		parsed = string(respBytes)
	}

	return map[string]any{
		"http.status_code": resp.StatusCode,
		"http.body":        parsed,
	}, nil
}
