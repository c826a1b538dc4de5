// Package debuglog provides the debug.log reaction handler.
package debuglog

import (
	"context"
	"log/slog"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Service() string { return "debug" }
func (*Factory) Action() string  { return "log" }

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log. Supports {{variable}} placeholders.",
			},
			"level": map[string]any{
				"type":    "string",
				"enum":    []string{"debug", "info", "warn", "error"},
				"default": "info",
			},
		},
	}
}

func (*Factory) Create(logger *slog.Logger) (protocol.Handler, error) {
	return &Handler{logger: logger}, nil
}

// Handler logs a resolved message and republishes it into the variable
// namespace so downstream steps can reference {{debug.message}}.
type Handler struct {
	logger *slog.Logger
}

func (h *Handler) Execute(ctx context.Context, area *models.Area, params map[string]any, event map[string]any) (map[string]any, error) {
	message, _ := params["message"].(string)
	level, _ := params["level"].(string)

	logger := h.logger.With("area_id", area.ID, "area_name", area.Name)

	switch level {
	case "debug":
		logger.DebugContext(ctx, message)
	case "warn":
		logger.WarnContext(ctx, message)
	case "error":
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	return map[string]any{
		"debug.message": message,
	}, nil
}
