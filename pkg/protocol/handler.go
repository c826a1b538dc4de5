// Package protocol defines the contracts between the execution engine, the
// reaction handlers and the background pollers.
package protocol

import (
	"context"
	"log/slog"

	"github.com/areaflow/areaflow/pkg/models"
)

// Handler implements one (service, action) pair's side effect.
//
// params arrives with all {{placeholder}} values already resolved. event is
// the run's accumulated variable context, readable but not to be mutated: a
// handler publishes its outputs by returning a delta map of new
// "service.field" keys, which the engine merges into the context.
type Handler interface {
	Execute(ctx context.Context, area *models.Area, params map[string]any, event map[string]any) (map[string]any, error)
}

// HandlerFactory builds a handler and describes its registry slot.
type HandlerFactory interface {
	Service() string
	Action() string

	// Schema returns the JSON schema the resolved params are validated
	// against before dispatch. A nil schema skips validation.
	Schema() map[string]any

	Create(logger *slog.Logger) (Handler, error)
}
