// Package registry provides the static directory of reaction handlers keyed
// by (service, action).
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/areaflow/areaflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry maps (service, action) pairs to their handlers. Registration is
// eager and happens once at process start; after that the registry is
// immutable, so concurrent lookups need no locking.
type Registry struct {
	logger   *slog.Logger
	handlers map[string]protocol.Handler
	schemas  map[string]map[string]any
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		handlers: make(map[string]protocol.Handler),
		schemas:  make(map[string]map[string]any),
	}
}

// Register creates the factory's handler and installs it under its
// service.action key. Must only be called during process initialization.
func (r *Registry) Register(factory protocol.HandlerFactory) error {
	key := handlerKey(factory.Service(), factory.Action())

	handler, err := factory.Create(r.logger.With("handler", key))
	if err != nil {
		return fmt.Errorf("failed to create handler %s: %w", key, err)
	}

	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("handler %s is already registered", key)
	}

	r.handlers[key] = handler
	r.schemas[key] = factory.Schema()

	r.logger.Debug("Registered reaction handler", "handler", key)

	return nil
}

// Lookup returns the handler for a (service, action) pair. A missing handler
// is not an error here; the engine turns it into a failed step.
func (r *Registry) Lookup(service, action string) (protocol.Handler, bool) {
	handler, ok := r.handlers[handlerKey(service, action)]

	return handler, ok
}

// ValidateParams checks resolved step params against the handler's JSON
// schema. Handlers without a schema accept anything.
func (r *Registry) ValidateParams(service, action string, params map[string]any) error {
	schema, ok := r.schemas[handlerKey(service, action)]
	if !ok || schema == nil {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("failed to validate params for %s: %w", handlerKey(service, action), err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			details = append(details, resultErr.String())
		}

		return fmt.Errorf("invalid params for %s: %s", handlerKey(service, action), strings.Join(details, "; "))
	}

	return nil
}

// Services lists the registered service.action keys, for diagnostics and the
// API's handler directory endpoint.
func (r *Registry) Services() []string {
	keys := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func handlerKey(service, action string) string {
	return service + "." + action
}
