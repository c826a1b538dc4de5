// Package web provides the HTTP handlers and request types for the area API.
package web

import "github.com/areaflow/areaflow/pkg/models"

// CreateAreaRequest represents the request body for creating a new area.
// Either a step graph or the legacy trigger/reaction pair must be present.
type CreateAreaRequest struct {
	Name            string         `json:"name"             validate:"required,min=3"`
	UserID          string         `json:"user_id"          validate:"required"`
	Enabled         bool           `json:"enabled"`
	TriggerService  string         `json:"trigger_service"  validate:"required"`
	TriggerAction   string         `json:"trigger_action"`
	TriggerConfig   map[string]any `json:"trigger_config,omitempty"`
	ReactionService string         `json:"reaction_service,omitempty"`
	ReactionAction  string         `json:"reaction_action,omitempty"`
	ReactionConfig  map[string]any `json:"reaction_config,omitempty"`
	Steps           []*models.Step `json:"steps,omitempty"`
}

// UpdateAreaRequest supports partial updates; step graphs are replaced
// wholesale, never merged.
type UpdateAreaRequest struct {
	Name          *string        `json:"name,omitempty"    validate:"omitempty,min=3"`
	Enabled       *bool          `json:"enabled,omitempty"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Steps         []*models.Step `json:"steps,omitempty"`
}

// RunAreaRequest carries an optional trigger payload for a manual run.
type RunAreaRequest struct {
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}
