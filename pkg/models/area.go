// Package models defines the core domain models for area-based automation workflows.
package models

import "time"

// Area represents a user-owned automation: a trigger wired to a graph of
// reactions, conditions and delays.
//
// Newer areas carry an explicit step graph in Steps. Areas created before the
// step-graph model only have the flat Trigger*/Reaction* fields; the engine
// synthesizes a two-step graph for those so both formats share one execution
// path.
type Area struct {
	ID     string `json:"id"      validate:"required"`
	UserID string `json:"user_id" validate:"required"`
	Name   string `json:"name"    validate:"required,min=3"`

	Enabled bool `json:"enabled"`

	TriggerService string         `json:"trigger_service,omitempty"`
	TriggerAction  string         `json:"trigger_action,omitempty"`
	TriggerConfig  map[string]any `json:"trigger_config,omitempty"`

	// Legacy flat reaction fields, meaningful only when Steps is empty.
	ReactionService string         `json:"reaction_service,omitempty"`
	ReactionAction  string         `json:"reaction_action,omitempty"`
	ReactionConfig  map[string]any `json:"reaction_config,omitempty"`

	Steps []*Step `json:"steps,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasStepGraph reports whether the area uses the explicit step-graph format.
func (a *Area) HasStepGraph() bool {
	return len(a.Steps) > 0
}
