package models

// StepType classifies a node in an area's execution graph.
type StepType string

const (
	StepTypeTrigger   StepType = "trigger"
	StepTypeAction    StepType = "action"
	StepTypeReaction  StepType = "reaction"
	StepTypeCondition StepType = "condition"
	StepTypeDelay     StepType = "delay"
)

// InvokesHandler reports whether the step type dispatches to a registered
// handler. Action and reaction are synonyms outside the entry node.
func (t StepType) InvokesHandler() bool {
	return t == StepTypeAction || t == StepTypeReaction
}

// Step is one node in an area's workflow graph.
//
// Service and Action are only meaningful for trigger/action/reaction steps.
// Config semantics depend on Type:
//   - condition: conditionType ("simple"|"expression"), simple{field, operator,
//     value}, expression, targets (true branch), elseBranch (false branch)
//   - delay: duration, unit ("seconds"|"minutes"|"hours"|"days")
//   - action/reaction: handler parameters, may contain {{variable}}
//     placeholders; optional targets for explicit graph edges
//
// Position is a legacy ordering hint; explicit targets edges take precedence
// once any step in the area declares them.
type Step struct {
	ID       string         `json:"id"   validate:"required"`
	Type     StepType       `json:"type" validate:"required"`
	Service  string         `json:"service,omitempty"`
	Action   string         `json:"action,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
	Position int            `json:"position"`
	Enabled  bool           `json:"enabled"`
}

// Targets returns the step ids of the explicit outgoing edges, or nil when the
// step declares none.
func (s *Step) Targets() []string {
	return stringList(s.Config["targets"])
}

// ElseBranch returns the false-branch step ids of a condition step.
func (s *Step) ElseBranch() []string {
	return stringList(s.Config["elseBranch"])
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		ids := make([]string, 0, len(list))

		for _, item := range list {
			if id, ok := item.(string); ok {
				ids = append(ids, id)
			}
		}

		return ids
	default:
		return nil
	}
}
