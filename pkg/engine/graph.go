package engine

import (
	"fmt"
	"sort"

	"github.com/areaflow/areaflow/pkg/models"
)

// graph is a per-run arena over an area's steps: steps are addressed by
// index, edges are index lists, and the visited set is a plain bitset. Built
// once per execution, never mutated afterwards.
type graph struct {
	steps       []*models.Step
	targets     [][]int
	elseTargets [][]int
	entry       int
}

// Synthetic step ids for legacy flat areas.
const (
	legacyTriggerID  = "trigger"
	legacyReactionID = "reaction"
)

// buildGraph assembles the arena from the area's explicit steps, or from a
// synthesized trigger→reaction pair for legacy flat areas so both formats
// share one execution path. Explicit targets edges take precedence; when no
// step declares any, steps chain linearly by position.
func buildGraph(area *models.Area) (*graph, error) {
	steps := area.Steps
	if len(steps) == 0 {
		steps = legacySteps(area)
	}

	if len(steps) == 0 {
		return &graph{}, nil
	}

	ordered := make([]*models.Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	index := make(map[string]int, len(ordered))

	for i, step := range ordered {
		if step.ID == "" {
			return nil, fmt.Errorf("step at position %d has no id", step.Position)
		}

		if _, dup := index[step.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %q", step.ID)
		}

		if !step.Type.InvokesHandler() && step.Type != models.StepTypeTrigger && step.Service != "" {
			return nil, fmt.Errorf("step %q of type %s must not declare a service", step.ID, step.Type)
		}

		index[step.ID] = i
	}

	g := &graph{
		steps:       ordered,
		targets:     make([][]int, len(ordered)),
		elseTargets: make([][]int, len(ordered)),
	}

	explicit := false

	for _, step := range ordered {
		if len(step.Targets()) > 0 || len(step.ElseBranch()) > 0 {
			explicit = true

			break
		}
	}

	for i, step := range ordered {
		if explicit {
			edges, err := resolveEdges(index, step.ID, step.Targets())
			if err != nil {
				return nil, err
			}

			g.targets[i] = edges

			elseEdges, err := resolveEdges(index, step.ID, step.ElseBranch())
			if err != nil {
				return nil, err
			}

			g.elseTargets[i] = elseEdges
		} else if i+1 < len(ordered) {
			g.targets[i] = []int{i + 1}
		}
	}

	g.entry = 0

	for i, step := range ordered {
		if step.Type == models.StepTypeTrigger {
			g.entry = i

			break
		}
	}

	return g, nil
}

func legacySteps(area *models.Area) []*models.Step {
	if area.TriggerService == "" || area.ReactionService == "" {
		return nil
	}

	return []*models.Step{
		{
			ID:       legacyTriggerID,
			Type:     models.StepTypeTrigger,
			Service:  area.TriggerService,
			Action:   area.TriggerAction,
			Config:   area.TriggerConfig,
			Position: 0,
			Enabled:  true,
		},
		{
			ID:       legacyReactionID,
			Type:     models.StepTypeReaction,
			Service:  area.ReactionService,
			Action:   area.ReactionAction,
			Config:   area.ReactionConfig,
			Position: 1,
			Enabled:  true,
		},
	}
}

func resolveEdges(index map[string]int, from string, ids []string) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	edges := make([]int, 0, len(ids))

	for _, id := range ids {
		target, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("step %q targets unknown step %q", from, id)
		}

		edges = append(edges, target)
	}

	return edges, nil
}
