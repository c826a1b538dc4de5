// Package engine executes an area's step graph against a trigger payload,
// producing a deterministic execution trace and a terminal status.
//
// All outcomes are expressed in the returned summary: configuration errors,
// evaluation errors and handler failures halt the run at the offending step
// and mark the summary failed, but Execute itself never fails. Steps already
// executed stay in the trace — a failed run is a partial-failure report, not
// a rollback.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/areaflow/areaflow/pkg/condition"
	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/registry"
	"github.com/areaflow/areaflow/pkg/variables"
)

type Engine struct {
	registry   *registry.Registry
	conditions *condition.Evaluator
	logger     *slog.Logger
}

func New(reg *registry.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		registry:   reg,
		conditions: condition.NewEvaluator(),
		logger:     logger.With("module", "engine"),
	}
}

// Execute runs the area's step graph with the given trigger payload.
//
// Traversal is breadth-first in target-list order and each step executes at
// most once per run: revisiting an already executed step id silently
// terminates that branch, which bounds execution on cyclic graphs. A run
// with zero steps is vacuously successful. Cancellation mid-run (typically
// inside a delay) returns the partial trace with Interrupted set; callers
// must treat such a run as interrupted, not failed.
func (e *Engine) Execute(ctx context.Context, area *models.Area, triggerData map[string]any) *models.RunSummary {
	logger := e.logger.With("area_id", area.ID, "area_name", area.Name)
	logger.Info("Starting area execution")

	summary := &models.RunSummary{
		Status:       models.RunStatusSuccess,
		ExecutionLog: []models.StepLogEntry{},
	}

	accumulated := variables.ExtractByService(triggerData, area.TriggerService)

	now := time.Now().UTC().Format(time.RFC3339)
	if _, ok := accumulated["now"]; !ok {
		accumulated["now"] = now
	}

	if _, ok := accumulated["timestamp"]; !ok {
		accumulated["timestamp"] = now
	}

	accumulated["area_id"] = area.ID
	accumulated["user_id"] = area.UserID

	g, err := buildGraph(area)
	if err != nil {
		logger.Error("Area step graph is invalid", "error", err)
		summary.Status = models.RunStatusFailed
		summary.Error = err.Error()

		return summary
	}

	if len(g.steps) == 0 {
		logger.Info("Area has no steps to execute")

		return summary
	}

	queue := []int{g.entry}
	visited := make([]bool, len(g.steps))

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		if visited[idx] {
			logger.Debug("Step already executed in this run, terminating branch", "step_id", g.steps[idx].ID)

			continue
		}

		visited[idx] = true
		step := g.steps[idx]

		stepLogger := logger.With("step_id", step.ID, "step_type", step.Type)

		if !step.Enabled {
			stepLogger.Info("Step is disabled, skipping")
			summary.ExecutionLog = append(summary.ExecutionLog, stepEntry(step, models.StepLogSkipped))
			queue = append(queue, g.targets[idx]...)

			continue
		}

		switch step.Type {
		case models.StepTypeTrigger:
			// Trigger data was folded into the context before traversal.
			summary.ExecutionLog = append(summary.ExecutionLog, stepEntry(step, models.StepLogSucceeded))
			queue = append(queue, g.targets[idx]...)

		case models.StepTypeAction, models.StepTypeReaction:
			entry, delta := e.executeHandlerStep(ctx, area, step, accumulated, stepLogger)
			summary.ExecutionLog = append(summary.ExecutionLog, entry)

			if entry.Status == models.StepLogFailed {
				return halt(summary, entry.Error)
			}

			for key, value := range delta {
				accumulated[key] = value
			}

			queue = append(queue, g.targets[idx]...)

		case models.StepTypeCondition:
			result, err := e.conditions.Evaluate(step.Config, accumulated)
			if err != nil {
				stepLogger.Error("Condition evaluation failed", "error", err)

				entry := stepEntry(step, models.StepLogFailed)
				entry.Error = err.Error()
				summary.ExecutionLog = append(summary.ExecutionLog, entry)

				return halt(summary, entry.Error)
			}

			stepLogger.Info("Condition evaluated", "result", result)

			entry := stepEntry(step, models.StepLogSucceeded)
			entry.ConditionResult = &result
			summary.ExecutionLog = append(summary.ExecutionLog, entry)

			if result {
				queue = append(queue, g.targets[idx]...)
			} else {
				// No else branch ends the path normally.
				queue = append(queue, g.elseTargets[idx]...)
			}

		case models.StepTypeDelay:
			wait := delayDuration(step.Config, stepLogger)
			stepLogger.Info("Delaying execution", "duration", wait)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				stepLogger.Warn("Run cancelled during delay")
				summary.Interrupted = true
				summary.StepsExecuted = len(summary.ExecutionLog)

				return summary
			case <-timer.C:
			}

			summary.ExecutionLog = append(summary.ExecutionLog, stepEntry(step, models.StepLogSucceeded))
			queue = append(queue, g.targets[idx]...)

		default:
			entry := stepEntry(step, models.StepLogFailed)
			entry.Error = fmt.Sprintf("unsupported step type %q", step.Type)
			summary.ExecutionLog = append(summary.ExecutionLog, entry)

			return halt(summary, entry.Error)
		}
	}

	summary.StepsExecuted = len(summary.ExecutionLog)
	logger.Info("Area execution completed", "steps_executed", summary.StepsExecuted)

	return summary
}

// executeHandlerStep resolves placeholders, dispatches to the registered
// handler and returns the step entry plus the handler's variable delta.
// Handler panics are contained at this boundary like any other handler error.
func (e *Engine) executeHandlerStep(
	ctx context.Context,
	area *models.Area,
	step *models.Step,
	accumulated map[string]any,
	logger *slog.Logger,
) (entry models.StepLogEntry, delta map[string]any) {
	entry = stepEntry(step, models.StepLogSucceeded)

	fail := func(message string) {
		logger.Error("Step failed", "error", message)
		entry.Status = models.StepLogFailed
		entry.Error = message
	}

	handler, ok := e.registry.Lookup(step.Service, step.Action)
	if !ok {
		fail(fmt.Sprintf("no handler found for %s.%s", step.Service, step.Action))

		return entry, nil
	}

	resolved := variables.SubstituteParams(step.Config, accumulated)

	if err := e.registry.ValidateParams(step.Service, step.Action, resolved); err != nil {
		fail(err.Error())

		return entry, nil
	}

	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Sprintf("handler %s.%s panicked: %v", step.Service, step.Action, r))
			delta = nil
		}
	}()

	delta, err := handler.Execute(ctx, area, resolved, accumulated)
	if err != nil {
		fail(err.Error())

		return entry, nil
	}

	logger.Info("Step executed successfully")

	return entry, delta
}

func halt(summary *models.RunSummary, message string) *models.RunSummary {
	summary.Status = models.RunStatusFailed
	summary.Error = message
	summary.StepsExecuted = len(summary.ExecutionLog)

	return summary
}

func stepEntry(step *models.Step, status models.StepLogStatus) models.StepLogEntry {
	return models.StepLogEntry{
		StepID:    step.ID,
		StepType:  step.Type,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// delayDuration computes the wait for a delay step. A missing duration
// defaults to 1, a missing unit to seconds; an unrecognized unit falls back
// to seconds with a warning.
func delayDuration(config map[string]any, logger *slog.Logger) time.Duration {
	amount := 1.0

	switch v := config["duration"].(type) {
	case float64:
		amount = v
	case int:
		amount = float64(v)
	case int64:
		amount = float64(v)
	}

	unit, _ := config["unit"].(string)

	var base time.Duration

	switch unit {
	case "", "seconds":
		base = time.Second
	case "minutes":
		base = time.Minute
	case "hours":
		base = time.Hour
	case "days":
		base = 24 * time.Hour
	default:
		logger.Warn("Unrecognized delay unit, defaulting to seconds", "unit", unit)
		base = time.Second
	}

	return time.Duration(amount * float64(base))
}
