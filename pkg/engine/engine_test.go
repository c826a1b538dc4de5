package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areaflow/areaflow/pkg/engine"
	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/protocol"
	"github.com/areaflow/areaflow/pkg/registry"
)

type stubHandler struct {
	execute func(ctx context.Context, area *models.Area, params, event map[string]any) (map[string]any, error)
}

func (h *stubHandler) Execute(ctx context.Context, area *models.Area, params, event map[string]any) (map[string]any, error) {
	return h.execute(ctx, area, params, event)
}

type stubFactory struct {
	service string
	action  string
	schema  map[string]any
	handler *stubHandler
}

func (f *stubFactory) Service() string           { return f.service }
func (f *stubFactory) Action() string            { return f.action }
func (f *stubFactory) Schema() map[string]any    { return f.schema }
func (f *stubFactory) Create(_ *slog.Logger) (protocol.Handler, error) {
	return f.handler, nil
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func newTestEngine(t *testing.T, factories ...protocol.HandlerFactory) *engine.Engine {
	t.Helper()

	reg := registry.NewRegistry(testLogger())
	for _, factory := range factories {
		require.NoError(t, reg.Register(factory))
	}

	return engine.New(reg, testLogger())
}

func recordingFactory(service, action string, calls *[]map[string]any, delta map[string]any) *stubFactory {
	return &stubFactory{
		service: service,
		action:  action,
		handler: &stubHandler{
			execute: func(_ context.Context, _ *models.Area, params, _ map[string]any) (map[string]any, error) {
				*calls = append(*calls, params)

				return delta, nil
			},
		},
	}
}

func step(id string, stepType models.StepType, position int, config map[string]any) *models.Step {
	return &models.Step{
		ID:       id,
		Type:     stepType,
		Position: position,
		Config:   config,
		Enabled:  true,
	}
}

func handlerStep(id string, stepType models.StepType, service, action string, position int, config map[string]any) *models.Step {
	s := step(id, stepType, position, config)
	s.Service = service
	s.Action = action

	return s
}

// Linear chain: trigger feeds an action whose params reference trigger
// variables.
func TestExecute_LinearChain(t *testing.T) {
	var calls []map[string]any

	e := newTestEngine(t, recordingFactory("debug", "log", &calls, map[string]any{"debug.message": "done"}))

	area := &models.Area{
		ID:             "area-1",
		UserID:         "user-1",
		Name:           "linear",
		TriggerService: "gmail",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "gmail", "new_email", 0, nil),
			handlerStep("a", models.StepTypeAction, "debug", "log", 1, map[string]any{
				"message": "New mail from {{gmail.sender}}",
			}),
		},
	}

	summary := e.Execute(context.Background(), area, map[string]any{"from": "alice@example.com"})

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Equal(t, 2, summary.StepsExecuted)
	require.Len(t, summary.ExecutionLog, 2)
	assert.Equal(t, models.StepLogSucceeded, summary.ExecutionLog[0].Status)
	assert.Equal(t, models.StepLogSucceeded, summary.ExecutionLog[1].Status)

	require.Len(t, calls, 1)
	assert.Equal(t, "New mail from alice@example.com", calls[0]["message"])
}

// Condition true path executes targets, false path executes the else branch.
func TestExecute_ConditionBranching(t *testing.T) {
	var hotCalls, coldCalls []map[string]any

	e := newTestEngine(t,
		recordingFactory("notify", "hot", &hotCalls, nil),
		recordingFactory("notify", "cold", &coldCalls, nil),
	)

	buildArea := func() *models.Area {
		return &models.Area{
			ID:             "area-branch",
			TriggerService: "weather",
			Steps: []*models.Step{
				handlerStep("t", models.StepTypeTrigger, "weather", "update", 0, map[string]any{
					"targets": []any{"check"},
				}),
				step("check", models.StepTypeCondition, 1, map[string]any{
					"conditionType": "simple",
					"simple": map[string]any{
						"field":    "weather.temperature",
						"operator": "gt",
						"value":    30,
					},
					"targets":    []any{"hot"},
					"elseBranch": []any{"cold"},
				}),
				handlerStep("hot", models.StepTypeAction, "notify", "hot", 2, nil),
				handlerStep("cold", models.StepTypeAction, "notify", "cold", 3, nil),
			},
		}
	}

	summary := e.Execute(context.Background(), buildArea(), map[string]any{"temperature": 35.0})
	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Len(t, hotCalls, 1)
	assert.Empty(t, coldCalls)

	require.Len(t, summary.ExecutionLog, 3)
	conditionEntry := summary.ExecutionLog[1]
	require.NotNil(t, conditionEntry.ConditionResult)
	assert.True(t, *conditionEntry.ConditionResult)

	hotCalls, coldCalls = nil, nil

	summary = e.Execute(context.Background(), buildArea(), map[string]any{"temperature": 5.0})
	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Empty(t, hotCalls)
	assert.Len(t, coldCalls, 1)
}

// Condition false with no else branch ends the path normally.
func TestExecute_ConditionFalseWithoutElse(t *testing.T) {
	var calls []map[string]any

	e := newTestEngine(t, recordingFactory("notify", "send", &calls, nil))

	area := &models.Area{
		ID:             "area-noelse",
		TriggerService: "weather",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "weather", "update", 0, map[string]any{
				"targets": []any{"check"},
			}),
			step("check", models.StepTypeCondition, 1, map[string]any{
				"conditionType": "expression",
				"expression":    "weather.temperature > 100",
				"targets":       []any{"send"},
			}),
			handlerStep("send", models.StepTypeAction, "notify", "send", 2, nil),
		},
	}

	summary := e.Execute(context.Background(), area, map[string]any{"temperature": 20.0})

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Empty(t, calls)
	assert.Equal(t, 2, summary.StepsExecuted)
}

// A failing handler halts the run at the offending step; earlier entries
// stay in the trace.
func TestExecute_HandlerFailureHaltsRun(t *testing.T) {
	var afterCalls []map[string]any

	failing := &stubFactory{
		service: "http",
		action:  "request",
		handler: &stubHandler{
			execute: func(_ context.Context, _ *models.Area, _, _ map[string]any) (map[string]any, error) {
				return nil, errors.New("connection refused")
			},
		},
	}

	e := newTestEngine(t, failing, recordingFactory("notify", "send", &afterCalls, nil))

	area := &models.Area{
		ID:             "area-fail",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, nil),
			handlerStep("call", models.StepTypeAction, "http", "request", 1, nil),
			handlerStep("after", models.StepTypeAction, "notify", "send", 2, nil),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Equal(t, "connection refused", summary.Error)
	assert.Empty(t, afterCalls)
	require.Len(t, summary.ExecutionLog, 2)
	assert.Equal(t, models.StepLogSucceeded, summary.ExecutionLog[0].Status)
	assert.Equal(t, models.StepLogFailed, summary.ExecutionLog[1].Status)
}

func TestExecute_MissingHandlerFailsStep(t *testing.T) {
	e := newTestEngine(t)

	area := &models.Area{
		ID:             "area-missing",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, nil),
			handlerStep("a", models.StepTypeAction, "nope", "nothing", 1, nil),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "no handler found for nope.nothing")
}

// Handler panics are contained at the step boundary like any other failure.
func TestExecute_HandlerPanicIsContained(t *testing.T) {
	panicking := &stubFactory{
		service: "boom",
		action:  "explode",
		handler: &stubHandler{
			execute: func(_ context.Context, _ *models.Area, _, _ map[string]any) (map[string]any, error) {
				panic("kaboom")
			},
		},
	}

	e := newTestEngine(t, panicking)

	area := &models.Area{
		ID:             "area-panic",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, nil),
			handlerStep("a", models.StepTypeAction, "boom", "explode", 1, nil),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "panicked")
}

// Disabled steps are recorded as skipped and traversal continues past them.
func TestExecute_DisabledStepSkipped(t *testing.T) {
	var calls []map[string]any

	e := newTestEngine(t, recordingFactory("notify", "send", &calls, nil))

	disabled := handlerStep("mid", models.StepTypeAction, "nope", "nothing", 1, nil)
	disabled.Enabled = false

	area := &models.Area{
		ID:             "area-disabled",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, nil),
			disabled,
			handlerStep("end", models.StepTypeAction, "notify", "send", 2, nil),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Len(t, calls, 1)
	require.Len(t, summary.ExecutionLog, 3)
	assert.Equal(t, models.StepLogSkipped, summary.ExecutionLog[1].Status)
}

// A cyclic graph terminates because each step executes at most once.
func TestExecute_CycleTerminates(t *testing.T) {
	var calls []map[string]any

	e := newTestEngine(t, recordingFactory("notify", "send", &calls, nil))

	area := &models.Area{
		ID:             "area-cycle",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, map[string]any{
				"targets": []any{"a"},
			}),
			handlerStep("a", models.StepTypeAction, "notify", "send", 1, map[string]any{
				"targets": []any{"b"},
			}),
			handlerStep("b", models.StepTypeAction, "notify", "send", 2, map[string]any{
				"targets": []any{"a"},
			}),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Len(t, calls, 2)
	assert.Equal(t, 3, summary.StepsExecuted)
}

// Legacy flat areas synthesize a trigger->reaction pair.
func TestExecute_LegacyFlatArea(t *testing.T) {
	var calls []map[string]any

	e := newTestEngine(t, recordingFactory("discord", "send_message", &calls, nil))

	area := &models.Area{
		ID:              "area-legacy",
		TriggerService:  "gmail",
		TriggerAction:   "new_email",
		ReactionService: "discord",
		ReactionAction:  "send_message",
		ReactionConfig: map[string]any{
			"content": "Mail: {{gmail.subject}}",
		},
	}

	summary := e.Execute(context.Background(), area, map[string]any{"subject": "Hello"})

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	require.Len(t, summary.ExecutionLog, 2)
	assert.Equal(t, "trigger", summary.ExecutionLog[0].StepID)
	assert.Equal(t, "reaction", summary.ExecutionLog[1].StepID)
	require.Len(t, calls, 1)
	assert.Equal(t, "Mail: Hello", calls[0]["content"])
}

func TestExecute_EmptyAreaIsVacuouslySuccessful(t *testing.T) {
	e := newTestEngine(t)

	summary := e.Execute(context.Background(), &models.Area{ID: "area-empty"}, nil)

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Zero(t, summary.StepsExecuted)
	assert.Empty(t, summary.ExecutionLog)
}

func TestExecute_InvalidGraphFailsRun(t *testing.T) {
	e := newTestEngine(t)

	area := &models.Area{
		ID:             "area-badedge",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, map[string]any{
				"targets": []any{"ghost"},
			}),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "unknown step")
	assert.Empty(t, summary.ExecutionLog)
}

func TestExecute_DuplicateStepIDFailsRun(t *testing.T) {
	e := newTestEngine(t)

	area := &models.Area{
		ID:             "area-dup",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("same", models.StepTypeTrigger, "time", "tick", 0, nil),
			handlerStep("same", models.StepTypeAction, "debug", "log", 1, nil),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "duplicate step id")
}

// Handler deltas accumulate and later steps see earlier outputs.
func TestExecute_DeltaAccumulation(t *testing.T) {
	var secondParams []map[string]any

	first := &stubFactory{
		service: "openai",
		action:  "ask",
		handler: &stubHandler{
			execute: func(_ context.Context, _ *models.Area, _, _ map[string]any) (map[string]any, error) {
				return map[string]any{"openai.response": "42"}, nil
			},
		},
	}

	e := newTestEngine(t, first, recordingFactory("debug", "log", &secondParams, nil))

	area := &models.Area{
		ID:             "area-delta",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, nil),
			handlerStep("ask", models.StepTypeAction, "openai", "ask", 1, nil),
			handlerStep("log", models.StepTypeAction, "debug", "log", 2, map[string]any{
				"message": "Answer: {{openai.response}}",
			}),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	require.Len(t, secondParams, 1)
	assert.Equal(t, "Answer: 42", secondParams[0]["message"])
}

func TestExecute_DelayWaitsAndContinues(t *testing.T) {
	var calls []map[string]any

	e := newTestEngine(t, recordingFactory("notify", "send", &calls, nil))

	area := &models.Area{
		ID:             "area-delay",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, nil),
			step("wait", models.StepTypeDelay, 1, map[string]any{
				"duration": 0.01,
				"unit":     "seconds",
			}),
			handlerStep("send", models.StepTypeAction, "notify", "send", 2, nil),
		},
	}

	started := time.Now()
	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.GreaterOrEqual(t, time.Since(started), 10*time.Millisecond)
	assert.Len(t, calls, 1)
}

// Cancellation during a delay returns the partial trace flagged interrupted.
func TestExecute_DelayCancellation(t *testing.T) {
	var executed atomic.Int32

	after := &stubFactory{
		service: "notify",
		action:  "send",
		handler: &stubHandler{
			execute: func(_ context.Context, _ *models.Area, _, _ map[string]any) (map[string]any, error) {
				executed.Add(1)

				return nil, nil
			},
		},
	}

	e := newTestEngine(t, after)

	area := &models.Area{
		ID:             "area-cancel",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, nil),
			step("wait", models.StepTypeDelay, 1, map[string]any{
				"duration": 10,
				"unit":     "minutes",
			}),
			handlerStep("send", models.StepTypeAction, "notify", "send", 2, nil),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	summary := e.Execute(ctx, area, nil)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, int32(0), executed.Load())
	require.Len(t, summary.ExecutionLog, 1)
	assert.Equal(t, "t", summary.ExecutionLog[0].StepID)
}

func TestExecute_ConditionEvaluationErrorHalts(t *testing.T) {
	e := newTestEngine(t)

	area := &models.Area{
		ID:             "area-conderr",
		TriggerService: "time",
		Steps: []*models.Step{
			handlerStep("t", models.StepTypeTrigger, "time", "tick", 0, map[string]any{
				"targets": []any{"check"},
			}),
			step("check", models.StepTypeCondition, 1, map[string]any{
				"conditionType": "simple",
				"simple": map[string]any{
					"field":    "ghost.field",
					"operator": "eq",
					"value":    1,
				},
			}),
		},
	}

	summary := e.Execute(context.Background(), area, nil)

	assert.Equal(t, models.RunStatusFailed, summary.Status)
	require.Len(t, summary.ExecutionLog, 2)
	assert.Equal(t, models.StepLogFailed, summary.ExecutionLog[1].Status)
}
