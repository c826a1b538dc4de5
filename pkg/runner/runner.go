// Package runner orchestrates a single area run: it records the execution
// log lifecycle, drives the engine and publishes run events.
package runner

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/areaflow/areaflow/pkg/engine"
	"github.com/areaflow/areaflow/pkg/eventbus"
	"github.com/areaflow/areaflow/pkg/events"
	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/otelhelper"
	"github.com/areaflow/areaflow/pkg/persistence"
)

type Runner struct {
	engine      *engine.Engine
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	workerID    string
	logger      *slog.Logger
}

func New(
	eng *engine.Engine,
	store persistence.Persistence,
	bus eventbus.EventBus,
	tracer trace.Tracer,
	workerID string,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		engine:      eng,
		persistence: store,
		eventBus:    bus,
		tracer:      tracer,
		workerID:    workerID,
		logger:      logger.With("module", "runner", "worker_id", workerID),
	}
}

// Fire executes the area once for the given trigger payload.
//
// The execution log record is created in the started state before any step
// runs and updated exactly once with the terminal outcome. A run cancelled
// mid-flight leaves the record in started; that state is the interruption
// marker, not a failure.
func (r *Runner) Fire(ctx context.Context, area *models.Area, triggerData map[string]any) (*models.ExecutionLog, error) {
	logger := r.logger.With("area_id", area.ID)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "area.run",
		attribute.String(otelhelper.AreaIDKey, area.ID),
		attribute.String(otelhelper.AreaNameKey, area.Name),
		attribute.String(otelhelper.WorkerIDKey, r.workerID),
	)
	defer span.End()

	record := models.NewExecutionLog(area, triggerData)
	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, record.ID))

	logs := r.persistence.ExecutionLogRepository()

	if err := logs.CreateExecutionLog(ctx, record); err != nil {
		logger.ErrorContext(ctx, "Failed to create execution log", "error", err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	r.publish(ctx, area, events.AreaRunStarted{
		BaseEvent:   r.baseEvent(events.AreaRunStartedEvent, area.ID),
		ExecutionID: record.ID,
	})

	started := time.Now()
	summary := r.engine.Execute(ctx, area, triggerData)

	if summary.Interrupted {
		logger.WarnContext(ctx, "Area run interrupted, leaving execution log in started state",
			"execution_id", record.ID)

		return record, nil
	}

	record.Complete(summary)

	if err := logs.UpdateExecutionLog(ctx, record); err != nil {
		logger.ErrorContext(ctx, "Failed to update execution log", "error", err)
		otelhelper.SetError(span, err)

		return record, err
	}

	duration := time.Since(started)

	if summary.Status == models.RunStatusSuccess {
		r.publish(ctx, area, events.AreaRunFinished{
			BaseEvent:     r.baseEvent(events.AreaRunFinishedEvent, area.ID),
			ExecutionID:   record.ID,
			StepsExecuted: summary.StepsExecuted,
			Duration:      duration,
		})
	} else {
		r.publish(ctx, area, events.AreaRunFailed{
			BaseEvent:   r.baseEvent(events.AreaRunFailedEvent, area.ID),
			ExecutionID: record.ID,
			Error:       summary.Error,
			Duration:    duration,
		})
	}

	logger.InfoContext(ctx, "Area run completed",
		"execution_id", record.ID,
		"status", record.Status,
		"steps_executed", record.StepsExecuted,
	)

	return record, nil
}

func (r *Runner) baseEvent(eventType events.EventType, areaID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, areaID)
	base.WorkerID = r.workerID

	return base
}

// publish is best effort: a bus outage must not fail the run itself.
func (r *Runner) publish(ctx context.Context, area *models.Area, event eventbus.Event) {
	if r.eventBus == nil {
		return
	}

	if err := r.eventBus.Publish(ctx, area.ID, event); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish run event",
			"area_id", area.ID,
			"event_type", event.GetType(),
			"error", err,
		)
	}
}
