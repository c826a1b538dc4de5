// Package events defines the event types published over the run lifecycle.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all area lifecycle events.
const Topic = "areaflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	AreaTriggeredEvent   EventType = "area.triggered"
	AreaRunStartedEvent  EventType = "area.run.started"
	AreaRunFinishedEvent EventType = "area.run.finished"
	AreaRunFailedEvent   EventType = "area.run.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	AreaID    string         `json:"area_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, areaID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		AreaID:    areaID,
	}
}

// AreaTriggered is published when a poller fires for an area, before any
// step executes.
type AreaTriggered struct {
	BaseEvent

	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e AreaTriggered) GetType() EventType {
	return AreaTriggeredEvent
}

// AreaRunStarted is published once the run's execution log record exists.
type AreaRunStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e AreaRunStarted) GetType() EventType {
	return AreaRunStartedEvent
}

type AreaRunFinished struct {
	BaseEvent

	ExecutionID   string        `json:"execution_id"`
	StepsExecuted int           `json:"steps_executed"`
	Duration      time.Duration `json:"duration"`
}

func (e AreaRunFinished) GetType() EventType {
	return AreaRunFinishedEvent
}

type AreaRunFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e AreaRunFailed) GetType() EventType {
	return AreaRunFailedEvent
}
