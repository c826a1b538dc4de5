package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal status of an area run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// StepLogStatus is the per-step outcome recorded in the execution log.
type StepLogStatus string

const (
	StepLogSucceeded StepLogStatus = "succeeded"
	StepLogFailed    StepLogStatus = "failed"
	StepLogSkipped   StepLogStatus = "skipped"
)

// StepLogEntry is one entry of the ordered per-step execution trace.
type StepLogEntry struct {
	StepID          string        `json:"step_id"`
	StepType        StepType      `json:"step_type"`
	Status          StepLogStatus `json:"status"`
	Timestamp       time.Time     `json:"timestamp"`
	Error           string        `json:"error,omitempty"`
	ConditionResult *bool         `json:"condition_result,omitempty"`
}

// RunSummary is the engine's return value for a single area run. The engine
// never reports outcomes any other way: errors are folded into Status/Error,
// and a cancelled run is flagged Interrupted with whatever trace was produced.
type RunSummary struct {
	Status        RunStatus      `json:"status"`
	StepsExecuted int            `json:"steps_executed"`
	Error         string         `json:"error,omitempty"`
	Interrupted   bool           `json:"interrupted,omitempty"`
	ExecutionLog  []StepLogEntry `json:"execution_log"`
}

// ExecutionLogStatus is the lifecycle state of a persisted run record.
type ExecutionLogStatus string

const (
	ExecutionLogStarted ExecutionLogStatus = "started"
	ExecutionLogSuccess ExecutionLogStatus = "success"
	ExecutionLogFailed  ExecutionLogStatus = "failed"
)

// StepDetails is the structured observability payload of an execution log
// record: the full ordered per-step trace plus the trigger payload that
// started the run.
type StepDetails struct {
	ExecutionLog []StepLogEntry `json:"execution_log"`
	TriggerData  map[string]any `json:"trigger_data,omitempty"`
}

// ExecutionLog is one durable record per area run, created in the started
// state before execution and updated at most once afterwards with the
// terminal outcome. A record left in started is an interrupted run, neither
// failed nor succeeded.
type ExecutionLog struct {
	ID            string             `json:"id"`
	AreaID        string             `json:"area_id"`
	UserID        string             `json:"user_id"`
	Status        ExecutionLogStatus `json:"status"`
	StepsExecuted int                `json:"steps_executed"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	StepDetails   StepDetails        `json:"step_details"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    *time.Time         `json:"finished_at,omitempty"`
}

// NewExecutionLog creates a started record for an area run.
func NewExecutionLog(area *Area, triggerData map[string]any) *ExecutionLog {
	return &ExecutionLog{
		ID:     fmt.Sprintf("run-%s", uuid.New().String()[:8]),
		AreaID: area.ID,
		UserID: area.UserID,
		Status: ExecutionLogStarted,
		StepDetails: StepDetails{
			TriggerData: triggerData,
		},
		StartedAt: time.Now().UTC(),
	}
}

// Complete folds a run summary into the record's terminal state.
func (l *ExecutionLog) Complete(summary *RunSummary) {
	now := time.Now().UTC()
	l.FinishedAt = &now
	l.StepsExecuted = summary.StepsExecuted
	l.ErrorMessage = summary.Error
	l.StepDetails.ExecutionLog = summary.ExecutionLog

	if summary.Status == RunStatusSuccess {
		l.Status = ExecutionLogSuccess
	} else {
		l.Status = ExecutionLogFailed
	}
}
