// Package persistence provides the data storage abstraction for areas and
// execution logs.
package persistence

import (
	"context"

	"github.com/areaflow/areaflow/pkg/models"
)

// AreaRepository stores area definitions. Areas are read-only from the
// engine's perspective; writes happen through the API layer.
type AreaRepository interface {
	Areas(ctx context.Context) ([]*models.Area, error)
	AreaByID(ctx context.Context, id string) (*models.Area, error)
	SaveArea(ctx context.Context, area *models.Area) error
	DeleteArea(ctx context.Context, id string) error
}

// ExecutionLogRepository stores one durable record per area run. A record is
// created in the started state before execution and updated at most once with
// the terminal outcome; it must support concurrent appends from independent
// runs.
type ExecutionLogRepository interface {
	CreateExecutionLog(ctx context.Context, log *models.ExecutionLog) error
	UpdateExecutionLog(ctx context.Context, log *models.ExecutionLog) error
	ExecutionLogByID(ctx context.Context, id string) (*models.ExecutionLog, error)
	ExecutionLogsByArea(ctx context.Context, areaID string) ([]*models.ExecutionLog, error)
}

// Persistence aggregates the repositories behind one backend.
type Persistence interface {
	AreaRepository() AreaRepository
	ExecutionLogRepository() ExecutionLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
