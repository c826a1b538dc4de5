//go:build integration

package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/persistence"
	"github.com/areaflow/areaflow/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"execution_logs", "areas", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("areaflow_test"),
			postgres.WithUsername("areaflow"),
			postgres.WithPassword("areaflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'areas')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "areas table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'execution_logs')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "execution_logs table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestAreaRepository_SaveAndRetrieve(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	area := &models.Area{
		ID:             uuid.New().String(),
		UserID:         "user-1",
		Name:           "Weather alert",
		Enabled:        true,
		TriggerService: "weather",
		TriggerAction:  "temperature_changed",
		TriggerConfig:  map[string]any{"city": "Lisbon"},
		Steps: []*models.Step{
			{ID: "s1", Type: models.StepTypeTrigger, Service: "weather", Action: "temperature_changed", Position: 0, Enabled: true},
			{ID: "s2", Type: models.StepTypeAction, Service: "debug", Action: "log", Config: map[string]any{"message": "hi"}, Position: 1, Enabled: true},
		},
	}

	err := p.AreaRepository().SaveArea(ctx, area)
	require.NoError(t, err)

	loaded, err := p.AreaRepository().AreaByID(ctx, area.ID)
	require.NoError(t, err)
	assert.Equal(t, area.Name, loaded.Name)
	assert.Equal(t, "Lisbon", loaded.TriggerConfig["city"])
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, models.StepTypeAction, loaded.Steps[1].Type)

	areas, err := p.AreaRepository().Areas(ctx)
	require.NoError(t, err)
	assert.Len(t, areas, 1)

	err = p.AreaRepository().DeleteArea(ctx, area.ID)
	require.NoError(t, err)

	_, err = p.AreaRepository().AreaByID(ctx, area.ID)
	assert.True(t, persistence.IsAreaNotFound(err))
}

func TestExecutionLogRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	area := &models.Area{
		ID:             uuid.New().String(),
		UserID:         "user-1",
		Name:           "Log lifecycle",
		TriggerService: "time",
	}

	record := models.NewExecutionLog(area, map[string]any{"now": "2026-01-01T00:00:00Z"})

	err := p.ExecutionLogRepository().CreateExecutionLog(ctx, record)
	require.NoError(t, err)

	loaded, err := p.ExecutionLogRepository().ExecutionLogByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionLogStarted, loaded.Status)

	record.Complete(&models.RunSummary{
		Status:        models.RunStatusSuccess,
		StepsExecuted: 2,
		ExecutionLog: []models.StepLogEntry{
			{StepID: "s1", StepType: models.StepTypeTrigger, Status: models.StepLogSucceeded},
			{StepID: "s2", StepType: models.StepTypeAction, Status: models.StepLogSucceeded},
		},
	})

	err = p.ExecutionLogRepository().UpdateExecutionLog(ctx, record)
	require.NoError(t, err)

	loaded, err = p.ExecutionLogRepository().ExecutionLogByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionLogSuccess, loaded.Status)
	assert.Equal(t, 2, loaded.StepsExecuted)
	assert.Len(t, loaded.StepDetails.ExecutionLog, 2)
	assert.NotNil(t, loaded.FinishedAt)

	records, err := p.ExecutionLogRepository().ExecutionLogsByArea(ctx, area.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExecutionLogRepository_UpdateMissing(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	record := models.NewExecutionLog(&models.Area{ID: "a1", UserID: "u1"}, nil)

	err := p.ExecutionLogRepository().UpdateExecutionLog(ctx, record)
	assert.True(t, persistence.IsExecutionLogNotFound(err))
}
