package file_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/persistence"
	"github.com/areaflow/areaflow/pkg/persistence/file"
)

func TestAreaRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	repo := p.AreaRepository()

	area := &models.Area{
		ID:             "area-1",
		UserID:         "user-1",
		Name:           "Mail to Discord",
		Enabled:        true,
		TriggerService: "gmail",
		TriggerAction:  "new_email",
		Steps: []*models.Step{
			{ID: "t", Type: models.StepTypeTrigger, Service: "gmail", Action: "new_email", Position: 0, Enabled: true},
			{ID: "a", Type: models.StepTypeAction, Service: "discord", Action: "send_message", Position: 1, Enabled: true},
		},
	}

	require.NoError(t, repo.SaveArea(ctx, area))
	assert.False(t, area.CreatedAt.IsZero())

	loaded, err := repo.AreaByID(ctx, "area-1")
	require.NoError(t, err)
	assert.Equal(t, "Mail to Discord", loaded.Name)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, models.StepTypeAction, loaded.Steps[1].Type)

	areas, err := repo.Areas(ctx)
	require.NoError(t, err)
	assert.Len(t, areas, 1)

	require.NoError(t, repo.DeleteArea(ctx, "area-1"))

	_, err = repo.AreaByID(ctx, "area-1")
	assert.True(t, persistence.IsAreaNotFound(err))
}

func TestAreaRepository_ListEmptyRoot(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	areas, err := p.AreaRepository().Areas(context.Background())
	require.NoError(t, err)
	assert.Empty(t, areas)
}

func TestAreaRepository_RejectsPathTraversal(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	_, err := p.AreaRepository().AreaByID(context.Background(), "../etc/passwd")
	require.Error(t, err)

	err = p.AreaRepository().SaveArea(context.Background(), &models.Area{ID: "a/b"})
	require.Error(t, err)
}

func TestExecutionLogRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence("file://" + t.TempDir())
	repo := p.ExecutionLogRepository()

	area := &models.Area{ID: "area-1", UserID: "user-1"}
	record := models.NewExecutionLog(area, map[string]any{"subject": "hi"})

	require.NoError(t, repo.CreateExecutionLog(ctx, record))

	loaded, err := repo.ExecutionLogByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionLogStarted, loaded.Status)
	assert.Equal(t, "hi", loaded.StepDetails.TriggerData["subject"])

	record.Complete(&models.RunSummary{
		Status:        models.RunStatusFailed,
		StepsExecuted: 1,
		Error:         "boom",
		ExecutionLog: []models.StepLogEntry{
			{StepID: "t", StepType: models.StepTypeTrigger, Status: models.StepLogFailed, Error: "boom"},
		},
	})

	require.NoError(t, repo.UpdateExecutionLog(ctx, record))

	loaded, err = repo.ExecutionLogByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionLogFailed, loaded.Status)
	assert.Equal(t, "boom", loaded.ErrorMessage)
	assert.NotNil(t, loaded.FinishedAt)

	records, err := repo.ExecutionLogsByArea(ctx, "area-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = repo.ExecutionLogsByArea(ctx, "other-area")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExecutionLogRepository_UpdateMissing(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	record := models.NewExecutionLog(&models.Area{ID: "a", UserID: "u"}, nil)

	err := p.ExecutionLogRepository().UpdateExecutionLog(context.Background(), record)
	assert.True(t, persistence.IsExecutionLogNotFound(err))
}
