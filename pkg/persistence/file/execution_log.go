package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/persistence"
)

const executionLogsDir = "execution_logs"

// ExecutionLogRepository stores one JSON document per run record under
// <root>/execution_logs. Create and update use the same write path: the
// record id is stable for the lifetime of a run.
type ExecutionLogRepository struct {
	root string
}

func NewExecutionLogRepository(root string) *ExecutionLogRepository {
	return &ExecutionLogRepository{root: root}
}

func (r *ExecutionLogRepository) CreateExecutionLog(ctx context.Context, log *models.ExecutionLog) error {
	return r.write(ctx, log)
}

func (r *ExecutionLogRepository) UpdateExecutionLog(ctx context.Context, log *models.ExecutionLog) error {
	if _, err := r.ExecutionLogByID(ctx, log.ID); err != nil {
		return err
	}

	return r.write(ctx, log)
}

func (r *ExecutionLogRepository) ExecutionLogByID(_ context.Context, id string) (*models.ExecutionLog, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	filePath := filepath.Clean(path.Join(r.root, executionLogsDir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionLogNotFound
		}

		return nil, fmt.Errorf("failed to fetch execution log %s: %w", id, err)
	}

	var record models.ExecutionLog

	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution log %s: %w", id, err)
	}

	return &record, nil
}

// ExecutionLogsByArea returns the area's run records, most recent first.
func (r *ExecutionLogRepository) ExecutionLogsByArea(ctx context.Context, areaID string) ([]*models.ExecutionLog, error) {
	dir := os.DirFS(path.Join(r.root, executionLogsDir))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution log files: %w", err)
	}

	records := make([]*models.ExecutionLog, 0)

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		record, err := r.ExecutionLogByID(ctx, id)
		if err != nil {
			if persistence.IsExecutionLogNotFound(err) {
				continue
			}

			return nil, err
		}

		if record.AreaID == areaID {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	return records, nil
}

func (r *ExecutionLogRepository) write(_ context.Context, log *models.ExecutionLog) error {
	if err := validateID(log.ID); err != nil {
		return err
	}

	dir := path.Join(r.root, executionLogsDir)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create execution logs directory: %w", err)
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution log %s: %w", log.ID, err)
	}

	return os.WriteFile(path.Join(dir, log.ID+".json"), data, 0600)
}
