package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/persistence"
)

// ExecutionLogRepository handles execution log database operations. The
// per-step trace is stored as one JSONB document per record; independent
// runs insert rows concurrently without coordination.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionLogRepository(db *sql.DB, logger *slog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, logger: logger}
}

const executionLogColumns = `
	id
  , area_id
  , user_id
  , status
  , steps_executed
  , error_message
  , step_details
  , started_at
  , finished_at
`

func (r *ExecutionLogRepository) CreateExecutionLog(ctx context.Context, log *models.ExecutionLog) error {
	stepDetailsJSON, err := json.Marshal(log.StepDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal step details: %w", err)
	}

	query := `
		INSERT INTO execution_logs (id, area_id, user_id, status,
			steps_executed, error_message, step_details, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.AreaID,
		log.UserID,
		log.Status,
		log.StepsExecuted,
		nullString(log.ErrorMessage),
		stepDetailsJSON,
		log.StartedAt,
		log.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution log %s: %w", log.ID, err)
	}

	return nil
}

func (r *ExecutionLogRepository) UpdateExecutionLog(ctx context.Context, log *models.ExecutionLog) error {
	stepDetailsJSON, err := json.Marshal(log.StepDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal step details: %w", err)
	}

	query := `
		UPDATE execution_logs SET
			status = $2,
			steps_executed = $3,
			error_message = $4,
			step_details = $5,
			finished_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.Status,
		log.StepsExecuted,
		nullString(log.ErrorMessage),
		stepDetailsJSON,
		log.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution log %s: %w", log.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for %s: %w", log.ID, err)
	}

	if affected == 0 {
		return persistence.ErrExecutionLogNotFound
	}

	return nil
}

func (r *ExecutionLogRepository) ExecutionLogByID(ctx context.Context, id string) (*models.ExecutionLog, error) {
	query := `SELECT ` + executionLogColumns + ` FROM execution_logs WHERE id = $1`

	record, err := scanExecutionLog(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionLogNotFound
		}

		return nil, fmt.Errorf("failed to scan execution log: %w", err)
	}

	return record, nil
}

// ExecutionLogsByArea returns the area's run records, most recent first.
func (r *ExecutionLogRepository) ExecutionLogsByArea(ctx context.Context, areaID string) ([]*models.ExecutionLog, error) {
	query := `SELECT ` + executionLogColumns + ` FROM execution_logs WHERE area_id = $1 ORDER BY started_at DESC`

	rows, err := r.db.QueryContext(ctx, query, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		record, err := scanExecutionLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return records, nil
}

func scanExecutionLog(row rowScanner) (*models.ExecutionLog, error) {
	var (
		record          models.ExecutionLog
		errorMessage    sql.NullString
		stepDetailsJSON []byte
	)

	err := row.Scan(
		&record.ID,
		&record.AreaID,
		&record.UserID,
		&record.Status,
		&record.StepsExecuted,
		&errorMessage,
		&stepDetailsJSON,
		&record.StartedAt,
		&record.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ErrorMessage = errorMessage.String

	if len(stepDetailsJSON) > 0 {
		if err := json.Unmarshal(stepDetailsJSON, &record.StepDetails); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step details: %w", err)
		}
	}

	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
