package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/persistence"
)

// AreaRepository handles area-related database operations. Step graphs and
// trigger/reaction configs are stored as JSONB documents.
type AreaRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAreaRepository(db *sql.DB, logger *slog.Logger) *AreaRepository {
	return &AreaRepository{db: db, logger: logger}
}

const areaColumns = `
	id
  , user_id
  , name
  , enabled
  , trigger_service
  , trigger_action
  , trigger_config
  , reaction_service
  , reaction_action
  , reaction_config
  , steps
  , created_at
  , updated_at
`

func (r *AreaRepository) Areas(ctx context.Context) ([]*models.Area, error) {
	query := `SELECT ` + areaColumns + ` FROM areas ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	areas := make([]*models.Area, 0)

	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}

		areas = append(areas, area)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating areas: %w", err)
	}

	return areas, nil
}

func (r *AreaRepository) AreaByID(ctx context.Context, id string) (*models.Area, error) {
	query := `SELECT ` + areaColumns + ` FROM areas WHERE id = $1`

	area, err := scanArea(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrAreaNotFound
		}

		return nil, fmt.Errorf("failed to scan area: %w", err)
	}

	return area, nil
}

func (r *AreaRepository) SaveArea(ctx context.Context, area *models.Area) error {
	now := time.Now().UTC()

	if area.CreatedAt.IsZero() {
		area.CreatedAt = now
	}

	area.UpdatedAt = now

	triggerConfigJSON, err := json.Marshal(area.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	reactionConfigJSON, err := json.Marshal(area.ReactionConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal reaction config: %w", err)
	}

	stepsJSON, err := json.Marshal(area.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO areas (id, user_id, name, enabled,
			trigger_service, trigger_action, trigger_config,
			reaction_service, reaction_action, reaction_config,
			steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			enabled = EXCLUDED.enabled,
			trigger_service = EXCLUDED.trigger_service,
			trigger_action = EXCLUDED.trigger_action,
			trigger_config = EXCLUDED.trigger_config,
			reaction_service = EXCLUDED.reaction_service,
			reaction_action = EXCLUDED.reaction_action,
			reaction_config = EXCLUDED.reaction_config,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		area.ID,
		area.UserID,
		area.Name,
		area.Enabled,
		area.TriggerService,
		area.TriggerAction,
		triggerConfigJSON,
		area.ReactionService,
		area.ReactionAction,
		reactionConfigJSON,
		stepsJSON,
		area.CreatedAt,
		area.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save area %s: %w", area.ID, err)
	}

	return nil
}

func (r *AreaRepository) DeleteArea(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM areas WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete area %s: %w", id, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArea(row rowScanner) (*models.Area, error) {
	var (
		area               models.Area
		triggerConfigJSON  []byte
		reactionConfigJSON []byte
		stepsJSON          []byte
		reactionService    sql.NullString
		reactionAction     sql.NullString
	)

	err := row.Scan(
		&area.ID,
		&area.UserID,
		&area.Name,
		&area.Enabled,
		&area.TriggerService,
		&area.TriggerAction,
		&triggerConfigJSON,
		&reactionService,
		&reactionAction,
		&reactionConfigJSON,
		&stepsJSON,
		&area.CreatedAt,
		&area.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	area.ReactionService = reactionService.String
	area.ReactionAction = reactionAction.String

	if len(triggerConfigJSON) > 0 {
		if err := json.Unmarshal(triggerConfigJSON, &area.TriggerConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	if len(reactionConfigJSON) > 0 {
		if err := json.Unmarshal(reactionConfigJSON, &area.ReactionConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reaction config: %w", err)
		}
	}

	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &area.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}

	return &area, nil
}
