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
	"time"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/persistence"
)

const areasDir = "areas"

// AreaRepository stores one JSON document per area under <root>/areas.
type AreaRepository struct {
	root string
}

func NewAreaRepository(root string) *AreaRepository {
	return &AreaRepository{root: root}
}

func (r *AreaRepository) Areas(ctx context.Context) ([]*models.Area, error) {
	dir := os.DirFS(path.Join(r.root, areasDir))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list area files: %w", err)
	}

	areas := make([]*models.Area, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		area, err := r.AreaByID(ctx, id)
		if err != nil {
			if persistence.IsAreaNotFound(err) {
				continue
			}

			return nil, err
		}

		areas = append(areas, area)
	}

	sort.Slice(areas, func(i, j int) bool {
		return areas[i].ID < areas[j].ID
	})

	return areas, nil
}

func (r *AreaRepository) AreaByID(_ context.Context, id string) (*models.Area, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	filePath := filepath.Clean(path.Join(r.root, areasDir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrAreaNotFound
		}

		return nil, fmt.Errorf("failed to fetch area %s: %w", id, err)
	}

	var area models.Area

	if err := json.Unmarshal(body, &area); err != nil {
		return nil, fmt.Errorf("failed to unmarshal area %s: %w", id, err)
	}

	return &area, nil
}

func (r *AreaRepository) SaveArea(_ context.Context, area *models.Area) error {
	if err := validateID(area.ID); err != nil {
		return err
	}

	dir := path.Join(r.root, areasDir)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create areas directory: %w", err)
	}

	now := time.Now().UTC()
	if area.CreatedAt.IsZero() {
		area.CreatedAt = now
	}

	area.UpdatedAt = now

	data, err := json.MarshalIndent(area, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal area %s: %w", area.ID, err)
	}

	return os.WriteFile(path.Join(dir, area.ID+".json"), data, 0600)
}

func (r *AreaRepository) DeleteArea(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := os.Remove(path.Join(r.root, areasDir, id+".json"))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete area %s: %w", id, err)
	}

	return nil
}
