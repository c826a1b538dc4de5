package main

import (
	"context"
	"log/slog"

	"github.com/areaflow/areaflow/pkg/config"
	"github.com/areaflow/areaflow/pkg/persistence"
)

// seedAreas loads area definitions from a YAML file and stores the ones that
// do not exist yet. Existing areas are left untouched.
func seedAreas(ctx context.Context, logger *slog.Logger, store persistence.Persistence, path string) error {
	areas, err := config.LoadAreas(path)
	if err != nil {
		return err
	}

	repo := store.AreaRepository()

	for _, area := range areas {
		_, err := repo.AreaByID(ctx, area.ID)
		if err == nil {
			continue
		}

		if !persistence.IsAreaNotFound(err) {
			return err
		}

		if err := repo.SaveArea(ctx, area); err != nil {
			return err
		}

		logger.InfoContext(ctx, "Seeded area", "area_id", area.ID, "name", area.Name)
	}

	return nil
}
