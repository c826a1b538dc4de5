package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/areaflow/areaflow/pkg/persistence"
	"github.com/areaflow/areaflow/pkg/persistence/file"
	"github.com/areaflow/areaflow/pkg/persistence/postgresql"
)

// NewPersistence selects the backend from the database URL scheme. Anything
// that is not postgres falls back to file storage.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
