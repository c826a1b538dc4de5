// Package file provides file-based persistence for areas and execution logs.
// Intended for development and tests; each entity is one JSON document under
// the configured root directory.
package file

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/areaflow/areaflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root     string
	areas    *AreaRepository
	execLogs *ExecutionLogRepository
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.TrimPrefix(root, "file://")

	return &Persistence{
		root:     cleanRoot,
		areas:    NewAreaRepository(cleanRoot),
		execLogs: NewExecutionLogRepository(cleanRoot),
	}
}

func (p *Persistence) AreaRepository() persistence.AreaRepository {
	return p.areas
}

func (p *Persistence) ExecutionLogRepository() persistence.ExecutionLogRepository {
	return p.execLogs
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// validateID guards against path traversal through entity ids used as file
// names.
func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("id contains invalid characters")
	}

	return nil
}
