// Package config provides loading of area definitions from YAML seed files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/areaflow/areaflow/pkg/models"
)

// SeedFile is the structure of an areas.yaml seed file.
type SeedFile struct {
	Areas []SeedArea `yaml:"areas"`
}

// SeedArea is one area definition in a seed file.
type SeedArea struct {
	ID      string `yaml:"id"`
	UserID  string `yaml:"user_id"`
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`

	TriggerService string         `yaml:"trigger_service"`
	TriggerAction  string         `yaml:"trigger_action"`
	TriggerConfig  map[string]any `yaml:"trigger_config"`

	ReactionService string         `yaml:"reaction_service"`
	ReactionAction  string         `yaml:"reaction_action"`
	ReactionConfig  map[string]any `yaml:"reaction_config"`

	Steps []SeedStep `yaml:"steps"`
}

// SeedStep is one step definition in a seed file.
type SeedStep struct {
	ID       string         `yaml:"id"`
	Type     string         `yaml:"type"`
	Service  string         `yaml:"service"`
	Action   string         `yaml:"action"`
	Config   map[string]any `yaml:"config"`
	Position int            `yaml:"position"`
	Enabled  bool           `yaml:"enabled"`
}

// LoadAreas reads a seed file and converts its entries into areas.
func LoadAreas(path string) ([]*models.Area, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	areas := make([]*models.Area, 0, len(file.Areas))

	for i, seed := range file.Areas {
		area, err := seed.toArea()
		if err != nil {
			return nil, fmt.Errorf("seed file %s: area %d: %w", path, i, err)
		}

		areas = append(areas, area)
	}

	return areas, nil
}

func (s SeedArea) toArea() (*models.Area, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("missing id")
	}

	if s.UserID == "" {
		return nil, fmt.Errorf("missing user_id")
	}

	if s.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	area := &models.Area{
		ID:              s.ID,
		UserID:          s.UserID,
		Name:            s.Name,
		Enabled:         s.Enabled,
		TriggerService:  s.TriggerService,
		TriggerAction:   s.TriggerAction,
		TriggerConfig:   s.TriggerConfig,
		ReactionService: s.ReactionService,
		ReactionAction:  s.ReactionAction,
		ReactionConfig:  s.ReactionConfig,
	}

	for _, step := range s.Steps {
		if step.ID == "" {
			return nil, fmt.Errorf("step without id")
		}

		area.Steps = append(area.Steps, &models.Step{
			ID:       step.ID,
			Type:     models.StepType(step.Type),
			Service:  step.Service,
			Action:   step.Action,
			Config:   step.Config,
			Position: step.Position,
			Enabled:  step.Enabled,
		})
	}

	return area, nil
}
