// Package main provides the Areaflow scheduler, the process that polls
// trigger sources and fires area runs.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/persistence"
	"github.com/areaflow/areaflow/pkg/pollers/rss"
	"github.com/areaflow/areaflow/pkg/pollers/schedule"
	"github.com/areaflow/areaflow/pkg/pollers/weather"
	"github.com/areaflow/areaflow/pkg/protocol"
	"github.com/areaflow/areaflow/pkg/runner"
)

// Manager owns one poller per enabled area. Areas whose trigger service has
// no poller are manual-only; they still run through the API's run endpoint.
type Manager struct {
	persistence persistence.Persistence
	runner      *runner.Runner
	markers     runner.MarkerStore
	pollers     []protocol.Poller
	logger      *slog.Logger
}

func NewManager(store persistence.Persistence, run *runner.Runner, markers runner.MarkerStore, logger *slog.Logger) *Manager {
	return &Manager{
		persistence: store,
		runner:      run,
		markers:     markers,
		logger:      logger.With("module", "scheduler_manager"),
	}
}

func (m *Manager) Start(ctx context.Context) error {
	areas, err := m.persistence.AreaRepository().Areas(ctx)
	if err != nil {
		return fmt.Errorf("failed to load areas: %w", err)
	}

	for _, area := range areas {
		if !area.Enabled {
			continue
		}

		poller, err := m.pollerFor(area)
		if err != nil {
			m.logger.ErrorContext(ctx, "Skipping area with invalid trigger config",
				"area_id", area.ID,
				"trigger_service", area.TriggerService,
				"error", err,
			)

			continue
		}

		if poller == nil {
			m.logger.InfoContext(ctx, "Area trigger has no poller, manual runs only",
				"area_id", area.ID,
				"trigger_service", area.TriggerService,
			)

			continue
		}

		if err := poller.Start(ctx, m.fire); err != nil {
			return fmt.Errorf("failed to start poller for area %s: %w", area.ID, err)
		}

		m.pollers = append(m.pollers, poller)
	}

	m.logger.InfoContext(ctx, "Scheduler started", "pollers", len(m.pollers))

	return nil
}

func (m *Manager) pollerFor(area *models.Area) (protocol.Poller, error) {
	switch area.TriggerService {
	case "time", "schedule":
		return schedule.NewPoller(area, m.logger)
	case "weather":
		return weather.NewPoller(area, m.logger)
	case "rss":
		return rss.NewPoller(area, m.markers, m.logger)
	default:
		return nil, nil
	}
}

func (m *Manager) fire(ctx context.Context, area *models.Area, triggerData map[string]any) error {
	_, err := m.runner.Fire(ctx, area, triggerData)

	return err
}

func (m *Manager) Stop(ctx context.Context) error {
	for _, poller := range m.pollers {
		if err := poller.Stop(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to stop poller", "error", err)
		}
	}

	return nil
}
