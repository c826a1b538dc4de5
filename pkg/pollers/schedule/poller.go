// Package schedule provides the cron and fixed-interval poller for time
// based areas.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/protocol"
)

// Poller fires an area on a cron expression, or every interval_seconds when
// no cron expression is configured.
type Poller struct {
	area     *models.Area
	cronExpr string
	interval time.Duration

	cron     *cron.Cron
	ticker   *time.Ticker
	stopCh   chan struct{}
	callback protocol.PollerCallback
	logger   *slog.Logger
}

func NewPoller(area *models.Area, logger *slog.Logger) (*Poller, error) {
	cronExpr, _ := area.TriggerConfig["cron"].(string)

	interval := time.Minute

	switch v := area.TriggerConfig["interval_seconds"].(type) {
	case float64:
		interval = time.Duration(v) * time.Second
	case int:
		interval = time.Duration(v) * time.Second
	}

	p := &Poller{
		area:     area,
		cronExpr: cronExpr,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "schedule_poller",
			"area_id", area.ID,
			"cron", cronExpr,
		),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Poller) Validate() error {
	if p.cronExpr != "" {
		if _, err := cron.ParseStandard(p.cronExpr); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}

		return nil
	}

	if p.interval < time.Second {
		return errors.New("schedule interval must be at least one second")
	}

	return nil
}

func (p *Poller) Start(ctx context.Context, callback protocol.PollerCallback) error {
	p.logger.InfoContext(ctx, "Starting schedule poller")
	p.callback = callback

	if p.cronExpr != "" {
		p.cron = cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		))

		_, err := p.cron.AddFunc(p.cronExpr, func() { p.fire(ctx) })
		if err != nil {
			return fmt.Errorf("failed to add cron job for area %s: %w", p.area.ID, err)
		}

		p.cron.Start()

		return nil
	}

	p.ticker = time.NewTicker(p.interval)

	go func() {
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-p.ticker.C:
				p.fire(ctx)
			}
		}
	}()

	return nil
}

func (p *Poller) fire(ctx context.Context) {
	p.logger.Info("Schedule fired")

	triggerData := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		if err := p.callback(ctx, p.area, triggerData); err != nil {
			p.logger.Error("Error running area for schedule", "error", err)
		}
	}()
}

func (p *Poller) Stop(ctx context.Context) error {
	p.logger.InfoContext(ctx, "Stopping schedule poller")

	if p.cron != nil {
		p.cron.Stop()
	}

	if p.ticker != nil {
		p.ticker.Stop()
	}

	close(p.stopCh)

	return nil
}
