// Package weather polls the Open-Meteo current weather API and fires an
// area when the configured temperature condition is met.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/protocol"
)

const defaultEndpoint = "https://api.open-meteo.com/v1/forecast"

type Poller struct {
	area      *models.Area
	endpoint  string
	latitude  float64
	longitude float64
	city      string
	threshold *float64
	above     bool
	interval  time.Duration

	client   *http.Client
	stopCh   chan struct{}
	callback protocol.PollerCallback
	logger   *slog.Logger
}

func NewPoller(area *models.Area, logger *slog.Logger) (*Poller, error) {
	config := area.TriggerConfig

	p := &Poller{
		area:     area,
		endpoint: defaultEndpoint,
		interval: 10 * time.Minute,
		client:   &http.Client{Timeout: 30 * time.Second},
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "weather_poller",
			"area_id", area.ID,
		),
	}

	if endpoint, ok := config["endpoint"].(string); ok && endpoint != "" {
		p.endpoint = endpoint
	}

	p.latitude = floatValue(config["latitude"])
	p.longitude = floatValue(config["longitude"])
	p.city, _ = config["city"].(string)

	if raw, ok := config["threshold"]; ok {
		threshold := floatValue(raw)
		p.threshold = &threshold
	}

	direction, _ := config["direction"].(string)
	p.above = direction != "below"

	if seconds := floatValue(config["interval_seconds"]); seconds > 0 {
		p.interval = time.Duration(seconds) * time.Second
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Poller) Validate() error {
	if p.latitude == 0 && p.longitude == 0 {
		return errors.New("weather poller requires latitude and longitude")
	}

	if p.interval < time.Minute {
		return errors.New("weather poll interval must be at least one minute")
	}

	return nil
}

func (p *Poller) Start(ctx context.Context, callback protocol.PollerCallback) error {
	p.logger.InfoContext(ctx, "Starting weather poller", "interval", p.interval)
	p.callback = callback

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()

	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	p.logger.InfoContext(ctx, "Stopping weather poller")
	close(p.stopCh)

	return nil
}

func (p *Poller) poll(ctx context.Context) {
	observation, err := p.fetch(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Weather fetch failed", "error", err)

		return
	}

	if p.threshold != nil {
		if p.above && observation.Temperature <= *p.threshold {
			return
		}

		if !p.above && observation.Temperature >= *p.threshold {
			return
		}
	}

	triggerData := map[string]any{
		"temperature": observation.Temperature,
		"condition":   observation.Condition,
		"city":        p.city,
	}

	go func() {
		if err := p.callback(ctx, p.area, triggerData); err != nil {
			p.logger.Error("Error running area for weather update", "error", err)
		}
	}()
}

type observation struct {
	Temperature float64
	Condition   string
}

func (p *Poller) fetch(ctx context.Context) (*observation, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(p.latitude, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(p.longitude, 'f', 4, 64))
	query.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}

	var payload struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
			WeatherCode int     `json:"weathercode"`
		} `json:"current_weather"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	return &observation{
		Temperature: payload.CurrentWeather.Temperature,
		Condition:   weatherCondition(payload.CurrentWeather.WeatherCode),
	}, nil
}

// weatherCondition maps WMO weather codes to coarse buckets.
func weatherCondition(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code <= 3:
		return "cloudy"
	case code <= 48:
		return "fog"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain"
	case code <= 86:
		return "snow"
	default:
		return "storm"
	}
}

func floatValue(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}

	return 0
}
