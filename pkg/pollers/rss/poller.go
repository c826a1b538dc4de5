// Package rss polls an RSS or Atom feed and fires an area once per new
// item, deduplicated through the runner's marker store.
package rss

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/protocol"
	"github.com/areaflow/areaflow/pkg/runner"
)

type Poller struct {
	area     *models.Area
	feedURL  string
	interval time.Duration

	client   *http.Client
	markers  runner.MarkerStore
	stopCh   chan struct{}
	callback protocol.PollerCallback
	logger   *slog.Logger
}

func NewPoller(area *models.Area, markers runner.MarkerStore, logger *slog.Logger) (*Poller, error) {
	feedURL, _ := area.TriggerConfig["feed_url"].(string)

	interval := 5 * time.Minute

	switch v := area.TriggerConfig["interval_seconds"].(type) {
	case float64:
		interval = time.Duration(v) * time.Second
	case int:
		interval = time.Duration(v) * time.Second
	}

	p := &Poller{
		area:     area,
		feedURL:  feedURL,
		interval: interval,
		client:   &http.Client{Timeout: 30 * time.Second},
		markers:  markers,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "rss_poller",
			"area_id", area.ID,
			"feed_url", feedURL,
		),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Poller) Validate() error {
	if p.feedURL == "" {
		return errors.New("rss poller requires feed_url")
	}

	if p.interval < time.Minute {
		return errors.New("rss poll interval must be at least one minute")
	}

	return nil
}

func (p *Poller) Start(ctx context.Context, callback protocol.PollerCallback) error {
	p.logger.InfoContext(ctx, "Starting rss poller", "interval", p.interval)
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
	p.logger.InfoContext(ctx, "Stopping rss poller")
	close(p.stopCh)

	return nil
}

func (p *Poller) poll(ctx context.Context) {
	items, err := p.fetch(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Feed fetch failed", "error", err)

		return
	}

	for _, item := range items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}

		if id == "" {
			continue
		}

		seen, err := p.markers.Seen(ctx, p.area.ID, id)
		if err != nil {
			p.logger.ErrorContext(ctx, "Marker lookup failed", "item_id", id, "error", err)

			continue
		}

		if seen {
			continue
		}

		triggerData := map[string]any{
			"title":      item.Title,
			"link":       item.Link,
			"feed_title": item.FeedTitle,
		}

		go func() {
			if err := p.callback(ctx, p.area, triggerData); err != nil {
				p.logger.Error("Error running area for feed item", "error", err)
			}
		}()
	}
}

type feedItem struct {
	Title     string
	Link      string
	GUID      string
	FeedTitle string
}

// rssDocument covers RSS 2.0; atomDocument covers Atom. Both formats appear
// in the wild behind "rss" triggers, so fetch tries RSS first and falls back.
type rssDocument struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title string `xml:"title"`
			Link  string `xml:"link"`
			GUID  string `xml:"guid"`
		} `xml:"item"`
	} `xml:"channel"`
}

type atomDocument struct {
	Title   string `xml:"title"`
	Entries []struct {
		Title string `xml:"title"`
		ID    string `xml:"id"`
		Link  struct {
			Href string `xml:"href,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

func (p *Poller) fetch(ctx context.Context) ([]feedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	return parseFeed(body)
}

func parseFeed(body []byte) ([]feedItem, error) {
	var rss rssDocument
	if err := xml.Unmarshal(body, &rss); err == nil && len(rss.Channel.Items) > 0 {
		items := make([]feedItem, 0, len(rss.Channel.Items))

		for _, item := range rss.Channel.Items {
			items = append(items, feedItem{
				Title:     item.Title,
				Link:      item.Link,
				GUID:      item.GUID,
				FeedTitle: rss.Channel.Title,
			})
		}

		return items, nil
	}

	var atom atomDocument
	if err := xml.Unmarshal(body, &atom); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]feedItem, 0, len(atom.Entries))

	for _, entry := range atom.Entries {
		items = append(items, feedItem{
			Title:     entry.Title,
			Link:      entry.Link.Href,
			GUID:      entry.ID,
			FeedTitle: atom.Title,
		})
	}

	return items, nil
}
