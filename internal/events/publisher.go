package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeScrapeRunCompleted is published once per pipeline run
	EventTypeScrapeRunCompleted EventType = "SCRAPE_RUN_COMPLETED"

	DefaultStream = "stream:scrape_runs"
	source        = "coinafrique-scraper"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type CategoryCount struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	File   string `json:"file,omitempty"`
	Failed bool   `json:"failed"`
	Error  string `json:"error,omitempty"`
}

// RunCompletedPayload is the data field of a SCRAPE_RUN_COMPLETED entry.
type RunCompletedPayload struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	Timestamp    time.Time       `json:"timestamp"`
	RunID        string          `json:"run_id"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Categories   []CategoryCount `json:"categories"`
	Total        int             `json:"total"`
	CombinedFile string          `json:"combined_file,omitempty"`
	Source       string          `json:"source"`
}

// Publisher writes run events to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func NewRunCompletedPayload(summary *models.RunSummary, now time.Time) *RunCompletedPayload {
	categories := make([]CategoryCount, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		categories = append(categories, CategoryCount{
			Name:   c.Name,
			Label:  c.Label,
			Count:  c.Count,
			File:   c.File,
			Failed: c.Failed(),
			Error:  c.Err,
		})
	}

	return &RunCompletedPayload{
		EventID:      uuid.New().String(),
		EventType:    string(EventTypeScrapeRunCompleted),
		Timestamp:    now,
		RunID:        summary.RunID.String(),
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
		Categories:   categories,
		Total:        summary.Total,
		CombinedFile: summary.CombinedFile,
		Source:       source,
	}
}

// PublishRunCompleted adds a SCRAPE_RUN_COMPLETED entry for summary to the
// stream.
func (p *Publisher) PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error {
	payload := NewRunCompletedPayload(summary, p.now())

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"event_type": payload.EventType,
			"event_id":   payload.EventID,
			"run_id":     payload.RunID,
			"timestamp":  fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("run event published",
		"stream", p.stream,
		"stream_id", id,
		"event_id", payload.EventID,
		"run_id", payload.RunID,
		"total", payload.Total)

	return nil
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}
