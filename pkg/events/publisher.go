// Package events publishes analysis lifecycle events to Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
)

// Redis channels.
const (
	ChannelAnalysisCompleted = "events.analysis.completed"
	ChannelAnalysisFailed    = "events.analysis.failed"
	ChannelReportCompleted   = "events.report.completed"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
}

// NewBaseEvent stamps an event of eventType. An empty correlationID is omitted.
func NewBaseEvent(eventType, correlationID string) BaseEvent {
	b := BaseEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "mta",
		Version:   "1.0",
	}
	if correlationID != "" {
		b.CorrelationID = &correlationID
	}
	return b
}

// AnalysisCompletedEvent is published after one meeting was analyzed.
type AnalysisCompletedEvent struct {
	BaseEvent

	MeetingID      string `json:"meeting_id"`
	MeetingTitle   string `json:"meeting_title"`
	MeetingDate    string `json:"meeting_date"`
	DateIsFallback bool   `json:"date_is_fallback"`

	Template        string  `json:"template"`
	TemplateVersion *string `json:"template_version,omitempty"`
	Model           string  `json:"model"`
	Status          string  `json:"status"`

	ParticipantCount int     `json:"participant_count"`
	UtteranceCount   int     `json:"utterance_count"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// AnalysisFailedEvent is published when a meeting produced an error result.
type AnalysisFailedEvent struct {
	BaseEvent

	MeetingID      string `json:"meeting_id"`
	MeetingTitle   string `json:"meeting_title"`
	MeetingDate    string `json:"meeting_date"`
	DateIsFallback bool   `json:"date_is_fallback"`

	Template  string `json:"template"`
	Model     string `json:"model"`
	ErrorCode string `json:"error_code"`
	Stage     string `json:"stage,omitempty"`
	Message   string `json:"message"`

	DurationSeconds float64 `json:"duration_seconds"`
}

// ReportCompletedEvent is published after an aggregated or daily report.
type ReportCompletedEvent struct {
	BaseEvent

	Kind         string   `json:"kind"`
	Status       string   `json:"status"`
	MeetingCount int      `json:"meeting_count"`
	DateStart    string   `json:"date_start,omitempty"`
	DateEnd      string   `json:"date_end,omitempty"`
	Participants []string `json:"participants"`
	Template     string   `json:"template"`
	Model        string   `json:"model"`

	DurationSeconds float64 `json:"duration_seconds"`
}

// Publisher publishes events to Redis.
type Publisher struct {
	client *redis.Client
	logger logging.Logger
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewPublisher wraps an existing client.
func NewPublisher(client *redis.Client, logger logging.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.With(logging.F("component", "event_publisher")),
	}
}

// NewPublisherFromConfig dials Redis and pings it before returning.
func NewPublisherFromConfig(ctx context.Context, cfg Config, logger logging.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to Redis at %s: %w", cfg.Addr, err)
	}

	return NewPublisher(client, logger), nil
}

// PublishAnalysisCompleted publishes ev on ChannelAnalysisCompleted.
func (p *Publisher) PublishAnalysisCompleted(ctx context.Context, ev AnalysisCompletedEvent) error {
	ev.BaseEvent = stamp(ev.BaseEvent, "analysis.completed")
	return p.publish(ctx, ChannelAnalysisCompleted, ev)
}

// PublishAnalysisFailed publishes ev on ChannelAnalysisFailed.
func (p *Publisher) PublishAnalysisFailed(ctx context.Context, ev AnalysisFailedEvent) error {
	ev.BaseEvent = stamp(ev.BaseEvent, "analysis.failed")
	return p.publish(ctx, ChannelAnalysisFailed, ev)
}

// PublishReportCompleted publishes ev on ChannelReportCompleted.
func (p *Publisher) PublishReportCompleted(ctx context.Context, ev ReportCompletedEvent) error {
	ev.BaseEvent = stamp(ev.BaseEvent, "report.completed")
	if ev.Participants == nil {
		ev.Participants = []string{}
	}
	return p.publish(ctx, ChannelReportCompleted, ev)
}

// stamp fills in the base fields the caller left empty, keeping any correlation id.
func stamp(b BaseEvent, eventType string) BaseEvent {
	fresh := NewBaseEvent(eventType, "")
	fresh.CorrelationID = b.CorrelationID
	if !b.Timestamp.IsZero() {
		fresh.Timestamp = b.Timestamp
	}
	return fresh
}

func (p *Publisher) publish(ctx context.Context, channel string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", channel))
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}

	p.logger.Debug("Event published",
		logging.F("channel", channel),
		logging.F("payload_size", len(data)))

	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
