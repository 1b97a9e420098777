package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

// FeedChannel is the pub/sub channel the app's activity feed listens on.
const FeedChannel = "gamification:activity"

// ActivityFeed publishes engine events to the app's activity feed over
// Redis pub/sub. The feed is fire-and-forget: a publish failure is logged
// and dropped, it never fails the triggering update.
type ActivityFeed struct {
	client  *redis.Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewActivityFeed creates an ActivityFeed.
func NewActivityFeed(client *redis.Client, logger *slog.Logger) *ActivityFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityFeed{
		client:  client,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// feedEntry is the wire shape published to the feed.
type feedEntry struct {
	Type      shared.EventType       `json:"type"`
	UserID    string                 `json:"user_id"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// Notify publishes one engine event. Safe to call after the triggering
// update committed; not part of its correctness.
func (f *ActivityFeed) Notify(event shared.Event) error {
	entry := feedEntry{
		Type:      event.EventType(),
		UserID:    event.AggregateID(),
		Timestamp: event.OccurredAt(),
		Payload:   event.Payload(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		f.logger.Error("activity feed: encode entry", "event_type", event.EventType(), "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if err := f.client.Publish(ctx, FeedChannel, data).Err(); err != nil {
		f.logger.Warn("activity feed: publish failed",
			"event_type", event.EventType(),
			"user_id", event.AggregateID(),
			"error", err)
	}
	return nil
}
