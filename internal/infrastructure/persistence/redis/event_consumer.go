package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

// IntakeChannel is the pub/sub channel the app publishes activity events on.
const IntakeChannel = "gamification:events"

// ApplyFunc processes one decoded activity event.
type ApplyFunc func(ctx context.Context, event shared.DomainEvent) error

// EventConsumer subscribes to the intake channel and feeds each activity
// event into the engine. Malformed or rejected events are logged and dropped;
// the stream must keep flowing.
type EventConsumer struct {
	client *redis.Client
	apply  ApplyFunc
	logger *slog.Logger
}

// NewEventConsumer creates an EventConsumer.
func NewEventConsumer(client *redis.Client, apply ApplyFunc, logger *slog.Logger) *EventConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventConsumer{client: client, apply: apply, logger: logger}
}

// Run consumes events until the context is cancelled.
func (c *EventConsumer) Run(ctx context.Context) error {
	sub := c.client.Subscribe(ctx, IntakeChannel)
	defer sub.Close()

	// Force the subscription before consuming so startup failures surface.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	c.logger.Info("event intake started", "channel", IntakeChannel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.handle(ctx, msg.Payload)
		}
	}
}

func (c *EventConsumer) handle(ctx context.Context, payload string) {
	var event shared.DomainEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.Warn("event intake: malformed payload dropped", "error", err)
		return
	}

	if err := c.apply(ctx, event); err != nil {
		if shared.IsValidation(err) || shared.IsNotFound(err) {
			c.logger.Warn("event intake: event rejected",
				"user_id", event.UserID, "event_type", event.Type, "error", err)
			return
		}
		c.logger.Error("event intake: apply failed",
			"user_id", event.UserID, "event_type", event.Type, "error", err)
	}
}
