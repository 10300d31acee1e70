// Package events publishes notification events to a Redis stream so
// downstream consumers (dashboards, archivers) can tail the punt feed
// without touching the bot's database.
package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/puntwatch/puntwatch/internal/model"
)

// Stream is the Redis stream key the bot publishes to.
const Stream = "puntwatch:notifications"

// maxStreamLen caps the stream so an unattended bot cannot grow Redis
// unbounded across a season.
const maxStreamLen = 10000

// Publisher emits notification events.
type Publisher interface {
	Publish(ctx context.Context, ev model.NotificationEvent) error
	Close() error
}

// StreamPublisher publishes events to a Redis stream via XADD.
type StreamPublisher struct {
	client *redis.Client
}

// NewStreamPublisher connects to Redis and verifies the connection.
func NewStreamPublisher(ctx context.Context, addr, password string, db int) (*StreamPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrap(err, "events: ping redis")
	}
	return &StreamPublisher{client: client}, nil
}

// Publish appends the event to the stream. The full event rides in the
// data field as JSON; a few hot fields are duplicated as flat values so
// consumers can filter without unmarshaling.
func (p *StreamPublisher) Publish(ctx context.Context, ev model.NotificationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "events: marshal event")
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":    string(data),
			"game_id": ev.GameID,
			"score":   strconv.FormatFloat(ev.Score, 'f', 2, 64),
		},
	}).Err()
	if err != nil {
		return eris.Wrap(err, "events: xadd")
	}
	return nil
}

func (p *StreamPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher discards events. Used when no Redis address is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev model.NotificationEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// LoggingPublisher wraps another publisher and downgrades its failures to
// warnings. Event publishing is best effort: a Redis outage must never
// block a punt notification.
type LoggingPublisher struct {
	Next Publisher
}

func (p LoggingPublisher) Publish(ctx context.Context, ev model.NotificationEvent) error {
	if err := p.Next.Publish(ctx, ev); err != nil {
		zap.L().Warn("event publish failed",
			zap.String("game_id", ev.GameID),
			zap.String("drive_id", ev.DriveID),
			zap.Error(err),
		)
	}
	return nil
}

func (p LoggingPublisher) Close() error {
	return p.Next.Close()
}
