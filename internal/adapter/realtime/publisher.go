package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"goldtrade/internal/domain"
)

// DefaultChannel is the pub/sub channel dashboards listen on
const DefaultChannel = "gold-events"

// Publisher broadcasts realtime events over Redis pub/sub
type Publisher struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

// NewPublisher creates a new Publisher
func NewPublisher(rdb *redis.Client, channel string, log *zap.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel, log: log.Named("realtime")}
}

// Publish sends one event to every subscriber
func (p *Publisher) Publish(ctx context.Context, evt domain.RealtimeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe streams events until ctx is done or the returned close func is
// called. Undecodable messages are skipped.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan domain.RealtimeEvent, func(), error) {
	sub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan domain.RealtimeEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var evt domain.RealtimeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				p.log.Debug("dropping malformed event", zap.Error(err))
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }, nil
}
