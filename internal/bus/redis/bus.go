// Package redis carries allocator traffic over Redis pub/sub
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/lobbyengine/internal/bus"
	"github.com/mcoot/lobbyengine/internal/model"
)

const subscriberBuffer = 64

// Bus publishes JSON messages on <prefix>:allocator:requests and <prefix>:allocator:acks.
// The client is shared and not closed by the bus.
type Bus struct {
	client   *redis.Client
	requests string
	acks     string
	logger   *slog.Logger
}

var _ bus.Bus = (*Bus)(nil)

// New creates a bus on an existing client
func New(client *redis.Client, prefix string, logger *slog.Logger) *Bus {
	return &Bus{
		client:   client,
		requests: fmt.Sprintf("%s:allocator:requests", prefix),
		acks:     fmt.Sprintf("%s:allocator:acks", prefix),
		logger:   logger.With(slog.String("component", "redis_bus")),
	}
}

func (b *Bus) PublishRequest(ctx context.Context, req model.AllocationRequest) error {
	return b.publish(ctx, b.requests, req)
}

func (b *Bus) PublishAck(ctx context.Context, ack model.AllocationAck) error {
	return b.publish(ctx, b.acks, ack)
}

func (b *Bus) Requests(ctx context.Context) (<-chan model.AllocationRequest, error) {
	return subscribe[model.AllocationRequest](ctx, b, b.requests)
}

func (b *Bus) Acks(ctx context.Context) (<-chan model.AllocationAck, error) {
	return subscribe[model.AllocationAck](ctx, b, b.acks)
}

func (b *Bus) publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, data).Err()
}

// subscribe waits for the subscription to be confirmed so nothing published
// after it returns is missed
func subscribe[T any](ctx context.Context, b *Bus, channel string) (<-chan T, error) {
	ps := b.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan T, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var v T
				if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
					b.logger.Warn("dropping undecodable message",
						slog.String("channel", channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
