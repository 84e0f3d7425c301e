// Package memory provides an in-process allocator bus
package memory

import (
	"context"
	"sync"

	"github.com/mcoot/lobbyengine/internal/bus"
	"github.com/mcoot/lobbyengine/internal/model"
)

const subscriberBuffer = 64

// Bus fans published messages out to every live subscriber.
// A subscriber whose buffer is full misses the message.
type Bus struct {
	requests topic[model.AllocationRequest]
	acks     topic[model.AllocationAck]

	mu        sync.Mutex
	published []model.AllocationRequest
}

var _ bus.Bus = (*Bus)(nil)

// New creates an in-memory bus
func New() *Bus {
	return &Bus{}
}

func (b *Bus) PublishRequest(ctx context.Context, req model.AllocationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.published = append(b.published, req)
	b.mu.Unlock()
	b.requests.publish(req)
	return nil
}

func (b *Bus) PublishAck(ctx context.Context, ack model.AllocationAck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.acks.publish(ack)
	return nil
}

func (b *Bus) Requests(ctx context.Context) (<-chan model.AllocationRequest, error) {
	return b.requests.subscribe(ctx), nil
}

func (b *Bus) Acks(ctx context.Context) (<-chan model.AllocationAck, error) {
	return b.acks.subscribe(ctx), nil
}

// Published returns every request published so far
func (b *Bus) Published() []model.AllocationRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.AllocationRequest, len(b.published))
	copy(out, b.published)
	return out
}

type topic[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]chan T
}

func (t *topic[T]) publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

func (t *topic[T]) subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, subscriberBuffer)

	t.mu.Lock()
	if t.subs == nil {
		t.subs = make(map[int]chan T)
	}
	id := t.next
	t.next++
	t.subs[id] = ch
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
		close(ch)
	}()
	return ch
}
