// Package bus carries allocation requests to the external allocator and its acks back.
package bus

import (
	"context"

	"github.com/mcoot/lobbyengine/internal/model"
)

// Bus is the transport between the engine and the allocator. Subscriptions end
// and their channels close when ctx is cancelled.
type Bus interface {
	PublishRequest(ctx context.Context, req model.AllocationRequest) error
	PublishAck(ctx context.Context, ack model.AllocationAck) error
	Requests(ctx context.Context) (<-chan model.AllocationRequest, error)
	Acks(ctx context.Context) (<-chan model.AllocationAck, error)
}
