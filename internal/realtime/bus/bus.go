package bus

import (
	"context"

	"github.com/vendalab/impact-backend/internal/realtime"
)

// Bus fans SSE messages out across service instances so every instance's hub
// sees every committed phase or notification write, not only the instance
// that handled the request.
type Bus interface {
	// Publish pushes one message onto the shared channel.
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	// StartForwarder subscribes and feeds every incoming message to onMsg
	// (typically the local hub's Broadcast) until ctx is cancelled.
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
