package realtime

import (
	"github.com/google/uuid"

	"github.com/vendalab/impact-backend/internal/logger"
)

// SSEClient is one participant's event stream. Outbound is buffered and the
// hub drops rather than blocks when it fills; a reconnecting client replaces
// its previous SSEClient, so a stale buffer never outlives the connection.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}
