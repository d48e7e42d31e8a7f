package operations

import (
	"context"
	"time"

	"tankevents/pkg/contracts/domain"
)

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// TableSource loads the wide table of one run date
type TableSource interface {
	Load(ctx context.Context, day time.Time) (*domain.WideTable, error)
}
