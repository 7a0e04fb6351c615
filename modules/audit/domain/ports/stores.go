package ports

import (
	"context"

	"github.com/privsys/ropa-registry/modules/audit/domain/types"
)

type EventStore interface {
	InsertEvent(ctx context.Context, event types.Event) error
	// ListEvents returns a page newest-first plus the total event count.
	ListEvents(ctx context.Context, limit int, offset int) ([]types.Event, int, error)
}
