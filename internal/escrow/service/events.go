package service

import (
	"context"

	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage"
	"github.com/WuodOdhis/trackflow/internal/platform/pagination"
)

// ListEvents returns journal events for a contract after the given sequence,
// oldest first. It reports storage.ErrNotFound for unknown contracts.
func (e *Engine) ListEvents(ctx context.Context, contractID int64, afterSeq uint64, limit int) ([]event.Event, error) {
	limit = pagination.ClampPageSize(limit, pagination.PageSizeConfig{
		Default: defaultListEventsPageSize,
		Max:     maxListEventsPageSize,
	})

	// Every stored contract carries at least its creation event, so an empty
	// journal means the contract does not exist.
	latest, err := e.events.GetLatestEventSeq(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if latest == 0 {
		return nil, storage.ErrNotFound
	}

	return e.events.ListEvents(ctx, contractID, afterSeq, limit)
}

// VerifyJournal replays every contract's event chain and reports the first
// tamper or gap it finds.
func (e *Engine) VerifyJournal(ctx context.Context) error {
	return e.events.VerifyEventIntegrity(ctx)
}
