// Package messaging broadcasts stored journal events to downstream observers.
//
// The journal in storage stays authoritative; publishing happens after
// commit and is best effort. Observers that miss a broadcast can replay the
// journal through the registry API instead of polling contract state.
package messaging

import (
	"context"

	"github.com/WuodOdhis/trackflow/internal/escrow/event"
)

// Publisher broadcasts stored journal events.
type Publisher interface {
	// Publish sends one stored event.
	Publish(ctx context.Context, evt event.Event) error
	// Close releases the underlying connection.
	Close() error
}

// Noop discards events. It stands in when no broker is configured.
type Noop struct{}

// Publish discards the event.
func (Noop) Publish(context.Context, event.Event) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }

var _ Publisher = Noop{}
