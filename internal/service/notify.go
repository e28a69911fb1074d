package service

import (
	"context"
	"log"

	"github.com/iliyamo/hotel-reservation/internal/queue"
)

// NotificationSink receives lifecycle events. Implementations must not
// block; queue.Dispatcher is the production sink.
type NotificationSink interface {
	Notify(ctx context.Context, ev queue.Event) error
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Notify(context.Context, queue.Event) error { return nil }

// emit hands ev to sink. A failure is logged and otherwise ignored: the
// state change it describes is already committed.
func emit(ctx context.Context, sink NotificationSink, component string, ev queue.Event) {
	if err := sink.Notify(ctx, ev); err != nil {
		log.Printf("%s: emit %s for booking %s failed: %v", component, ev.Kind, ev.BookingID, err)
	}
}
