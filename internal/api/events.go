package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/openrestream/restreamd/internal/events"
)

// registerSSERoutes registers the lifecycle/telemetry event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream lifecycle and telemetry events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"stream-started": events.StreamStartedEvent{},
		"stream-stopped": events.StreamStoppedEvent{},
		"stats-updated":  events.StatsUpdatedEvent{},
		"stream-created": events.StreamCreatedEvent{},
		"stream-updated": events.StreamUpdatedEvent{},
		"stream-deleted": events.StreamDeletedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.StreamStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamStoppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StatsUpdatedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamCreatedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamUpdatedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamDeletedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Confirm the connection before the first real event.
		if err := send.Data(events.StreamUpdatedEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
