package server

import (
	"context"
	"log/slog"

	"gatherly/internal/middleware"
	"gatherly/internal/notifications"
	"gatherly/internal/observability"
)

// publishUserEvent delivers an event to every socket userID holds. With Redis
// the event goes through pub/sub so every instance's hub can forward it;
// without Redis only local sockets receive it.
func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload map[string]any) {
	message, err := notifications.Event{Type: eventType, Payload: payload}.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event",
			slog.String("event_type", eventType), slog.String("error", err.Error()))
		return
	}

	if s.notifier.Enabled() {
		if err := s.notifier.PublishUser(ctx, userID, message); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish event",
				slog.String("event_type", eventType),
				slog.Uint64("target_user_id", uint64(userID)),
				slog.String("error", err.Error()))
			return
		}
	} else if s.hub != nil {
		s.hub.Broadcast(userID, message)
	}
	observability.NotificationsPublished.WithLabelValues(eventType).Inc()
}
