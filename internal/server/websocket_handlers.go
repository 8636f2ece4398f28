package server

import (
	"log/slog"
	"strconv"
	"time"

	"gatherly/internal/featureflags"
	"gatherly/internal/middleware"
	"gatherly/internal/models"
	"gatherly/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 60 * time.Second

func wsTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers on a
// websocket handshake, so the bearer token is exchanged for a single-use
// ticket passed as ?ticket= on /api/ws.
// @Summary Issue a websocket ticket
// @Tags realtime
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 403 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithAppError(c, &models.AppError{
			Code:    models.CodeUnavailable,
			Message: "Realtime notifications are unavailable",
		})
	}
	if err := s.requireStore(c); err != nil {
		return nil
	}
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	if !s.featureFlags.Allowed(featureflags.Realtime, userID) {
		return models.RespondWithAppError(c,
			models.NewPolicyDeniedError("Realtime notifications are not enabled for this account"))
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketKey(ticket), strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return models.RespondWithAppError(c, models.NewUpstreamError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// WebsocketHandler serves GET /api/ws. Every connection-status change
// addressed to the user is pushed as a JSON event.
// @Summary Realtime notifications
// @Description Upgrade to a websocket using a ticket from POST /ws/ticket.
// @Tags realtime
// @Param ticket query string true "Single-use ticket"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		if welcome, err := (notifications.Event{
			Type:    notifications.EventConnected,
			Payload: map[string]any{"user_id": userID},
		}).Encode(); err == nil {
			client.TrySend([]byte(welcome))
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.Status(fiber.StatusUpgradeRequired).JSON(models.ErrorResponse{
				Error: "WebSocket upgrade required",
			})
		}
		return upgrade(c)
	}
}
