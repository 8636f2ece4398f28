package server

import (
	"context"
	"strings"
	"time"

	"gatherly/internal/connections"
	"gatherly/internal/models"
	"gatherly/internal/notifications"
	"gatherly/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ConnectionRequest is the body of POST /api/connections.
type ConnectionRequest struct {
	ToUserID uint `json:"to_user_id"`
}

// ConnectionUpdate is the body of PATCH /api/connections. Either Action or
// the target Status may be given. A block may name UserID instead of an edge.
type ConnectionUpdate struct {
	ID     uint   `json:"id"`
	UserID uint   `json:"user_id"`
	Action string `json:"action"`
	Status string `json:"status"`
}

// GetConnections handles GET /api/connections?status=
// @Summary List connections
// @Description List the caller's connection edges, optionally filtered by status.
// @Tags connections
// @Produce json
// @Param status query string false "Pending, Accepted, Declined, Blocked or Withdrawn"
// @Success 200 {object} object{connections=[]service.ConnectionView}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /connections [get]
func (s *Server) GetConnections(c *fiber.Ctx) error {
	var status *models.ConnectionStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, ok := models.ParseConnectionStatus(raw)
		if !ok {
			return models.RespondWithAppError(c, models.NewValidationError("Unknown connection status"))
		}
		status = &parsed
	}

	if !s.storeAvailable() {
		return c.JSON(fiber.Map{"connections": []service.ConnectionView{}})
	}
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	views, err := s.connectionService.List(ctx, userID, status)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"connections": views})
}

// RequestConnection handles POST /api/connections
// @Summary Request a connection
// @Tags connections
// @Accept json
// @Produce json
// @Param request body ConnectionRequest true "Target user"
// @Success 201 {object} models.ConnectionEdge
// @Success 200 {object} models.ConnectionEdge "existing pending request"
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /connections [post]
func (s *Server) RequestConnection(c *fiber.Ctx) error {
	if err := s.requireStore(c); err != nil {
		return nil
	}
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	var req ConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError("Invalid request body"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	viewer, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	res, err := s.connectionService.Request(ctx, viewer, req.ToUserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if !res.Created {
		return c.JSON(res.Edge)
	}

	s.publishUserEvent(ctx, res.Edge.RecipientID, notifications.EventConnectionRequested, map[string]any{
		"connection_id": res.Edge.ID,
		"from_user":     viewer.Summary(),
		"created_at":    time.Now().UTC().Format(time.RFC3339Nano),
	})
	return c.Status(fiber.StatusCreated).JSON(res.Edge)
}

// UpdateConnection handles PATCH /api/connections
// @Summary Act on a connection
// @Description Accept, decline, withdraw or block an edge by id. Block also takes user_id to block a member with no live connection.
// @Tags connections
// @Accept json
// @Produce json
// @Param request body ConnectionUpdate true "Edge or user and action"
// @Success 200 {object} models.ConnectionEdge
// @Success 201 {object} models.ConnectionEdge "new blocked edge"
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /connections [patch]
func (s *Server) UpdateConnection(c *fiber.Ctx) error {
	if err := s.requireStore(c); err != nil {
		return nil
	}
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	var req ConnectionUpdate
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError("Invalid request body"))
	}
	action, ok := parseConnectionAction(req)
	if !ok {
		return models.RespondWithAppError(c,
			models.NewValidationError("action must be one of accept, decline, withdraw or block"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	if action == connections.ActionBlock && req.ID == 0 && req.UserID != 0 {
		return s.blockUser(ctx, c, userID, req.UserID)
	}

	edge, err := s.connectionService.Act(ctx, userID, req.ID, action)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishUserEvent(ctx, edge.OtherParty(userID), eventTypeForAction(action), map[string]any{
		"connection_id": edge.ID,
		"by_user_id":    userID,
		"status":        edge.Status,
		"updated_at":    time.Now().UTC().Format(time.RFC3339Nano),
	})
	return c.JSON(edge)
}

func (s *Server) blockUser(ctx context.Context, c *fiber.Ctx, userID, targetID uint) error {
	viewer, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	res, err := s.connectionService.Block(ctx, viewer, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if res.Changed {
		s.publishUserEvent(ctx, targetID, notifications.EventConnectionBlocked, map[string]any{
			"connection_id": res.Edge.ID,
			"by_user_id":    userID,
			"status":        res.Edge.Status,
			"updated_at":    time.Now().UTC().Format(time.RFC3339Nano),
		})
	}

	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(res.Edge)
}

// GetConnectionStatus handles GET /api/connections/status/:userId
// @Summary Connection state with a user
// @Description Resolve the caller's relationship with another member.
// @Tags connections
// @Produce json
// @Param userId path int true "User record id"
// @Success 200 {object} connections.Relationship
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /connections/status/{userId} [get]
func (s *Server) GetConnectionStatus(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	if err := s.requireStore(c); err != nil {
		return nil
	}
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	rel, err := s.connectionService.Status(ctx, userID, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(rel)
}

func parseConnectionAction(req ConnectionUpdate) (connections.Action, bool) {
	if strings.TrimSpace(req.Action) != "" {
		return connections.ParseAction(req.Action)
	}
	status, ok := models.ParseConnectionStatus(req.Status)
	if !ok {
		return "", false
	}
	return connections.ActionForStatus(status)
}

func eventTypeForAction(action connections.Action) string {
	switch action {
	case connections.ActionAccept:
		return notifications.EventConnectionAccepted
	case connections.ActionDecline:
		return notifications.EventConnectionDeclined
	case connections.ActionWithdraw:
		return notifications.EventConnectionWithdrawn
	default:
		return notifications.EventConnectionBlocked
	}
}
