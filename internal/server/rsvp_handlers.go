package server

import (
	"context"
	"strings"

	"gatherly/internal/models"
	"gatherly/internal/repository"
	"gatherly/internal/service"
	"gatherly/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// RSVPRequest is the body of POST and PATCH /api/rsvps. At least one of
// EventID and OccurrenceID is required.
type RSVPRequest struct {
	EventID      string `json:"eventId"`
	OccurrenceID string `json:"occurrenceId"`
	Status       string `json:"status"`
}

// GetRSVPs handles GET /api/rsvps?userId=&eventId=&occurrenceId=
// @Summary List RSVPs
// @Tags rsvps
// @Produce json
// @Param userId query int false "User record id"
// @Param eventId query string false "Event public id"
// @Param occurrenceId query string false "Occurrence public id"
// @Success 200 {object} object{rsvps=[]models.RSVP}
// @Router /rsvps [get]
func (s *Server) GetRSVPs(c *fiber.Ctx) error {
	filter := repository.RSVPFilter{
		EventID:      strings.TrimSpace(c.Query("eventId")),
		OccurrenceID: strings.TrimSpace(c.Query("occurrenceId")),
	}
	if raw := strings.TrimSpace(c.Query("userId")); raw != "" {
		id, ok := validation.NumericID(raw)
		if !ok {
			return models.RespondWithAppError(c, models.NewValidationError("Invalid user ID"))
		}
		filter.UserIDs = []uint{id}
	}

	if !s.storeAvailable() {
		return c.JSON(fiber.Map{"rsvps": []models.RSVP{}})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	rsvps, err := s.rsvpService.List(ctx, filter)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"rsvps": rsvps})
}

// CreateRSVP handles POST /api/rsvps. Status defaults to Going.
// @Summary Create or update an RSVP
// @Tags rsvps
// @Accept json
// @Produce json
// @Param request body RSVPRequest true "RSVP target"
// @Success 201 {object} models.RSVP
// @Success 200 {object} models.RSVP "existing RSVP updated"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rsvps [post]
func (s *Server) CreateRSVP(c *fiber.Ctx) error {
	return s.upsertRSVP(c, s.rsvpService.Create)
}

// UpdateRSVP handles PATCH /api/rsvps. Status is required.
// @Summary Update an RSVP
// @Description Set the caller's RSVP status, creating the RSVP when absent.
// @Tags rsvps
// @Accept json
// @Produce json
// @Param request body RSVPRequest true "RSVP target and status"
// @Success 200 {object} models.RSVP
// @Success 201 {object} models.RSVP "RSVP created"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rsvps [patch]
func (s *Server) UpdateRSVP(c *fiber.Ctx) error {
	return s.upsertRSVP(c, s.rsvpService.Update)
}

type rsvpUpsertFunc func(ctx context.Context, in service.RSVPInput) (*models.RSVP, bool, error)

func (s *Server) upsertRSVP(c *fiber.Ctx, upsert rsvpUpsertFunc) error {
	if err := s.requireStore(c); err != nil {
		return nil
	}
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	var req RSVPRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError("Invalid request body"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	rsvp, created, err := upsert(ctx, service.RSVPInput{
		UserID:       userID,
		EventID:      req.EventID,
		OccurrenceID: req.OccurrenceID,
		Status:       req.Status,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(rsvp)
}
