package server

import (
	"gatherly/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetEvents handles GET /api/events
// @Summary List events
// @Description Published events by start, each with its next occurrence and Going counts.
// @Tags events
// @Produce json
// @Success 200 {object} object{events=[]models.EventListing}
// @Failure 502 {object} models.ErrorResponse
// @Router /events [get]
func (s *Server) GetEvents(c *fiber.Ctx) error {
	if !s.storeAvailable() {
		return c.JSON(fiber.Map{"events": []models.EventListing{}})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	events, err := s.eventService.ListEvents(ctx)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}

// GetEvent handles GET /api/events/:id
// @Summary Get event
// @Tags events
// @Produce json
// @Param id path string true "Event public id or record id"
// @Success 200 {object} models.Event
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [get]
func (s *Server) GetEvent(c *fiber.Ctx) error {
	if err := s.requireStore(c); err != nil {
		return nil
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	event, err := s.eventService.GetEvent(ctx, c.Params("id"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(event)
}

// GetOccurrences handles GET /api/occurrences?eventId=
// @Summary List occurrences
// @Description Occurrences by start, de-duplicated by event and start time.
// @Tags events
// @Produce json
// @Param eventId query string false "Event public id"
// @Success 200 {object} object{occurrences=[]models.Occurrence}
// @Router /occurrences [get]
func (s *Server) GetOccurrences(c *fiber.Ctx) error {
	if !s.storeAvailable() {
		return c.JSON(fiber.Map{"occurrences": []models.Occurrence{}})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	occurrences, err := s.eventService.ListOccurrences(ctx, c.Query("eventId"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"occurrences": occurrences})
}
