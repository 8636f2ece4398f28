package server

import (
	"gatherly/internal/featureflags"
	"gatherly/internal/models"
	"gatherly/internal/recommend"

	"github.com/gofiber/fiber/v2"
)

// GetRecommendations handles GET /api/recommendations?limit=
// @Summary Recommend connections
// @Description Rank other members by shared interests, event overlap and location.
// @Tags recommendations
// @Produce json
// @Param limit query int false "1-50, default 12"
// @Success 200 {object} object{recommendations=[]recommend.Recommendation}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /recommendations [get]
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	if !s.storeAvailable() {
		return c.JSON(fiber.Map{"recommendations": []recommend.Recommendation{}})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	recs, err := s.recommendationService.Recommend(ctx, authSubject(c), c.QueryInt("limit", recommend.DefaultLimit))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"recommendations": recs})
}

// GetFeed handles GET /api/feed
// @Summary Connections feed
// @Description Published events that accepted connections are going to or interested in, by start.
// @Tags feed
// @Produce json
// @Success 200 {object} object{events=[]models.FeedItem}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	if !s.storeAvailable() {
		return c.JSON(fiber.Map{"events": []models.FeedItem{}})
	}
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	if !s.featureFlags.Allowed(featureflags.ConnectionsFeed, userID) {
		return c.JSON(fiber.Map{"events": []models.FeedItem{}})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	feed, err := s.feedService.Feed(ctx, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"events": feed})
}
