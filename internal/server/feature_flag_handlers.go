package server

import "github.com/gofiber/fiber/v2"

// FeatureFlagsResponse is the body of GET /api/feature-flags. Features holds
// the gated API features as they apply to the caller; unconfigured ones are on.
type FeatureFlagsResponse struct {
	Features  map[string]bool   `json:"features"`
	Raw       map[string]string `json:"raw"`
	Evaluated map[string]bool   `json:"evaluated"`
}

// GetFeatureFlags handles GET /api/feature-flags
// @Summary Feature flags for the caller
// @Tags feature-flags
// @Produce json
// @Success 200 {object} FeatureFlagsResponse
// @Security BearerAuth
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	// Callers without a profile yet evaluate as user 0, outside every rollout.
	userID, _ := c.Locals("userID").(uint)

	return c.JSON(FeatureFlagsResponse{
		Features:  s.featureFlags.FeatureStates(userID),
		Raw:       s.featureFlags.Raw(),
		Evaluated: s.featureFlags.Snapshot(userID),
	})
}
