package server

import (
	"gatherly/internal/models"
	"gatherly/internal/service"
	"gatherly/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreateProfileRequest is the sign-up form body. Interests may arrive as a
// list or as one comma-separated string.
type CreateProfileRequest struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Type            string   `json:"type"`
	Location        string   `json:"location"`
	Postcode        string   `json:"postcode"`
	Interests       []string `json:"interests"`
	InterestsString string   `json:"interests_csv"`
	Gender          string   `json:"gender"`
	HeardAbout      string   `json:"heard_about"`
}

// CreateProfile handles POST /api/users
// @Summary Create profile
// @Description Create the directory profile for the authenticated subject.
// @Tags users
// @Accept json
// @Produce json
// @Param request body CreateProfileRequest true "Sign-up form"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users [post]
func (s *Server) CreateProfile(c *fiber.Ctx) error {
	if err := s.requireStore(c); err != nil {
		return nil
	}

	var req CreateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError("Invalid request body"))
	}

	interests := req.Interests
	if len(interests) == 0 {
		interests = validation.SplitInterests(req.InterestsString)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	user, err := s.userService.CreateProfile(ctx, service.CreateProfileInput{
		Subject:    authSubject(c),
		Name:       req.Name,
		Email:      req.Email,
		Type:       req.Type,
		Location:   req.Location,
		Postcode:   req.Postcode,
		Interests:  interests,
		Gender:     req.Gender,
		HeardAbout: req.HeardAbout,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetAllUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Param limit query int false "Page size, default 50"
// @Param offset query int false "Offset"
// @Success 200 {object} object{users=[]models.User}
// @Security BearerAuth
// @Router /users [get]
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	if !s.storeAvailable() {
		return c.JSON(fiber.Map{"users": []models.User{}})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	page := parsePagination(c, 50)
	users, err := s.userService.ListUsers(ctx, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"users": users})
}

// GetMyProfile handles GET /api/users/me
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	if err := s.requireStore(c); err != nil {
		return nil
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	user, err := s.userService.Profile(ctx, authSubject(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path int true "User record id"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.requireStore(c); err != nil {
		return nil
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	user, err := s.userService.GetUserByID(ctx, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}
