package server

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"gatherly/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const defaultRequestTimeout = 5 * time.Second

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithAppError(c,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// requestContext bounds store calls made on behalf of one request.
func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	timeout := defaultRequestTimeout
	if s.config != nil && s.config.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(s.config.RequestTimeoutSeconds) * time.Second
	}
	return context.WithTimeout(c.UserContext(), timeout)
}

// storeAvailable reports whether a data store is attached.
func (s *Server) storeAvailable() bool {
	return s.db != nil && s.userRepo != nil
}

// requireStore writes 503 when no store is attached.
func (s *Server) requireStore(c *fiber.Ctx) error {
	if s.storeAvailable() {
		return nil
	}
	_ = models.RespondWithAppError(c, models.NewStoreUnavailableError())
	return errResponseWritten
}

// authSubject returns the identity-provider subject set by AuthRequired.
func authSubject(c *fiber.Ctx) string {
	sub, _ := c.Locals("authSubject").(string)
	return sub
}

// currentUserID returns the caller's profile id. Callers without a profile get
// a 404 so clients know to submit the sign-up form.
func currentUserID(c *fiber.Ctx) (uint, error) {
	if id, ok := c.Locals("userID").(uint); ok && id > 0 {
		return id, nil
	}
	_ = models.RespondWithAppError(c, models.NewNotFoundError("Profile", authSubject(c)))
	return 0, errResponseWritten
}
