package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gatherly/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRequired_BearerToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user_auth", "Avery", models.GenderUnknown)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + env.token(t, user.AuthSubject), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := env.app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuthRequired_RevokedToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user_revoked", "Rae", models.GenderUnknown)
	tok := env.token(t, user.AuthSubject)

	claims, err := env.server.verifier.Verify(tok)
	require.NoError(t, err)
	require.NoError(t, env.rdb.Set(context.Background(), "blacklist:"+claims.TokenID, "1", time.Hour).Err())

	resp := env.request(t, http.MethodGet, "/api/users/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_WSTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	app := fiber.New()
	app.Get("/api/ws", env.server.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	t.Run("ticket is consumed on first use", func(t *testing.T) {
		key := wsTicketKey("ticket-1")
		require.NoError(t, env.rdb.Set(ctx, key, "123", time.Minute).Err())

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws?ticket=ticket-1", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(123), decodeJSON[map[string]any](t, resp)["userID"])

		exists, err := env.rdb.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)

		replay, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws?ticket=ticket-1", nil))
		require.NoError(t, err)
		defer func() { _ = replay.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	})

	t.Run("bearer token is not enough for the socket", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
		req.Header.Set("Authorization", "Bearer "+env.token(t, "user_x"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed ticket value", func(t *testing.T) {
		require.NoError(t, env.rdb.Set(ctx, wsTicketKey("ticket-bad"), "abc", time.Minute).Err())
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws?ticket=ticket-bad", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestIssueWSTicket(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user_ticket", "Tess", models.GenderUnknown)

	resp := env.request(t, http.MethodPost, "/api/ws/ticket", env.token(t, user.AuthSubject), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}](t, resp)
	require.NotEmpty(t, body.Ticket)
	assert.Equal(t, 60, body.ExpiresIn)

	stored, err := env.rdb.Get(context.Background(), wsTicketKey(body.Ticket)).Result()
	require.NoError(t, err)
	assert.Equal(t, "1", stored)

	t.Run("without redis", func(t *testing.T) {
		bare := newTestEnv(t, withoutRedis())
		u := bare.createUser(t, "user_ticket", "Tess", models.GenderUnknown)
		resp := bare.request(t, http.MethodPost, "/api/ws/ticket", bare.token(t, u.AuthSubject), nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("realtime rolled out to nobody", func(t *testing.T) {
		gated := newTestEnv(t, withFlags("realtime=off"))
		u := gated.createUser(t, "user_ticket", "Tess", models.GenderUnknown)
		resp := gated.request(t, http.MethodPost, "/api/ws/ticket", gated.token(t, u.AuthSubject), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodDelete, "/api/events"},
		{http.MethodPut, "/api/events/E1"},
		{http.MethodPost, "/api/occurrences"},
		{http.MethodDelete, "/api/rsvps"},
		{http.MethodGet, "/api/ws/ticket"},
		{http.MethodPost, "/api/feed"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp := env.request(t, tc.method, tc.path, "", nil)
			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}

	resp := env.request(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNoStore(t *testing.T) {
	env := newTestEnv(t, withoutStore(), withoutRedis())
	tok := env.token(t, "user_any")

	for path, key := range map[string]string{
		"/api/events":      "events",
		"/api/occurrences": "occurrences",
		"/api/rsvps":       "rsvps",
	} {
		t.Run("GET "+path, func(t *testing.T) {
			resp := env.request(t, http.MethodGet, path, "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			body := decodeJSON[map[string][]any](t, resp)
			assert.NotNil(t, body[key])
			assert.Empty(t, body[key])
		})
	}

	for path, key := range map[string]string{
		"/api/users":           "users",
		"/api/connections":     "connections",
		"/api/recommendations": "recommendations",
		"/api/feed":            "events",
	} {
		t.Run("GET "+path, func(t *testing.T) {
			resp := env.request(t, http.MethodGet, path, tok, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Empty(t, decodeJSON[map[string][]any](t, resp)[key])
		})
	}

	writes := []struct{ method, path string }{
		{http.MethodPost, "/api/users"},
		{http.MethodPost, "/api/connections"},
		{http.MethodPatch, "/api/connections"},
		{http.MethodPost, "/api/rsvps"},
		{http.MethodGet, "/api/users/me"},
		{http.MethodGet, "/api/events/E1"},
	}
	for _, w := range writes {
		t.Run(w.method+" "+w.path, func(t *testing.T) {
			resp := env.request(t, w.method, w.path, tok, map[string]any{})
			assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			assert.Equal(t, models.CodeUnavailable, decodeJSON[models.ErrorResponse](t, resp).Code)
		})
	}
}

func TestHealthChecks(t *testing.T) {
	t.Run("live", func(t *testing.T) {
		env := newTestEnv(t, withoutStore(), withoutRedis())
		resp := env.request(t, http.MethodGet, "/health/live", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ready with everything", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.request(t, http.MethodGet, "/health/ready", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON[struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}](t, resp)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "healthy", body.Checks["database"])
		assert.Equal(t, "healthy", body.Checks["redis"])
	})

	t.Run("ready without optional dependencies", func(t *testing.T) {
		env := newTestEnv(t, withoutStore(), withoutRedis())
		resp := env.request(t, http.MethodGet, "/health/ready", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON[struct {
			Checks map[string]string `json:"checks"`
		}](t, resp)
		assert.Equal(t, "not_configured", body.Checks["database"])
		assert.Equal(t, "unavailable", body.Checks["redis"])
	})

	t.Run("unready when redis is down", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.rdb.Close())
		resp := env.request(t, http.MethodGet, "/health/ready", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestFeatureFlagsEndpoint(t *testing.T) {
	env := newTestEnv(t, withFlags("recommendations=on,realtime=off"))
	user := env.createUser(t, "user_flags", "Flo", models.GenderUnknown)

	resp := env.request(t, http.MethodGet, "/api/feature-flags", env.token(t, user.AuthSubject), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[FeatureFlagsResponse](t, resp)
	assert.Equal(t, map[string]string{"recommendations": "on", "realtime": "off"}, body.Raw)
	assert.True(t, body.Evaluated["recommendations"])
	assert.False(t, body.Evaluated["realtime"])
	assert.Equal(t, map[string]bool{
		"recommendations":  true,
		"connections_feed": true,
		"realtime":         false,
	}, body.Features)
}

func TestSwaggerDocumentsEveryAPIRoute(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decodeJSON[struct {
		Paths map[string]map[string]any `json:"paths"`
	}](t, resp)

	routes := map[string][]string{
		"/events":                      {"get"},
		"/events/{id}":                 {"get"},
		"/occurrences":                 {"get"},
		"/rsvps":                       {"get", "post", "patch"},
		"/users":                       {"get", "post"},
		"/users/me":                    {"get"},
		"/users/{id}":                  {"get"},
		"/connections":                 {"get", "post", "patch"},
		"/connections/status/{userId}": {"get"},
		"/recommendations":             {"get"},
		"/feed":                        {"get"},
		"/feature-flags":               {"get"},
		"/ws":                          {"get"},
		"/ws/ticket":                   {"post"},
	}
	for path, methods := range routes {
		ops, ok := doc.Paths[path]
		if !assert.True(t, ok, "missing %s", path) {
			continue
		}
		for _, m := range methods {
			assert.Contains(t, ops, m, "missing %s %s", m, path)
		}
	}
}
