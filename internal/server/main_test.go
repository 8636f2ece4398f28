package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gatherly/internal/config"
	"gatherly/internal/models"
	"gatherly/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test-secret-at-least-32-characters!!",
		JWTIssuer:             "test-idp",
		JWTAudience:           "test-api",
		Port:                  "0",
		Env:                   "test",
		AllowedOrigins:        "http://localhost:5173",
		RequestTimeoutSeconds: 5,
		PairLockTTLSeconds:    5,
	}
}

// testEnv is a server wired to an in-memory store and, optionally, miniredis.
type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	rdb    *redis.Client
}

type envOption func(*envSettings)

type envSettings struct {
	noStore bool
	noRedis bool
	flags   string
}

func withoutStore() envOption { return func(s *envSettings) { s.noStore = true } }
func withoutRedis() envOption { return func(s *envSettings) { s.noRedis = true } }
func withFlags(raw string) envOption {
	return func(s *envSettings) { s.flags = raw }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	var settings envSettings
	for _, opt := range opts {
		opt(&settings)
	}

	cfg := testConfig()
	cfg.FeatureFlags = settings.flags

	env := &testEnv{}
	if !settings.noStore {
		env.db = testutil.SQLiteDB(t)
	}
	if !settings.noRedis {
		env.rdb, _ = testutil.Redis(t)
	}

	s, err := NewServerWithDeps(cfg, env.db, env.rdb)
	require.NoError(t, err)
	env.server = s
	env.app = s.NewApp()
	return env
}

func (e *testEnv) token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := e.server.verifier.Issue(subject, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) createUser(t *testing.T, subject, name string, gender models.Gender, interests ...string) *models.User {
	t.Helper()
	u := &models.User{
		AuthSubject: subject,
		Name:        name,
		Email:       subject + "@example.com",
		Location:    "Leeds",
		Interests:   interests,
		Gender:      gender,
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) createEvent(t *testing.T, publicID, title string, start time.Time, published bool) *models.Event {
	t.Helper()
	ev := &models.Event{
		PublicID:  publicID,
		Title:     title,
		StartAt:   &start,
		Venue:     "Town Hall",
		Published: published,
	}
	require.NoError(t, e.db.Create(ev).Error)
	return ev
}

// request performs a request against the app. body is JSON-encoded when not nil.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
