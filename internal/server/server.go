// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "gatherly/docs" // swagger docs
	"gatherly/internal/bootstrap"
	"gatherly/internal/cache"
	"gatherly/internal/config"
	"gatherly/internal/featureflags"
	"gatherly/internal/middleware"
	"gatherly/internal/models"
	"gatherly/internal/notifications"
	"gatherly/internal/repository"
	"gatherly/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	verifier       *middleware.TokenVerifier
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo       repository.UserRepository
	connectionRepo repository.ConnectionRepository
	eventRepo      repository.EventRepository
	occurrenceRepo repository.OccurrenceRepository
	rsvpRepo       repository.RSVPRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	userService           *service.UserService
	connectionService     *service.ConnectionService
	recommendationService *service.RecommendationService
	eventService          *service.EventService
	rsvpService           *service.RSVPService
	feedService           *service.FeedService
}

// NewServer creates a new server instance with all dependencies. Without a
// configured store the server still boots: public reads return empty lists
// and writes respond 503.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemoData: cfg.SeedDemoData})
	if err != nil {
		return nil, err
	}
	if db == nil {
		middleware.Logger.Warn("No data store configured; serving empty reads")
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// db and redisClient may each be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("gatherly-api"),
		verifier:       middleware.NewTokenVerifier(cfg),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		hub:            notifications.NewHub(),
	}

	if db != nil {
		server.userRepo = repository.NewUserRepository(db)
		server.connectionRepo = repository.NewConnectionRepository(db)
		server.eventRepo = repository.NewEventRepository(db)
		server.occurrenceRepo = repository.NewOccurrenceRepository(db)
		server.rsvpRepo = repository.NewRSVPRepository(db)
	}

	var lock service.PairLocker
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		ttl := time.Duration(cfg.PairLockTTLSeconds) * time.Second
		lock = cache.NewPairLock(redisClient, ttl)
	}

	server.userService = service.NewUserService(server.userRepo)
	server.connectionService = service.NewConnectionService(server.connectionRepo, server.userRepo, lock)
	server.recommendationService = service.NewRecommendationService(server.userRepo, server.rsvpRepo, server.connectionRepo, server.featureFlags)
	server.eventService = service.NewEventService(server.eventRepo, server.occurrenceRepo, server.rsvpRepo)
	server.rsvpService = service.NewRSVPService(server.rsvpRepo, server.eventRepo, server.occurrenceRepo)
	server.feedService = service.NewFeedService(server.connectionRepo, server.rsvpRepo, server.userRepo, server.eventRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Propagates request id, user id and trace id into the user context.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so short-circuited responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Gatherly Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Public reads
	api.Get("/events", s.GetEvents)
	api.Get("/events/:id", s.GetEvent)
	api.Get("/occurrences", s.GetOccurrences)
	api.Get("/rsvps", s.GetRSVPs)

	// Auth is attached per group so public routes and unknown paths never
	// pass through it, and a websocket ticket is consumed exactly once.
	auth := s.AuthRequired()

	users := api.Group("/users", auth)
	users.Post("/", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.CreateProfile)
	users.Get("/", s.GetAllUsers)
	users.Get("/me", s.GetMyProfile)
	users.Get("/:id", s.GetUserProfile)

	conns := api.Group("/connections", auth)
	conns.Get("/", s.GetConnections)
	conns.Post("/", middleware.RateLimit(s.redis, 20, 5*time.Minute, "connection_request"), s.RequestConnection)
	conns.Patch("/", s.UpdateConnection)
	conns.Get("/status/:userId", s.GetConnectionStatus)

	api.Get("/recommendations", auth, s.GetRecommendations)
	api.Get("/feed", auth, s.GetFeed)
	api.Get("/feature-flags", auth, s.GetFeatureFlags)

	api.Post("/rsvps", auth, s.CreateRSVP)
	api.Patch("/rsvps", auth, s.UpdateRSVP)

	api.Post("/ws/ticket", auth, s.IssueWSTicket)
	api.Get("/ws", auth, s.WebsocketHandler())

	// Known paths reached with an unsupported verb answer 405 instead of 404.
	for _, path := range []string{
		"/events", "/events/:id", "/occurrences", "/rsvps", "/users", "/users/me",
		"/users/:id", "/connections", "/connections/status/:userId",
		"/recommendations", "/feed", "/feature-flags", "/ws", "/ws/ticket",
	} {
		api.All(path, methodNotAllowed)
	}
}

func methodNotAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(models.ErrorResponse{
		Error: "Method not allowed",
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. An unconfigured store or
// missing Redis is reported but only a failing configured dependency makes
// the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "not_configured"
	if s.db != nil {
		dbStatus = "healthy"
		sqlDB, err := s.db.DB()
		if err != nil {
			dbStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. It accepts a single-use
// websocket ticket or a bearer token, stores the auth subject, and resolves
// the caller's profile id when a profile exists.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.TrimSuffix(c.Path(), "/") == "/api/ws"

		// 1. WebSocket ticket (short-lived, single-use)
		if ticket := c.Query("ticket"); ticket != "" && s.redis != nil {
			key := wsTicketKey(ticket)
			raw, err := s.redis.GetDel(c.Context(), key).Result()
			if err == nil {
				if userID, parseErr := strconv.ParseUint(raw, 10, 64); parseErr == nil && userID > 0 {
					c.Locals("userID", uint(userID))
					ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, uint(userID))
					c.SetUserContext(ctx)
					return c.Next()
				}
			}
			if isWSPath {
				return models.RespondWithAppError(c,
					models.NewUnauthenticatedError("Invalid or expired WebSocket ticket"))
			}
		}
		if isWSPath {
			return models.RespondWithAppError(c,
				models.NewUnauthenticatedError("A WebSocket ticket is required"))
		}

		// 2. Bearer token
		tokenString := middleware.BearerToken(c)
		if tokenString == "" {
			return models.RespondWithAppError(c,
				models.NewUnauthenticatedError("Authorization required"))
		}

		claims, err := s.verifier.Verify(tokenString)
		if err != nil {
			return models.RespondWithAppError(c,
				models.NewUnauthenticatedError("Invalid or expired token"))
		}

		if claims.TokenID != "" && s.redis != nil {
			revoked, err := s.redis.Exists(c.Context(), "blacklist:"+claims.TokenID).Result()
			if err == nil && revoked > 0 {
				return models.RespondWithAppError(c,
					models.NewUnauthenticatedError("Token has been revoked"))
			}
		}

		c.Locals("authSubject", claims.Subject)
		ctx := context.WithValue(c.UserContext(), middleware.SubjectKey, claims.Subject)

		if s.storeAvailable() {
			user, err := s.userRepo.GetByAuthSubject(ctx, claims.Subject)
			switch {
			case err == nil:
				c.Locals("userID", user.ID)
				ctx = context.WithValue(ctx, middleware.UserIDKey, user.ID)
			case !models.IsCode(err, models.CodeNotFound):
				middleware.Logger.WarnContext(ctx, "profile lookup failed", slog.String("error", err.Error()))
				c.SetUserContext(ctx)
				return models.RespondWithAppError(c, err)
			}
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Gatherly API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithAppError(c, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.NewApp()
	s.app = app

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
