// Package server contains the HTTP and WebSocket handlers of the Fruit Map API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "fruitmap/docs" // swagger docs
	"fruitmap/internal/auth"
	"fruitmap/internal/cache"
	"fruitmap/internal/config"
	"fruitmap/internal/database"
	"fruitmap/internal/featureflags"
	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/notifications"
	"fruitmap/internal/observability"
	"fruitmap/internal/repository"
	"fruitmap/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const bodyLimit = 10 * 1024 * 1024

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	startedAt      time.Time
	userRepo       repository.UserRepository
	treeRepo       repository.TreeRepository
	speciesRepo    repository.SpeciesRepository
	reviewRepo     repository.ReviewRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	authService    *service.AuthService
	treeService    *service.TreeService
	speciesService *service.SpeciesService
	reviewService  *service.ReviewService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, per-route limits and cross-instance
// fan-out are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return nil, err
	}
	if redisClient != nil && cache.GetClient() != redisClient {
		cache.SetClient(redisClient)
	}

	s := newServer(cfg, auth.NewTokenManager(cfg.JWTSecret, ttl),
		repository.NewUserRepository(db),
		repository.NewTreeRepository(db),
		repository.NewSpeciesRepository(db),
		repository.NewReviewRepository(db),
	)
	s.db = db
	s.redis = redisClient
	s.notifier = notifications.NewNotifier(redisClient, s.hub)
	s.promMiddleware = middleware.InitMetrics(observability.ServiceName)

	return s, nil
}

// newServer wires services on top of the given repositories.
func newServer(
	cfg *config.Config,
	tokens *auth.TokenManager,
	users repository.UserRepository,
	trees repository.TreeRepository,
	species repository.SpeciesRepository,
	reviews repository.ReviewRepository,
) *Server {
	models.ExposeDetails = cfg.IsDevelopment()

	s := &Server{
		config:       cfg,
		startedAt:    time.Now(),
		userRepo:     users,
		treeRepo:     trees,
		speciesRepo:  species,
		reviewRepo:   reviews,
		hub:          notifications.NewHub(),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
	}
	s.notifier = notifications.NewNotifier(nil, s.hub)

	s.authService = service.NewAuthService(users, tokens)
	s.speciesService = service.NewSpeciesService(species)
	s.treeService = service.NewTreeService(trees, species, service.NewGeoService(trees), s.authService.IsAdmin, s)
	s.reviewService = service.NewReviewService(reviews, trees, s.authService.IsAdmin)

	return s
}

// PublishTreeEvent forwards tree changes to the live map feed when it is enabled.
func (s *Server) PublishTreeEvent(ctx context.Context, eventType string, tree *models.Tree) error {
	if s.notifier == nil || !s.featureFlags.Enabled(featureflags.LiveMap, "") {
		return nil
	}
	return s.notifier.PublishTreeEvent(ctx, eventType, tree)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.FrontendURL
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	app.Use(limiter.New(limiter.Config{
		Max:        s.rateLimitMax(),
		Expiration: s.config.RateLimitWindow(),
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

func (s *Server) rateLimitMax() int {
	if s.config.RateLimitMax <= 0 {
		return 100
	}
	return s.config.RateLimitMax
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	requireAuth := middleware.RequireAuth(s.authService)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.RateLimit(s.redis, 5, time.Hour, "register"), s.Register)
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 15*time.Minute, "login"), s.Login)
	authGroup.Get("/profile", requireAuth, s.Profile)

	trees := api.Group("/trees")
	trees.Get("/", s.ListTrees)
	// /search before /:id
	trees.Get("/search", s.SearchTrees)
	trees.Get("/:id", s.GetTree)
	trees.Post("/", requireAuth, s.CreateTree)
	trees.Patch("/:id", requireAuth, s.UpdateTree)
	trees.Delete("/:id", requireAuth, s.DeleteTree)

	species := api.Group("/species")
	species.Get("/", s.ListSpecies)
	species.Get("/:id/trees", s.GetSpeciesTrees)
	species.Get("/:id", s.GetSpecies)

	reviews := api.Group("/reviews")
	reviews.Get("/tree/:treeId/stats", s.GetReviewStats)
	reviews.Get("/tree/:treeId", s.GetTreeReviews)
	reviews.Post("/", requireAuth, s.CreateReview)
	reviews.Patch("/:reviewId", requireAuth, s.UpdateReview)
	reviews.Delete("/:reviewId", requireAuth, s.DeleteReview)

	api.Get("/ws/trees", s.LiveMapUpgrade, s.LiveMapHandler())

	if s.config.StaticDir != "" {
		app.Static("/", s.config.StaticDir)
	}

	app.Use(s.NotFound)
}

// NotFound answers unmatched API routes with JSON. With STATIC_DIR set,
// other GET requests fall back to the SPA entry point.
func (s *Server) NotFound(c *fiber.Ctx) error {
	if s.config.StaticDir != "" && c.Method() == fiber.MethodGet && !strings.HasPrefix(c.Path(), "/api") {
		return c.SendFile(filepath.Join(s.config.StaticDir, "index.html"))
	}
	return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Route not found"))
}

// ErrorHandler is the last-resort handler for errors returned by handlers.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return models.Respond(c, appErr)
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Fruit Map API",
		BodyLimit:    bodyLimit,
		ErrorHandler: s.ErrorHandler,
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

	s.app = s.App()

	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start live map wiring", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return s.app.Listen(":" + s.config.Port)
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

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down live map hub", slog.String("error", err.Error()))
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
