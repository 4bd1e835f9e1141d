// Package server contains the HTTP handlers for the public blog API and the
// hidden admin area.
package server

import (
	"context"
	"fmt"
	"time"

	"bienestar/internal/cache"
	"bienestar/internal/config"
	"bienestar/internal/database"
	"bienestar/internal/middleware"
	"bienestar/internal/observability"
	"bienestar/internal/repository"
	"bienestar/internal/service"
	"bienestar/internal/session"
	"bienestar/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	blobs          storage.BlobStorage
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	postService    *service.PostService
	editors        *service.EditorManager
	sessions       *session.Manager
	allowList      *session.AllowList
}

// NewServer creates a server instance, establishing its own database and
// Redis connections.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	blobs, err := pickBlobStorage(cfg)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, cache.GetClient(), blobs), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis/storage.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs storage.BlobStorage) *Server {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	prom := observability.InitHTTPMetrics("bienestar-api")

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		blobs:          blobs,
		promMiddleware: prom,
		userRepo:       userRepo,
		postRepo:       postRepo,
		allowList:      session.NewAllowList(cfg.AdminEmailList()),
	}
	s.postService = service.NewPostService(postRepo)
	s.sessions = session.NewManager(userRepo, cfg.JWTSecret)
	s.editors = service.NewEditorManager(s.postService, blobs, service.EditorOptions{
		MaxImageBytes:    int64(cfg.UploadMaxSizeMB) << 20,
		AutosaveInterval: time.Duration(cfg.AutosaveIntervalSeconds) * time.Second,
		Logger:           middleware.Logger,
	})
	return s
}

// pickBlobStorage selects S3 when a bucket is configured, local disk
// otherwise.
func pickBlobStorage(cfg *config.Config) (storage.BlobStorage, error) {
	if cfg.S3Bucket != "" {
		return storage.NewS3StorageFromEnv(context.Background(), cfg.S3Region, cfg.S3Bucket, cfg.S3PublicURL)
	}
	baseURL := fmt.Sprintf("http://localhost:%s/media", cfg.Port)
	return storage.NewLocalStorage(cfg.UploadDir, baseURL)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS before middlewares that can short-circuit, so browser clients
	// still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Bienestar Backend Metrics Dashboard",
	}))

	// Uploaded images, when stored on local disk
	if local, ok := s.blobs.(*storage.LocalStorage); ok {
		app.Static("/media", local.Dir())
	}

	// Marketing pages
	pages := api.Group("/pages")
	pages.Get("/home", s.GetHomePage)
	pages.Get("/approach", s.GetApproachPage)
	pages.Get("/contact", s.GetContactPage)

	// Public blog routes. Specific routes before the generic /:id one.
	blog := api.Group("/blog")
	blog.Get("/posts", s.GetPublishedPosts)
	blog.Get("/posts/featured", s.GetFeaturedPost)
	blog.Get("/posts/recent", s.GetRecentPosts)
	blog.Get("/posts/mandatory", s.GetMandatoryPosts)
	blog.Get("/posts/:id", s.GetPost)
	blog.Post("/posts/:id/view", s.RecordView)
	blog.Post("/posts/:id/like", middleware.RateLimit(
		s.redis, 30, time.Minute, "like"), s.RecordLike)
	blog.Get("/categories", s.GetCategories)
	blog.Get("/categories/:tag/posts", s.GetPostsByCategory)
	blog.Get("/sidebar", s.GetSidebar)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)

	// Admin routes, gated by token auth plus the allow-list
	admin := api.Group("/admin",
		middleware.AuthRequired(s.config.JWTSecret),
		middleware.AdminRequired(s.allowList.IsAdmin))

	admin.Get("/posts", s.AdminListPosts)
	admin.Post("/posts", s.AdminCreatePost)
	admin.Get("/posts/:id", s.AdminGetPost)
	admin.Put("/posts/:id", s.AdminUpdatePost)
	admin.Delete("/posts/:id", s.AdminDeletePost)

	// Editor sessions
	editor := admin.Group("/editor")
	editor.Post("/", s.OpenEditor)
	editor.Get("/:token", s.GetEditorState)
	editor.Patch("/:token", s.PatchEditor)
	editor.Post("/:token/tags", s.AddEditorTag)
	editor.Delete("/:token/tags/:tag", s.RemoveEditorTag)
	editor.Post("/:token/image", s.UploadEditorImage)
	editor.Delete("/:token/image", s.RemoveEditorImage)
	editor.Post("/:token/save", s.SaveEditor)
	editor.Delete("/:token", s.CloseEditor)

	// Inline content images and cleanup of replaced blobs
	admin.Post("/images", s.UploadImage)
	admin.Delete("/images", s.DeleteImage)
}

// Shutdown tears down background work owned by the server.
func (s *Server) Shutdown() {
	s.editors.CloseAll()
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// The cache is optional; a missing Redis degrades performance, not
	// readiness.
	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
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
