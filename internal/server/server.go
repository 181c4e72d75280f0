// Package server contains the HTML handlers of the yatube site.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/internal/view"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	quotaCreatePost    = middleware.Quota{Name: "create_post", Max: 20, Window: time.Hour}
	quotaComment       = middleware.Quota{Name: "create_comment", Max: 30, Window: time.Minute}
	quotaSignup        = middleware.Quota{Name: "signup", Max: 3, Window: 10 * time.Minute}
	quotaLogin         = middleware.Quota{Name: "login", Max: 10, Window: 5 * time.Minute}
	quotaPasswordReset = middleware.Quota{Name: "password_reset", Max: 5, Window: 10 * time.Minute}
)

const (
	csrfContextKey = "csrf"
	csrfFormField  = "csrfmiddlewaretoken"
	csrfCookieName = "csrftoken"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	pages          *view.PageRenderer
	pageCache      *cache.PageCache
	sessions       *middleware.Sessions
	images         *service.ImageService
	userRepo       repository.UserRepository
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	authService    *service.AuthService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	pages, err := view.NewPageRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	images := service.NewImageService(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("yatube"),
		pages:          pages,
		pageCache:      cache.NewPageCache(redisClient, cfg.CacheTTL()),
		sessions:       middleware.NewSessions(cfg.SecretKey, cfg.SessionTTL(), redisClient, cfg.IsProduction()),
		images:         images,
		userRepo:       userRepo,
	}
	server.postService = service.NewPostService(postRepo, groupRepo, images, redisClient, cfg.PageSize)
	server.commentService = service.NewCommentService(commentRepo, postRepo)
	server.followService = service.NewFollowService(followRepo, userRepo)
	server.authService = service.NewAuthService(userRepo, service.NewLogMailer(middleware.Logger), service.AuthConfigFrom(cfg))

	return server, nil
}

// App builds the Fiber application with middleware and routes attached.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "yatube",
		ErrorHandler: s.errorHandler,
		BodyLimit:    bodyLimit(s.config),
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers; the stylesheet comes from a CDN.
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger("/media/", "/health/", "/metrics"))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			path := c.Path()
			return strings.HasPrefix(path, "/media/") || strings.HasPrefix(path, "/health/")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	}))

	app.Use(s.sessions.Authenticate())
	app.Use(s.loadViewer())

	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:" + csrfFormField,
		CookieName:     csrfCookieName,
		CookieSameSite: "Lax",
		CookieSecure:   s.config.IsProduction(),
		Expiration:     24 * time.Hour,
		ContextKey:     csrfContextKey,
		ErrorHandler:   s.csrfFailure,
		Next: func(c *fiber.Ctx) bool {
			return !s.config.CSRFEnabled
		},
	}))

	app.Use(etag.New())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/media", s.images.MediaRoot(), fiber.Static{
		MaxAge: int((24 * time.Hour).Seconds()),
	})

	login := s.LoginRequired()

	// Posts
	app.Get("/", s.cachePage(cache.IndexPagePrefix), s.Index)
	app.Get("/group/:slug", s.GroupPosts)
	app.Get("/profile/:username", s.Profile)
	app.Get("/profile/:username/follow", login, s.ProfileFollow)
	app.Get("/profile/:username/unfollow", login, s.ProfileUnfollow)
	app.Get("/follow", login, s.FollowIndex)
	app.Get("/posts/:id", s.cachePage(cache.PostPagePrefix), s.PostDetail)
	app.Get("/create", login, s.PostCreateForm)
	app.Post("/create", login, middleware.RateLimit(s.redis, quotaCreatePost), s.PostCreate)
	app.Get("/posts/:id/edit", login, s.PostEditForm)
	app.Post("/posts/:id/edit", login, s.PostEdit)
	app.Post("/posts/:id/comment", login, middleware.RateLimit(s.redis, quotaComment), s.AddComment)

	// Auth
	auth := app.Group("/auth")
	auth.Get("/signup", s.SignupForm)
	auth.Post("/signup", middleware.RateLimit(s.redis, quotaSignup), s.Signup)
	auth.Get("/login", s.LoginForm)
	auth.Post("/login", middleware.RateLimit(s.redis, quotaLogin), s.Login)
	auth.Get("/logout", s.Logout)
	auth.Post("/logout", s.Logout)
	auth.Get("/change", login, s.PasswordChangeForm)
	auth.Post("/change", login, s.PasswordChange)
	auth.Get("/change/done", login, s.PasswordChangeDone)
	auth.Get("/reset", s.PasswordResetForm)
	auth.Post("/reset", middleware.RateLimit(s.redis, quotaPasswordReset), s.PasswordReset)
	auth.Get("/reset/done", s.PasswordResetDone)
	auth.Get("/reset/confirm/:uidb64/:token", s.PasswordResetConfirmForm)
	auth.Post("/reset/confirm/:uidb64/:token", s.PasswordResetConfirm)
	auth.Get("/reset/complete", s.PasswordResetComplete)

	// About
	app.Get("/about/author", s.AboutAuthor)
	app.Get("/about/tech", s.AboutTech)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: the
// site serves uncached pages without it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

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
	switch {
	case dbStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
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

// errorHandler renders the error page matching the status of err.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	var appErr *models.AppError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &appErr):
		code = models.StatusFor(err)
	}

	if code >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}

	if !view.HasErrorPage(code) && code < fiber.StatusInternalServerError {
		return c.Status(code).SendString(err.Error())
	}

	name, data := view.ErrorPage(code)
	if rerr := s.renderStatus(c, code, name, fiber.Map(data)); rerr != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "render error page", "error", rerr)
		return c.Status(code).SendString(data["title"].(string))
	}
	return nil
}

// csrfFailure renders the CSRF failure page.
func (s *Server) csrfFailure(c *fiber.Ctx, err error) error {
	middleware.Logger.WarnContext(c.UserContext(), "csrf verification failed",
		"path", c.Path(), "error", err)
	return s.renderStatus(c, fiber.StatusForbidden, view.CSRFFailurePage, nil)
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env,
		"page_cache", s.pageCache.Enabled())
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
