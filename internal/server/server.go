// Package server contains the HTTP and WebSocket handlers for the PurPaws API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/featureflags"
	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/notifications"
	"purpaws/internal/policy"
	"purpaws/internal/repository"
	"purpaws/internal/service"
	"purpaws/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
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
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	now            service.Clock

	repos        *repository.Repositories
	blobs        storage.Store
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	accounts      *service.AccountService
	reports       *service.ReportService
	adoption      *service.AdoptionService
	catalog       *service.CatalogService
	notifications *service.NotificationService
	admin         *service.AdminService
	job           *service.AdoptionJob
}

// NewServerWithDeps creates a Server over already-initialized dependencies. The runtime
// bootstrap (or a test) owns connecting to the database, Redis and the blob store.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs storage.Store) (*Server, error) {
	if cfg == nil || db == nil || blobs == nil {
		return nil, errors.New("server requires config, database and blob store")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("purpaws-api"),
		now:            service.SystemClock,
		repos:          repository.New(db),
		blobs:          blobs,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
	}

	s.wireServices()
	return s, nil
}

// wireServices (re)builds the service layer against the current clock.
func (s *Server) wireServices() {
	s.accounts = service.NewAccountService(s.repos, s.blobs, s.config, s.now)
	s.reports = service.NewReportService(s.repos, s.blobs, s.config, s.now)
	s.adoption = service.NewAdoptionService(s.repos, s.blobs, s.config, s.now)
	s.catalog = service.NewCatalogService(s.repos, s.blobs, s.config, s.now)
	s.notifications = service.NewNotificationService(s.repos, s.notifier)
	s.admin = service.NewAdminService(s.repos, s.blobs, s.adoption, s.config)
	s.job = service.NewAdoptionJob(s.repos, s.adoption, s.notifications, s.featureFlags, s.now)
}

// App builds the fiber app with middleware and routes on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "PurPaws API",
		BodyLimit:    int(s.config.ImageMaxUploadBytes()) + 1024*1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	// Inside recover so a repanic is still turned into a 500.
	if s.config.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Media is embedded by the web client from another origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
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
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
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

	app.Get("/media/*", s.GetMedia)

	api := app.Group("/api")

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	api.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)

	// Public catalog and dashboard
	api.Get("/petsforadoption", s.GetAvailableListings)
	api.Get("/petsforadoption/:id", s.GetListing)
	api.Get("/petreports", s.GetPublicReports)

	protected := api.Group("", s.AuthRequired())

	// Reports. Specific paths before /:id.
	reports := protected.Group("/petreports")
	reports.Post("/", middleware.RateLimit(s.redis, 10, time.Hour, "submit_report"), s.SubmitReport)
	reports.Get("/mine", s.GetMyReports)
	reports.Get("/:id", s.GetReport)

	// Profile
	profiles := protected.Group("/profiles")
	profiles.Get("/me", s.GetMyProfile)
	profiles.Put("/me", s.UpdateMyProfile)
	profiles.Post("/me/picture", s.UploadProfilePicture)

	// Notifications
	notes := protected.Group("/notifications")
	notes.Get("/", s.GetNotifications)
	notes.Get("/unread-count", s.GetUnreadCount)
	notes.Post("/read-all", s.MarkAllNotificationsRead)
	notes.Post("/:id/read", s.MarkNotificationRead)

	// Realtime. The group's AuthRequired spends the ticket exactly once, so these routes
	// must not add their own.
	ws := protected.Group("/ws")
	ws.Post("/ticket", s.IssueWSTicket)
	ws.Get("/notifications", s.NotificationStreamHandler())

	// Admin
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/dashboard", s.GetAdminDashboard)
	admin.Get("/feature-flags", s.GetFeatureFlags)

	users := admin.Group("/users")
	users.Get("/", s.GetManagedUsers)
	users.Post("/:id/promote", s.PromoteUser)
	users.Delete("/:id", s.RemoveUser)

	moderation := admin.Group("/petreports")
	moderation.Get("/pending", s.GetPendingReports)
	moderation.Post("/:id/approve", s.ApproveReport)
	moderation.Post("/:id/reject", s.RejectReport)

	adoptions := admin.Group("/adoptions")
	adoptions.Get("/eligible", s.GetEligibleReports)
	adoptions.Get("/eligible/:id/draft", s.GetConversionDraft)
	adoptions.Post("/eligible/:id/convert", s.ConvertReport)

	listings := admin.Group("/petsforadoption")
	listings.Post("/", s.CreateListing)
	listings.Patch("/:id/status", s.UpdateListingStatus)
	listings.Delete("/:id", s.DeleteListing)

	admin.Post("/jobs/adoption", s.RunAdoptionJob)
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
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
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
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
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

// AuthRequired accepts either a single-use websocket ticket (query param "ticket") or a
// Bearer access token. Revoked tokens and deleted accounts are rejected. On success the
// user ID, the acting capability and the token claims are stored in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var userID uint
		if ticket := c.Query("ticket"); ticket != "" {
			id, ok := s.consumeWSTicket(ctx, ticket)
			if !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			userID = id
		} else {
			claims, err := middleware.ParseToken(s.config.JWTSecret, middleware.BearerToken(c))
			if err != nil {
				msg := "Invalid or expired token"
				if errors.Is(err, middleware.ErrMissingToken) {
					msg = "Authorization required"
				}
				return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
			}
			if claims.JTI != "" {
				revoked, err := cache.IsRevoked(ctx, claims.JTI)
				if err != nil {
					middleware.Logger.WarnContext(ctx, "token denylist unavailable", slog.String("error", err.Error()))
				}
				if revoked {
					return models.RespondWithError(c, fiber.StatusUnauthorized,
						models.NewUnauthorizedError("Token has been revoked"))
				}
			}
			c.Locals("claims", claims)
			userID = claims.UserID
		}

		user, err := s.repos.Users.GetByID(ctx, userID)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Account no longer exists"))
			}
			return s.respondError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("actor", policy.ActorFor(user))
		c.SetUserContext(middleware.WithUserID(ctx, user.ID))
		return c.Next()
	}
}

// AdminRequired rejects non-admin users with 403. Must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !actorFrom(c).Capability.Elevated() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewPermissionDeniedError("Admin access required"))
		}
		return c.Next()
	}
}

// consumeWSTicket atomically spends a ticket and returns the user it was issued to.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil {
		return 0, false
	}
	raw, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Uint64()
	if err != nil || raw == 0 {
		return 0, false
	}
	return uint(raw), true
}

// streamContext is the server lifetime context, or Background before Start.
func (s *Server) streamContext() context.Context {
	if s.shutdownCtx != nil {
		return s.shutdownCtx
	}
	return context.Background()
}

// errorHandler renders errors that escape handlers in the standard envelope.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		appErr := &models.AppError{Code: models.CodeInternal, Message: fe.Message}
		switch {
		case fe.Code == fiber.StatusNotFound:
			appErr.Code = models.CodeNotFound
		case fe.Code == fiber.StatusMethodNotAllowed, fe.Code < fiber.StatusInternalServerError:
			appErr.Code = models.CodeValidation
		}
		return models.RespondWithError(c, fe.Code, appErr)
	}
	return s.respondError(c, err)
}

// Start builds the app, wires the notification hub and scheduler, and listens.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	if interval := s.config.AdoptionScanInterval; interval > 0 {
		middleware.Logger.Info("adoption job scheduler enabled",
			slog.Duration("interval", interval),
			slog.String("mode", string(s.job.Mode())),
		)
		s.job.StartScheduler(ctx, interval)
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
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

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
