// Package server contains the HTTP handlers of the group-buy REST API.
package server

import (
	"context"
	"fmt"
	"time"

	"damara/internal/cache"
	"damara/internal/config"
	"damara/internal/database"
	"damara/internal/middleware"
	"damara/internal/models"
	"damara/internal/notifications"
	"damara/internal/observability"
	"damara/internal/repository"
	"damara/internal/service"
	"damara/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config        *config.Config
	db            *gorm.DB
	redis         *redis.Client
	app           *fiber.App
	metrics       *middleware.Metrics
	shutdownCtx   context.Context
	shutdownFn    context.CancelFunc
	notifier      *notifications.Notifier
	postService   *service.PostService
	userService   *service.UserService
	chatService   *service.ChatService
	noticeService *service.NotificationService
	imageService  *service.ImageService
}

// NewServer connects the database and Redis described by cfg and builds a
// server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limiting and pub/sub are then off.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	s := &Server{
		config:   cfg,
		db:       db,
		redis:    redisClient,
		metrics:  middleware.InitMetrics("damara-api"),
		notifier: notifications.NewNotifier(redisClient),
	}

	postRepo := repository.NewPostRepository(db)
	s.noticeService = service.NewNotificationService(repository.NewNotificationRepository(db), s.notifier)
	s.postService = service.NewPostService(
		postRepo,
		repository.NewParticipationRepository(db),
		repository.NewFavoriteRepository(db),
		s.noticeService,
	)
	s.userService = service.NewUserService(repository.NewUserRepository(db), cfg.JWTSecret)
	s.chatService = service.NewChatService(repository.NewChatRepository(db), postRepo, s.notifier, s.notifier)
	s.imageService = service.NewImageService(cfg)

	return s, nil
}

// NewApp builds the fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Damara API",
		BodyLimit: int(s.imageService.MaxUploadSizeBytes()) * validation.MaxPostImages,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.MetricsMiddleware(s.metrics))
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, x-user-id",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Auth runs after CORS so rejected tokens still carry CORS headers.
	app.Use(middleware.OptionalAuth(s.config.JWTSecret))
	app.Use(middleware.ContextMiddleware())
}

// Write budgets. Join and favorite budgets are per post so one busy post
// does not lock an actor out of the others.
var (
	limitCreatePost  = middleware.Limit{Resource: "create_post", Max: 10, Window: 5 * time.Minute}
	limitParticipate = middleware.Limit{Resource: "participate", Max: 10, Window: time.Minute, PerPost: true}
	limitFavorite    = middleware.Limit{Resource: "favorite", Max: 20, Window: time.Minute, PerPost: true}
	limitStatus      = middleware.Limit{Resource: "post_status", Max: 20, Window: time.Minute, PerPost: true}
	limitSendChat    = middleware.Limit{Resource: "send_chat", Max: 30, Window: time.Minute}
	limitSignup      = middleware.Limit{Resource: "signup", Max: 5, Window: 10 * time.Minute}
	limitLogin       = middleware.Limit{Resource: "login", Max: 10, Window: 5 * time.Minute, FailClosed: true}
	limitUpload      = middleware.Limit{Resource: "upload", Max: 30, Window: 5 * time.Minute}
)

// writeLimit guards a mutating route. Limits are off when disabled in
// config, in the development and test profiles, and when the server runs
// without Redis.
func (s *Server) writeLimit(l middleware.Limit) fiber.Handler {
	if !s.config.RateLimitEnabled || s.config.IsLocal() || s.redis == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(s.redis, l)
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/metrics", s.metrics.Handler())
	app.Static("/uploads", s.imageService.UploadDir())

	api := app.Group("/api")
	api.Get("/health", s.HealthCheck)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.writeLimit(limitCreatePost), s.CreatePost)
	// Define specific routes BEFORE generic /:id routes
	posts.Get("/student/:studentId", s.GetPostsByStudent)
	posts.Get("/user/:userId/participated", s.GetParticipatedPosts)
	posts.Get("/user/:userId/favorites", s.GetFavoritePosts)
	posts.Patch("/:id/status", s.writeLimit(limitStatus), s.ChangePostStatus)
	posts.Post("/:id/participate", s.writeLimit(limitParticipate), s.JoinPost)
	posts.Get("/:id/participate/:userId", s.CheckParticipation)
	posts.Delete("/:id/participate/:userId", s.writeLimit(limitParticipate), s.LeavePost)
	posts.Get("/:id/participants", s.GetParticipants)
	posts.Post("/:id/favorite", s.writeLimit(limitFavorite), s.AddFavorite)
	posts.Get("/:id/favorite/:userId", s.CheckFavorite)
	posts.Delete("/:id/favorite/:userId", s.writeLimit(limitFavorite), s.RemoveFavorite)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	chat := api.Group("/chat")
	chat.Get("/rooms", s.GetChatRooms)
	chat.Post("/rooms", s.CreateChatRoom)
	chat.Get("/rooms/post/:postId", s.GetChatRoomByPost)
	chat.Get("/rooms/:id/messages/wait", s.WaitForMessages)
	chat.Get("/rooms/:id/messages", s.GetMessages)
	chat.Patch("/rooms/:id/read-all", s.MarkAllMessagesRead)
	chat.Get("/rooms/:id/unread-count", s.GetUnreadCount)
	chat.Get("/rooms/:id", s.GetChatRoom)
	chat.Delete("/rooms/:id", s.DeleteChatRoom)
	chat.Post("/messages", s.writeLimit(limitSendChat), s.SendMessage)
	chat.Patch("/messages/:id/read", s.MarkMessageRead)
	chat.Delete("/messages/:id", s.DeleteMessage)

	// The web client calls users, uploads and notifications both with and
	// without the /api prefix.
	for _, r := range []fiber.Router{api, app} {
		s.setupAccountRoutes(r)
	}
}

func (s *Server) setupAccountRoutes(r fiber.Router) {
	users := r.Group("/users")
	users.Post("/", s.writeLimit(limitSignup), s.Register)
	users.Post("/login", s.writeLimit(limitLogin), s.Login)
	users.Get("/", s.GetUsers)
	users.Get("/:userId/favorites", s.GetFavoritePosts)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", s.UpdateUser)
	users.Delete("/:id", s.DeleteUser)

	upload := r.Group("/upload")
	upload.Post("/image", s.writeLimit(limitUpload), s.UploadImage)
	upload.Post("/images", s.writeLimit(limitUpload), s.UploadImages)

	notices := r.Group("/notifications")
	notices.Get("/", s.GetNotifications)
	notices.Get("/unread-count", s.GetNotificationUnreadCount)
	notices.Patch("/read-all", s.MarkAllNotificationsRead)
	notices.Patch("/:id/read", s.MarkNotificationRead)
	notices.Delete("/:id", s.DeleteNotification)
}

// HealthCheck reports database and Redis state.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	// Redis is optional; only the database decides readiness.
	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier.Enabled() {
		err := s.notifier.StartUserSubscriber(s.shutdownCtx, func(channel, _ string) {
			observability.Logger.Debug("notification published", "channel", channel)
		})
		if err != nil {
			observability.Logger.Warn("failed to subscribe to notifications", "error", err)
		}
	}

	observability.Logger.Info("Server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.Logger.Error("error closing redis", "error", rerr)
		}
	}

	observability.Logger.Info("Server shutdown complete")
	return nil
}
