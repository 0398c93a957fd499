package server

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/mansoorceksport/cohab/internal/config"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mansoorceksport/cohab/internal/handler"
	"github.com/mansoorceksport/cohab/internal/middleware"
	"github.com/mansoorceksport/cohab/internal/repository"
	"github.com/mansoorceksport/cohab/internal/service"
	"github.com/mansoorceksport/cohab/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const idempotencyTTL = 24 * time.Hour

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	Mailer      domain.EmailSender    // nil disables email delivery
	FileRepo    domain.FileRepository // optional QR image hosting
	Clock       *domain.Clock         // defaults to the configured timezone
}

// Application is the configured HTTP app plus the services background jobs need
type Application struct {
	App      *fiber.App
	Students *service.StudentService
	Auth     *service.AuthService
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) (*Application, error) {
	cfg := deps.Config

	clock := deps.Clock
	if clock == nil {
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		clock = domain.NewClock(loc, nil)
	}

	// Repositories
	cacheRepo := repository.NewRedisCacheRepository(deps.RedisClient)
	studentRepo := repository.NewCachedStudentRepository(
		repository.NewMongoStudentRepository(deps.MongoDB),
		cacheRepo,
	)
	userRepo := repository.NewMongoUserRepository(deps.MongoDB)
	refreshTokenRepo := repository.NewMongoRefreshTokenRepository(deps.MongoDB)

	// Services
	qrService := service.NewQRService(cfg.StudentLinkBase())
	notifier := service.NewNotificationService(deps.Mailer, qrService, deps.FileRepo)
	studentService := service.NewStudentService(studentRepo, clock, qrService, notifier, cacheRepo)
	tokenService := service.NewTokenService(cfg.JWT, refreshTokenRepo, userRepo)
	authService := service.NewAuthService(userRepo, studentRepo, tokenService, cfg.ManagementKey)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, tokenService, cfg.JWT)
	userHandler := handler.NewUserHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	healthHandler := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"mongodb": func(ctx context.Context) error {
			return deps.MongoDB.Client().Ping(ctx, nil)
		},
		"redis": cacheRepo.Ping,
	})

	app := fiber.New(fiber.Config{
		AppName:      "COHAB API",
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
		ExposeHeaders:    "Content-Disposition, X-Trace-ID, X-Idempotent-Replay",
	}))

	app.Get("/", healthHandler.Info)
	app.Get("/health", healthHandler.Health)

	verifyToken := middleware.VerifyCohabToken(cfg.JWT.Secret, cfg.JWT.CookieSecure)
	adminOnly := middleware.AuthorizeRole(domain.RoleAdmin)
	idempotency := middleware.IdempotencyMiddleware(deps.RedisClient, idempotencyTTL)

	// API v1 routes
	v1 := app.Group("/v1")

	// ===========================================
	// AUTH API - /v1/auth/*
	// ===========================================
	auth := v1.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/management-key", authHandler.ManagementKeyStatus)
	auth.Post("/management-key/verify", authHandler.VerifyManagementKey)
	auth.Get("/me", verifyToken, authHandler.Me)

	// ===========================================
	// USERS API - /v1/users/* (admin)
	// ===========================================
	users := v1.Group("/users", verifyToken, adminOnly, idempotency)
	users.Get("/", userHandler.List)
	users.Post("/", userHandler.Create)
	users.Delete("/:id", userHandler.Deactivate)

	// ===========================================
	// STUDENTS API - /v1/students/*
	// ===========================================
	students := v1.Group("/students")

	// Public status check; registered before the admin middleware so it never reaches it
	students.Get("/:id/validate", studentHandler.Validate)

	students.Use(verifyToken, adminOnly, idempotency)
	students.Get("/", studentHandler.List)
	students.Get("/summary", studentHandler.Summary)
	students.Get("/sweep", studentHandler.LatestSweep)
	students.Get("/export.csv", studentHandler.ExportCSV)
	students.Post("/", studentHandler.Create)
	students.Put("/:id", studentHandler.Upsert)
	students.Delete("/:id", studentHandler.Delete)
	students.Patch("/:id/payment", studentHandler.RecordPayment)
	students.Get("/:id/qr", studentHandler.QRCode)
	students.Post("/:id/send-qr", studentHandler.SendQR)

	return &Application{
		App:      app,
		Students: studentService,
		Auth:     authService,
	}, nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("Error: %v", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  strings.ToLower(strings.ReplaceAll(utils.StatusMessage(code), " ", "_")),
	})
}
