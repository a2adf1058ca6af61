package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kft-pay/kft_pay/internal/auth"
	"github.com/kft-pay/kft_pay/internal/catalog"
	"github.com/kft-pay/kft_pay/internal/config"
	"github.com/kft-pay/kft_pay/internal/identity"
	"github.com/kft-pay/kft_pay/internal/ledger"
	"github.com/kft-pay/kft_pay/internal/middleware"
	"github.com/kft-pay/kft_pay/internal/notification"
	"github.com/kft-pay/kft_pay/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Storage backends, in-memory when no database is configured.
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	var catalogRepo catalog.Repository
	if d.DB != nil {
		catalogRepo = catalog.NewPostgresRepository(d.DB)
	} else {
		catalogRepo = catalog.NewMemoryRepository()
	}

	// Services and handlers
	identitySvc := identity.NewService(identityRepo, store)
	notifier := notification.NewLoggerNotifier(d.Logger)
	transferSvc := transfer.NewService(store, identitySvc, catalogRepo, notifier)
	catalogSvc := catalog.New(catalogRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	transferHandler := transfer.NewHandler(transferSvc, identityRepo)
	catalogHandler := catalog.NewHandler(catalogSvc, identityRepo)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)

	// Public routes
	RegisterIdentityRoutes(api, identityHandler)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter, jwtmw)

	// Protected routes
	protected := api.Group("", jwtmw)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":       user.ID,
			"username":      user.Username,
			"role":          string(user.Role),
			"token_version": user.TokenVersion,
			"created_at":    user.CreatedAt,
		})
	})
	RegisterTransferRoutes(protected, transferHandler)
	RegisterCatalogRoutes(protected, catalogHandler)

	return nil
}
