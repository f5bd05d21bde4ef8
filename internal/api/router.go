package api

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/accounthub/user-management/internal/api/handler"
	"github.com/accounthub/user-management/internal/core/ports"
	"github.com/accounthub/user-management/internal/core/service"
	"github.com/accounthub/user-management/internal/infrastructure/db/postgres"
	"github.com/accounthub/user-management/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// Dependencies are constructed here and injected explicitly; nothing is
// process-global. A nil rdb disables the user read cache.
func NewRouter(pool *pgxpool.Pool, rdb *goredis.Client, cacheTTL time.Duration, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("usermgmt"))

	// --- Dependencies ---
	var userRepo ports.UserRepository = postgres.NewUserRepository(pool)
	if rdb != nil {
		userRepo = redis.NewCachedUserRepository(userRepo, rdb, cacheTTL, log)
	}
	roleRepo := postgres.NewRoleRepository(pool)
	userService := service.NewUserService(userRepo, roleRepo, log)
	userHandler := handler.NewUserHandler(userService)

	// --- User routes ---
	e.POST("/v1/users", userHandler.Create)
	e.GET("/v1/users", userHandler.List)
	e.GET("/v1/users/:id", userHandler.Get)
	e.PATCH("/v1/users/:id", userHandler.Update)
	e.DELETE("/v1/users/:id", userHandler.Delete)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(pool, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
