package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/librarium/library-system/docs"
	"github.com/librarium/library-system/internal/api/handler"
	"github.com/librarium/library-system/internal/api/middleware"
	"github.com/librarium/library-system/internal/core/ports"
	"github.com/librarium/library-system/internal/core/service"
)

// Deps carries the collaborators the router wires together. Repositories and
// services come in as interfaces so tests can inject in-memory stubs; the
// raw Mongo/Redis handles exist only for the readiness probe and may be nil.
type Deps struct {
	Users    ports.UserRepository
	Books    ports.BookRepository
	Tokens   ports.TokenService
	Throttle service.LoginThrottle
	Trail    ports.AuditTrail
	Mongo    *mongo.Database
	Redis    *redis.Client
	Metrics  *prometheus.Registry // nil means the global registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	promConfig := echoprometheus.MiddlewareConfig{Subsystem: "library"}
	promHandler := echoprometheus.NewHandler()
	if deps.Metrics != nil {
		promConfig.Registerer = deps.Metrics
		promHandler = echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Metrics})
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promConfig))

	// Authentication gate first, then the policy stage. The gate only binds
	// identity; all 401/403 decisions happen in Authorize.
	rules := middleware.DefaultRules
	e.Use(middleware.Authenticate(deps.Tokens, deps.Users, rules, deps.Log))
	e.Use(middleware.Authorize(rules))

	// --- Services and handlers ---
	authService := service.NewAuthService(deps.Users, deps.Tokens, deps.Throttle, deps.Trail, deps.Log)
	bookService := service.NewBookService(deps.Books, deps.Log)
	adminService := service.NewAdminService(deps.Users, deps.Trail, deps.Log)

	authHandler := handler.NewAuthHandler(authService)
	bookHandler := handler.NewBookHandler(bookService)
	adminHandler := handler.NewAdminHandler(adminService)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Catalog routes ---
	e.GET("/books", bookHandler.List)
	e.GET("/books/:id", bookHandler.Get)
	e.POST("/books", bookHandler.Create)
	e.PUT("/books/:id", bookHandler.Update)
	e.DELETE("/books/:id", bookHandler.Delete)

	// --- Admin routes ---
	e.PUT("/admin/users/:email/role", adminHandler.UpdateRole)
	e.PUT("/admin/users/:email/enabled", adminHandler.SetEnabled)

	// --- Observability and documentation (public per the policy table) ---
	e.GET("/metrics", promHandler)
	e.GET("/swagger/*", echoswagger.WrapHandler)

	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	return e
}
