package router // package router wires handlers and middleware onto echo

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-auth-service/internal/carrier"
	"github.com/iliyamo/tenant-auth-service/internal/config"
	"github.com/iliyamo/tenant-auth-service/internal/handler"
	"github.com/iliyamo/tenant-auth-service/internal/metrics"
	"github.com/iliyamo/tenant-auth-service/internal/middleware"
	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/utils"
)

// UserStore is everything the HTTP layer needs from the user directory.
type UserStore interface {
	handler.UserStore
	handler.UserDirectory
}

// TokenStore is everything the HTTP layer needs from the refresh store.
type TokenStore interface {
	handler.RefreshStore
	middleware.RefreshLookup
}

// Deps are the collaborators the routes are built from. Redis may be nil.
type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	DB       handler.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Issuer   *utils.TokenIssuer
	Carrier  carrier.Carrier
	Users    UserStore
	Tenants  handler.TenantStore
	Tokens   TokenStore
	Events   handler.EventPublisher
}

// NewServer returns an echo instance with global middleware and every route
// registered.
func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.Metrics(d.Metrics))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{d.Config.FrontendURI},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
	}))

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterTenants(e, d)
	RegisterUsers(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}
	if d.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.Registry)))
	}
}

// RegisterAuth registers /auth. Register and login sit behind the rate
// limiter; self and logout need an access cookie; refresh needs a live
// refresh record.
func RegisterAuth(e *echo.Echo, d Deps) {
	a := &handler.AuthHandler{
		Users:      d.Users,
		Tokens:     d.Tokens,
		Issuer:     d.Issuer,
		Carrier:    d.Carrier,
		Events:     d.Events,
		Logger:     d.Logger,
		Metrics:    d.Metrics,
		BcryptCost: d.Config.BcryptCost,
	}
	limit := middleware.RateLimit(d.Config.RateLimit, d.Redis, d.Metrics, d.Logger)
	access := middleware.Authenticate(d.Issuer, d.Carrier)

	g := e.Group("/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.GET("/self", a.Self, access)
	g.GET("/refresh", a.Refresh, middleware.AuthenticateRefresh(d.Issuer, d.Tokens, d.Carrier))
	g.POST("/logout", a.Logout, access, middleware.ParseRefresh(d.Issuer, d.Carrier))
}

// RegisterTenants registers /tenants. Listing is public and cached; every
// other operation is ADMIN only.
func RegisterTenants(e *echo.Echo, d Deps) {
	prefix := d.Config.Cache.Prefix
	t := &handler.TenantHandler{
		Tenants: d.Tenants,
		Logger:  d.Logger,
		Invalidate: func(ctx context.Context) {
			middleware.InvalidateCache(ctx, d.Redis, prefix, d.Logger)
		},
	}
	admin := []echo.MiddlewareFunc{
		middleware.Authenticate(d.Issuer, d.Carrier),
		middleware.RequireRole(model.RoleAdmin),
	}

	g := e.Group("/tenants")
	g.GET("", t.List, middleware.ResponseCache(d.Config.Cache, d.Redis, d.Metrics))
	g.POST("", t.Create, admin...)
	g.GET("/:id", t.Get, admin...)
	g.PATCH("/:id", t.Update, admin...)
	g.DELETE("/:id", t.Delete, admin...)
}

// RegisterUsers registers the ADMIN-only /users endpoints.
func RegisterUsers(e *echo.Echo, d Deps) {
	u := &handler.UserHandler{
		Users:      d.Users,
		Events:     d.Events,
		Logger:     d.Logger,
		BcryptCost: d.Config.BcryptCost,
	}

	g := e.Group("/users",
		middleware.Authenticate(d.Issuer, d.Carrier),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("", u.Create)
	g.GET("", u.List)
	g.GET("/:id", u.Get)
	g.PATCH("/:id", u.Update)
	g.DELETE("/:id", u.Delete)
}
