// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/handler"
	"github.com/iliyamo/movie-billboard/internal/middleware"
)

// Deps are the handlers and settings the API is built from. Audit and
// RateLimit are optional.
type Deps struct {
	Catalog   *handler.CatalogHandler
	Auth      *handler.AuthHandler
	Audit     *handler.AuditHandler
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Logger    *zap.Logger
}

// New builds the echo instance serving the whole API.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RateLimit == nil {
		d.RateLimit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.Validator{}
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Logger.Named("http")))

	RegisterRoutes(e)

	v1 := e.Group("/v1", d.RateLimit)
	RegisterAuth(v1, d.Auth)
	RegisterPublic(v1, d.Catalog)
	RegisterAdmin(v1, d.Catalog, d.Audit, d.JWTSecret)
	return e
}

// RegisterRoutes registers the operational endpoints: the health check
// and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the login endpoint under /v1/auth.
func RegisterAuth(v1 *echo.Group, a *handler.AuthHandler) {
	g := v1.Group("/auth")
	g.POST("/login", a.Login)
}
