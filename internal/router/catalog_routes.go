package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-billboard/internal/handler"
	"github.com/iliyamo/movie-billboard/internal/middleware"
)

// RegisterPublic registers the read-only catalog endpoints. They need no
// token so the billboard can be browsed anonymously.
func RegisterPublic(v1 *echo.Group, h *handler.CatalogHandler) {
	// ---- Movies ----
	v1.GET("/movies", h.ListMovies) // aggregated: category and actors embedded
	v1.GET("/movies/:id", h.GetMovie)
	v1.GET("/movies/:id/actors", h.ListMovieActors)

	// ---- Categories ----
	v1.GET("/categories", h.Categories.List)
	v1.GET("/categories/:id", h.Categories.Get)

	// ---- Actors ----
	v1.GET("/actors", h.Actors.List)
	v1.GET("/actors/:id", h.Actors.Get)
}

// RegisterAdmin registers the catalog write endpoints. All of them require
// a valid JWT with the ADMIN role. audit may be nil when no audit database
// is configured.
func RegisterAdmin(v1 *echo.Group, h *handler.CatalogHandler, audit *handler.AuditHandler, jwtSecret string) {
	g := v1.Group("",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(handler.RoleAdmin),
	)

	// ---- Movies ----
	g.POST("/movies", h.CreateMovie)
	g.PUT("/movies/:id", h.ReplaceMovie)
	g.PATCH("/movies/:id", h.PatchMovie)
	g.DELETE("/movies/:id", h.DeleteMovie) // unlinks the cast first

	// ---- Cast ----
	g.POST("/movies/:id/actors", h.AddMovieActor)
	g.DELETE("/movies/:id/actors/:actor_id", h.RemoveMovieActor)

	// ---- Categories ----
	g.POST("/categories", h.Categories.Create)
	g.PUT("/categories/:id", h.Categories.Replace)
	g.PATCH("/categories/:id", h.Categories.Patch)
	g.DELETE("/categories/:id", h.Categories.Delete)

	// ---- Actors ----
	g.POST("/actors", h.Actors.Create)
	g.PUT("/actors/:id", h.Actors.Replace)
	g.PATCH("/actors/:id", h.Actors.Patch)
	g.DELETE("/actors/:id", h.Actors.Delete)

	if audit != nil {
		g.GET("/audit", audit.ListAudit)
	}
}
