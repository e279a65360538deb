// Package handler implements the admin HTTP API on top of the catalog
// orchestrator. Reads that come back empty because the store failed are
// indistinguishable from empty tables; every other store failure is
// reported to the client as 502.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-billboard/internal/model"
	"github.com/iliyamo/movie-billboard/internal/postgrest"
	"github.com/iliyamo/movie-billboard/internal/repository"
	"github.com/iliyamo/movie-billboard/internal/service"
)

// CatalogHandler serves movies, categories, actors and casting.
type CatalogHandler struct {
	Catalog    *service.Catalog
	Categories ResourceHandler[model.Category, model.CategoryInput, model.CategoryPatch]
	Actors     ResourceHandler[model.Actor, model.ActorInput, model.ActorPatch]
}

// NewCatalogHandler builds the handlers for catalog.
func NewCatalogHandler(catalog *service.Catalog) *CatalogHandler {
	return &CatalogHandler{
		Catalog:    catalog,
		Categories: ResourceHandler[model.Category, model.CategoryInput, model.CategoryPatch]{res: catalog.Categories, name: "category", order: postgrest.Asc("name")},
		Actors:     ResourceHandler[model.Actor, model.ActorInput, model.ActorPatch]{res: catalog.Actors, name: "actor", order: postgrest.Asc("name")},
	}
}

// storeFailed answers 502 for an operation the catalog reported as failed.
func storeFailed(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadGateway, echo.Map{"error": msg})
}

// lookupFailed maps a failed Lookup to 404 or 502.
func lookupFailed(c echo.Context, err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
	}
	return storeFailed(c, "could not load "+what)
}

// orderParam reads ?order=column[.asc|.desc], falling back to def.
func orderParam(c echo.Context, def postgrest.Order) (postgrest.Order, error) {
	raw := c.QueryParam("order")
	if raw == "" {
		return def, nil
	}
	return postgrest.ParseOrder(raw)
}
