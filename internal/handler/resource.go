package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-billboard/internal/model"
	"github.com/iliyamo/movie-billboard/internal/postgrest"
	"github.com/iliyamo/movie-billboard/internal/service"
)

// fielder is implemented by request bodies that map onto store columns.
type fielder interface {
	Fields() model.Fields
}

// ResourceHandler serves the plain CRUD routes of an entity without
// cross-table rules. In is the create/replace body and P the patch body.
type ResourceHandler[T model.Entity, In fielder, P fielder] struct {
	res   *service.Resource[T, In]
	name  string
	order postgrest.Order
}

// List handles GET and honours ?order=.
func (h ResourceHandler[T, In, P]) List(c echo.Context) error {
	order, err := orderParam(c, h.order)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": h.res.List(c.Request().Context(), order)})
}

// Get handles GET /:id.
func (h ResourceHandler[T, In, P]) Get(c echo.Context) error {
	row, err := h.res.Lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lookupFailed(c, err, h.name)
	}
	return c.JSON(http.StatusOK, row)
}

// Create handles POST.
func (h ResourceHandler[T, In, P]) Create(c echo.Context) error {
	var in In
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&in); err != nil {
		return invalid(c, err)
	}
	row := h.res.Create(c.Request().Context(), in)
	if row == nil {
		return storeFailed(c, "could not create "+h.name)
	}
	return c.JSON(http.StatusCreated, row)
}

// Replace handles PUT /:id.
func (h ResourceHandler[T, In, P]) Replace(c echo.Context) error {
	var in In
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&in); err != nil {
		return invalid(c, err)
	}
	return h.update(c, in.Fields())
}

// Patch handles PATCH /:id.
func (h ResourceHandler[T, In, P]) Patch(c echo.Context) error {
	var p P
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&p); err != nil {
		return invalid(c, err)
	}
	fields := p.Fields()
	if len(fields) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}
	return h.update(c, fields)
}

func (h ResourceHandler[T, In, P]) update(c echo.Context, fields model.Fields) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.res.Lookup(ctx, id); err != nil {
		return lookupFailed(c, err, h.name)
	}
	row := h.res.Update(ctx, id, fields)
	if row == nil {
		return storeFailed(c, "could not update "+h.name)
	}
	return c.JSON(http.StatusOK, row)
}

// Delete handles DELETE /:id. The store refuses to delete rows still
// referenced elsewhere; that surfaces as 502 like any other failure.
func (h ResourceHandler[T, In, P]) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.res.Lookup(ctx, id); err != nil {
		return lookupFailed(c, err, h.name)
	}
	if !h.res.Delete(ctx, id) {
		return storeFailed(c, "could not delete "+h.name)
	}
	return c.NoContent(http.StatusNoContent)
}
