package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-billboard/internal/model"
	"github.com/iliyamo/movie-billboard/internal/repository"
)

// ListMovies handles GET /v1/movies and returns the aggregated view.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Catalog.AggregatedMovies(c.Request().Context())})
}

// GetMovie handles GET /v1/movies/:id.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	movie, err := h.Catalog.Movies.Lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lookupFailed(c, err, "movie")
	}
	return c.JSON(http.StatusOK, movie)
}

// ListMovieActors handles GET /v1/movies/:id/actors.
func (h *CatalogHandler) ListMovieActors(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Catalog.ActorsByMovie(c.Request().Context(), c.Param("id"))})
}

// createMovieRequest is a movie plus an optional category to create first.
type createMovieRequest struct {
	model.MovieInput
	NewCategory *model.CategoryInput `json:"new_category"`
}

// CreateMovie handles POST /v1/movies. With new_category the category is
// created first and the movie attached to it; a movie failure afterwards
// leaves the new category in place.
func (h *CatalogHandler) CreateMovie(c echo.Context) error {
	var req createMovieRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	if req.NewCategory == nil {
		if err := c.Validate(&req.MovieInput); err != nil {
			return invalid(c, err)
		}
		if ok, err := h.checkCategory(c, req.CategoryID); !ok {
			return err
		}
	} else {
		if req.CategoryID != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "category_id and new_category are mutually exclusive"})
		}
		if err := validate.StructExcept(req.MovieInput, "CategoryID"); err != nil {
			return invalid(c, err)
		}
		if err := c.Validate(req.NewCategory); err != nil {
			return invalid(c, err)
		}
		category := h.Catalog.Categories.Create(ctx, *req.NewCategory)
		if category == nil {
			return storeFailed(c, "could not create category")
		}
		req.CategoryID = category.ID
	}

	movie := h.Catalog.Movies.Create(ctx, req.MovieInput)
	if movie == nil {
		return storeFailed(c, "could not create movie")
	}
	return c.JSON(http.StatusCreated, movie)
}

// ReplaceMovie handles PUT /v1/movies/:id.
func (h *CatalogHandler) ReplaceMovie(c echo.Context) error {
	var in model.MovieInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&in); err != nil {
		return invalid(c, err)
	}
	return h.updateMovie(c, in.Fields())
}

// PatchMovie handles PATCH /v1/movies/:id.
func (h *CatalogHandler) PatchMovie(c echo.Context) error {
	var p model.MoviePatch
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
	return h.updateMovie(c, fields)
}

func (h *CatalogHandler) updateMovie(c echo.Context, fields model.Fields) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.Catalog.Movies.Lookup(ctx, id); err != nil {
		return lookupFailed(c, err, "movie")
	}
	if categoryID, ok := fields["category_id"].(string); ok {
		if ok, err := h.checkCategory(c, categoryID); !ok {
			return err
		}
	}
	movie := h.Catalog.Movies.Update(ctx, id, fields)
	if movie == nil {
		return storeFailed(c, "could not update movie")
	}
	return c.JSON(http.StatusOK, movie)
}

// DeleteMovie handles DELETE /v1/movies/:id by unlinking the cast and then
// deleting the movie.
func (h *CatalogHandler) DeleteMovie(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.Catalog.Movies.Lookup(ctx, id); err != nil {
		return lookupFailed(c, err, "movie")
	}
	if !h.Catalog.DeleteMovieCascade(ctx, id) {
		return storeFailed(c, "could not delete movie")
	}
	return c.NoContent(http.StatusNoContent)
}

// castRequest names an existing actor or a new one to create.
type castRequest struct {
	ActorID string `json:"actor_id" validate:"required_without=Name,excluded_with=Name"`
	Name    string `json:"name" validate:"omitempty,min=2"`
}

// AddMovieActor handles POST /v1/movies/:id/actors.
func (h *CatalogHandler) AddMovieActor(c echo.Context) error {
	var req castRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	ctx := c.Request().Context()
	movieID := c.Param("id")
	if _, err := h.Catalog.Movies.Lookup(ctx, movieID); err != nil {
		return lookupFailed(c, err, "movie")
	}

	if req.ActorID == "" {
		actor, link := h.Catalog.CastNewActor(ctx, movieID, model.ActorInput{Name: req.Name})
		switch {
		case actor == nil:
			return storeFailed(c, "could not create actor")
		case link == nil:
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "actor created but could not be linked", "actor": actor})
		}
		return c.JSON(http.StatusCreated, echo.Map{"actor": actor, "link": link})
	}

	if _, err := h.Catalog.Actors.Lookup(ctx, req.ActorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "unknown actor"})
		}
		return storeFailed(c, "could not load actor")
	}
	link := h.Catalog.AddActorToMovie(ctx, movieID, req.ActorID)
	if link == nil {
		return storeFailed(c, "could not link actor")
	}
	return c.JSON(http.StatusCreated, echo.Map{"link": link})
}

// RemoveMovieActor handles DELETE /v1/movies/:id/actors/:actor_id and
// removes every link of the pair. A missing movie is 404; an actor that is
// not in the cast is a no-op.
func (h *CatalogHandler) RemoveMovieActor(c echo.Context) error {
	ctx := c.Request().Context()
	movieID := c.Param("id")
	if _, err := h.Catalog.Movies.Lookup(ctx, movieID); err != nil {
		return lookupFailed(c, err, "movie")
	}
	if !h.Catalog.RemoveActorFromMovie(ctx, movieID, c.Param("actor_id")) {
		return storeFailed(c, "could not unlink actor")
	}
	return c.NoContent(http.StatusNoContent)
}

// checkCategory verifies categoryID exists. When it reports false the
// response has already been written and its error must be returned.
func (h *CatalogHandler) checkCategory(c echo.Context, categoryID string) (bool, error) {
	_, err := h.Catalog.Categories.Lookup(c.Request().Context(), categoryID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "unknown category"})
	default:
		return false, storeFailed(c, "could not load category")
	}
}
