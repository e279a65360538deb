package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/movie-billboard/internal/config"
	"github.com/iliyamo/movie-billboard/internal/handler"
	"github.com/iliyamo/movie-billboard/internal/postgrest"
	"github.com/iliyamo/movie-billboard/internal/postgrest/postgresttest"
	"github.com/iliyamo/movie-billboard/internal/repository"
	"github.com/iliyamo/movie-billboard/internal/service"
	"github.com/iliyamo/movie-billboard/internal/utils"
)

const (
	jwtSecret     = "router-test-secret"
	adminEmail    = "admin@example.com"
	adminPassword = "hunter22"
)

type api struct {
	t     *testing.T
	e     *echo.Echo
	store *postgresttest.Server
	token string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := postgresttest.New(t)
	client, err := postgrest.NewClient(postgrest.DefaultConfig(store.URL, postgresttest.APIKey), logger)
	require.NoError(t, err)

	hash, err := utils.HashPassword(adminPassword, bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 5, AdminEmail: adminEmail, AdminPasswordHash: hash}

	e := New(Deps{
		Catalog:   handler.NewCatalogHandler(service.NewCatalog(client, logger, nil)),
		Auth:      handler.NewAuthHandler(cfg, logger),
		JWTSecret: jwtSecret,
		Logger:    logger,
	})
	tok, err := utils.NewAccessToken(jwtSecret, adminEmail, handler.RoleAdmin, time.Hour)
	require.NoError(t, err)
	return &api{t: t, e: e, store: store, token: tok.Token}
}

func (a *api) do(method, path, body string, admin bool) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if admin {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *api) seedCatalog() {
	a.store.Seed(repository.CategoriesTable, postgresttest.Row{"id": "c1", "name": "Drama"})
	a.store.Seed(repository.MoviesTable, postgresttest.Row{
		"id": "m1", "title": "X", "image": "https://img.example/x.jpg",
		"description": "a long enough synopsis", "category_id": "c1",
	})
	a.store.Seed(repository.ActorsTable, postgresttest.Row{"id": "a1", "name": "A"})
	a.store.Seed(repository.MovieActorsTable, postgresttest.Row{"movie_id": "m1", "actor_id": "a1"})
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = a.do(http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLogin(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/auth/login", `{"email":"ADMIN@example.com ","password":"hunter22"}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		User   struct{ Email, Role string }
		Access struct{ Token string }
	}](t, rec)
	assert.Equal(t, adminEmail, resp.User.Email)
	assert.Equal(t, handler.RoleAdmin, resp.User.Role)

	claims, err := utils.ParseAccessToken(jwtSecret, resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, handler.RoleAdmin, claims.Role)

	rec = a.do(http.MethodPost, "/v1/auth/login", `{"email":"admin@example.com","password":"wrong"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", `{"email":"not-an-email","password":"x"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicReads(t *testing.T) {
	a := newAPI(t)
	a.seedCatalog()

	rec := a.do(http.MethodGet, "/v1/movies", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[{
		"id":"m1","title":"X","image":"https://img.example/x.jpg",
		"description":"a long enough synopsis","category_id":"c1",
		"created_at":`+mustJSON(t, a.store.Rows(repository.MoviesTable)[0]["created_at"])+`,
		"category":{"id":"c1","name":"Drama"},
		"actors":[{"id":"a1","name":"A"}]
	}]}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/v1/movies/m1/actors", "", false)
	assert.JSONEq(t, `{"items":[{"id":"a1","name":"A"}]}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/movies/m1", "", false).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/movies/nope", "", false).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/categories?order=name.desc", "", false).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/actors?order=name.sideways", "", false).Code)

	a.store.FailNext(http.MethodGet, repository.ActorsTable, http.StatusServiceUnavailable)
	assert.Equal(t, http.StatusBadGateway, a.do(http.MethodGet, "/v1/actors/a1", "", false).Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/categories", `{"name":"Noir"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, a.store.Rows(repository.CategoriesTable))
}

func TestCreateMovie(t *testing.T) {
	a := newAPI(t)
	a.seedCatalog()
	valid := `{"title":"Heat","image":"https://img.example/heat.jpg","description":"a crime epic in LA","category_id":"c1"}`

	rec := a.do(http.MethodPost, "/v1/movies", valid, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.NotEmpty(t, created["id"])
	assert.NotEmpty(t, created["created_at"])

	rec = a.do(http.MethodPost, "/v1/movies", `{"title":"H","image":"ftp://x","description":"short","category_id":"c1"}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[struct{ Fields map[string]string }](t, rec).Fields
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "image")
	assert.Contains(t, fields, "description")

	rec = a.do(http.MethodPost, "/v1/movies", strings.Replace(valid, `"c1"`, `"c404"`, 1), true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	a.store.FailNext(http.MethodPost, repository.MoviesTable, http.StatusInternalServerError)
	rec = a.do(http.MethodPost, "/v1/movies", valid, true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCreateMovieWithNewCategory(t *testing.T) {
	a := newAPI(t)
	body := `{"title":"Alien","image":"https://img.example/alien.jpg","description":"in space no one can hear","new_category":{"name":"Sci-Fi"}}`

	rec := a.do(http.MethodPost, "/v1/movies", body, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	categories := a.store.Rows(repository.CategoriesTable)
	require.Len(t, categories, 1)
	assert.Equal(t, "Sci-Fi", categories[0]["name"])
	assert.Equal(t, categories[0]["id"], decode[map[string]any](t, rec)["category_id"])

	both := `{"title":"Alien","image":"https://img.example/alien.jpg","description":"in space no one can hear","category_id":"c1","new_category":{"name":"Sci-Fi"}}`
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/movies", both, true).Code)

	badCategory := `{"title":"Alien","image":"https://img.example/alien.jpg","description":"in space no one can hear","new_category":{"name":"S"}}`
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/movies", badCategory, true).Code)
	assert.Len(t, a.store.Rows(repository.CategoriesTable), 1)
}

func TestUpdateMovie(t *testing.T) {
	a := newAPI(t)
	a.seedCatalog()

	rec := a.do(http.MethodPatch, "/v1/movies/m1", `{"title":"X2"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "X2", updated["title"])
	assert.Equal(t, "c1", updated["category_id"])

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, "/v1/movies/m1", `{}`, true).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPatch, "/v1/movies/m1", `{"category_id":"c404"}`, true).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, "/v1/movies/nope", `{"title":"X3"}`, true).Code)

	put := `{"title":"Y2","image":"https://img.example/y.jpg","description":"a replacement synopsis","category_id":"c1"}`
	rec = a.do(http.MethodPut, "/v1/movies/m1", put, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replaced := decode[map[string]any](t, rec)
	assert.Equal(t, "Y2", replaced["title"])
	assert.Equal(t, "a replacement synopsis", replaced["description"])

	short := `{"title":"Y","image":"https://img.example/y.jpg","description":"a replacement synopsis","category_id":"c1"}`
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/v1/movies/m1", short, true).Code)
}

func TestDeleteMovieCascades(t *testing.T) {
	a := newAPI(t)
	a.seedCatalog()

	rec := a.do(http.MethodDelete, "/v1/movies/m1", "", true)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Empty(t, a.store.Rows(repository.MoviesTable))
	assert.Empty(t, a.store.Rows(repository.MovieActorsTable))
	assert.Len(t, a.store.Rows(repository.ActorsTable), 1)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/v1/movies/m1", "", true).Code)
}

func TestDeleteCategoryInUse(t *testing.T) {
	a := newAPI(t)
	a.seedCatalog()

	assert.Equal(t, http.StatusBadGateway, a.do(http.MethodDelete, "/v1/categories/c1", "", true).Code)
	assert.Len(t, a.store.Rows(repository.CategoriesTable), 1)
}

func TestCastEndpoints(t *testing.T) {
	a := newAPI(t)
	a.seedCatalog()
	a.store.Seed(repository.ActorsTable, postgresttest.Row{"id": "a2", "name": "B"})

	rec := a.do(http.MethodPost, "/v1/movies/m1/actors", `{"actor_id":"a2"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/v1/movies/m1/actors", `{"actor_id":"a2"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, a.store.Rows(repository.MovieActorsTable), 2)

	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/v1/movies/m1/actors", `{"actor_id":"ghost"}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/movies/m1/actors", `{}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/movies/m1/actors", `{"actor_id":"a2","name":"Bob"}`, true).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/v1/movies/nope/actors", `{"actor_id":"a2"}`, true).Code)

	rec = a.do(http.MethodPost, "/v1/movies/m1/actors", `{"name":"Carla"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cast := decode[struct {
		Actor struct{ ID, Name string }
		Link  struct {
			ActorID string `json:"actor_id"`
		}
	}](t, rec)
	assert.Equal(t, "Carla", cast.Actor.Name)
	assert.Equal(t, cast.Actor.ID, cast.Link.ActorID)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/movies/m1/actors/a2", "", true).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/v1/movies/nope/actors/a2", "", true).Code)
	// unlinking an actor that is not in the cast is a no-op
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/movies/m1/actors/a2", "", true).Code)
	rec = a.do(http.MethodGet, "/v1/movies/m1/actors", "", false)
	items := decode[struct{ Items []struct{ ID string } }](t, rec).Items
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.ElementsMatch(t, []string{"a1", cast.Actor.ID}, ids)
}

func TestCategoryAndActorCRUD(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/v1/categories", "/v1/actors"} {
		t.Run(path, func(t *testing.T) {
			rec := a.do(http.MethodPost, path, `{"name":"Noir"}`, true)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			id := decode[map[string]any](t, rec)["id"].(string)

			assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, path, `{"name":"N"}`, true).Code)

			rec = a.do(http.MethodPut, path+"/"+id, `{"name":"Neo-noir"}`, true)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "Neo-noir", decode[map[string]any](t, rec)["name"])

			rec = a.do(http.MethodPatch, path+"/"+id, `{"name":"Noir"}`, true)
			require.Equal(t, http.StatusOK, rec.Code)

			rec = a.do(http.MethodGet, path, "", false)
			assert.Len(t, decode[struct{ Items []map[string]any }](t, rec).Items, 1)

			assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path+"/"+id, "", true).Code)
			assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, path+"/"+id, "", false).Code)
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
