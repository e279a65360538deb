package postgrest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/movie-billboard/internal/postgrest"
	"github.com/iliyamo/movie-billboard/internal/postgrest/postgresttest"
)

type category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func newClient(t *testing.T, baseURL, key string) *postgrest.Client {
	t.Helper()
	c, err := postgrest.NewClient(postgrest.DefaultConfig(baseURL, key), zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := postgrest.NewClient(postgrest.DefaultConfig("ftp://example.com", "k"), nil)
	assert.Error(t, err)

	_, err = postgrest.NewClient(postgrest.DefaultConfig("https://example.com/rest/v1", ""), nil)
	assert.Error(t, err)

	c, err := postgrest.NewClient(postgrest.DefaultConfig("https://example.com/rest/v1/", "k"), nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestClient_SendsStoreHeaders(t *testing.T) {
	var got http.Header
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("order")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/rest/v1", "secret")
	var out []category
	require.NoError(t, c.Select(context.Background(), "categories", postgrest.NewQuery().Order(postgrest.Asc("name")), &out))

	assert.Equal(t, "/rest/v1/categories", gotPath)
	assert.Equal(t, "name.asc", gotQuery)
	assert.Equal(t, "secret", got.Get("apikey"))
	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "return=representation", got.Get("Prefer"))
	assert.Empty(t, out)
}

func TestClient_DecodesStoreErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23503","message":"violates foreign key constraint","details":"Key is still referenced","hint":null}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, "k")
	err := c.Delete(context.Background(), "categories", postgrest.NewQuery().Eq("id", "c1"))
	require.Error(t, err)

	var storeErr *postgrest.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusConflict, storeErr.StatusCode)
	assert.Equal(t, "23503", storeErr.Code)
	assert.Equal(t, "Key is still referenced", storeErr.Details)
	assert.True(t, postgrest.IsConflict(err))
}

func TestClient_NonJSONErrorKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, "k")
	var out []category
	err := c.Select(context.Background(), "categories", nil, &out)

	var storeErr *postgrest.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusBadGateway, storeErr.StatusCode)
	assert.Contains(t, storeErr.Message, "upstream exploded")
}

func TestClient_RefusesUnfilteredMutations(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, "k")
	ctx := context.Background()

	assert.ErrorIs(t, c.Delete(ctx, "movies", nil), postgrest.ErrUnfiltered)
	assert.ErrorIs(t, c.Delete(ctx, "movies", postgrest.NewQuery().Order(postgrest.Asc("title"))), postgrest.ErrUnfiltered)
	assert.ErrorIs(t, c.Update(ctx, "movies", postgrest.NewQuery(), map[string]any{"title": "x"}, nil), postgrest.ErrUnfiltered)
	assert.Zero(t, calls)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := postgrest.DefaultConfig(srv.URL, "k")
	cfg.Timeout = 20 * time.Millisecond
	c, err := postgrest.NewClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	var out []category
	err = c.Select(context.Background(), "categories", nil, &out)
	require.Error(t, err)
	var storeErr *postgrest.Error
	assert.False(t, postgrest.IsStatus(err, http.StatusOK))
	assert.NotErrorAs(t, err, &storeErr)
}

func TestClient_RoundTripAgainstFakeStore(t *testing.T) {
	store := postgresttest.New(t)
	c := newClient(t, store.URL, postgresttest.APIKey)
	ctx := context.Background()

	var created []category
	require.NoError(t, c.Insert(ctx, "categories", map[string]string{"name": "Drama"}, &created))
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID)
	assert.NotEmpty(t, created[0].CreatedAt)

	var updated []category
	q := postgrest.NewQuery().Eq("id", created[0].ID)
	require.NoError(t, c.Update(ctx, "categories", q, map[string]string{"name": "Comedy"}, &updated))
	require.Len(t, updated, 1)
	assert.Equal(t, "Comedy", updated[0].Name)

	require.NoError(t, c.Delete(ctx, "categories", q))

	var listed []category
	require.NoError(t, c.Select(ctx, "categories", nil, &listed))
	assert.Empty(t, listed)
}

func TestClient_WrongKeyIsUnauthorized(t *testing.T) {
	store := postgresttest.New(t)
	c := newClient(t, store.URL, "not-the-key")

	var out []category
	err := c.Select(context.Background(), "categories", nil, &out)
	assert.True(t, postgrest.IsStatus(err, http.StatusUnauthorized))
}
