package postgresttest

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, s *Server, method, path string, query url.Values, body string) (*http.Response, []Row) {
	t.Helper()
	u := s.URL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, u, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("apikey", APIKey)
	req.Header.Set("Authorization", "Bearer "+APIKey)
	req.Header.Set("Prefer", "return=representation")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var rows []Row
	if resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	}
	return resp, rows
}

func TestParseSelect(t *testing.T) {
	items, err := parseSelect("*,categories(id,name),movie_actors(actors(id,name))")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "*", items[0].name)
	assert.True(t, items[1].embedded)
	assert.Equal(t, "categories", items[1].name)
	require.Len(t, items[2].children, 1)
	assert.Equal(t, "actors", items[2].children[0].name)
	assert.Len(t, items[2].children[0].children, 2)

	_, err = parseSelect("categories(id,name")
	assert.Error(t, err)
}

func TestServer_EmbedsToOneAndToMany(t *testing.T) {
	s := New(t)
	s.Seed("categories", Row{"id": "c1", "name": "Drama"})
	s.Seed("movies", Row{"id": "m1", "title": "X", "category_id": "c1"})
	s.Seed("actors", Row{"id": "a1", "name": "A"})
	s.Seed("movie_actors", Row{"movie_id": "m1", "actor_id": "a1"})

	resp, rows := do(t, s, http.MethodGet, "/movies", url.Values{
		"select": {"*,categories(id,name),movie_actors(actors(id,name))"},
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rows, 1)

	assert.Equal(t, map[string]any{"id": "c1", "name": "Drama"}, rows[0]["categories"])
	joins := rows[0]["movie_actors"].([]any)
	require.Len(t, joins, 1)
	assert.Equal(t, map[string]any{"actors": map[string]any{"id": "a1", "name": "A"}}, joins[0])
}

func TestServer_EnforcesForeignKeys(t *testing.T) {
	s := New(t)

	resp, _ := do(t, s, http.MethodPost, "/movies", nil, `{"title":"X","category_id":"missing"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	s.Seed("categories", Row{"id": "c1", "name": "Drama"})
	s.Seed("movies", Row{"id": "m1", "title": "X", "category_id": "c1"})

	resp, _ = do(t, s, http.MethodDelete, "/categories", url.Values{"id": {"eq.c1"}}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Len(t, s.Rows("categories"), 1)
}

func TestServer_FailNext(t *testing.T) {
	s := New(t)
	s.FailNext(http.MethodGet, "actors", http.StatusServiceUnavailable)

	resp, _ := do(t, s, http.MethodGet, "/actors", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = do(t, s, http.MethodGet, "/actors", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_OrderAndFilter(t *testing.T) {
	s := New(t)
	s.Seed("actors", Row{"name": "beta"})
	s.Seed("actors", Row{"name": "Alpha"})
	s.Seed("actors", Row{"name": "alpha"})

	_, rows := do(t, s, http.MethodGet, "/actors", url.Values{"order": {"name.asc"}}, "")
	require.Len(t, rows, 3)
	// byte-wise ordering: upper case sorts first
	assert.Equal(t, []any{"Alpha", "alpha", "beta"}, []any{rows[0]["name"], rows[1]["name"], rows[2]["name"]})

	_, rows = do(t, s, http.MethodGet, "/actors", url.Values{"name": {"eq.beta"}}, "")
	require.Len(t, rows, 1)

	resp, _ := do(t, s, http.MethodGet, "/actors", url.Values{"name": {"like.*a*"}}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
