// Package postgresttest provides an in-memory PostgREST-compatible server
// for tests. It understands the subset of the protocol the catalog uses:
// eq filters, ordering, limits, select projection with relationship
// embedding, inserts, patches and deletes, plus foreign-key enforcement
// (reject unknown references, restrict deletes of referenced rows).
package postgresttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// APIKey is the key the server accepts.
const APIKey = "test-api-key"

// Row is one stored record.
type Row = map[string]any

// Relation declares a foreign key: Table.Column references Refs.id.
type Relation struct {
	Table  string
	Column string
	Refs   string
}

// CatalogRelations is the movie catalog schema.
var CatalogRelations = []Relation{
	{Table: "movies", Column: "category_id", Refs: "categories"},
	{Table: "movie_actors", Column: "movie_id", Refs: "movies"},
	{Table: "movie_actors", Column: "actor_id", Refs: "actors"},
}

// Request is a recorded incoming request.
type Request struct {
	Method string
	Table  string
	Query  url.Values
	Header http.Header
}

// Server is a running fake store. Point a postgrest.Client at Server.URL.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	tables    map[string][]Row
	relations []Relation
	faults    map[string][]int
	requests  []Request
}

type storeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// New starts a server with the given relations (CatalogRelations when none
// are passed) and closes it when the test ends.
func New(t testing.TB, relations ...Relation) *Server {
	t.Helper()
	if len(relations) == 0 {
		relations = CatalogRelations
	}
	s := &Server{
		tables:    map[string][]Row{},
		relations: relations,
		faults:    map[string][]int{},
	}
	for _, r := range relations {
		s.ensureTable(r.Table)
		s.ensureTable(r.Refs)
	}
	s.Server = httptest.NewServer(s)
	t.Cleanup(s.Close)
	return s
}

// Seed stores row in table as-is, filling id and created_at when missing.
// Foreign keys are not checked so tests can build inconsistent states.
func (s *Server) Seed(table string, row Row) Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTable(table)
	stored := s.stamp(copyRow(row))
	s.tables[table] = append(s.tables[table], stored)
	return copyRow(stored)
}

// Rows returns a copy of every row stored in table.
func (s *Server) Rows(table string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

// FailNext makes the next request with method on table answer with status.
// Calls queue up, so FailNext twice fails the next two requests.
func (s *Server) FailNext(method, table string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + table
	s.faults[key] = append(s.faults[key], status)
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ServeHTTP implements the subset of PostgREST used by the catalog.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != APIKey || r.Header.Get("Authorization") != "Bearer "+APIKey {
		writeJSON(w, http.StatusUnauthorized, storeError{Code: "PGRST301", Message: "invalid api key"})
		return
	}

	table := strings.Trim(r.URL.Path, "/")
	query := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Method: r.Method, Table: table, Query: query, Header: r.Header.Clone()})

	key := r.Method + " " + table
	if queued := s.faults[key]; len(queued) > 0 {
		s.faults[key] = queued[1:]
		writeJSON(w, queued[0], storeError{Code: "XX000", Message: "injected failure"})
		return
	}

	if _, ok := s.tables[table]; !ok {
		writeJSON(w, http.StatusNotFound, storeError{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", table)})
		return
	}

	filters, err := parseFilters(query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, storeError{Code: "PGRST100", Message: err.Error()})
		return
	}
	representation := strings.Contains(r.Header.Get("Prefer"), "return=representation")

	switch r.Method {
	case http.MethodGet:
		s.handleSelect(w, table, query, filters)
	case http.MethodPost:
		s.handleInsert(w, r, table, representation)
	case http.MethodPatch:
		s.handleUpdate(w, r, table, filters, representation)
	case http.MethodDelete:
		s.handleDelete(w, table, filters, representation)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, storeError{Code: "PGRST117", Message: "unsupported method"})
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, table string, query url.Values, filters map[string][]string) {
	rows := s.match(table, filters)

	if order := query.Get("order"); order != "" {
		if err := sortRows(rows, order); err != nil {
			writeJSON(w, http.StatusBadRequest, storeError{Code: "PGRST100", Message: err.Error()})
			return
		}
	}
	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, storeError{Code: "PGRST100", Message: "invalid limit"})
			return
		}
		if n < len(rows) {
			rows = rows[:n]
		}
	}

	items, err := parseSelect(query.Get("select"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, storeError{Code: "PGRST100", Message: err.Error()})
		return
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		projected, err := s.project(table, row, items)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, storeError{Code: "PGRST200", Message: err.Error()})
			return
		}
		out = append(out, projected)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request, table string, representation bool) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, storeError{Code: "PGRST102", Message: "invalid json body"})
		return
	}
	var batch []Row
	if err := json.Unmarshal(raw, &batch); err != nil {
		var single Row
		if err := json.Unmarshal(raw, &single); err != nil {
			writeJSON(w, http.StatusBadRequest, storeError{Code: "PGRST102", Message: "body must be an object or array"})
			return
		}
		batch = []Row{single}
	}

	for _, row := range batch {
		if e := s.checkReferences(table, row); e != nil {
			writeJSON(w, http.StatusConflict, e)
			return
		}
	}
	created := make([]Row, 0, len(batch))
	for _, row := range batch {
		stored := s.stamp(copyRow(row))
		s.tables[table] = append(s.tables[table], stored)
		created = append(created, copyRow(stored))
	}
	if !representation {
		w.WriteHeader(http.StatusCreated)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, table string, filters map[string][]string, representation bool) {
	var patch Row
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, storeError{Code: "PGRST102", Message: "invalid json body"})
		return
	}
	if e := s.checkReferences(table, patch); e != nil {
		writeJSON(w, http.StatusConflict, e)
		return
	}

	updated := []Row{}
	for _, row := range s.tables[table] {
		if !matches(row, filters) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		updated = append(updated, copyRow(row))
	}
	if !representation {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, table string, filters map[string][]string, representation bool) {
	var kept, deleted []Row
	for _, row := range s.tables[table] {
		if matches(row, filters) {
			deleted = append(deleted, row)
		} else {
			kept = append(kept, row)
		}
	}
	for _, row := range deleted {
		if e := s.checkReferenced(table, row); e != nil {
			writeJSON(w, http.StatusConflict, e)
			return
		}
	}
	s.tables[table] = kept
	if !representation {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	out := make([]Row, 0, len(deleted))
	for _, row := range deleted {
		out = append(out, copyRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// checkReferences rejects a write whose foreign key columns point at rows
// that do not exist.
func (s *Server) checkReferences(table string, row Row) *storeError {
	for _, rel := range s.relations {
		if rel.Table != table {
			continue
		}
		v, ok := row[rel.Column]
		if !ok || v == nil {
			continue
		}
		if s.find(rel.Refs, fmt.Sprint(v)) == nil {
			return &storeError{
				Code:    "23503",
				Message: fmt.Sprintf("insert or update on table %q violates foreign key constraint", table),
				Details: fmt.Sprintf("Key (%s)=(%v) is not present in table %q.", rel.Column, v, rel.Refs),
			}
		}
	}
	return nil
}

// checkReferenced rejects deleting a row that other rows still reference.
func (s *Server) checkReferenced(table string, row Row) *storeError {
	id := fmt.Sprint(row["id"])
	for _, rel := range s.relations {
		if rel.Refs != table {
			continue
		}
		for _, dep := range s.tables[rel.Table] {
			if fmt.Sprint(dep[rel.Column]) == id {
				return &storeError{
					Code:    "23503",
					Message: fmt.Sprintf("update or delete on table %q violates foreign key constraint", table),
					Details: fmt.Sprintf("Key (id)=(%s) is still referenced from table %q.", id, rel.Table),
				}
			}
		}
	}
	return nil
}

func (s *Server) project(table string, row Row, items []selectItem) (Row, error) {
	if len(items) == 0 {
		return copyRow(row), nil
	}
	out := Row{}
	for _, it := range items {
		switch {
		case it.embedded:
			v, err := s.embed(table, row, it)
			if err != nil {
				return nil, err
			}
			out[it.name] = v
		case it.name == "*":
			for k, v := range row {
				out[k] = v
			}
		default:
			out[it.name] = row[it.name]
		}
	}
	return out, nil
}

func (s *Server) embed(table string, row Row, it selectItem) (any, error) {
	for _, rel := range s.relations {
		if rel.Table == table && rel.Refs == it.name {
			target := s.find(it.name, fmt.Sprint(row[rel.Column]))
			if target == nil {
				return nil, nil
			}
			return s.project(it.name, target, it.children)
		}
	}
	for _, rel := range s.relations {
		if rel.Table == it.name && rel.Refs == table {
			id := fmt.Sprint(row["id"])
			children := []Row{}
			for _, child := range s.tables[it.name] {
				if fmt.Sprint(child[rel.Column]) != id {
					continue
				}
				projected, err := s.project(it.name, child, it.children)
				if err != nil {
					return nil, err
				}
				children = append(children, projected)
			}
			return children, nil
		}
	}
	return nil, fmt.Errorf("could not find a relationship between %q and %q", table, it.name)
}

func (s *Server) find(table, id string) Row {
	for _, row := range s.tables[table] {
		if fmt.Sprint(row["id"]) == id {
			return row
		}
	}
	return nil
}

func (s *Server) match(table string, filters map[string][]string) []Row {
	var out []Row
	for _, row := range s.tables[table] {
		if matches(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func (s *Server) ensureTable(table string) {
	if _, ok := s.tables[table]; !ok {
		s.tables[table] = []Row{}
	}
}

func (s *Server) stamp(row Row) Row {
	if v, ok := row["id"]; !ok || v == nil || v == "" {
		row["id"] = uuid.NewString()
	}
	if v, ok := row["created_at"]; !ok || v == nil || v == "" {
		row["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return row
}

var reserved = map[string]bool{"select": true, "order": true, "limit": true, "offset": true}

func parseFilters(q url.Values) (map[string][]string, error) {
	filters := map[string][]string{}
	for col, vals := range q {
		if reserved[col] {
			continue
		}
		for _, v := range vals {
			value, ok := strings.CutPrefix(v, "eq.")
			if !ok {
				return nil, fmt.Errorf("unsupported filter %s=%s", col, v)
			}
			filters[col] = append(filters[col], value)
		}
	}
	return filters, nil
}

func matches(row Row, filters map[string][]string) bool {
	for col, values := range filters {
		got := fmt.Sprint(row[col])
		for _, want := range values {
			if got != want {
				return false
			}
		}
	}
	return true
}

func sortRows(rows []Row, order string) error {
	type key struct {
		column string
		desc   bool
	}
	var keys []key
	for _, part := range strings.Split(order, ",") {
		col, dir, _ := strings.Cut(part, ".")
		switch dir {
		case "", "asc":
			keys = append(keys, key{column: col})
		case "desc":
			keys = append(keys, key{column: col, desc: true})
		default:
			return fmt.Errorf("invalid order %q", part)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := fmt.Sprint(rows[i][k.column]), fmt.Sprint(rows[j][k.column])
			if a == b {
				continue
			}
			if k.desc {
				return a > b
			}
			return a < b
		}
		return false
	})
	return nil
}

type selectItem struct {
	name     string
	embedded bool
	children []selectItem
}

// parseSelect parses a PostgREST column list such as
// `*,categories(id,name),movie_actors(actors(id,name))`.
func parseSelect(s string) ([]selectItem, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var items []selectItem
	depth, start := 0, 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) {
			switch s[i] {
			case '(':
				depth++
				continue
			case ')':
				depth--
				if depth < 0 {
					return nil, fmt.Errorf("unbalanced select %q", s)
				}
				continue
			case ',':
				if depth > 0 {
					continue
				}
			default:
				continue
			}
		}
		if depth != 0 {
			return nil, fmt.Errorf("unbalanced select %q", s)
		}
		item, err := parseSelectItem(strings.TrimSpace(s[start:i]))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		start = i + 1
	}
	return items, nil
}

func parseSelectItem(part string) (selectItem, error) {
	if part == "" {
		return selectItem{}, fmt.Errorf("empty select item")
	}
	open := strings.IndexByte(part, '(')
	if open < 0 {
		return selectItem{name: part}, nil
	}
	if !strings.HasSuffix(part, ")") {
		return selectItem{}, fmt.Errorf("invalid embedded resource %q", part)
	}
	children, err := parseSelect(part[open+1 : len(part)-1])
	if err != nil {
		return selectItem{}, err
	}
	return selectItem{name: part[:open], embedded: true, children: children}, nil
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
