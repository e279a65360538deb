package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/movie-billboard/internal/postgrest"
)

// Table is a typed CRUD client for one store table. T is the row type
// decoded from the store's JSON.
type Table[T any] struct {
	client *postgrest.Client
	name   string
}

// NewTable binds a row type to a table name.
func NewTable[T any](client *postgrest.Client, name string) *Table[T] {
	return &Table[T]{client: client, name: name}
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// List returns every row ordered by order.
func (t *Table[T]) List(ctx context.Context, order postgrest.Order) ([]T, error) {
	return t.Where(ctx, postgrest.NewQuery().Order(order))
}

// Where returns the rows matching q.
func (t *Table[T]) Where(ctx context.Context, q *postgrest.Query) ([]T, error) {
	var rows []T
	if err := t.client.Select(ctx, t.name, q, &rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, translate(err))
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// Find returns the row with the given id or ErrNotFound.
func (t *Table[T]) Find(ctx context.Context, id string) (*T, error) {
	rows, err := t.Where(ctx, postgrest.NewQuery().Eq("id", id).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", t.name, id, ErrNotFound)
	}
	return &rows[0], nil
}

// Insert creates a row from body and returns it as stored, including the
// server-assigned columns.
func (t *Table[T]) Insert(ctx context.Context, body any) (*T, error) {
	var rows []T
	if err := t.client.Insert(ctx, t.name, body, &rows); err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.name, translate(err))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: store returned no row", t.name)
	}
	return &rows[0], nil
}

// Update patches the row with the given id and returns it. ErrNotFound is
// returned when no row matched.
func (t *Table[T]) Update(ctx context.Context, id string, body any) (*T, error) {
	var rows []T
	if err := t.client.Update(ctx, t.name, postgrest.NewQuery().Eq("id", id), body, &rows); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", t.name, id, translate(err))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("update %s %s: %w", t.name, id, ErrNotFound)
	}
	return &rows[0], nil
}

// Delete removes the row with the given id. Deleting a missing id is not
// an error.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	return t.DeleteWhere(ctx, postgrest.NewQuery().Eq("id", id))
}

// DeleteWhere removes every row matching q. q must be filtered.
func (t *Table[T]) DeleteWhere(ctx context.Context, q *postgrest.Query) error {
	if err := t.client.Delete(ctx, t.name, q); err != nil {
		return fmt.Errorf("delete %s: %w", t.name, translate(err))
	}
	return nil
}
