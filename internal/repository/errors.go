// Package repository defines the typed data access layer of the catalog.
// Catalog tables live in a PostgREST store and are reached through
// postgrest.Client; the audit log lives in MySQL. The sentinel errors
// below let higher layers tell failure scenarios apart. For example,
// ErrNotFound means the store answered but no row matched, while
// ErrConflict signals that the store rejected a write because of
// dependent or missing records (e.g. deleting a category still used by
// movies).
package repository

import (
	"errors"

	"github.com/iliyamo/movie-billboard/internal/postgrest"
)

// ErrNotFound is returned when a lookup by id matches no row. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the store refuses a write because of a
// constraint, such as a foreign key. Handlers should translate this into
// an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// translate maps store errors onto the sentinels above, keeping the
// original error in the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if postgrest.IsConflict(err) {
		return errors.Join(ErrConflict, err)
	}
	return err
}
