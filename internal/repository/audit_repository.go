package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-billboard/internal/model"
)

// AuditRepo persists consumed catalog events in MySQL. It depends on a
// sql.DB connection which should be configured elsewhere.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo constructs an AuditRepo with the provided DB handle.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Record inserts one event into catalog_audit.
func (r *AuditRepo) Record(ctx context.Context, ev model.CatalogEvent) error {
	const q = `INSERT INTO catalog_audit (event_type, entity, entity_id, movie_id, actor_id, occurred_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		ev.Type, ev.Entity,
		nullString(ev.EntityID), nullString(ev.MovieID), nullString(ev.ActorID),
		ev.OccurredAt.UTC())
	return err
}

// Recent returns the latest limit records, newest first.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, event_type, entity, entity_id, movie_id, actor_id, occurred_at, received_at
	           FROM catalog_audit ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditRecord
	for rows.Next() {
		var (
			rec                        model.AuditRecord
			entityID, movieID, actorID sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Event.Type, &rec.Event.Entity,
			&entityID, &movieID, &actorID, &rec.Event.OccurredAt, &rec.ReceivedAt); err != nil {
			return nil, err
		}
		rec.Event.EntityID = entityID.String
		rec.Event.MovieID = movieID.String
		rec.Event.ActorID = actorID.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
