package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/movie-billboard/internal/model"
	"github.com/iliyamo/movie-billboard/internal/postgrest"
)

// castRow is the shape of a movie_actors row with its actor embedded.
type castRow struct {
	ActorID string          `json:"actor_id"`
	Actors  *model.ActorRef `json:"actors"`
}

// MovieActorRepo manages the movie_actors join table.
type MovieActorRepo struct {
	*Table[model.MovieActor]
}

// NewMovieActorRepo constructs a MovieActorRepo on the given client.
func NewMovieActorRepo(client *postgrest.Client) *MovieActorRepo {
	return &MovieActorRepo{Table: NewTable[model.MovieActor](client, MovieActorsTable)}
}

// ActorsByMovie returns the actors linked to movieID. An actor linked
// twice appears twice.
func (r *MovieActorRepo) ActorsByMovie(ctx context.Context, movieID string) ([]model.ActorRef, error) {
	q := postgrest.NewQuery().
		Eq("movie_id", movieID).
		Select("actor_id,actors(id,name)")

	var rows []castRow
	if err := r.client.Select(ctx, r.name, q, &rows); err != nil {
		return nil, fmt.Errorf("actors of movie %s: %w", movieID, translate(err))
	}
	out := make([]model.ActorRef, 0, len(rows))
	for _, row := range rows {
		if row.Actors != nil {
			out = append(out, *row.Actors)
		}
	}
	return out, nil
}

// FindPair returns the join rows for the (movieID, actorID) pair.
func (r *MovieActorRepo) FindPair(ctx context.Context, movieID, actorID string) ([]model.MovieActor, error) {
	return r.Where(ctx, pairQuery(movieID, actorID))
}

// Link inserts one join row.
func (r *MovieActorRepo) Link(ctx context.Context, movieID, actorID string) (*model.MovieActor, error) {
	return r.Insert(ctx, model.MovieActorInput{MovieID: movieID, ActorID: actorID})
}

// Unlink removes every join row for the (movieID, actorID) pair.
func (r *MovieActorRepo) Unlink(ctx context.Context, movieID, actorID string) error {
	return r.DeleteWhere(ctx, pairQuery(movieID, actorID))
}

// UnlinkAll removes every join row of movieID.
func (r *MovieActorRepo) UnlinkAll(ctx context.Context, movieID string) error {
	return r.DeleteWhere(ctx, postgrest.NewQuery().Eq("movie_id", movieID))
}

func pairQuery(movieID, actorID string) *postgrest.Query {
	return postgrest.NewQuery().Eq("movie_id", movieID).Eq("actor_id", actorID)
}
