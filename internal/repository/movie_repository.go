package repository

import (
	"context"

	"github.com/iliyamo/movie-billboard/internal/model"
	"github.com/iliyamo/movie-billboard/internal/postgrest"
)

// Table names in the catalog store.
const (
	MoviesTable      = "movies"
	CategoriesTable  = "categories"
	ActorsTable      = "actors"
	MovieActorsTable = "movie_actors"
)

// movieDetailsSelect embeds the category (many-to-one) and the actors
// reached through movie_actors (one-to-many, then many-to-one).
const movieDetailsSelect = "*,categories(id,name),movie_actors(actors(id,name))"

// movieDetailsRow is the nested shape the store returns for
// movieDetailsSelect.
type movieDetailsRow struct {
	model.Movie
	Categories  *model.CategoryRef `json:"categories"`
	MovieActors []struct {
		Actors *model.ActorRef `json:"actors"`
	} `json:"movie_actors"`
}

// MovieRepo reads and writes movies. It embeds the generic table for the
// plain CRUD verbs and adds the aggregated read.
type MovieRepo struct {
	*Table[model.Movie]
}

// NewMovieRepo constructs a MovieRepo on the given client.
func NewMovieRepo(client *postgrest.Client) *MovieRepo {
	return &MovieRepo{Table: NewTable[model.Movie](client, MoviesTable)}
}

// ListDetails returns every movie with its category and actors, ordered
// by title ascending, using a single embedded read.
func (r *MovieRepo) ListDetails(ctx context.Context) ([]model.MovieDetails, error) {
	q := postgrest.NewQuery().
		Select(movieDetailsSelect).
		Order(postgrest.Asc("title"))

	var rows []movieDetailsRow
	if err := r.client.Select(ctx, r.name, q, &rows); err != nil {
		return nil, translate(err)
	}
	return flattenDetails(rows), nil
}

// flattenDetails reshapes the nested store rows into MovieDetails. Join
// rows whose actor no longer resolves are skipped.
func flattenDetails(rows []movieDetailsRow) []model.MovieDetails {
	out := make([]model.MovieDetails, 0, len(rows))
	for _, row := range rows {
		d := model.MovieDetails{
			Movie:    row.Movie,
			Category: row.Categories,
			Actors:   make([]model.ActorRef, 0, len(row.MovieActors)),
		}
		for _, ma := range row.MovieActors {
			if ma.Actors != nil {
				d.Actors = append(d.Actors, *ma.Actors)
			}
		}
		out = append(out, d)
	}
	return out
}
