package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/metrics"
	"github.com/iliyamo/movie-billboard/internal/model"
	"github.com/iliyamo/movie-billboard/internal/postgrest"
	"github.com/iliyamo/movie-billboard/internal/queue"
	"github.com/iliyamo/movie-billboard/internal/repository"
)

// Catalog groups the per-entity resources with the operations that span
// several tables. The store has no transactions, so multi-step operations
// run their steps in a fixed order and stop at the first failure.
type Catalog struct {
	Movies     *Resource[model.Movie, model.MovieInput]
	Categories *Resource[model.Category, model.CategoryInput]
	Actors     *Resource[model.Actor, model.ActorInput]

	movies *repository.MovieRepo
	cast   *repository.MovieActorRepo
	log    *zap.Logger
	events Publisher
}

// NewCatalog wires the catalog onto a store client. A nil logger discards
// logs and a nil publisher drops events.
func NewCatalog(client *postgrest.Client, logger *zap.Logger, events Publisher) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	logger = logger.Named("catalog")
	movies := repository.NewMovieRepo(client)

	return &Catalog{
		Movies:     newResource[model.Movie, model.MovieInput](movies.Table, model.EntityMovie, logger, events),
		Categories: newResource[model.Category, model.CategoryInput](repository.NewTable[model.Category](client, repository.CategoriesTable), model.EntityCategory, logger, events),
		Actors:     newResource[model.Actor, model.ActorInput](repository.NewTable[model.Actor](client, repository.ActorsTable), model.EntityActor, logger, events),
		movies:     movies,
		cast:       repository.NewMovieActorRepo(client),
		log:        logger,
		events:     events,
	}
}

// AggregatedMovies returns every movie with its category and actors,
// ordered by title. It returns an empty slice when the store fails.
func (c *Catalog) AggregatedMovies(ctx context.Context) []model.MovieDetails {
	details, err := c.movies.ListDetails(ctx)
	if err != nil {
		c.fail("movie.aggregate", err)
		return []model.MovieDetails{}
	}
	return details
}

// ActorsByMovie returns the actors linked to movieID, or an empty slice.
func (c *Catalog) ActorsByMovie(ctx context.Context, movieID string) []model.ActorRef {
	actors, err := c.cast.ActorsByMovie(ctx, movieID)
	if err != nil {
		c.fail("movie_actor.list", err, zap.String("movie_id", movieID))
		return []model.ActorRef{}
	}
	return actors
}

// DeleteMovieCascade unlinks every actor from the movie and then deletes
// it. The movie is only deleted if the unlink succeeded. If the second
// step fails the movie stays, without actors; nothing is restored.
func (c *Catalog) DeleteMovieCascade(ctx context.Context, movieID string) bool {
	if err := c.cast.UnlinkAll(ctx, movieID); err != nil {
		c.fail("movie.cascade_unlink", err, zap.String("movie_id", movieID))
		return false
	}
	if err := c.movies.Delete(ctx, movieID); err != nil {
		c.fail("movie.cascade_delete", err,
			zap.String("movie_id", movieID),
			zap.Bool("actors_unlinked", true))
		return false
	}
	c.publish(ctx, model.CatalogEvent{Type: model.EventDeleted, Entity: model.EntityMovie, EntityID: movieID, MovieID: movieID})
	return true
}

// AddActorToMovie links actorID to movieID. An existing link for the
// pair is returned as is. If the existing links cannot be read nothing is
// inserted and nil is returned.
func (c *Catalog) AddActorToMovie(ctx context.Context, movieID, actorID string) *model.MovieActor {
	fields := []zap.Field{zap.String("movie_id", movieID), zap.String("actor_id", actorID)}

	existing, err := c.cast.FindPair(ctx, movieID, actorID)
	if err != nil {
		c.fail("movie_actor.find", err, fields...)
		return nil
	}
	if len(existing) > 0 {
		c.log.Debug("actor already linked", fields...)
		return &existing[0]
	}

	link, err := c.cast.Link(ctx, movieID, actorID)
	if err != nil {
		c.fail("movie_actor.create", err, fields...)
		return nil
	}
	c.publish(ctx, model.CatalogEvent{Type: model.EventLinked, Entity: model.EntityMovieActor, EntityID: link.ID, MovieID: movieID, ActorID: actorID})
	return link
}

// RemoveActorFromMovie deletes every link between movieID and actorID.
func (c *Catalog) RemoveActorFromMovie(ctx context.Context, movieID, actorID string) bool {
	if err := c.cast.Unlink(ctx, movieID, actorID); err != nil {
		c.fail("movie_actor.delete", err, zap.String("movie_id", movieID), zap.String("actor_id", actorID))
		return false
	}
	c.publish(ctx, model.CatalogEvent{Type: model.EventUnlinked, Entity: model.EntityMovieActor, MovieID: movieID, ActorID: actorID})
	return true
}

// RemoveAllActorsFromMovie deletes every link of movieID.
func (c *Catalog) RemoveAllActorsFromMovie(ctx context.Context, movieID string) bool {
	if err := c.cast.UnlinkAll(ctx, movieID); err != nil {
		c.fail("movie_actor.delete_all", err, zap.String("movie_id", movieID))
		return false
	}
	c.publish(ctx, model.CatalogEvent{Type: model.EventUnlinked, Entity: model.EntityMovieActor, MovieID: movieID})
	return true
}

// CastNewActor creates an actor and links it to movieID. It returns
// (nil, nil) when the actor could not be created and (actor, nil) when
// only the link failed; the new actor is kept in that case.
func (c *Catalog) CastNewActor(ctx context.Context, movieID string, in model.ActorInput) (*model.Actor, *model.MovieActor) {
	actor := c.Actors.Create(ctx, in)
	if actor == nil {
		return nil, nil
	}
	return actor, c.AddActorToMovie(ctx, movieID, actor.ID)
}

func (c *Catalog) fail(op string, err error, fields ...zap.Field) {
	metrics.CatalogFailuresTotal.WithLabelValues(op).Inc()
	c.log.Error("catalog operation failed", append(fields, zap.String("operation", op), zap.Error(err))...)
}

func (c *Catalog) publish(ctx context.Context, ev model.CatalogEvent) {
	publish(ctx, c.events, c.log, ev)
}
