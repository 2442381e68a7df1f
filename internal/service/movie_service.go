package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iliyamo/popcorn-palace/internal/lock"
	"github.com/iliyamo/popcorn-palace/internal/logging"
	"github.com/iliyamo/popcorn-palace/internal/metrics"
	"github.com/iliyamo/popcorn-palace/internal/model"
	"github.com/iliyamo/popcorn-palace/internal/repository"
)

// MovieService is the movie catalog.  Titles are unique; creates and
// renames hold the lock "movie:<title>" for every title they claim.
type MovieService struct {
	movies MovieStore
	tx     Transactor
	locker lock.Locker
	log    zerolog.Logger
}

// NewMovieService wires the catalog to its store.
func NewMovieService(movies MovieStore, tx Transactor, locker lock.Locker) *MovieService {
	return &MovieService{movies: movies, tx: tx, locker: locker, log: logging.Component("catalog")}
}

// ListAll returns every movie.
func (s *MovieService) ListAll(ctx context.Context) ([]model.Movie, error) {
	return s.movies.List(ctx)
}

// FindByTitle returns the movie with title or ErrNotFound.
func (s *MovieService) FindByTitle(ctx context.Context, title string) (*model.Movie, error) {
	return s.movies.GetByTitle(ctx, title)
}

// FindByID returns the movie with id or ErrNotFound.
func (s *MovieService) FindByID(ctx context.Context, id int64) (*model.Movie, error) {
	return s.movies.GetByID(ctx, id)
}

// Create adds a movie.  A movie with the same title yields ErrConflict.
func (s *MovieService) Create(ctx context.Context, spec model.MovieSpec) (out *model.Movie, err error) {
	defer func() { record("movie.create", err) }()

	release, err := acquire(ctx, s.locker, "movie", spec.Title)
	if err != nil {
		return nil, err
	}
	defer release()

	var m model.Movie
	spec.Apply(&m)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ensureTitleFree(ctx, spec.Title, 0); err != nil {
			return err
		}
		return s.movies.Create(ctx, &m)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("movie_id", m.ID).Str("title", m.Title).Msg("movie created")
	return &m, nil
}

// UpdateByTitle overwrites every field of the movie currently called
// title.  ErrNotFound when there is none; ErrConflict when spec renames
// it onto a title another movie owns.
func (s *MovieService) UpdateByTitle(ctx context.Context, title string, spec model.MovieSpec) (out *model.Movie, err error) {
	defer func() { record("movie.update", err) }()

	release, err := acquireAll(ctx, s.locker, "movie", title, spec.Title)
	if err != nil {
		return nil, err
	}
	defer release()

	var m *model.Movie
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.movies.GetByTitle(ctx, title)
		if err != nil {
			return err
		}
		if spec.Title != existing.Title {
			if err := s.ensureTitleFree(ctx, spec.Title, existing.ID); err != nil {
				return err
			}
		}
		spec.Apply(existing)
		m = existing
		return s.movies.Update(ctx, existing)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("movie_id", m.ID).Str("title", m.Title).Msg("movie updated")
	return m, nil
}

// DeleteByTitle removes the movie and, by cascade, its showtimes and
// their bookings.
func (s *MovieService) DeleteByTitle(ctx context.Context, title string) (err error) {
	defer func() { record("movie.delete", err) }()

	m, err := s.movies.GetByTitle(ctx, title)
	if err != nil {
		return err
	}
	if err := s.movies.Delete(ctx, m.ID); err != nil {
		return err
	}
	s.log.Info().Int64("movie_id", m.ID).Str("title", title).Msg("movie deleted")
	return nil
}

// ensureTitleFree fails with ErrConflict if a movie other than selfID owns title.
func (s *MovieService) ensureTitleFree(ctx context.Context, title string, selfID int64) error {
	other, err := s.movies.GetByTitle(ctx, title)
	switch {
	case isNotFound(err):
		return nil
	case err != nil:
		return err
	case other.ID == selfID:
		return nil
	}
	metrics.RecordConflict("title_taken")
	return fmt.Errorf("%w: movie %q already exists", repository.ErrConflict, title)
}
