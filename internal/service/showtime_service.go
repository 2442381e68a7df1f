package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/popcorn-palace/internal/lock"
	"github.com/iliyamo/popcorn-palace/internal/logging"
	"github.com/iliyamo/popcorn-palace/internal/metrics"
	"github.com/iliyamo/popcorn-palace/internal/model"
	"github.com/iliyamo/popcorn-palace/internal/repository"
)

// ShowtimeService schedules showtimes so that no two in one theater
// overlap.  The overlap check and the write that follows it run under the
// lock "theater:<name>" and inside one transaction.
type ShowtimeService struct {
	movies    MovieStore
	showtimes ShowtimeStore
	tx        Transactor
	locker    lock.Locker
	log       zerolog.Logger
}

// NewShowtimeService wires the scheduler.
func NewShowtimeService(movies MovieStore, showtimes ShowtimeStore, tx Transactor, locker lock.Locker) *ShowtimeService {
	return &ShowtimeService{
		movies:    movies,
		showtimes: showtimes,
		tx:        tx,
		locker:    locker,
		log:       logging.Component("scheduler"),
	}
}

// FindByID returns the showtime or ErrNotFound.
func (s *ShowtimeService) FindByID(ctx context.Context, id int64) (*model.Showtime, error) {
	return s.showtimes.GetByID(ctx, id)
}

// ListByTheater returns the theater's showtimes ordered by start time.
func (s *ShowtimeService) ListByTheater(ctx context.Context, theater string) ([]model.Showtime, error) {
	return s.showtimes.ListByTheater(ctx, theater)
}

// Create schedules a showtime.  The movie must exist, start must precede
// end and the window must not overlap another showtime in the theater.
func (s *ShowtimeService) Create(ctx context.Context, spec model.ShowtimeSpec) (out *model.Showtime, err error) {
	defer func() { record("showtime.create", err) }()

	if err := s.checkSpec(ctx, spec); err != nil {
		return nil, err
	}

	release, err := acquire(ctx, s.locker, "theater", spec.Theater)
	if err != nil {
		return nil, err
	}
	defer release()

	var st model.Showtime
	spec.Apply(&st)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, st, 0); err != nil {
			return err
		}
		return s.showtimes.Create(ctx, &st)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("showtime_id", st.ID).Str("theater", st.Theater).
		Time("start", st.StartTime).Time("end", st.EndTime).Msg("showtime created")
	return &st, nil
}

// Update overwrites every mutable field of showtime id.  The same rules as
// Create apply, except that the showtime never conflicts with itself.
func (s *ShowtimeService) Update(ctx context.Context, id int64, spec model.ShowtimeSpec) (out *model.Showtime, err error) {
	defer func() { record("showtime.update", err) }()

	existing, err := s.showtimes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkSpec(ctx, spec); err != nil {
		return nil, err
	}

	release, err := acquire(ctx, s.locker, "theater", spec.Theater)
	if err != nil {
		return nil, err
	}
	defer release()

	spec.Apply(existing)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, *existing, id); err != nil {
			return err
		}
		return s.showtimes.Update(ctx, existing)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("showtime_id", id).Str("theater", existing.Theater).Msg("showtime updated")
	return existing, nil
}

// Delete removes the showtime and its bookings.
func (s *ShowtimeService) Delete(ctx context.Context, id int64) (err error) {
	defer func() { record("showtime.delete", err) }()

	if err := s.showtimes.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("showtime_id", id).Msg("showtime deleted")
	return nil
}

// checkSpec resolves the movie, then validates the time range.
func (s *ShowtimeService) checkSpec(ctx context.Context, spec model.ShowtimeSpec) error {
	if _, err := s.movies.GetByID(ctx, spec.MovieID); err != nil {
		return err
	}
	if !spec.ValidRange() {
		return fmt.Errorf("%w: start time %s must be before end time %s",
			repository.ErrInvalidRange, spec.StartTime.Format(time.RFC3339), spec.EndTime.Format(time.RFC3339))
	}
	return nil
}

// ensureFree fails with ErrConflict when st's window overlaps another
// showtime in its theater.
func (s *ShowtimeService) ensureFree(ctx context.Context, st model.Showtime, excludeID int64) error {
	clash, err := s.showtimes.FindOverlapping(ctx, st.Theater, st.StartTime, st.EndTime, excludeID)
	if err != nil {
		return err
	}
	if len(clash) == 0 {
		return nil
	}
	metrics.RecordConflict("overlap")
	return fmt.Errorf("%w: theater %q is already booked by showtime %d", repository.ErrConflict, st.Theater, clash[0].ID)
}
