package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/popcorn-palace/internal/lock"
	"github.com/iliyamo/popcorn-palace/internal/logging"
	"github.com/iliyamo/popcorn-palace/internal/metrics"
	"github.com/iliyamo/popcorn-palace/internal/model"
	"github.com/iliyamo/popcorn-palace/internal/queue"
	"github.com/iliyamo/popcorn-palace/internal/repository"
)

// BookingService is the seat ledger.  A seat of a showtime can be booked
// once; the availability check and the insert run under the lock
// "seat:<showtime>:<seat>".
type BookingService struct {
	showtimes *ShowtimeService
	bookings  BookingStore
	tx        Transactor
	locker    lock.Locker
	events    EventPublisher
	log       zerolog.Logger
}

// NewBookingService wires the ledger.  events may be nil.
func NewBookingService(showtimes *ShowtimeService, bookings BookingStore, tx Transactor, locker lock.Locker, events EventPublisher) *BookingService {
	if events == nil {
		events = queue.NoopPublisher{}
	}
	return &BookingService{
		showtimes: showtimes,
		bookings:  bookings,
		tx:        tx,
		locker:    locker,
		events:    events,
		log:       logging.Component("ledger"),
	}
}

// FindByID returns the booking or ErrNotFound.
func (s *BookingService) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// ListByShowtime returns the showtime's bookings ordered by seat number.
// ErrNotFound when the showtime does not exist.
func (s *BookingService) ListByShowtime(ctx context.Context, showtimeID int64) ([]model.Booking, error) {
	if _, err := s.showtimes.FindByID(ctx, showtimeID); err != nil {
		return nil, err
	}
	return s.bookings.ListByShowtime(ctx, showtimeID)
}

// Create books a seat.  ErrNotFound when the showtime does not exist,
// ErrConflict when the seat is already taken.
func (s *BookingService) Create(ctx context.Context, spec model.BookingSpec) (out *model.Booking, err error) {
	defer func() { record("booking.create", err) }()

	st, err := s.showtimes.FindByID(ctx, spec.ShowtimeID)
	if err != nil {
		return nil, err
	}

	b, err := s.reserve(ctx, spec)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("booking_id", b.ID).Int64("showtime_id", b.ShowtimeID).Int("seat", b.SeatNumber).Msg("seat booked")
	s.publish(ctx, *b, st)
	return b, nil
}

// reserve checks and inserts the seat under its lock.  The lock is released
// when the transaction has committed, before any event is published.
func (s *BookingService) reserve(ctx context.Context, spec model.BookingSpec) (*model.Booking, error) {
	release, err := acquire(ctx, s.locker, "seat", strconv.FormatInt(spec.ShowtimeID, 10)+":"+strconv.Itoa(spec.SeatNumber))
	if err != nil {
		return nil, err
	}
	defer release()

	b := model.Booking{
		ID:         uuid.NewString(),
		ShowtimeID: spec.ShowtimeID,
		SeatNumber: spec.SeatNumber,
		UserID:     spec.UserID,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		_, err := s.bookings.FindBySeat(ctx, spec.ShowtimeID, spec.SeatNumber)
		switch {
		case err == nil:
			metrics.RecordConflict("seat_taken")
			return fmt.Errorf("%w: seat %d of showtime %d is already taken", repository.ErrConflict, spec.SeatNumber, spec.ShowtimeID)
		case !isNotFound(err):
			return err
		}
		return s.bookings.Create(ctx, &b)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// publish sends booking.created.  Errors are logged only.
func (s *BookingService) publish(ctx context.Context, b model.Booking, st *model.Showtime) {
	ev := queue.BookingCreatedEvent{
		BookingID:  b.ID,
		ShowtimeID: b.ShowtimeID,
		MovieID:    st.MovieID,
		Theater:    st.Theater,
		SeatNumber: b.SeatNumber,
		UserID:     b.UserID,
		StartTime:  st.StartTime.Format(time.RFC3339),
		EndTime:    st.EndTime.Format(time.RFC3339),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishBookingCreated(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn().Err(err).Str("booking_id", b.ID).Msg("publish booking.created failed")
	}
}
