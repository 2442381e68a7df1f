// Package service implements the catalog, scheduler and ledger.  Each
// service depends only on the small store interfaces below so that the
// MySQL repositories and the in-memory store are interchangeable.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/popcorn-palace/internal/model"
	"github.com/iliyamo/popcorn-palace/internal/queue"
)

// MovieStore persists movies.  Lookups return repository.ErrNotFound when
// nothing matches; writes that break title uniqueness return
// repository.ErrConflict.
type MovieStore interface {
	List(ctx context.Context) ([]model.Movie, error)
	GetByID(ctx context.Context, id int64) (*model.Movie, error)
	GetByTitle(ctx context.Context, title string) (*model.Movie, error)
	Create(ctx context.Context, m *model.Movie) error
	Update(ctx context.Context, m *model.Movie) error
	Delete(ctx context.Context, id int64) error
}

// ShowtimeStore persists showtimes.  FindOverlapping returns every
// showtime in theater whose window intersects [start, end), ignoring
// excludeID.
type ShowtimeStore interface {
	GetByID(ctx context.Context, id int64) (*model.Showtime, error)
	ListByTheater(ctx context.Context, theater string) ([]model.Showtime, error)
	FindOverlapping(ctx context.Context, theater string, start, end time.Time, excludeID int64) ([]model.Showtime, error)
	Create(ctx context.Context, s *model.Showtime) error
	Update(ctx context.Context, s *model.Showtime) error
	Delete(ctx context.Context, id int64) error
}

// BookingStore persists bookings.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	FindBySeat(ctx context.Context, showtimeID int64, seat int) (*model.Booking, error)
	ListByShowtime(ctx context.Context, showtimeID int64) ([]model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
}

// Transactor runs fn as one unit of work.  Store calls made with the ctx
// passed to fn take part in the same transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher delivers booking events.  Failures never undo a booking.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error
}
