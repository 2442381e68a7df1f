package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/popcorn-palace/internal/model"
)

const bookingColumns = `id, showtime_id, seat_number, user_id`

// BookingRepo stores bookings.  The unique key on (showtime_id,
// seat_number) guarantees that a seat is booked at most once even when
// two requests pass the availability check at the same time.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// GetByID returns the booking with the given token or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return r.getOne(ctx, fmt.Sprintf("booking %s", id), `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

// FindBySeat returns the booking holding the seat for the showtime, or
// ErrNotFound when the seat is free.
func (r *BookingRepo) FindBySeat(ctx context.Context, showtimeID int64, seat int) (*model.Booking, error) {
	return r.getOne(ctx, fmt.Sprintf("seat %d of showtime %d", seat, showtimeID),
		`SELECT `+bookingColumns+` FROM bookings WHERE showtime_id = ? AND seat_number = ?`, showtimeID, seat)
}

func (r *BookingRepo) getOne(ctx context.Context, what, query string, args ...any) (*model.Booking, error) {
	var b model.Booking
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.ShowtimeID, &b.SeatNumber, &b.UserID); err != nil {
		return nil, translate(err, what)
	}
	return &b, nil
}

// ListByShowtime returns every booking of a showtime ordered by seat.
func (r *BookingRepo) ListByShowtime(ctx context.Context, showtimeID int64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE showtime_id = ? ORDER BY seat_number`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, translate(err, "list bookings")
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.ShowtimeID, &b.SeatNumber, &b.UserID); err != nil {
			return nil, translate(err, "list bookings")
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list bookings")
	}
	return bookings, nil
}

// Create inserts the booking.  The caller supplies the token in b.ID.  A
// duplicate seat is reported as ErrConflict and a showtime deleted in the
// meantime as ErrNotFound.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, showtime_id, seat_number, user_id) VALUES (?, ?, ?, ?)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, b.ID, b.ShowtimeID, b.SeatNumber, b.UserID)
	return translate(err, fmt.Sprintf("seat %d of showtime %d", b.SeatNumber, b.ShowtimeID))
}
