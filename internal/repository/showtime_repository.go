package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/popcorn-palace/internal/model"
)

const showtimeColumns = `id, movie_id, theater, price, start_time, end_time`

// ShowtimeRepo manages persistence for showtimes.  Times are stored as
// UTC DATETIME(6) values.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// GetByID retrieves a showtime by its ID.  It returns ErrNotFound if there
// is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id int64) (*model.Showtime, error) {
	var s model.Showtime
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+showtimeColumns+` FROM showtimes WHERE id = ?`, id).
		Scan(&s.ID, &s.MovieID, &s.Theater, &s.Price, &s.StartTime, &s.EndTime)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("showtime %d", id))
	}
	return &s, nil
}

// ListByTheater returns all showtimes of a theater ordered by start time.
func (r *ShowtimeRepo) ListByTheater(ctx context.Context, theater string) ([]model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE theater = ? ORDER BY start_time ASC`
	return r.query(ctx, "list showtimes", q, theater)
}

// FindOverlapping finds all showtimes in the theater whose window overlaps
// [start, end).  A showtime overlaps when it starts before the proposed
// end and ends after the proposed start, so touching windows are not
// returned.  A non-zero excludeID removes that showtime from the result,
// which lets an update ignore the record being changed.  Inside a
// transaction the scan takes locks on the matching index range.
func (r *ShowtimeRepo) FindOverlapping(ctx context.Context, theater string, start, end time.Time, excludeID int64) ([]model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + `
               FROM showtimes
               WHERE theater = ? AND id <> ? AND start_time < ? AND end_time > ?
               ORDER BY start_time ASC
               FOR UPDATE`
	return r.query(ctx, "find overlapping showtimes", q, theater, excludeID, end.UTC(), start.UTC())
}

func (r *ShowtimeRepo) query(ctx context.Context, what, q string, args ...any) ([]model.Showtime, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate(err, what)
	}
	defer rows.Close()
	result := make([]model.Showtime, 0)
	for rows.Next() {
		var s model.Showtime
		if err := rows.Scan(&s.ID, &s.MovieID, &s.Theater, &s.Price, &s.StartTime, &s.EndTime); err != nil {
			return nil, translate(err, what)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, what)
	}
	return result, nil
}

// Create inserts a new showtime and assigns the generated ID back to s.
// A movie that vanished concurrently surfaces as ErrNotFound through the
// foreign key.
func (r *ShowtimeRepo) Create(ctx context.Context, s *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_id, theater, price, start_time, end_time) VALUES (?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, s.MovieID, s.Theater, s.Price, s.StartTime.UTC(), s.EndTime.UTC())
	if err != nil {
		return translate(err, fmt.Sprintf("showtime for movie %d", s.MovieID))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate(err, "showtime insert id")
	}
	s.ID = id
	return nil
}

// Update overwrites every mutable column of the showtime identified by s.ID.
func (r *ShowtimeRepo) Update(ctx context.Context, s *model.Showtime) error {
	const q = `UPDATE showtimes SET movie_id = ?, theater = ?, price = ?, start_time = ?, end_time = ? WHERE id = ?`
	return execAffected(ctx, conn(ctx, r.db), fmt.Sprintf("showtime %d", s.ID), q,
		s.MovieID, s.Theater, s.Price, s.StartTime.UTC(), s.EndTime.UTC(), s.ID)
}

// Delete removes the showtime; its bookings are removed by the cascading
// foreign key.
func (r *ShowtimeRepo) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, conn(ctx, r.db), fmt.Sprintf("showtime %d", id), `DELETE FROM showtimes WHERE id = ?`, id)
}
