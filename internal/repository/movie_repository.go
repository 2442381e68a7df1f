package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/popcorn-palace/internal/model"
)

const movieColumns = `id, title, genre, duration, rating, release_year`

// MovieRepo manages persistence for movies.  Deleting a movie relies on
// the ON DELETE CASCADE foreign keys of showtimes and bookings.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// List returns every movie ordered by id.  It returns an empty slice when
// the catalog is empty.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY id`)
	if err != nil {
		return nil, translate(err, "list movies")
	}
	defer rows.Close()
	movies := make([]model.Movie, 0)
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Genre, &m.Duration, &m.Rating, &m.ReleaseYear); err != nil {
			return nil, translate(err, "scan movie")
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list movies")
	}
	return movies, nil
}

// GetByID retrieves a movie by its ID.  It returns ErrNotFound if there is
// no matching row.
func (r *MovieRepo) GetByID(ctx context.Context, id int64) (*model.Movie, error) {
	return r.getOne(ctx, fmt.Sprintf("movie %d", id), `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
}

// GetByTitle retrieves a movie by its unique title.
func (r *MovieRepo) GetByTitle(ctx context.Context, title string) (*model.Movie, error) {
	return r.getOne(ctx, fmt.Sprintf("movie %q", title), `SELECT `+movieColumns+` FROM movies WHERE title = ?`, title)
}

func (r *MovieRepo) getOne(ctx context.Context, what, query string, arg any) (*model.Movie, error) {
	var m model.Movie
	err := conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(&m.ID, &m.Title, &m.Genre, &m.Duration, &m.Rating, &m.ReleaseYear)
	if err != nil {
		return nil, translate(err, what)
	}
	return &m, nil
}

// Create inserts a new movie and assigns the generated ID back to m.  A
// duplicate title is reported as ErrConflict by the unique key.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (title, genre, duration, rating, release_year) VALUES (?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, m.Title, m.Genre, m.Duration, m.Rating, m.ReleaseYear)
	if err != nil {
		return translate(err, fmt.Sprintf("movie %q", m.Title))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate(err, "movie insert id")
	}
	m.ID = id
	return nil
}

// Update overwrites every mutable column of the movie identified by m.ID.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies SET title = ?, genre = ?, duration = ?, rating = ?, release_year = ? WHERE id = ?`
	return execAffected(ctx, conn(ctx, r.db), fmt.Sprintf("movie %d", m.ID), q,
		m.Title, m.Genre, m.Duration, m.Rating, m.ReleaseYear, m.ID)
}

// Delete removes the movie; its showtimes and their bookings are removed
// by the cascading foreign keys.
func (r *MovieRepo) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, conn(ctx, r.db), fmt.Sprintf("movie %d", id), `DELETE FROM movies WHERE id = ?`, id)
}
