package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/popcorn-palace/internal/model"
)

// MemoryStore keeps movies, showtimes and bookings in process memory.  It
// enforces the same constraints as the MySQL schema: unique titles,
// unique (showtime, seat) pairs, existing parents on insert and cascading
// deletes.  It backs STORE=memory and the test suites.
type MemoryStore struct {
	mu           sync.RWMutex
	movies       map[int64]model.Movie
	showtimes    map[int64]model.Showtime
	bookings     map[string]model.Booking
	nextMovie    int64
	nextShowtime int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		movies:    make(map[int64]model.Movie),
		showtimes: make(map[int64]model.Showtime),
		bookings:  make(map[string]model.Booking),
	}
}

// InTx runs fn directly.  Every individual store call is atomic; callers
// serialize multi-step sequences with a lock.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Movies returns the movie view of the store.
func (s *MemoryStore) Movies() *MemoryMovies { return &MemoryMovies{s: s} }

// Showtimes returns the showtime view of the store.
func (s *MemoryStore) Showtimes() *MemoryShowtimes { return &MemoryShowtimes{s: s} }

// Bookings returns the booking view of the store.
func (s *MemoryStore) Bookings() *MemoryBookings { return &MemoryBookings{s: s} }

// deleteShowtimeLocked removes a showtime and its bookings; s.mu must be held.
func (s *MemoryStore) deleteShowtimeLocked(id int64) {
	delete(s.showtimes, id)
	for key, b := range s.bookings {
		if b.ShowtimeID == id {
			delete(s.bookings, key)
		}
	}
}

// MemoryMovies implements the movie store over a MemoryStore.
type MemoryMovies struct{ s *MemoryStore }

// List returns every movie ordered by id.
func (m *MemoryMovies) List(ctx context.Context) ([]model.Movie, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]model.Movie, 0, len(m.s.movies))
	for _, mv := range m.s.movies {
		out = append(out, mv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByID returns the movie or ErrNotFound.
func (m *MemoryMovies) GetByID(ctx context.Context, id int64) (*model.Movie, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	mv, ok := m.s.movies[id]
	if !ok {
		return nil, fmt.Errorf("%w: movie %d", ErrNotFound, id)
	}
	return &mv, nil
}

// GetByTitle returns the movie with the title or ErrNotFound.
func (m *MemoryMovies) GetByTitle(ctx context.Context, title string) (*model.Movie, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if mv, ok := m.findTitleLocked(title); ok {
		return &mv, nil
	}
	return nil, fmt.Errorf("%w: movie %q", ErrNotFound, title)
}

func (m *MemoryMovies) findTitleLocked(title string) (model.Movie, bool) {
	for _, mv := range m.s.movies {
		if mv.Title == title {
			return mv, true
		}
	}
	return model.Movie{}, false
}

// Create inserts the movie and assigns its id.  A duplicate title is
// reported as ErrConflict.
func (m *MemoryMovies) Create(ctx context.Context, mv *model.Movie) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.findTitleLocked(mv.Title); ok {
		return fmt.Errorf("%w: movie %q", ErrConflict, mv.Title)
	}
	m.s.nextMovie++
	mv.ID = m.s.nextMovie
	m.s.movies[mv.ID] = *mv
	return nil
}

// Update overwrites the movie identified by mv.ID.
func (m *MemoryMovies) Update(ctx context.Context, mv *model.Movie) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.movies[mv.ID]; !ok {
		return fmt.Errorf("%w: movie %d", ErrNotFound, mv.ID)
	}
	if other, ok := m.findTitleLocked(mv.Title); ok && other.ID != mv.ID {
		return fmt.Errorf("%w: movie %q", ErrConflict, mv.Title)
	}
	m.s.movies[mv.ID] = *mv
	return nil
}

// Delete removes the movie together with its showtimes and their bookings.
func (m *MemoryMovies) Delete(ctx context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.movies[id]; !ok {
		return fmt.Errorf("%w: movie %d", ErrNotFound, id)
	}
	delete(m.s.movies, id)
	for sid, st := range m.s.showtimes {
		if st.MovieID == id {
			m.s.deleteShowtimeLocked(sid)
		}
	}
	return nil
}

// MemoryShowtimes implements the showtime store over a MemoryStore.
type MemoryShowtimes struct{ s *MemoryStore }

// GetByID returns the showtime or ErrNotFound.
func (m *MemoryShowtimes) GetByID(ctx context.Context, id int64) (*model.Showtime, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	st, ok := m.s.showtimes[id]
	if !ok {
		return nil, fmt.Errorf("%w: showtime %d", ErrNotFound, id)
	}
	return &st, nil
}

// ListByTheater returns the theater's showtimes ordered by start time.
func (m *MemoryShowtimes) ListByTheater(ctx context.Context, theater string) ([]model.Showtime, error) {
	return m.filter(func(st model.Showtime) bool { return st.Theater == theater }), nil
}

// FindOverlapping scans the theater's showtimes for windows intersecting
// [start, end), skipping excludeID.
func (m *MemoryShowtimes) FindOverlapping(ctx context.Context, theater string, start, end time.Time, excludeID int64) ([]model.Showtime, error) {
	return m.filter(func(st model.Showtime) bool {
		return st.Theater == theater && st.ID != excludeID && st.Overlaps(start, end)
	}), nil
}

func (m *MemoryShowtimes) filter(keep func(model.Showtime) bool) []model.Showtime {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]model.Showtime, 0)
	for _, st := range m.s.showtimes {
		if keep(st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// Create inserts the showtime after checking that its movie exists.
func (m *MemoryShowtimes) Create(ctx context.Context, st *model.Showtime) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.movies[st.MovieID]; !ok {
		return fmt.Errorf("%w: movie %d", ErrNotFound, st.MovieID)
	}
	m.s.nextShowtime++
	st.ID = m.s.nextShowtime
	m.s.showtimes[st.ID] = *st
	return nil
}

// Update overwrites the showtime identified by st.ID.
func (m *MemoryShowtimes) Update(ctx context.Context, st *model.Showtime) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.showtimes[st.ID]; !ok {
		return fmt.Errorf("%w: showtime %d", ErrNotFound, st.ID)
	}
	if _, ok := m.s.movies[st.MovieID]; !ok {
		return fmt.Errorf("%w: movie %d", ErrNotFound, st.MovieID)
	}
	m.s.showtimes[st.ID] = *st
	return nil
}

// Delete removes the showtime and its bookings.
func (m *MemoryShowtimes) Delete(ctx context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.showtimes[id]; !ok {
		return fmt.Errorf("%w: showtime %d", ErrNotFound, id)
	}
	m.s.deleteShowtimeLocked(id)
	return nil
}

// MemoryBookings implements the booking store over a MemoryStore.
type MemoryBookings struct{ s *MemoryStore }

// GetByID returns the booking or ErrNotFound.
func (m *MemoryBookings) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	b, ok := m.s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	return &b, nil
}

// FindBySeat returns the booking holding the seat or ErrNotFound.
func (m *MemoryBookings) FindBySeat(ctx context.Context, showtimeID int64, seat int) (*model.Booking, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if b, ok := m.findSeatLocked(showtimeID, seat); ok {
		return &b, nil
	}
	return nil, fmt.Errorf("%w: seat %d of showtime %d", ErrNotFound, seat, showtimeID)
}

func (m *MemoryBookings) findSeatLocked(showtimeID int64, seat int) (model.Booking, bool) {
	for _, b := range m.s.bookings {
		if b.ShowtimeID == showtimeID && b.SeatNumber == seat {
			return b, true
		}
	}
	return model.Booking{}, false
}

// ListByShowtime returns the showtime's bookings ordered by seat.
func (m *MemoryBookings) ListByShowtime(ctx context.Context, showtimeID int64) ([]model.Booking, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range m.s.bookings {
		if b.ShowtimeID == showtimeID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

// Create inserts the booking.  A missing showtime is ErrNotFound and a
// seat that is already taken, or a reused token, is ErrConflict.
func (m *MemoryBookings) Create(ctx context.Context, b *model.Booking) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.showtimes[b.ShowtimeID]; !ok {
		return fmt.Errorf("%w: showtime %d", ErrNotFound, b.ShowtimeID)
	}
	if _, ok := m.findSeatLocked(b.ShowtimeID, b.SeatNumber); ok {
		return fmt.Errorf("%w: seat %d of showtime %d", ErrConflict, b.SeatNumber, b.ShowtimeID)
	}
	if _, ok := m.s.bookings[b.ID]; ok {
		return fmt.Errorf("%w: booking %s", ErrConflict, b.ID)
	}
	m.s.bookings[b.ID] = *b
	return nil
}
