package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/popcorn-palace/internal/lock"
	"github.com/iliyamo/popcorn-palace/internal/model"
	"github.com/iliyamo/popcorn-palace/internal/queue"
	"github.com/iliyamo/popcorn-palace/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingCreatedEvent
	err    error
}

func (p *recordingPublisher) PublishBookingCreated(_ context.Context, ev queue.BookingCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fixture struct {
	movies    *MovieService
	showtimes *ShowtimeService
	bookings  *BookingService
	events    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLocker(t, lock.NewKeyedMutex(time.Second))
}

func newFixtureWithLocker(t *testing.T, locker lock.Locker) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	events := &recordingPublisher{}
	movies := NewMovieService(store.Movies(), store, locker)
	showtimes := NewShowtimeService(store.Movies(), store.Showtimes(), store, locker)
	bookings := NewBookingService(showtimes, store.Bookings(), store, locker, events)
	return &fixture{movies: movies, showtimes: showtimes, bookings: bookings, events: events}
}

var evening = time.Date(2025, 3, 25, 18, 0, 0, 0, time.UTC)

func dune() model.MovieSpec {
	return model.MovieSpec{Title: "Dune", Genre: "Sci-Fi", Duration: 155, Rating: 8.5, ReleaseYear: 2021}
}

func (f *fixture) mustMovie(t *testing.T, spec model.MovieSpec) *model.Movie {
	t.Helper()
	m, err := f.movies.Create(context.Background(), spec)
	if err != nil {
		t.Fatalf("create movie %q: %v", spec.Title, err)
	}
	return m
}

func (f *fixture) mustShowtime(t *testing.T, movieID int64, theater string, from, to time.Duration) *model.Showtime {
	t.Helper()
	st, err := f.showtimes.Create(context.Background(), model.ShowtimeSpec{
		MovieID: movieID, Theater: theater, Price: 20, StartTime: evening.Add(from), EndTime: evening.Add(to),
	})
	if err != nil {
		t.Fatalf("create showtime %s %v-%v: %v", theater, from, to, err)
	}
	return st
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("got error %v, want %v", err, target)
	}
}

// Scenario A
func TestMovieCreate_DuplicateTitleConflicts(t *testing.T) {
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	if m.ID == 0 {
		t.Fatal("created movie has no id")
	}
	_, err := f.movies.Create(context.Background(), dune())
	wantErr(t, err, repository.ErrConflict)

	all, err := f.movies.ListAll(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAll = %v, %v; want one movie", all, err)
	}
}

func TestMovieUpdateByTitle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mustMovie(t, dune())
	f.mustMovie(t, model.MovieSpec{Title: "Arrival", Genre: "Sci-Fi", Duration: 116, Rating: 7.9, ReleaseYear: 2016})

	t.Run("missing", func(t *testing.T) {
		_, err := f.movies.UpdateByTitle(ctx, "Nope", dune())
		wantErr(t, err, repository.ErrNotFound)
	})
	t.Run("rename onto other title", func(t *testing.T) {
		spec := dune()
		spec.Title = "Arrival"
		_, err := f.movies.UpdateByTitle(ctx, "Dune", spec)
		wantErr(t, err, repository.ErrConflict)
	})
	t.Run("same title overwrites fields", func(t *testing.T) {
		spec := dune()
		spec.Rating = 0
		m, err := f.movies.UpdateByTitle(ctx, "Dune", spec)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		got, err := f.movies.FindByTitle(ctx, "Dune")
		if err != nil || got.Rating != 0 || got.ID != m.ID {
			t.Fatalf("FindByTitle = %+v, %v", got, err)
		}
	})
	t.Run("rename", func(t *testing.T) {
		spec := dune()
		spec.Title = "Dune: Part One"
		if _, err := f.movies.UpdateByTitle(ctx, "Dune", spec); err != nil {
			t.Fatalf("rename: %v", err)
		}
		if _, err := f.movies.FindByTitle(ctx, "Dune"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("old title still resolves: %v", err)
		}
		if _, err := f.movies.FindByTitle(ctx, "Dune: Part One"); err != nil {
			t.Errorf("new title: %v", err)
		}
	})
}

// Scenario B
func TestShowtimeCreate_OverlapRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	f.mustShowtime(t, m.ID, "Hall1", 0, 2*time.Hour)

	tests := []struct {
		name     string
		theater  string
		from, to time.Duration
		want     error
	}{
		{"overlapping", "Hall1", time.Hour, 3 * time.Hour, repository.ErrConflict},
		{"contained", "Hall1", 30 * time.Minute, 90 * time.Minute, repository.ErrConflict},
		{"other theater", "Hall2", time.Hour, 3 * time.Hour, nil},
		{"touching end", "Hall1", 2 * time.Hour, 4 * time.Hour, nil},
		{"touching start", "Hall1", -2 * time.Hour, 0, nil},
		{"start equals end", "Hall3", 0, 0, repository.ErrInvalidRange},
		{"start after end", "Hall3", time.Hour, 0, repository.ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.showtimes.Create(ctx, model.ShowtimeSpec{
				MovieID: m.ID, Theater: tt.theater, Price: 10, StartTime: evening.Add(tt.from), EndTime: evening.Add(tt.to),
			})
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			wantErr(t, err, tt.want)
		})
	}
}

func TestShowtimeCreate_ChecksMovieBeforeRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.showtimes.Create(context.Background(), model.ShowtimeSpec{
		MovieID: 42, Theater: "Hall1", StartTime: evening.Add(time.Hour), EndTime: evening,
	})
	wantErr(t, err, repository.ErrNotFound)
}

func TestShowtimeUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	a := f.mustShowtime(t, m.ID, "Hall1", 0, 2*time.Hour)
	f.mustShowtime(t, m.ID, "Hall1", 3*time.Hour, 5*time.Hour)

	spec := func(from, to time.Duration) model.ShowtimeSpec {
		return model.ShowtimeSpec{MovieID: m.ID, Theater: "Hall1", Price: 25, StartTime: evening.Add(from), EndTime: evening.Add(to)}
	}

	t.Run("missing showtime", func(t *testing.T) {
		_, err := f.showtimes.Update(ctx, 999, spec(0, time.Hour))
		wantErr(t, err, repository.ErrNotFound)
	})
	t.Run("missing movie", func(t *testing.T) {
		s := spec(0, time.Hour)
		s.MovieID = 999
		_, err := f.showtimes.Update(ctx, a.ID, s)
		wantErr(t, err, repository.ErrNotFound)
	})
	t.Run("invalid range", func(t *testing.T) {
		_, err := f.showtimes.Update(ctx, a.ID, spec(time.Hour, time.Hour))
		wantErr(t, err, repository.ErrInvalidRange)
	})
	t.Run("overlaps neighbour", func(t *testing.T) {
		_, err := f.showtimes.Update(ctx, a.ID, spec(time.Hour, 4*time.Hour))
		wantErr(t, err, repository.ErrConflict)
	})
	t.Run("shift within own window", func(t *testing.T) {
		got, err := f.showtimes.Update(ctx, a.ID, spec(30*time.Minute, 3*time.Hour))
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Price != 25 || !got.EndTime.Equal(evening.Add(3*time.Hour)) {
			t.Errorf("returned showtime not updated: %+v", got)
		}
		stored, _ := f.showtimes.FindByID(ctx, a.ID)
		if !stored.StartTime.Equal(evening.Add(30 * time.Minute)) {
			t.Errorf("stored start = %v", stored.StartTime)
		}
	})
}

func TestFindByID_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	st := f.mustShowtime(t, m.ID, "Hall1", 0, time.Hour)

	first, err1 := f.showtimes.FindByID(ctx, st.ID)
	second, err2 := f.showtimes.FindByID(ctx, st.ID)
	if err1 != nil || err2 != nil || *first != *second {
		t.Fatalf("FindByID not idempotent: %+v %v / %+v %v", first, err1, second, err2)
	}
}

// Scenario C
func TestBookingCreate_SeatRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	st := f.mustShowtime(t, m.ID, "Hall1", 0, 2*time.Hour)

	b, err := f.bookings.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: 5, UserID: "u1"})
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if b.ID == "" {
		t.Fatal("booking has no id")
	}

	_, err = f.bookings.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: 5, UserID: "u1"})
	wantErr(t, err, repository.ErrConflict)

	if _, err := f.bookings.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: 6, UserID: "u1"}); err != nil {
		t.Fatalf("other seat: %v", err)
	}

	_, err = f.bookings.Create(ctx, model.BookingSpec{ShowtimeID: 999, SeatNumber: 1, UserID: "u1"})
	wantErr(t, err, repository.ErrNotFound)

	seats, err := f.bookings.ListByShowtime(ctx, st.ID)
	if err != nil || len(seats) != 2 || seats[0].SeatNumber != 5 || seats[1].SeatNumber != 6 {
		t.Fatalf("ListByShowtime = %+v, %v", seats, err)
	}
	_, err = f.bookings.ListByShowtime(ctx, 999)
	wantErr(t, err, repository.ErrNotFound)

	if len(f.events.events) != 2 {
		t.Fatalf("published %d events, want 2", len(f.events.events))
	}
	ev := f.events.events[0]
	if ev.BookingID != b.ID || ev.Theater != "Hall1" || ev.SeatNumber != 5 || ev.MovieID != m.ID {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestBookingCreate_PublishFailureKeepsBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	m := f.mustMovie(t, dune())
	st := f.mustShowtime(t, m.ID, "Hall1", 0, time.Hour)

	b, err := f.bookings.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: 1, UserID: "u"})
	if err != nil {
		t.Fatalf("booking failed because of publisher: %v", err)
	}
	if _, err := f.bookings.FindByID(ctx, b.ID); err != nil {
		t.Errorf("booking not stored: %v", err)
	}
}

// Scenario D
func TestMovieDelete_Cascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	a := f.mustShowtime(t, m.ID, "Hall1", 0, 2*time.Hour)
	c := f.mustShowtime(t, m.ID, "Hall1", 2*time.Hour, 4*time.Hour)
	b, err := f.bookings.Create(ctx, model.BookingSpec{ShowtimeID: a.ID, SeatNumber: 5, UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.movies.DeleteByTitle(ctx, "Dune"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, id := range []int64{a.ID, c.ID} {
		_, err := f.showtimes.FindByID(ctx, id)
		wantErr(t, err, repository.ErrNotFound)
	}
	_, err = f.bookings.FindByID(ctx, b.ID)
	wantErr(t, err, repository.ErrNotFound)

	wantErr(t, f.movies.DeleteByTitle(ctx, "Dune"), repository.ErrNotFound)
}

func TestShowtimeDelete_RemovesBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	st := f.mustShowtime(t, m.ID, "Hall1", 0, time.Hour)
	b, _ := f.bookings.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: 1, UserID: "u"})

	if err := f.showtimes.Delete(ctx, st.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := f.bookings.FindByID(ctx, b.ID)
	wantErr(t, err, repository.ErrNotFound)
	wantErr(t, f.showtimes.Delete(ctx, st.ID), repository.ErrNotFound)
}

func TestBookingCreate_ParallelSameSeat(t *testing.T) {
	const n = 50
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	st := f.mustShowtime(t, m.ID, "Hall1", 0, time.Hour)

	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.bookings.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: 7, UserID: fmt.Sprintf("u%d", i)})
		}(i)
	}
	close(start)
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("successes=%d conflicts=%d, want 1 and %d", ok, conflicts, n-1)
	}
}

func TestShowtimeCreate_ParallelNeverOverlaps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())

	rng := rand.New(rand.NewSource(1))
	type window struct{ from, to time.Duration }
	windows := make([]window, 60)
	for i := range windows {
		from := time.Duration(rng.Intn(20*60)) * time.Minute
		windows[i] = window{from, from + time.Duration(30+rng.Intn(150))*time.Minute}
	}

	var wg sync.WaitGroup
	for _, w := range windows {
		wg.Add(1)
		go func(w window) {
			defer wg.Done()
			_, err := f.showtimes.Create(ctx, model.ShowtimeSpec{
				MovieID: m.ID, Theater: "Hall1", StartTime: evening.Add(w.from), EndTime: evening.Add(w.to),
			})
			if err != nil && !errors.Is(err, repository.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(w)
	}
	wg.Wait()

	list, err := f.showtimes.ListByTheater(ctx, "Hall1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) == 0 {
		t.Fatal("no showtime was created")
	}
	assertNoOverlap(t, "Hall1", list)
}

func assertNoOverlap(t *testing.T, theater string, list []model.Showtime) {
	t.Helper()
	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
	for i := 1; i < len(list); i++ {
		if list[i-1].EndTime.After(list[i].StartTime) {
			t.Fatalf("%s: showtimes %d and %d overlap", theater, list[i-1].ID, list[i].ID)
		}
	}
}

func TestShowtimeUpdate_ParallelMovesNeverOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.mustMovie(t, dune())
	theaters := []string{"Hall1", "Hall2", "Hall3"}

	// Back-to-back two-hour slots spread over the theaters.
	var ids []int64
	for i := 0; i < 12; i++ {
		from := time.Duration(i/len(theaters)) * 2 * time.Hour
		st := f.mustShowtime(t, m.ID, theaters[i%len(theaters)], from, from+2*time.Hour)
		ids = append(ids, st.ID)
	}

	rng := rand.New(rand.NewSource(7))
	type op struct {
		id      int64
		theater string
		from    time.Duration
		length  time.Duration
	}
	ops := make([]op, 120)
	for i := range ops {
		o := op{
			theater: theaters[rng.Intn(len(theaters))],
			from:    time.Duration(rng.Intn(10*60)) * time.Minute,
			length:  time.Duration(30+rng.Intn(120)) * time.Minute,
		}
		if i%2 == 0 {
			o.id = ids[rng.Intn(len(ids))]
		}
		ops[i] = o
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, o := range ops {
		wg.Add(1)
		go func(o op) {
			defer wg.Done()
			<-start
			spec := model.ShowtimeSpec{
				MovieID: m.ID, Theater: o.theater, Price: 12,
				StartTime: evening.Add(o.from), EndTime: evening.Add(o.from + o.length),
			}
			var err error
			if o.id != 0 {
				_, err = f.showtimes.Update(ctx, o.id, spec)
			} else {
				_, err = f.showtimes.Create(ctx, spec)
			}
			if err != nil && !errors.Is(err, repository.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(o)
	}
	close(start)
	wg.Wait()

	total := 0
	for _, theater := range theaters {
		list, err := f.showtimes.ListByTheater(ctx, theater)
		if err != nil {
			t.Fatal(err)
		}
		total += len(list)
		assertNoOverlap(t, theater, list)
	}
	if total < len(ids) {
		t.Fatalf("%d showtimes left, want at least %d", total, len(ids))
	}
}

// stalledPublisher blocks every publish until release is closed.
type stalledPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (p *stalledPublisher) PublishBookingCreated(context.Context, queue.BookingCreatedEvent) error {
	p.entered <- struct{}{}
	<-p.release
	return nil
}

func TestBookingCreate_SlowPublishDoesNotHoldSeat(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	locker := lock.NewKeyedMutex(200 * time.Millisecond)
	pub := &stalledPublisher{entered: make(chan struct{}, 4), release: make(chan struct{})}
	movies := NewMovieService(store.Movies(), store, locker)
	showtimes := NewShowtimeService(store.Movies(), store.Showtimes(), store, locker)
	bookings := NewBookingService(showtimes, store.Bookings(), store, locker, pub)
	defer close(pub.release)

	m, err := movies.Create(ctx, dune())
	if err != nil {
		t.Fatal(err)
	}
	st, err := showtimes.Create(ctx, model.ShowtimeSpec{
		MovieID: m.ID, Theater: "Hall1", Price: 20, StartTime: evening, EndTime: evening.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Seats 1 and 2 are booked; both requests stay stuck in publish.
	for _, seat := range []int{1, 2} {
		go func(seat int) {
			_, _ = bookings.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: seat, UserID: "u"})
		}(seat)
		select {
		case <-pub.entered:
		case <-time.After(2 * time.Second):
			t.Fatalf("seat %d never reached publish", seat)
		}
	}

	begin := time.Now()
	_, err = bookings.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: 2, UserID: "v"})
	wantErr(t, err, repository.ErrConflict)
	if d := time.Since(begin); d > 150*time.Millisecond {
		t.Fatalf("duplicate booking took %v", d)
	}
}

type timeoutLocker struct{}

func (timeoutLocker) Lock(context.Context, string) (func(), error) { return nil, lock.ErrTimeout }

func TestLockTimeoutIsUnavailable(t *testing.T) {
	f := newFixtureWithLocker(t, timeoutLocker{})
	_, err := f.movies.Create(context.Background(), dune())
	wantErr(t, err, repository.ErrUnavailable)
}
