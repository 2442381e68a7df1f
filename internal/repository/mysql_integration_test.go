//go:build integration

package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/popcorn-palace/internal/lock"
	"github.com/iliyamo/popcorn-palace/internal/model"
	"github.com/iliyamo/popcorn-palace/internal/repository"
	"github.com/iliyamo/popcorn-palace/internal/service"
	"github.com/iliyamo/popcorn-palace/internal/testinfra"
)

func TestMySQLStores(t *testing.T) {
	db := testinfra.MySQL(t)
	ctx := context.Background()

	movies := repository.NewMovieRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	bookings := repository.NewBookingRepo(db)
	tx := repository.NewTxManager(db)
	locker := lock.NewKeyedMutex(5 * time.Second)

	catalog := service.NewMovieService(movies, tx, locker)
	scheduler := service.NewShowtimeService(movies, showtimes, tx, locker)
	ledger := service.NewBookingService(scheduler, bookings, tx, locker, nil)

	m, err := catalog.Create(ctx, model.MovieSpec{Title: "Dune", Genre: "Sci-Fi", Duration: 155, Rating: 8.5, ReleaseYear: 2021})
	if err != nil {
		t.Fatalf("create movie: %v", err)
	}

	t.Run("unique title surfaces as conflict", func(t *testing.T) {
		dup := model.Movie{Title: "Dune", Genre: "x", Duration: 1, ReleaseYear: 2000}
		if err := movies.Create(ctx, &dup); !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("got %v, want ErrConflict", err)
		}
	})

	t.Run("unchanged update is not reported missing", func(t *testing.T) {
		if err := movies.Update(ctx, m); err != nil {
			t.Fatalf("update unchanged row: %v", err)
		}
	})

	start := time.Date(2025, 3, 25, 18, 0, 0, 0, time.UTC)
	st, err := scheduler.Create(ctx, model.ShowtimeSpec{MovieID: m.ID, Theater: "Hall1", Price: 10, StartTime: start, EndTime: start.Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("create showtime: %v", err)
	}

	t.Run("overlap and touching", func(t *testing.T) {
		_, err := scheduler.Create(ctx, model.ShowtimeSpec{MovieID: m.ID, Theater: "Hall1", StartTime: start.Add(time.Hour), EndTime: start.Add(3 * time.Hour)})
		if !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("overlap: got %v", err)
		}
		if _, err := scheduler.Create(ctx, model.ShowtimeSpec{MovieID: m.ID, Theater: "Hall1", StartTime: start.Add(2 * time.Hour), EndTime: start.Add(4 * time.Hour)}); err != nil {
			t.Fatalf("touching: %v", err)
		}
	})

	t.Run("missing parent is not found", func(t *testing.T) {
		orphan := model.Showtime{MovieID: 99999, Theater: "Hall9", StartTime: start, EndTime: start.Add(time.Hour)}
		if err := showtimes.Create(ctx, &orphan); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("parallel bookings of one seat", func(t *testing.T) {
		const n = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		ok, conflicts := 0, 0
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.Create(ctx, model.BookingSpec{ShowtimeID: st.ID, SeatNumber: 5, UserID: "u"})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, repository.ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		if ok != 1 || conflicts != n-1 {
			t.Fatalf("ok=%d conflicts=%d", ok, conflicts)
		}
	})

	t.Run("cascade", func(t *testing.T) {
		b, err := bookings.FindBySeat(ctx, st.ID, 5)
		if err != nil {
			t.Fatal(err)
		}
		if err := catalog.DeleteByTitle(ctx, "Dune"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := showtimes.GetByID(ctx, st.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("showtime survived: %v", err)
		}
		if _, err := bookings.GetByID(ctx, b.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("booking survived: %v", err)
		}
	})
}
