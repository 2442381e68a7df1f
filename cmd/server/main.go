package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/popcorn-palace/internal/config"
	"github.com/iliyamo/popcorn-palace/internal/database"
	"github.com/iliyamo/popcorn-palace/internal/lock"
	"github.com/iliyamo/popcorn-palace/internal/logging"
	"github.com/iliyamo/popcorn-palace/internal/queue"
	"github.com/iliyamo/popcorn-palace/internal/repository"
	"github.com/iliyamo/popcorn-palace/internal/router"
	"github.com/iliyamo/popcorn-palace/internal/service"
)

// stores groups the persistence collaborators for one backend.
type stores struct {
	movies    service.MovieStore
	showtimes service.ShowtimeStore
	bookings  service.BookingStore
	tx        service.Transactor
	close     func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("open store")
	}
	defer func() { _ = st.close() }()

	// Redis is optional unless it backs the lock.
	var rdb *redis.Client
	if cfg.LockBackend == config.LockRedis || cfg.RateLimit.Enabled {
		rdb, err = config.NewRedisClient(cfg.Redis)
		switch {
		case err != nil && cfg.LockBackend == config.LockRedis:
			log.Fatal().Err(err).Msg("redis is required for LOCK_BACKEND=redis")
		case err != nil:
			log.Warn().Err(err).Msg("redis unavailable, rate limiting disabled")
		default:
			defer func() { _ = rdb.Close() }()
		}
	}

	var locker lock.Locker = lock.NewKeyedMutex(cfg.LockWaitTimeout)
	if cfg.LockBackend == config.LockRedis {
		locker = lock.NewRedisLocker(rdb, cfg.LockPrefix, cfg.LockTTL, cfg.LockWaitTimeout)
	}

	var events service.EventPublisher = queue.NoopPublisher{}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, logging.Component("booking-publisher"))
		go pub.Run(ctx)
		events = pub

		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventLogDir, logging.Component("booking-consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("booking consumer stopped")
			}
		}()
	}

	movies := service.NewMovieService(st.movies, st.tx, locker)
	showtimes := service.NewShowtimeService(st.movies, st.showtimes, st.tx, locker)
	bookings := service.NewBookingService(showtimes, st.bookings, st.tx, locker, events)

	e := router.New(router.Deps{
		Movies:    movies,
		Showtimes: showtimes,
		Bookings:  bookings,
		RateLimit: cfg.RateLimit,
		Redis:     rdb,
		Metrics:   cfg.MetricsEnabled,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.Store).Str("lock", cfg.LockBackend).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

// openStores builds the MySQL or in-memory stores selected by STORE.
func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.Store == config.StoreMemory {
		mem := repository.NewMemoryStore()
		return stores{
			movies:    mem.Movies(),
			showtimes: mem.Showtimes(),
			bookings:  mem.Bookings(),
			tx:        mem,
			close:     func() error { return nil },
		}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	return mysqlStores(db), nil
}

func mysqlStores(db *sql.DB) stores {
	return stores{
		movies:    repository.NewMovieRepo(db),
		showtimes: repository.NewShowtimeRepo(db),
		bookings:  repository.NewBookingRepo(db),
		tx:        repository.NewTxManager(db),
		close:     db.Close,
	}
}
