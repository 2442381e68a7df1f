package router // package router wires middleware and registers every HTTP route

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/popcorn-palace/internal/config"
	"github.com/iliyamo/popcorn-palace/internal/handler"
	"github.com/iliyamo/popcorn-palace/internal/logging"
	"github.com/iliyamo/popcorn-palace/internal/middleware"
	"github.com/iliyamo/popcorn-palace/internal/service"
)

// Deps are the services and options the routes are built from.
type Deps struct {
	Movies    *service.MovieService
	Showtimes *service.ShowtimeService
	Bookings  *service.BookingService

	RateLimit config.RateLimitConfig
	Redis     *redis.Client // nil disables rate limiting
	Metrics   bool          // expose GET /metrics
}

// New returns an echo instance with the middleware chain and all routes.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handler.JSONSerializer{}

	// Recover first so a panic anywhere below still produces a 500.
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logging.Component("http")))
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))

	RegisterRoutes(e, d)
	return e
}

// RegisterRoutes maps the API onto e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.Metrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	m := &handler.MovieHandler{Movies: d.Movies}
	movies := e.Group("/movies")
	movies.GET("/all", m.ListAll)
	movies.POST("", m.Create)
	movies.POST("/update/:movieTitle", m.Update)
	movies.DELETE("/:movieTitle", m.Delete)

	s := &handler.ShowtimeHandler{Showtimes: d.Showtimes}
	showtimes := e.Group("/showtimes")
	showtimes.GET("", s.ListByTheater)
	showtimes.GET("/:showtimeId", s.Get)
	showtimes.POST("", s.Create)
	showtimes.POST("/update/:showtimeId", s.Update)
	showtimes.DELETE("/:showtimeId", s.Delete)

	b := &handler.BookingHandler{Bookings: d.Bookings}
	e.POST("/bookings", b.Create)
	e.GET("/bookings/:bookingId", b.Get)
	showtimes.GET("/:showtimeId/bookings", b.ListByShowtime)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "route not found"})
	})
}
