package middleware

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/popcorn-palace/internal/metrics"
)

// RequestLogger logs one line per request and records the HTTP metrics.
// The route label is echo's matched path, so /showtimes/1 and
// /showtimes/2 share a series.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err) // let echo write the response so the status is final
            }

            req := c.Request()
            status := c.Response().Status
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            elapsed := time.Since(start)
            metrics.RecordHTTPRequest(req.Method, route, status, elapsed)

            ev := log.Info()
            switch {
            case status >= http.StatusInternalServerError:
                ev = log.Error()
            case status >= http.StatusBadRequest:
                ev = log.Warn()
            }
            var he *echo.HTTPError
            if err != nil && !errors.As(err, &he) {
                ev = ev.Err(err)
            }
            ev.Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
                Str("method", req.Method).
                Str("route", route).
                Str("uri", req.RequestURI).
                Int("status", status).
                Dur("latency", elapsed).
                Str("remote_ip", c.RealIP()).
                Msg("request")
            return nil
        }
    }
}
