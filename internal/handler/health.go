package handler // HTTP handlers for the movie, showtime and booking API

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers.  It only reports
// that the process is serving requests.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
