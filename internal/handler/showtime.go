package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/popcorn-palace/internal/model"
    "github.com/iliyamo/popcorn-palace/internal/service"
)

// ShowtimeHandler serves /showtimes.
type ShowtimeHandler struct {
    Showtimes *service.ShowtimeService
}

// showtimeRequest is the body of POST /showtimes and POST /showtimes/update/:showtimeId.
// Times are RFC 3339.
type showtimeRequest struct {
    MovieID   int64      `json:"movieId" validate:"required,gte=1"`
    Theater   string     `json:"theater" validate:"required,min=1,max=255"`
    Price     *float64   `json:"price" validate:"required,gte=0"`
    StartTime *time.Time `json:"startTime" validate:"required"`
    EndTime   *time.Time `json:"endTime" validate:"required"`
}

func (r showtimeRequest) spec() model.ShowtimeSpec {
    return model.ShowtimeSpec{
        MovieID:   r.MovieID,
        Theater:   r.Theater,
        Price:     *r.Price,
        StartTime: *r.StartTime,
        EndTime:   *r.EndTime,
    }
}

// showtimeID parses the :showtimeId path parameter.
func showtimeID(c echo.Context) (int64, bool) {
    id, err := strconv.ParseInt(c.Param("showtimeId"), 10, 64)
    return id, err == nil && id > 0
}

// Get handles GET /showtimes/:showtimeId.
func (h *ShowtimeHandler) Get(c echo.Context) error {
    id, ok := showtimeID(c)
    if !ok {
        return badRequest(c, "invalid showtimeId")
    }
    st, err := h.Showtimes.FindByID(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, st)
}

// ListByTheater handles GET /showtimes?theater=<name>.
func (h *ShowtimeHandler) ListByTheater(c echo.Context) error {
    theater := strings.TrimSpace(c.QueryParam("theater"))
    if theater == "" {
        return badRequest(c, "theater query parameter is required")
    }
    list, err := h.Showtimes.ListByTheater(c.Request().Context(), theater)
    if err != nil {
        return respondError(c, err)
    }
    if list == nil {
        list = []model.Showtime{}
    }
    return c.JSON(http.StatusOK, list)
}

// Create handles POST /showtimes and returns the stored showtime.
func (h *ShowtimeHandler) Create(c echo.Context) error {
    var req showtimeRequest
    if err := bindAndValidate(c, &req); err != nil {
        return respondError(c, err)
    }
    st, err := h.Showtimes.Create(c.Request().Context(), req.spec())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, st)
}

// Update handles POST /showtimes/update/:showtimeId.
func (h *ShowtimeHandler) Update(c echo.Context) error {
    id, ok := showtimeID(c)
    if !ok {
        return badRequest(c, "invalid showtimeId")
    }
    var req showtimeRequest
    if err := bindAndValidate(c, &req); err != nil {
        return respondError(c, err)
    }
    if _, err := h.Showtimes.Update(c.Request().Context(), id, req.spec()); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusOK)
}

// Delete handles DELETE /showtimes/:showtimeId.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
    id, ok := showtimeID(c)
    if !ok {
        return badRequest(c, "invalid showtimeId")
    }
    if err := h.Showtimes.Delete(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusOK)
}
