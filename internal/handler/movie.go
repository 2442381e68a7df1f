package handler

import (
    "net/http"
    "net/url"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/popcorn-palace/internal/model"
    "github.com/iliyamo/popcorn-palace/internal/service"
)

// MovieHandler serves /movies.
type MovieHandler struct {
    Movies *service.MovieService
}

// movieRequest is the body of POST /movies and POST /movies/update/:movieTitle.
type movieRequest struct {
    Title       string   `json:"title" validate:"required,min=1,max=255"`
    Genre       string   `json:"genre" validate:"required,min=1,max=100"`
    Duration    int      `json:"duration" validate:"required,min=1,max=873"` // minutes
    Rating      *float64 `json:"rating" validate:"required,gte=0,lte=10"`    // pointer so 0 is accepted
    ReleaseYear int      `json:"releaseYear" validate:"required,gte=1800,lte=2200"`
}

func (r movieRequest) spec() model.MovieSpec {
    return model.MovieSpec{
        Title:       r.Title,
        Genre:       r.Genre,
        Duration:    r.Duration,
        Rating:      *r.Rating,
        ReleaseYear: r.ReleaseYear,
    }
}

// ListAll handles GET /movies/all.
func (h *MovieHandler) ListAll(c echo.Context) error {
    movies, err := h.Movies.ListAll(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    if movies == nil {
        movies = []model.Movie{} // render [] rather than null
    }
    return c.JSON(http.StatusOK, movies)
}

// Create handles POST /movies and returns the stored movie.
func (h *MovieHandler) Create(c echo.Context) error {
    var req movieRequest
    if err := bindAndValidate(c, &req); err != nil {
        return respondError(c, err)
    }
    m, err := h.Movies.Create(c.Request().Context(), req.spec())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, m)
}

// Update handles POST /movies/update/:movieTitle.  Every field is replaced.
func (h *MovieHandler) Update(c echo.Context) error {
    title, err := movieTitle(c)
    if err != nil {
        return badRequest(c, "invalid movie title in path")
    }
    var req movieRequest
    if err := bindAndValidate(c, &req); err != nil {
        return respondError(c, err)
    }
    if _, err := h.Movies.UpdateByTitle(c.Request().Context(), title, req.spec()); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusOK)
}

// Delete handles DELETE /movies/:movieTitle.
func (h *MovieHandler) Delete(c echo.Context) error {
    title, err := movieTitle(c)
    if err != nil {
        return badRequest(c, "invalid movie title in path")
    }
    if err := h.Movies.DeleteByTitle(c.Request().Context(), title); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusOK)
}

// movieTitle returns the decoded :movieTitle segment.  echo matches on the
// raw path whenever the request carries one, so the segment is still
// escaped in that case.
func movieTitle(c echo.Context) (string, error) {
    title := c.Param("movieTitle")
    if c.Request().URL.RawPath == "" {
        return title, nil
    }
    return url.PathUnescape(title)
}
