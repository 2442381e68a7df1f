package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/popcorn-palace/internal/logging"
    "github.com/iliyamo/popcorn-palace/internal/repository"
    "github.com/iliyamo/popcorn-palace/internal/validation"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
    Error   string                   `json:"error"`
    Details []validation.FieldError `json:"details,omitempty"`
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrInvalidRange):
        return http.StatusBadRequest
    case errors.Is(err, repository.ErrUnavailable):
        return http.StatusServiceUnavailable
    }
    var verr *validation.RequestValidationError
    if errors.As(err, &verr) {
        return http.StatusBadRequest
    }
    return http.StatusInternalServerError
}

// respondError writes err as a JSON error body.  Unexpected errors are
// logged and answered with a generic message.
func respondError(c echo.Context, err error) error {
    status := statusFor(err)
    body := errorBody{Error: err.Error()}
    var verr *validation.RequestValidationError
    if errors.As(err, &verr) {
        body.Details = verr.Fields
    }
    if status == http.StatusInternalServerError {
        logging.Error().Err(err).Str("path", c.Path()).Msg("request failed")
        body.Error = "internal error"
    }
    return c.JSON(status, body)
}

// badRequest answers 400 with msg.
func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

// bindAndValidate decodes the JSON body into dst and runs its validate tags.
func bindAndValidate(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        var he *echo.HTTPError
        if errors.As(err, &he) {
            if msg, ok := he.Message.(string); ok {
                return &validation.RequestValidationError{Fields: []validation.FieldError{{Field: "body", Tag: "json", Message: msg}}}
            }
        }
        return &validation.RequestValidationError{Fields: []validation.FieldError{{Field: "body", Tag: "json", Message: "invalid request body"}}}
    }
    return validation.ValidateStruct(dst)
}
