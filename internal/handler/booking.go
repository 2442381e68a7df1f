package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/popcorn-palace/internal/model"
    "github.com/iliyamo/popcorn-palace/internal/service"
)

// BookingHandler serves /bookings.
type BookingHandler struct {
    Bookings *service.BookingService
}

type bookingRequest struct {
    ShowtimeID int64  `json:"showtimeId" validate:"required,gte=1"`
    SeatNumber int    `json:"seatNumber" validate:"required,gte=1"`
    UserID     string `json:"userId" validate:"required"`
}

type bookingResponse struct {
    BookingID string `json:"bookingId"`
}

// Create handles POST /bookings and answers {"bookingId": "..."}.
func (h *BookingHandler) Create(c echo.Context) error {
    var req bookingRequest
    if err := bindAndValidate(c, &req); err != nil {
        return respondError(c, err)
    }
    b, err := h.Bookings.Create(c.Request().Context(), model.BookingSpec{
        ShowtimeID: req.ShowtimeID,
        SeatNumber: req.SeatNumber,
        UserID:     req.UserID,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, bookingResponse{BookingID: b.ID})
}

// Get handles GET /bookings/:bookingId.
func (h *BookingHandler) Get(c echo.Context) error {
    b, err := h.Bookings.FindByID(c.Request().Context(), c.Param("bookingId"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// ListByShowtime handles GET /showtimes/:showtimeId/bookings.
func (h *BookingHandler) ListByShowtime(c echo.Context) error {
    id, ok := showtimeID(c)
    if !ok {
        return badRequest(c, "invalid showtimeId")
    }
    list, err := h.Bookings.ListByShowtime(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, list)
}
