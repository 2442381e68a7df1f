package model

// Booking records a single seat claimed by a user for a showtime.
// Bookings are immutable once created and disappear only when their
// showtime is deleted.  The pair (ShowtimeID, SeatNumber) is unique.
//
// Fields:
//  ID         – opaque UUID token returned to the client.
//  ShowtimeID – showtime the seat belongs to.
//  SeatNumber – seat number, starting at 1.
//  UserID     – opaque identifier of the user who booked.
type Booking struct {
    ID         string `json:"bookingId"`  // bookings.id
    ShowtimeID int64  `json:"showtimeId"` // bookings.showtime_id
    SeatNumber int    `json:"seatNumber"` // bookings.seat_number
    UserID     string `json:"userId"`     // bookings.user_id
}

// BookingSpec carries the client-supplied fields of a new booking.
type BookingSpec struct {
    ShowtimeID int64
    SeatNumber int
    UserID     string
}
