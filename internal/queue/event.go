// Package queue carries booking events over RabbitMQ: the publisher used
// by the ledger and a background consumer that appends every event to a
// log file.
package queue

// BookingCreatedQueue is the durable queue booking events are routed to.
const BookingCreatedQueue = "booking.created"

// BookingCreatedEvent is published after a seat has been booked.  It
// carries enough of the showtime for consumers to act without querying
// the database.
type BookingCreatedEvent struct {
    BookingID  string `json:"booking_id"`
    ShowtimeID int64  `json:"showtime_id"`
    MovieID    int64  `json:"movie_id"`
    Theater    string `json:"theater"`
    SeatNumber int    `json:"seat_number"`
    UserID     string `json:"user_id"`
    StartTime  string `json:"start_time"`
    EndTime    string `json:"end_time"`
    CreatedAt  string `json:"created_at"`
}
