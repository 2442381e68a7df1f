package model

import "time"

// Showtime represents a scheduled screening of a movie in a theater.
// The screening occupies the half-open window [StartTime, EndTime);
// two showtimes in the same theater may touch but never overlap.
//
// Fields:
//  ID        – primary key identifier.
//  MovieID   – movie being screened.
//  Theater   – name of the theater (exact match defines "same theater").
//  Price     – ticket price.
//  StartTime – when the screening begins.
//  EndTime   – when the screening ends (must be after StartTime).
type Showtime struct {
    ID        int64     `json:"id"`        // showtimes.id
    MovieID   int64     `json:"movieId"`   // showtimes.movie_id
    Theater   string    `json:"theater"`   // showtimes.theater
    Price     float64   `json:"price"`     // showtimes.price
    StartTime time.Time `json:"startTime"` // showtimes.start_time
    EndTime   time.Time `json:"endTime"`   // showtimes.end_time
}

// Overlaps reports whether the showtime's window intersects [start, end).
// Windows that only share an endpoint do not overlap.
func (s Showtime) Overlaps(start, end time.Time) bool {
    return s.StartTime.Before(end) && s.EndTime.After(start)
}

// ShowtimeSpec carries the mutable fields of a showtime.
type ShowtimeSpec struct {
    MovieID   int64
    Theater   string
    Price     float64
    StartTime time.Time
    EndTime   time.Time
}

// ValidRange reports whether StartTime is strictly before its end time.
func (spec ShowtimeSpec) ValidRange() bool {
    return spec.StartTime.Before(spec.EndTime)
}

// Apply overwrites every mutable field of s with the values in spec.
// Times are normalized to UTC so that stored values compare consistently.
func (spec ShowtimeSpec) Apply(s *Showtime) {
    s.MovieID = spec.MovieID
    s.Theater = spec.Theater
    s.Price = spec.Price
    s.StartTime = spec.StartTime.UTC()
    s.EndTime = spec.EndTime.UTC()
}
