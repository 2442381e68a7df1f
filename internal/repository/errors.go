// Package repository defines error types that are reused across the
// stores and the services built on top of them. These sentinel values
// allow higher layers such as handlers to distinguish between the
// different failure scenarios with errors.Is. Call sites wrap them with
// fmt.Errorf("%w: ...") to add detail without losing the kind.
package repository

import "errors"

// ErrNotFound is returned when a referenced movie, showtime or booking
// does not exist. Handlers should translate this into an HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation would violate a uniqueness
// rule: a duplicate movie title, an overlapping showtime in a theater or
// a seat that is already booked. Handlers translate this into an HTTP 400.
var ErrConflict = errors.New("conflict")

// ErrInvalidRange is returned when a showtime's start time is not strictly
// before its end time.
var ErrInvalidRange = errors.New("invalid time range")

// ErrUnavailable signals a transient storage or locking fault (timeouts,
// deadlocks, lost connections). It is never retried by this layer.
var ErrUnavailable = errors.New("unavailable")
