package model

// Movie represents a film in the catalog.  Movies are referenced by
// showtimes and are looked up by title as well as by id, so the title
// is unique across the catalog.  This struct corresponds to a row in
// the `movies` table.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – unique title of the movie.
//  Genre       – free-form genre label.
//  Duration    – running time in minutes.
//  Rating      – score between 0 and 10.
//  ReleaseYear – year of release.
type Movie struct {
    ID          int64   `json:"id"`          // movies.id
    Title       string  `json:"title"`       // movies.title
    Genre       string  `json:"genre"`       // movies.genre
    Duration    int     `json:"duration"`    // movies.duration
    Rating      float64 `json:"rating"`      // movies.rating
    ReleaseYear int     `json:"releaseYear"` // movies.release_year
}

// MovieSpec carries the mutable fields of a movie for create and
// update operations.  Range checks are done by the request layer.
type MovieSpec struct {
    Title       string
    Genre       string
    Duration    int
    Rating      float64
    ReleaseYear int
}

// Apply overwrites every mutable field of m with the values in spec.
func (spec MovieSpec) Apply(m *Movie) {
    m.Title = spec.Title
    m.Genre = spec.Genre
    m.Duration = spec.Duration
    m.Rating = spec.Rating
    m.ReleaseYear = spec.ReleaseYear
}
