package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables in dependency order.  Cascading foreign keys
// remove showtimes with their movie and bookings with their showtime.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS movies (
        id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        title        VARCHAR(255)    NOT NULL,
        genre        VARCHAR(100)    NOT NULL,
        duration     INT             NOT NULL,
        rating       DOUBLE          NOT NULL,
        release_year INT             NOT NULL,
        UNIQUE KEY uq_movies_title (title)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS showtimes (
        id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        movie_id   BIGINT UNSIGNED NOT NULL,
        theater    VARCHAR(255)    NOT NULL,
        price      DOUBLE          NOT NULL,
        start_time DATETIME(6)     NOT NULL,
        end_time   DATETIME(6)     NOT NULL,
        KEY idx_showtimes_theater_start (theater, start_time),
        CONSTRAINT fk_showtimes_movie FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE CASCADE,
        CONSTRAINT chk_showtimes_range CHECK (start_time < end_time)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
        id          CHAR(36)        NOT NULL PRIMARY KEY,
        showtime_id BIGINT UNSIGNED NOT NULL,
        seat_number INT             NOT NULL,
        user_id     VARCHAR(255)    NOT NULL,
        UNIQUE KEY uq_bookings_showtime_seat (showtime_id, seat_number),
        CONSTRAINT fk_bookings_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes (id) ON DELETE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
