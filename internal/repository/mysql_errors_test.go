package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"duplicate key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, ErrConflict},
		{"wrapped duplicate key", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062}), ErrConflict},
		{"missing parent", &mysql.MySQLError{Number: 1452}, ErrNotFound},
		{"deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, ErrUnavailable},
		{"lock wait timeout", &mysql.MySQLError{Number: 1205}, ErrUnavailable},
		{"context deadline", context.DeadlineExceeded, ErrUnavailable},
		{"invalid connection", mysql.ErrInvalidConn, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, "thing")
			if !errors.Is(got, tt.want) {
				t.Errorf("translate(%v) = %v, want kind %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTranslateKeepsUnknownErrorsOpaque(t *testing.T) {
	if translate(nil, "thing") != nil {
		t.Fatal("translate(nil) should be nil")
	}

	cause := &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}
	got := translate(cause, "list movies")
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrInvalidRange, ErrUnavailable} {
		if errors.Is(got, kind) {
			t.Errorf("unknown error classified as %v", kind)
		}
	}
	var me *mysql.MySQLError
	if !errors.As(got, &me) || me.Number != 1146 {
		t.Errorf("cause not preserved: %v", got)
	}
}
