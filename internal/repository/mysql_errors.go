package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers that carry domain meaning.
const (
	mysqlDupEntry        = 1062 // ER_DUP_ENTRY
	mysqlNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
	mysqlLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlDeadlock        = 1213 // ER_LOCK_DEADLOCK
)

// translate maps driver errors onto the package sentinels. Duplicate keys
// become ErrConflict, missing parents become ErrNotFound and timeouts or
// deadlocks become ErrUnavailable. Anything else is returned unchanged.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, what, err)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return fmt.Errorf("%w: %s", ErrConflict, what)
		case mysqlNoReferencedRow:
			return fmt.Errorf("%w: %s: referenced row missing", ErrNotFound, what)
		case mysqlLockWaitTimeout, mysqlDeadlock:
			return fmt.Errorf("%w: %s: %s", ErrUnavailable, what, me.Message)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
