package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// querier is the subset of *sql.DB and *sql.Tx used by the repositories.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// TxManager opens transactions and carries them through the context so
// that repository calls made inside InTx join the caller's transaction.
type TxManager struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

// NewTxManager returns a TxManager that opens SERIALIZABLE transactions
// on db.  Serializable isolation makes the overlap scan and the insert
// that follows it behave as one atomic step.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db, isolation: sql.LevelSerializable}
}

// InTx runs fn inside a transaction.  When ctx already carries a
// transaction, fn joins it and the outer call decides commit or rollback.
// The transaction is committed when fn returns nil and rolled back
// otherwise.
func (m *TxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: m.isolation})
	if err != nil {
		return translate(err, "begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return translate(err, "commit transaction")
	}
	committed = true
	return nil
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// execAffected runs an UPDATE or DELETE and reports ErrNotFound when no
// row matched.
func execAffected(ctx context.Context, q querier, what, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, what)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}
