package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is implemented by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor
		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
