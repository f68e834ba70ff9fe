// Package sqlxrepos implements the repositories on top of sqlx. Queries are written with `?` bindvars and
// rebound for the driver in use, so they run on postgres and sqlite alike.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

func namedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (sql.Result, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "binding named query")
	}
	return exec.ExecContext(ctx, exec.Rebind(q), args...)
}

// orderBy builds an ORDER BY clause out of the allowed orderings, falling back to def (descending).
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, def core.DBOrdering) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, def.String())
	}
	return ` ORDER BY ` + strings.Join(clauses, ", ")
}

// inTx runs fn in a transaction, rolled back when fn fails.
func inTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
