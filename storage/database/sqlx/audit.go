package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
)

type auditRepository struct {
	db core.DB
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db core.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	e.ID = uuid.New().String()
	e.CreatedAt = e.CreatedAt.UTC()
	q := `INSERT INTO audit_logs (id, user_id, action, details, created_at)
		VALUES (:id, :user_id, :action, :details, :created_at)`
	if _, err := namedExec(ctx, repo.db, q, e); err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return e, nil
}

func (repo *auditRepository) QueryEntries(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID != "" {
		conds = append(conds, `user_id = ?`)
		args = append(args, filter.UserID)
	}
	if filter.Action != "" {
		conds = append(conds, `action = ?`)
		args = append(args, filter.Action)
	}
	if !filter.From.IsZero() {
		conds = append(conds, `created_at >= ?`)
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		conds = append(conds, `created_at <= ?`)
		args = append(args, filter.To.UTC())
	}

	q := `SELECT id, user_id, action, details, created_at FROM audit_logs`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	entries := make([]audit.Entry, 0)
	if err := repo.db.SelectContext(ctx, &entries, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting audit entries")
	}
	for i := range entries {
		entries[i].CreatedAt = entries[i].CreatedAt.UTC()
	}
	return entries, nil
}
