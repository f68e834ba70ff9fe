package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, e audit.Entry) (audit.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = newID()
	repo.db.entries = append(repo.db.entries, e)
	return e, nil
}

func (repo *auditRepository) QueryEntries(_ context.Context, filter audit.QueryFilter) ([]audit.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]audit.Entry, 0)
	// entries are appended in chronological order
	for i := len(repo.db.entries) - 1; i >= 0; i-- {
		if filter.Limit > 0 && len(entries) >= filter.Limit {
			break
		}
		if e := repo.db.entries[i]; filter.Match(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
