// Package audit keeps a trail of the sensitive actions performed by users.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/shule/core"
)

// DefaultLimit caps the number of entries returned by a query.
const DefaultLimit = 100

type Entry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id,omitempty" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

type QueryFilter struct {
	UserID string    `query:"user_id"`
	Action string    `query:"action"`
	From   time.Time `query:"-"` // bound by hand
	To     time.Time `query:"-"`
	Limit  int       `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID)
	qf.Action = core.CleanString(qf.Action)
	if qf.Limit <= 0 || qf.Limit > DefaultLimit {
		qf.Limit = DefaultLimit
	}
}

// Match reports whether e satisfies every set field of the filter. Limit is not considered.
func (qf *QueryFilter) Match(e Entry) bool {
	if qf.UserID != "" && e.UserID != qf.UserID {
		return false
	}
	if qf.Action != "" && e.Action != qf.Action {
		return false
	}
	if !qf.From.IsZero() && e.CreatedAt.Before(qf.From) {
		return false
	}
	if !qf.To.IsZero() && e.CreatedAt.After(qf.To) {
		return false
	}
	return true
}

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry) (Entry, error)
		// QueryEntries returns the entries matching filter, newest first, at most filter.Limit of them.
		QueryEntries(ctx context.Context, filter QueryFilter) ([]Entry, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record saves an entry. Failures are logged, never returned.
func (svc *Service) Record(ctx context.Context, userID, action, details string) {
	_, err := svc.repo.CreateEntry(ctx, Entry{
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("recording audit entry %q: %v", action, err), err)
	}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	filter.Clean()
	return svc.repo.QueryEntries(ctx, filter)
}
