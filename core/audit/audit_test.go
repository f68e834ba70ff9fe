package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/audit"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/testutil"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(audit.Entry), args.Error(1)
}

func (m *mockRepository) QueryEntries(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

type mockLogger struct {
	mock.Mock
}

func (m *mockLogger) Debug(msg string, args ...interface{}) { m.Called(msg) }
func (m *mockLogger) Info(msg string, args ...interface{})  { m.Called(msg) }
func (m *mockLogger) Warn(msg string, args ...interface{})  { m.Called(msg) }
func (m *mockLogger) Error(msg string, args ...interface{}) { m.Called(msg) }
func (m *mockLogger) Fatal(msg string, args ...interface{}) { m.Called(msg) }

func TestService_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("saves the entry", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("CreateEntry", ctx, mock.MatchedBy(func(e audit.Entry) bool {
			return e.UserID == "u1" && e.Action == "grade.submitted" && e.Details == "score=80" &&
				e.CreatedAt.Location() == time.UTC && !e.CreatedAt.IsZero()
		})).Return(audit.Entry{ID: "1"}, nil).Once()

		audit.NewService(repo, new(mockLogger)).Record(ctx, "u1", "grade.submitted", "score=80")
		repo.AssertExpectations(t)
	})

	t.Run("failures are logged", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("CreateEntry", ctx, mock.Anything).Return(audit.Entry{}, errors.New("disk full")).Once()
		logger := new(mockLogger)
		logger.On("Error", `recording audit entry "grade.submitted": disk full`).Once()

		assert.NotPanics(t, func() {
			audit.NewService(repo, logger).Record(ctx, "u1", "grade.submitted", "")
		})
		repo.AssertExpectations(t)
		logger.AssertExpectations(t)
	})
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("cleans the filter", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("QueryEntries", ctx, audit.QueryFilter{UserID: "u1", Action: "user.login", Limit: audit.DefaultLimit}).
			Return([]audit.Entry{}, nil).Once()

		_, err := audit.NewService(repo, new(mockLogger)).Query(ctx, audit.QueryFilter{UserID: " u1 ", Action: "user.login ", Limit: 1000})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("in-memory", func(t *testing.T) {
		svc := audit.NewService(inmemdb.NewAuditRepository(inmemdb.Open()), testutil.NewLogger())
		svc.Record(ctx, "u1", "user.login", "")
		svc.Record(ctx, "u2", "user.login", "")
		svc.Record(ctx, "u1", "grade.submitted", "")
		after := time.Now().UTC().Add(time.Minute)

		tests := []struct {
			name   string
			filter audit.QueryFilter
			want   []string // actions
		}{
			{name: "everything, newest first", want: []string{"grade.submitted", "user.login", "user.login"}},
			{name: "user", filter: audit.QueryFilter{UserID: "u1"}, want: []string{"grade.submitted", "user.login"}},
			{name: "action", filter: audit.QueryFilter{Action: "user.login"}, want: []string{"user.login", "user.login"}},
			{name: "limit", filter: audit.QueryFilter{Limit: 1}, want: []string{"grade.submitted"}},
			{name: "from", filter: audit.QueryFilter{From: after}, want: []string{}},
			{name: "to", filter: audit.QueryFilter{To: after}, want: []string{"grade.submitted", "user.login", "user.login"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				entries, err := svc.Query(ctx, tt.filter)
				require.NoError(t, err)
				actions := make([]string, 0, len(entries))
				for _, e := range entries {
					actions = append(actions, e.Action)
				}
				assert.Equal(t, tt.want, actions)
			})
		}
	})
}
