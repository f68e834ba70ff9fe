package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const userColumns = `id, school_id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string      `db:"id"`
	SchoolID     null.String `db:"school_id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	IsActive     bool        `db:"is_active"`
	Roles        string      `db:"roles"` // ",admin,staff,"
	PasswordHash string      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		SchoolID:     null.NewString(usr.SchoolID, usr.SchoolID != ""),
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.TimeFromPtr(usr.LastLogin),
	}
	if len(usr.Roles) > 0 {
		row.Roles = "," + strings.Join(usr.Roles, ",") + ","
	}
	return row
}

func (row userRow) user() user.User {
	usr := user.User{
		ID:           row.ID,
		SchoolID:     row.SchoolID.String,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		Roles:        make([]string, 0),
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	for _, role := range strings.Split(row.Roles, ",") {
		if role != "" {
			usr.Roles = append(usr.Roles, role)
		}
	}
	if row.LastLogin.Valid {
		t := row.LastLogin.Time.UTC()
		usr.LastLogin = &t
	}
	return usr
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ?`
	err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q),
		null.NewString(username, username != ""), null.NewString(email, email != ""))
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, row := range rows {
		if excluded[row.ID] {
			continue
		}
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :school_id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := namedExec(ctx, repo.db, q, toUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) get(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.get(ctx, `id = ?`, id)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, `username = ? OR email = ?`, username, username)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.SchoolID != "" {
		conds = append(conds, `school_id = ?`)
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		val := "%" + strings.ToLower(filter.Search) + "%"
		conds = append(conds, `(LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?)`)
		args = append(args, val, val, val)
	}
	if len(filter.Roles) > 0 {
		roleConds := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roleConds = append(roleConds, `roles LIKE ?`)
			args = append(args, "%,"+role+",%")
		}
		conds = append(conds, "("+strings.Join(roleConds, " OR ")+")")
	}
	if filter.IsActive != nil {
		conds = append(conds, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, `created_at >= ?`)
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, `created_at <= ?`)
		args = append(args, filter.CreatedTo.UTC())
	}

	q := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, user.OrderingFields, core.DBOrdering{Field: "created_at"})

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET school_id = :school_id, name = :name, username = :username, email = :email,
		is_active = :is_active, roles = :roles, password_hash = :password_hash, updated_at = :updated_at,
		last_login = :last_login
		WHERE id = :id`
	res, err := namedExec(ctx, repo.db, q, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}
