package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.query() {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = newID()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if (usr.Username != "" && usr.Username == username) || (usr.Email != "" && usr.Email == username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter.Match(usr) {
			users = append(users, usr)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareUsers(users[i], users[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
	return users, nil
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.CreatedAt = origUsr.CreatedAt
	repo.db.table[usr.ID] = &usr
	return usr, nil
}
