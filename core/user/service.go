package user

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another user holds username or email.
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields, newest first unless ordered.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		// UpdateUser saves every field but ID and CreatedAt.
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

// OrderingFields are the fields users may be ordered by.
var OrderingFields = map[string]bool{"name": true, "username": true, "email": true, "created_at": true}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		SchoolID:  nu.SchoolID,
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	allowed := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			allowed = append(allowed, ord)
		}
	}
	return svc.repo.QueryUsers(ctx, filter, allowed...)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.LastLogin = &now
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword changes the password of the user identified by username or email.
func (svc *Service) SetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
