package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	RoleSuperuser = "superuser"
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
	RoleStudent   = "student"
)

var (
	AllRoles = []string{RoleSuperuser, RoleAdmin, RoleStaff, RoleStudent}

	rolePriorities = map[string]int{
		RoleSuperuser: 40,
		RoleAdmin:     30,
		RoleStaff:     20,
		RoleStudent:   10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Staff", Value: RoleStaff},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Superuser", Value: RoleSuperuser},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string     `json:"id"`
	SchoolID     string     `json:"school_id,omitempty"` // empty for superusers
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	IsActive     bool       `json:"is_active"`
	Roles        []string   `json:"roles"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsSuperuser() bool { return u.HasRole(RoleSuperuser) }
func (u *User) IsAdmin() bool     { return u.IsSuperuser() || u.HasRole(RoleAdmin) }
func (u *User) IsStaff() bool     { return u.HasRole(RoleStaff) }
func (u *User) IsStudent() bool   { return u.HasRole(RoleStudent) }

// NewUser contains information needed to create a new User.
type NewUser struct {
	SchoolID        string   `json:"school_id"`
	Name            string   `json:"name" validate:"required,notblank"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.SchoolID = core.CleanString(nu.SchoolID)
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.Username, nu.Email)
}

type QueryFilter struct {
	SchoolID    string    `query:"school_id"`
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"-"` // bound by hand
	CreatedTo   time.Time `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.SchoolID == "" && qf.Search == "" && qf.Roles == nil && qf.IsActive == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.SchoolID = core.CleanString(qf.SchoolID)
	qf.Search = core.CleanString(qf.Search)
}

// Match reports whether usr satisfies every set field of the filter.
// Search is a case-insensitive match on one of Name, Username or Email.
func (qf *QueryFilter) Match(usr User) bool {
	if qf.SchoolID != "" && usr.SchoolID != qf.SchoolID {
		return false
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(usr.Name), s) ||
			strings.Contains(usr.Username, s) ||
			strings.Contains(usr.Email, s)) {
			return false
		}
	}
	if len(qf.Roles) > 0 {
		var ok bool
		for _, role := range qf.Roles {
			if usr.HasRole(role) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if !qf.CreatedFrom.IsZero() && usr.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && usr.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}
