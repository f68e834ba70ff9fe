package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const contextUserKey = "user"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	SchoolID     string   `json:"school_id,omitempty"`
	IsSuperuser  bool     `json:"is_superuser,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	IsStaff      bool     `json:"is_staff,omitempty"`   // -> STAFF PORTAL
	IsStudent    bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	Roles        []string `json:"roles,omitempty"`
}

// canAccessSchool reports whether the claims holder may act within schoolID.
func (c Claims) canAccessSchool(schoolID string) bool {
	return c.IsSuperuser || (schoolID != "" && c.SchoolID == schoolID)
}

type authenticator struct {
	conf      *core.Config
	svc       *user.Service
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, svc *user.Service) *authenticator {
	return &authenticator{
		conf: conf,
		svc:  svc,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "userToken",
			Claims:        new(Claims),
		},
	}
}

func (a *authenticator) GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			Audience:  "Shule",
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		SchoolID:     usr.SchoolID,
		IsSuperuser:  usr.IsSuperuser(),
		IsAdmin:      usr.IsAdmin(),
		IsStaff:      usr.IsStaff(),
		IsStudent:    usr.IsStudent(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) authenticate(ctx echo.Context, uname, pwd string) (*Claims, error) {
	c := ctx.Request().Context()
	usr, err := a.svc.GetByUsernameOrEmail(c, uname)
	if err != nil {
		if err == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.IsActive {
		return nil, errAccountDeactivated
	}
	usr, err = a.svc.SetLastLogin(c, usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return a.GetUserClaims(usr), nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := a.getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := a.getContextUser(ctx, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.GenerateToken(a.GetUserClaims(usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

func (a *authenticator) getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(a.jwtConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads the authenticated user once per request.
// A user deleted or deactivated after the token was issued is unauthorized.
func (a *authenticator) getContextUser(ctx echo.Context, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = a.getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := a.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if err == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func (a *authenticator) contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := a.getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}
