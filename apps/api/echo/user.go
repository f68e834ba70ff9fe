package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	errUsrNotFoundInCtx  = errors.New("user object not found in echo.Context")
	errNoPermsToSetRoles = "not enough rights to set these roles"
	errOtherSchool       = "cannot manage the users of another school"
)

type userApi struct {
	svc  *user.Service
	auth *authenticator
	deps ServerDeps
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := userApi{
		svc:  deps.UserSvc,
		auth: auth,
		deps: deps,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", jwt, auth.activeUserMiddleware)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("", api.create, auth.adminMiddleware())
	ag.GET("", api.query, auth.adminMiddleware())
	ag.GET("/roles", api.queryRoles, auth.adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", api.ctxUserOrAdminMiddleware)
	dg.GET("", api.retrieve)
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// school admins create users in their own school
	if !ctxUsr.IsSuperuser() {
		if data.SchoolID == "" {
			data.SchoolID = ctxUsr.SchoolID
		} else if data.SchoolID != ctxUsr.SchoolID {
			return core.NewValidationError(nil, core.FieldError{Field: "school_id", Error: errOtherSchool})
		}
	}

	if err := data.Validate(ctx.Request().Context(), api.deps.Validate, api.svc); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	api.deps.AuditSvc.Record(ctx.Request().Context(), ctxUsr.ID, actionUserCreated, "user="+usr.ID)

	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx, data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.deps.AuditSvc.Record(ctx.Request().Context(), claims.Subject, actionUserLogin, "")

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	if err := bindTimeParams(ctx, map[string]*time.Time{
		"created_from": &filter.CreatedFrom,
		"created_to":   &filter.CreatedTo,
	}); err != nil {
		return err
	}
	filter.Clean()

	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsSuperuser {
		filter.SchoolID = claims.SchoolID
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, user.OrderingFields)

	users, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// ctxUserOrAdminMiddleware sets the requested user as "object" when it is the context user,
// or when the context user administers their school.
func (api *userApi) ctxUserOrAdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxUsr, err := api.auth.getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if ctx.Param("id") == ctxUsr.ID {
			ctx.Set("object", ctxUsr)
			return next(ctx)
		}
		if ctxUsr.IsAdmin() {
			usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err == nil && (ctxUsr.IsSuperuser() || usr.SchoolID == ctxUsr.SchoolID) {
				ctx.Set("object", usr)
				return next(ctx)
			} else if err != nil && err != user.ErrNotFound {
				return errors.Wrap(err, "finding user by ID")
			}
		}
		return errHttpNotFound
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
