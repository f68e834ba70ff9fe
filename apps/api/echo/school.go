package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type schoolApi struct {
	svc  *school.Service
	auth *authenticator
	deps ServerDeps
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := schoolApi{
		svc:  deps.SchoolSvc,
		auth: auth,
		deps: deps,
	}

	ag := g.Group("", jwt, auth.activeUserMiddleware)

	sg := ag.Group("/schools")
	sg.POST("", api.create, auth.adminMiddleware(user.RoleSuperuser))
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)

	cg := ag.Group("/classes")
	cg.POST("", api.createClass, auth.adminMiddleware())
	cg.GET("", api.queryClasses)

	crg := ag.Group("/courses")
	crg.POST("", api.createCourse, auth.adminMiddleware())
	crg.GET("", api.queryCourses)

	ag.POST("/enrollments", api.enroll, auth.adminMiddleware())
}

// schoolAccess fails with a 404 unless the context user may act within schoolID.
func (api *schoolApi) schoolAccess(ctx echo.Context, schoolID string) error {
	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.canAccessSchool(schoolID) {
		return core.NewNotFoundError(school.ErrNotFound)
	}
	return nil
}

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return core.TranslateValidationErrors(err, api.deps.Translator)
	}

	s, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering school")
	}
	claims, _ := api.auth.getContextClaims(ctx)
	api.deps.AuditSvc.Record(ctx.Request().Context(), claims.Subject, actionSchoolCreated, "school="+s.ID)

	return ctx.JSON(http.StatusCreated, s)
}

func (api *schoolApi) query(ctx echo.Context) error {
	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if !claims.IsSuperuser {
		s, err := api.svc.Get(ctx.Request().Context(), claims.SchoolID)
		if err != nil {
			if core.IsNotFound(err) {
				return ctx.JSON(http.StatusOK, []school.School{})
			}
			return errors.Wrap(err, "getting school")
		}
		return ctx.JSON(http.StatusOK, []school.School{s})
	}

	schools, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	if err := api.schoolAccess(ctx, ctx.Param("id")); err != nil {
		return err
	}
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting school")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	if err := api.schoolAccess(ctx, data.SchoolID); err != nil {
		return err
	}

	c, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	schoolID := core.CleanString(ctx.QueryParam("school_id"))
	if schoolID == "" {
		claims, err := api.auth.getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		schoolID = claims.SchoolID
	}
	if err := api.schoolAccess(ctx, schoolID); err != nil {
		return err
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

// classAccess returns the class when the context user may act within its school.
func (api *schoolApi) classAccess(ctx echo.Context, classID, field string) (school.Class, error) {
	class, err := api.svc.GetClass(ctx.Request().Context(), classID)
	if err != nil {
		if core.IsNotFound(err) {
			return school.Class{}, core.NewValidationError(school.ErrClassNotFound,
				core.FieldError{Field: field, Error: school.ErrClassNotFound.Error()})
		}
		return school.Class{}, errors.Wrap(err, "getting class")
	}
	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "getting context claims")
	}
	if !claims.canAccessSchool(class.SchoolID) {
		return school.Class{}, core.NewValidationError(school.ErrClassNotFound,
			core.FieldError{Field: field, Error: school.ErrClassNotFound.Error()})
	}
	return class, nil
}

func (api *schoolApi) createCourse(ctx echo.Context) error {
	var data school.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	if _, err := api.classAccess(ctx, data.ClassID, "class_id"); err != nil {
		return err
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *schoolApi) queryCourses(ctx echo.Context) error {
	if _, err := api.classAccess(ctx, core.CleanString(ctx.QueryParam("class_id")), "class_id"); err != nil {
		return err
	}

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), core.CleanString(ctx.QueryParam("class_id")))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []school.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *schoolApi) enroll(ctx echo.Context) error {
	var data school.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	if _, err := api.classAccess(ctx, data.ClassID, "class_id"); err != nil {
		return err
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, e)
}
