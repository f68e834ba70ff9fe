package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/metrics"
)

type gradingApi struct {
	svc  *grading.Service
	auth *authenticator
	deps ServerDeps
}

type ScaleResponse struct {
	SchoolID string        `json:"school_id"`
	Default  bool          `json:"default"` // no scale of its own, the system one applies
	Rules    grading.Scale `json:"grading_system"`
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := gradingApi{
		svc:  deps.GradingSvc,
		auth: auth,
		deps: deps,
	}

	ag := g.Group("", jwt, auth.activeUserMiddleware)

	sg := ag.Group("/schools/:id/grading-scale")
	sg.GET("", api.retrieveScale)
	sg.PUT("", api.replaceScale, auth.adminMiddleware())

	gg := ag.Group("/grades")
	gg.POST("", api.submit, auth.staffMiddleware)
	gg.GET("", api.queryGrades)

	stg := ag.Group("/students/:id", api.studentAccessMiddleware)
	stg.GET("/report", api.report)
	stg.GET("/enrollments", api.enrollments)
}

func (api *gradingApi) retrieveScale(ctx echo.Context) error {
	schoolID := ctx.Param("id")
	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.canAccessSchool(schoolID) {
		return core.NewNotFoundError(grading.ErrSchoolNotFound)
	}

	scale, configured, err := api.svc.Scale(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "getting grading scale")
	}
	return ctx.JSON(http.StatusOK, ScaleResponse{SchoolID: schoolID, Default: !configured, Rules: scale})
}

func (api *gradingApi) replaceScale(ctx echo.Context) error {
	schoolID := ctx.Param("id")
	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.canAccessSchool(schoolID) {
		return core.NewNotFoundError(grading.ErrSchoolNotFound)
	}

	var (
		data  grading.ScaleInput
		scale grading.Scale
	)
	if err = ctx.Bind(&data); err != nil {
		err = api.svc.RejectScale(ctx.Request().Context(), claims.Subject, schoolID, err)
	} else {
		scale, err = api.svc.ReplaceScale(ctx.Request().Context(), claims.Subject, schoolID, data)
	}
	if !core.IsNotFound(err) {
		metrics.ScaleReplacements.WithLabelValues(metrics.Outcome(err)).Inc()
	}
	if err != nil {
		return errors.Wrap(err, "replacing grading scale")
	}
	return ctx.JSON(http.StatusOK, ScaleResponse{SchoolID: schoolID, Rules: scale})
}

func (api *gradingApi) submit(ctx echo.Context) error {
	var data grading.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.GradedBy = claims.Subject

	view, err := api.svc.SubmitGrade(ctx.Request().Context(), data)
	metrics.GradeSubmissions.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return errors.Wrap(err, "submitting grade")
	}

	letter := "none"
	if view.Graded() {
		letter = *view.LetterGrade
	}
	metrics.GradeScores.WithLabelValues(letter).Observe(view.Score)

	return ctx.JSON(http.StatusOK, view)
}

func (api *gradingApi) queryGrades(ctx echo.Context) error {
	var filter grading.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.StudentID = core.CleanString(filter.StudentID)
	filter.CourseID = core.CleanString(filter.CourseID)

	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if filter.StudentID == "" {
		if !claims.IsStudent {
			return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
		}
		filter.StudentID = claims.Subject
	}
	if err := api.studentAccess(ctx, filter.StudentID); err != nil {
		return err
	}

	grades, err := api.svc.ListStudentGrades(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing student grades")
	}
	if grades == nil {
		grades = []grading.GradeView{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradingApi) report(ctx echo.Context) error {
	rep, err := api.svc.Report(ctx.Request().Context(), ctx.Param("id"), core.CleanString(ctx.QueryParam("term")))
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	metrics.ReportsBuilt.Inc()
	return ctx.JSON(http.StatusOK, rep)
}

func (api *gradingApi) enrollments(ctx echo.Context) error {
	enrollments, err := api.deps.SchoolSvc.StudentEnrollments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []school.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

// studentAccess lets students see their own records, and the staff of their school see all of them.
// Unknown students are left to the grading service to report.
func (api *gradingApi) studentAccess(ctx echo.Context, studentID string) error {
	claims, err := api.auth.getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if studentID == claims.Subject || claims.IsSuperuser {
		return nil
	}
	if !(claims.IsStaff || claims.IsAdmin) {
		return errHttpForbidden
	}

	usr, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), studentID)
	if err != nil {
		if err == user.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if usr.SchoolID != claims.SchoolID {
		return core.NewNotFoundError(grading.ErrStudentNotFound)
	}
	return nil
}

func (api *gradingApi) studentAccessMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := api.studentAccess(ctx, ctx.Param("id")); err != nil {
			return err
		}
		return next(ctx)
	}
}
