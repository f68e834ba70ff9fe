package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/audit"
)

// audit actions of the API itself; grading actions are recorded by the grading service
const (
	actionUserLogin     = "user.login"
	actionUserCreated   = "user.created"
	actionSchoolCreated = "school.created"
)

func registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	svc := deps.AuditSvc
	g.GET("/audit-logs", func(ctx echo.Context) error {
		var filter audit.QueryFilter
		if err := ctx.Bind(&filter); err != nil {
			return errors.Wrap(err, "binding to QueryFilter")
		}
		if err := bindTimeParams(ctx, map[string]*time.Time{"from": &filter.From, "to": &filter.To}); err != nil {
			return err
		}
		entries, err := svc.Query(ctx.Request().Context(), filter)
		if err != nil {
			return errors.Wrap(err, "querying audit logs")
		}
		if entries == nil {
			entries = []audit.Entry{}
		}
		return ctx.JSON(http.StatusOK, entries)
	}, jwt, auth.activeUserMiddleware, auth.adminMiddleware())
}
