package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/services/metrics"
)

// adminMiddleware lets admins through. When roles are set, the admin must also hold one of them.
func (a *authenticator) adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := a.getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && a.contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware lets staff members and admins through.
func (a *authenticator) staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := a.getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsStaff || claims.IsAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// activeUserMiddleware rejects the tokens of users deactivated since they logged in.
func (a *authenticator) activeUserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := a.getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}
		return next(ctx)
	}
}

// metricsMiddleware observes the duration of every request, labelled by route.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		if err := next(ctx); err != nil {
			ctx.Error(err) // writes the response so that its status is known
		}

		path := ctx.Path()
		if path == "" {
			path = "unmatched"
		}
		metrics.APIRequestDuration.
			WithLabelValues(path, ctx.Request().Method, strconv.Itoa(ctx.Response().Status)).
			Observe(time.Since(start).Seconds())
		return nil
	}
}
