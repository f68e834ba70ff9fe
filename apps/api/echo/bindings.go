package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

var orderingParam = "ordering"

// Ordering binds the `ordering` query param: a comma separated list of fields, "-" prefixed when descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind keeps the fields found in allowed, when set.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]bool) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" || (allowed != nil && !allowed[field]) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindTimeParams parses the RFC 3339 query params named by the keys of dest.
func bindTimeParams(ctx echo.Context, dest map[string]*time.Time) error {
	for name, t := range dest {
		val := ctx.QueryParam(name)
		if val == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: name, Error: "invalid RFC 3339 date-time"})
		}
		*t = parsed
	}
	return nil
}
