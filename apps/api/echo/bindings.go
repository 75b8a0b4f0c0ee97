package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/gradebook/core"
)

var orderingParam = "ordering"

// Ordering binds `?ordering=name,-created_at` to DB orderings. A leading "-" means descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
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
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// requireQueryParam returns the trimmed query param `name`, or a validation error when it is missing.
func requireQueryParam(ctx echo.Context, name string) (string, error) {
	val := core.CleanString(ctx.QueryParam(name))
	if val == "" {
		return "", core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " is required"})
	}
	return val, nil
}
