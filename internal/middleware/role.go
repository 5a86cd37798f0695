package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tenant-auth-service/internal/model"
)

// RequireRole admits a request only when the identity stored by a previous
// gate holds one of roles. Anything else, including a missing identity, is
// answered with 403 before the handler runs.
//
// Unknown roles are a programming error and panic at route registration.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	if len(roles) == 0 {
		panic("middleware: RequireRole needs at least one role")
	}
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			panic(fmt.Sprintf("middleware: unknown role %q", r))
		}
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			if _, ok := allowed[id.Role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
