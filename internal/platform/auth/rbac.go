package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AccessDeniedMessage is the body of every screen-level denial.
const AccessDeniedMessage = "Access Denied"

// RequireUser rejects requests that carry no authenticated user.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserFromContext(c.Request().Context()) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}

// RequirePermission returns middleware that gates a screen or action on a
// single permission string.
func RequirePermission(checker *Checker, perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := UserFromContext(c.Request().Context())
			if !checker.HasPermission(u, perm) {
				return echo.NewHTTPError(http.StatusForbidden, AccessDeniedMessage)
			}
			return next(c)
		}
	}
}

// RequireAnyPermission passes when the user holds at least one of perms.
func RequireAnyPermission(checker *Checker, perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := UserFromContext(c.Request().Context())
			for _, p := range perms {
				if checker.HasPermission(u, p) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, AccessDeniedMessage)
		}
	}
}
