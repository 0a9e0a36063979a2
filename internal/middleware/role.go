package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-server/internal/model"
	"github.com/iliyamo/gym-server/internal/service"
)

// RequireCapability returns a middleware that enforces check against the
// principal stored by Authenticate.  Anonymous requests fail with 401,
// refused ones with 403.
func RequireCapability(check service.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := service.Authorize(PrincipalFrom(c), check); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireRoleParam parses the mandatory `role` query parameter and stores
// the selected profile kind.  It must run before authentication so an
// invalid parameter is rejected before anything else happens.
func RequireRoleParam() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			kind, err := model.ParseKind(c.QueryParam("role"))
			if err != nil {
				return err
			}
			c.Set(kindKey, kind)
			return next(c)
		}
	}
}
