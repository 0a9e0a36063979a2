package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-server/internal/model"
	"github.com/iliyamo/gym-server/internal/service"
)

// TokenAuthenticator resolves a raw access token to a principal.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (model.Principal, error)
}

// tokenFromHeader extracts the JWT from "Authorization: Token <jwt>".  The
// prefix is case-insensitive; anything other than exactly two parts with
// that prefix yields ok=false.
func tokenFromHeader(h string) (string, bool) {
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Token") {
		return "", false
	}
	return parts[1], true
}

// Authenticate reads the access token from the Authorization header and
// stores the resulting principal on the context.  An absent or malformed
// header leaves the request anonymous and defers the decision to the
// permission checks.  A well-formed header carrying a bad token fails the
// request with the authentication error.
func Authenticate(auth TokenAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := tokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}
			p, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			SetPrincipal(c, &p)
			return next(c)
		}
	}
}

// RequireAuthenticated rejects anonymous requests.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if PrincipalFrom(c) == nil {
				return service.ErrNotAuthenticated
			}
			return next(c)
		}
	}
}
