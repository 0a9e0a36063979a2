package middleware

// identity.go holds the helpers shared across middleware files for storing
// and reading the authenticated principal on the Echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-server/internal/model"
)

const (
	principalKey = "principal"
	kindKey      = "profile_kind"
)

// PrincipalFrom returns the authenticated principal, or nil for an
// anonymous request.
func PrincipalFrom(c echo.Context) *model.Principal {
	p, _ := c.Get(principalKey).(*model.Principal)
	return p
}

// SetPrincipal stores p on the context.  Exposed for handler tests.
func SetPrincipal(c echo.Context, p *model.Principal) { c.Set(principalKey, p) }

// KindFrom returns the profile kind selected by RequireRoleParam.
func KindFrom(c echo.Context) model.ProfileKind {
	k, _ := c.Get(kindKey).(model.ProfileKind)
	return k
}

// currentUserID is the rate limit and log identity of the caller: the
// principal's id, or "anon".
func currentUserID(c echo.Context) string {
	if p := PrincipalFrom(c); p != nil {
		return strconv.FormatUint(p.ID, 10)
	}
	return "anon"
}
