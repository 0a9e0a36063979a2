package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/gym-server/internal/handler"
	"github.com/iliyamo/gym-server/internal/i18n"
	"github.com/iliyamo/gym-server/internal/model"
	"github.com/iliyamo/gym-server/internal/service"
)

type tokens map[string]model.Principal

func (t tokens) Authenticate(_ context.Context, raw string) (model.Principal, error) {
	p, ok := t[raw]
	if !ok {
		return model.Principal{}, service.ErrTokenMalformed
	}
	return p, nil
}

func newServer() *echo.Echo {
	e := echo.New()
	e.Validator = handler.Validator{}
	e.HTTPErrorHandler = handler.ErrorHandler(i18n.New())
	s := Shared{Authn: tokens{
		"client": {ID: 1, Role: model.RoleClient, IsActive: true},
		"staff":  {ID: 2, Role: model.RoleStaff, IsActive: true},
	}}
	RegisterRoutes(e, nil)
	// Handlers are never reached in these tests; nil dependencies are fine.
	RegisterAuth(e, handler.NewAuthHandler(nil), s)
	RegisterUsers(e, handler.NewProfileHandler(nil), s)
	RegisterCatalog(e, handler.NewCatalogHandler(nil), s)
	return e
}

func call(e *echo.Echo, method, target, token string) int {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Token "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutes(t *testing.T) {
	e := newServer()
	cases := map[string]struct {
		method, target, token string
		status                int
	}{
		"health":                          {http.MethodGet, "/healthz", "", http.StatusOK},
		"role param checked before auth":  {http.MethodGet, "/users?role=3", "garbage", http.StatusNotFound},
		"missing role param":              {http.MethodGet, "/users/1", "", http.StatusNotFound},
		"users need a token":              {http.MethodGet, "/users?role=1", "", http.StatusUnauthorized},
		"bad token":                       {http.MethodGet, "/users?role=1", "garbage", http.StatusUnauthorized},
		"refresh needs access token":      {http.MethodPost, "/refresh-token", "", http.StatusUnauthorized},
		"logout needs access token":       {http.MethodPost, "/logout", "", http.StatusUnauthorized},
		"client cannot write services":    {http.MethodPost, "/services", "client", http.StatusForbidden},
		"client cannot see positions":     {http.MethodGet, "/positions", "client", http.StatusForbidden},
		"client cannot see subscriptions": {http.MethodGet, "/subscriptions", "client", http.StatusForbidden},
		"anonymous catalog":               {http.MethodGet, "/services", "", http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.status, call(e, tc.method, tc.target, tc.token))
		})
	}
}
