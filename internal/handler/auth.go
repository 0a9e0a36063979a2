package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-server/internal/middleware"
	"github.com/iliyamo/gym-server/internal/model"
	"github.com/iliyamo/gym-server/internal/service"
)

// AuthAPI is the authentication service as seen by the HTTP layer.
type AuthAPI interface {
	Register(ctx context.Context, in service.RegisterInput) (service.Registration, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Refresh(ctx context.Context, raw string) (service.Session, error)
	Logout(ctx context.Context, userID uint64) error
}

// AuthHandler serves /registration, /login, /refresh-token and /logout.
type AuthHandler struct {
	Auth AuthAPI
}

func NewAuthHandler(a AuthAPI) *AuthHandler { return &AuthHandler{Auth: a} }

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type registeredUser struct {
	ID        uint64     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	Token     string     `json:"token"`
}
type sessionUser struct {
	ID           uint64     `json:"id"`
	Email        string     `json:"email"`
	Role         model.Role `json:"role"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

func sessionResp(s service.Session) echo.Map {
	return echo.Map{"user": sessionUser{
		ID:           s.User.ID,
		Email:        s.User.Email,
		Role:         s.User.Role,
		AccessToken:  s.Access.Token,
		RefreshToken: s.Refresh.Raw,
	}}
}

// Register creates an active user and answers with an access token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reg, err := h.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": registeredUser{
		ID:        reg.User.ID,
		FirstName: reg.User.FirstName,
		LastName:  reg.User.LastName,
		Email:     reg.User.Email,
		Role:      reg.User.Role,
		Token:     reg.Token.Token,
	}})
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Refresh exchanges the refresh token in the body for a new pair.  The
// route also requires an access token in the Authorization header.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Logout drops the caller's stored refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		return service.ErrNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.Logout(ctx, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
