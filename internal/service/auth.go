package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/gym-server/internal/config"
	"github.com/iliyamo/gym-server/internal/model"
	q "github.com/iliyamo/gym-server/internal/queue"
	"github.com/iliyamo/gym-server/internal/repository"
	"github.com/iliyamo/gym-server/internal/utils"
)

// UserStore is the user half of the credential store.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetActive(ctx context.Context, id uint64, active bool) error
}

// TokenStore is the refresh token half of the credential store.
type TokenStore interface {
	UpsertRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	RotateRefresh(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
	DeleteForUser(ctx context.Context, userID uint64) error
}

// ErrAccessTokenRequired is returned when a refresh token is presented in
// the Authorization header.
var ErrAccessTokenRequired = newError(KindAuthentication, "access_token_required", "invalid token, an access token is required")

// AuthService implements registration, login, token refresh and request
// authentication.
type AuthService struct {
	users      UserStore
	tokens     TokenStore
	codec      *utils.TokenCodec
	events     EventPublisher
	bcryptCost int
	exactMatch bool
}

func NewAuthService(cfg config.Config, users UserStore, tokens TokenStore, codec *utils.TokenCodec, events EventPublisher) *AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = 12
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		events:     events,
		bcryptCost: cost,
		exactMatch: cfg.RefreshExactMatch,
	}
}

// RegisterInput is the registration payload.  Role defaults to client
// when absent; only client and staff may self-register.
type RegisterInput struct {
	FirstName string      `json:"first_name" validate:"required,max=25"`
	LastName  string      `json:"last_name" validate:"required,max=25"`
	Email     string      `json:"email" validate:"required,email,max=254"`
	Role      *model.Role `json:"role"`
	Password  string      `json:"password" validate:"required,min=8,max=128"`
}

// Registration is the result of Register.  Token is an access token
// issued on the spot and not stored.
type Registration struct {
	User  model.User
	Token utils.AccessToken
}

// Session is an issued token pair for a user.
type Session struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Register validates in, hashes the password and creates an active user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Registration, error) {
	role := model.RoleClient
	var ve *ValidationError
	if in.Role != nil {
		role = *in.Role
		if role != model.RoleClient && role != model.RoleStaff {
			ve = fieldError("role", CodeRole)
		}
	}
	u, err := s.createUser(ctx, in, role, ve)
	if err != nil {
		return Registration{}, err
	}

	tok, err := s.codec.IssueAccess(u.ID)
	if err != nil {
		return Registration{}, fmt.Errorf("issue access: %w", err)
	}
	publish(ctx, s.events, q.NewUserEvent(q.EventUserRegistered, u.ID, u.Email, int(u.Role)))
	return Registration{User: u, Token: tok}, nil
}

// CreateSuperuser creates an active admin account with the superuser and
// staff flags set.  in.Role is ignored.
func (s *AuthService) CreateSuperuser(ctx context.Context, in RegisterInput) (model.User, error) {
	return s.createUser(ctx, in, model.RoleAdmin, nil)
}

// SetUserActive flips the active flag of the account registered under
// email.  Deactivated accounts cannot log in or refresh.
func (s *AuthService) SetUserActive(ctx context.Context, email string, active bool) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := s.users.SetActive(ctx, u.ID, active); err != nil {
		return model.User{}, fmt.Errorf("set active: %w", err)
	}
	u.IsActive = active
	return u, nil
}

// createUser validates in on top of the errors already in pre and stores
// the user.  Admin accounts get both admin flags.
func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role model.Role, pre *ValidationError) (model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = repository.NormalizeEmail(in.Email)

	ve := checkStruct(in)
	if pre != nil {
		for f, codes := range pre.Fields {
			for _, c := range codes {
				ve.Add(f, c)
			}
		}
	}
	if numericName(in.FirstName) {
		ve.Add("first_name", CodeNumericName)
	}
	if numericName(in.LastName) {
		ve.Add("last_name", CodeNumericName)
	}
	if err := ve.OrNil(); err != nil {
		return model.User{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		IsStaff:      role == model.RoleAdmin,
		IsSuperuser:  role == model.RoleAdmin,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, fieldError("email", CodeEmailTaken)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login checks credentials and issues a token pair.  The failure steps
// run in a fixed order and a failed login never writes to the store.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	ve := &ValidationError{}
	if strings.TrimSpace(email) == "" {
		ve.Add("email", CodeRequired)
	}
	if password == "" {
		ve.Add("password", CodeRequired)
	}
	if err := ve.OrNil(); err != nil {
		return Session{}, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrUserNotFound
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return Session{}, ErrAccountDeactivated
	}
	return s.issue(ctx, u)
}

// Refresh exchanges a refresh token for a new pair.  The previous refresh
// token is invalidated by overwrite.  With exact matching on, the overwrite
// is a compare-and-swap against the presented token, so of two concurrent
// refreshes with the same token only one succeeds.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, fieldError("refresh_token", CodeRequired)
	}
	claims, err := s.decode(raw)
	if err != nil {
		return Session{}, err
	}
	u, err := s.loadActive(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if !claims.IsRefresh() {
		return Session{}, ErrInvalidTokenType
	}
	if !s.exactMatch {
		return s.issue(ctx, u)
	}
	sess, err := s.pair(u)
	if err != nil {
		return Session{}, err
	}
	err = s.tokens.RotateRefresh(ctx, u.ID, utils.HashRefreshRaw(raw), utils.HashRefreshRaw(sess.Refresh.Raw), sess.Refresh.Exp)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return Session{}, ErrRefreshRevoked
	case err != nil:
		return Session{}, fmt.Errorf("rotate refresh: %w", err)
	}
	return sess, nil
}

// Authenticate resolves an access token to the calling principal.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (model.Principal, error) {
	claims, err := s.decode(raw)
	if err != nil {
		return model.Principal{}, err
	}
	if claims.IsRefresh() {
		return model.Principal{}, ErrAccessTokenRequired
	}
	u, err := s.loadActive(ctx, claims.ID)
	if err != nil {
		return model.Principal{}, err
	}
	return u.Principal(), nil
}

// Logout forgets the user's stored refresh token.  Access tokens stay
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	return s.tokens.DeleteForUser(ctx, userID)
}

func (s *AuthService) decode(raw string) (utils.Claims, error) {
	claims, err := s.codec.Decode(raw)
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return utils.Claims{}, ErrTokenExpired
	case err != nil:
		return utils.Claims{}, ErrTokenMalformed
	}
	return claims, nil
}

func (s *AuthService) loadActive(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return model.User{}, ErrAccountDeactivated
	}
	return u, nil
}

func (s *AuthService) pair(u model.User) (Session, error) {
	access, err := s.codec.IssueAccess(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue access: %w", err)
	}
	refresh, err := s.codec.IssueRefresh(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh: %w", err)
	}
	return Session{User: u, Access: access, Refresh: refresh}, nil
}

// issue signs a new pair and stores its refresh token unconditionally.
func (s *AuthService) issue(ctx context.Context, u model.User) (Session, error) {
	sess, err := s.pair(u)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.UpsertRefresh(ctx, u.ID, utils.HashRefreshRaw(sess.Refresh.Raw), sess.Refresh.Exp); err != nil {
		return Session{}, fmt.Errorf("save refresh: %w", err)
	}
	return sess, nil
}
