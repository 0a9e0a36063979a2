// Package service holds the authentication, authorization and profile
// logic of the gym backend.  Handlers call into it; it calls into the
// repositories through small store interfaces so it can be tested with
// in-memory fakes.
package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/iliyamo/gym-server/internal/model"
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindPermission
	KindNotFound
)

// Error is a domain failure with a stable message code.  Codes are the
// keys used by the i18n catalogs.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

// Authentication failures.  Each one is a distinct condition.
var (
	ErrUserNotFound       = newError(KindAuthentication, "user_not_found", "user not found")
	ErrInvalidCredentials = newError(KindAuthentication, "invalid_credentials", "wrong password")
	ErrAccountDeactivated = newError(KindAuthentication, "account_deactivated", "this user has been deactivated")
	ErrTokenExpired       = newError(KindAuthentication, "token_expired", "token has expired")
	ErrTokenMalformed     = newError(KindAuthentication, "token_malformed", "token cannot be decoded")
	ErrRefreshRevoked     = newError(KindAuthentication, "refresh_revoked", "refresh token has been superseded")
	ErrNotAuthenticated   = newError(KindAuthentication, "not_authenticated", "authentication credentials were not provided")
)

// ErrInvalidTokenType is returned when a token without the refresh marker
// is presented for refresh.
var ErrInvalidTokenType = newError(KindValidation, "invalid_token_type", "invalid token, a refresh token is required")

// ErrProfileAlreadyExists is returned when the user already owns a
// profile of the requested kind.
var ErrProfileAlreadyExists = newError(KindValidation, "profile_exists", "this profile already exists")

var (
	ErrPermissionDenied = newError(KindPermission, "permission_denied", "you do not have permission to perform this action")
	ErrRestrictedField  = newError(KindPermission, "restricted_field", `only admin can change fields "id", "role", "is_active"`)
)

var ErrNotFound = newError(KindNotFound, "not_found", "not found")

// Field error codes carried by ValidationError.
const (
	CodeRequired    = "required"
	CodeEmail       = "email"
	CodeEmailTaken  = "email_taken"
	CodeTooShort    = "too_short"
	CodeTooLong     = "too_long"
	CodeNumericName = "numeric_name"
	CodeInvalid     = "invalid"
	CodeMonth       = "month_choice"
	CodeDate        = "date_format"
	CodeRole        = "role_choice"
	CodeRoleKind    = "role_mismatch"
	CodeUnknownRef  = "unknown_reference"
)

// ValidationError collects field-level input problems.  Fields maps the
// JSON field name to one or more codes.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ","))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records code against field.
func (e *ValidationError) Add(field, code string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], code)
}

// Has reports whether field has at least one error.
func (e *ValidationError) Has(field string) bool { return len(e.Fields[field]) > 0 }

// OrNil returns e when it holds errors and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, code string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, code)
	return v
}

// KindOf classifies err.  Unknown errors are internal.
func KindOf(err error) Kind {
	var de *Error
	var ve *ValidationError
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &de):
		return de.Kind
	case errors.Is(err, model.ErrInvalidRoleParameter):
		return KindNotFound
	}
	return KindInternal
}

// CodeOf returns the message code of a domain error, or "" for errors
// that have none.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	if errors.Is(err, model.ErrInvalidRoleParameter) {
		return "invalid_role_parameter"
	}
	return ""
}
