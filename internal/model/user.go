package model

import "time"

// Role is the numeric role stored in users.role.  Admin accounts are
// created by the createsuperuser command only; registration accepts
// Client or Staff.
type Role int

const (
	RoleAdmin  Role = 0
	RoleClient Role = 1
	RoleStaff  Role = 2
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient || r == RoleStaff
}

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column in the database.
// A user is never physically removed; deleting a profile flips
// IsActive to false.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – given name, at most 25 characters.
//  LastName     – family name, at most 25 characters.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash of the digested password.
//  Role         – RoleClient, RoleStaff or RoleAdmin.
//  IsActive     – whether the account may authenticate.
//  IsStaff      – admin-site flag; grants the admin override in capability checks.
//  IsSuperuser  – bypasses every role and ownership check.
//  CreatedAt    – date of creation; reference date for never-renewed subscriptions.
//  UpdatedAt    – date of last update.
type User struct {
	ID           uint64    // users.id
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	IsActive     bool      // users.is_active
	IsStaff      bool      // users.is_staff
	IsSuperuser  bool      // users.is_superuser
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Principal returns the immutable identity snapshot used by the
// authorization layer for the remainder of a request.
func (u User) Principal() Principal {
	return Principal{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	}
}

// Principal is the authenticated caller derived from a valid access token.
type Principal struct {
	ID          uint64
	Email       string
	Role        Role
	IsActive    bool
	IsStaff     bool
	IsSuperuser bool
}

// IsAdmin reports whether the principal carries the admin override
// (is_staff flag or superuser).
func (p Principal) IsAdmin() bool {
	return p.IsSuperuser || p.IsStaff
}

// RefreshToken models an entry in the `refresh_tokens` table.  There is
// at most one row per user; issuing a new refresh token overwrites it.
// Only the SHA-256 hash of the token string is stored.
type RefreshToken struct {
	UserID    uint64    // refresh_tokens.user_id (unique)
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	UpdatedAt time.Time // refresh_tokens.updated_at
}
