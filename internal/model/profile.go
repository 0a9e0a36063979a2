package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ProfileKind selects which profile table a /users request operates on.
// The numeric values match the `role` query parameter and the owning
// user's Role.
type ProfileKind int

const (
	KindClient ProfileKind = 1
	KindStaff  ProfileKind = 2
)

// ErrInvalidRoleParameter is returned by ParseKind for anything other
// than "1" or "2", including an empty value.
var ErrInvalidRoleParameter = errors.New("invalid role parameter")

// ParseKind parses the raw `role` query parameter.
func ParseKind(raw string) (ProfileKind, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidRoleParameter
	}
	switch ProfileKind(n) {
	case KindClient, KindStaff:
		return ProfileKind(n), nil
	}
	return 0, ErrInvalidRoleParameter
}

// Role is the user role required to act on profiles of this kind.
func (k ProfileKind) Role() Role { return Role(k) }

func (k ProfileKind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindStaff:
		return "staff"
	}
	return "unknown"
}

// Profile is the capability shared by ClientProfile and StaffProfile.
// The dispatcher works on this interface; only the kind-specific
// repositories know the concrete type.
type Profile interface {
	Kind() ProfileKind
	ProfileID() uint64
	Owner() User
	// LinkedIDs returns service ids for clients and client user ids for staff.
	LinkedIDs() []uint64
	SetLinkedIDs(ids []uint64)
}

// Subscription mirrors the `subscriptions` table.  UpdatedAt is nil until
// the subscription is renewed, in which case the owning user's
// CreatedAt is the reference date for expiry.
type Subscription struct {
	ID        uint64     `json:"id"`
	Month     int        `json:"month"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// ValidSubscriptionMonth reports whether m is an offered duration.
func ValidSubscriptionMonth(m int) bool {
	return m == 1 || m == 6 || m == 12
}

// ClientProfile mirrors `client_profiles` with its user, subscription and
// the services linked through `client_profile_services`.
type ClientProfile struct {
	ID           uint64
	User         User
	Subscription *Subscription
	Services     []Service
	ServiceIDs   []uint64
}

func (p *ClientProfile) Kind() ProfileKind { return KindClient }
func (p *ClientProfile) ProfileID() uint64 { return p.ID }
func (p *ClientProfile) Owner() User { return p.User }
func (p *ClientProfile) LinkedIDs() []uint64 { return p.ServiceIDs }
func (p *ClientProfile) SetLinkedIDs(ids []uint64) { p.ServiceIDs = ids }

// StaffProfile mirrors `staff_profiles` with its user, position and the
// client users linked through `staff_profile_clients`.
type StaffProfile struct {
	ID        uint64
	User      User
	Position  *Position
	Clients   []User
	ClientIDs []uint64
}

func (p *StaffProfile) Kind() ProfileKind { return KindStaff }
func (p *StaffProfile) ProfileID() uint64 { return p.ID }
func (p *StaffProfile) Owner() User { return p.User }
func (p *StaffProfile) LinkedIDs() []uint64 { return p.ClientIDs }
func (p *StaffProfile) SetLinkedIDs(ids []uint64) { p.ClientIDs = ids }

// ProfileInput carries the fields accepted when creating a profile.
// Subscription fields apply to client profiles, PositionID to staff.
type ProfileInput struct {
	UserID                uint64
	LinkedIDs             []uint64
	PositionID            uint64
	SubscriptionMonth     int
	SubscriptionUpdatedAt *time.Time
}

// UserPatch is the nested `user` object of a profile update.  Pointer
// fields distinguish "absent" from zero values so restricted fields can
// be rejected on presence.
type UserPatch struct {
	ID        *uint64 `json:"id"`
	Role      *Role   `json:"role"`
	IsActive  *bool   `json:"is_active"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`

	// PasswordHash is filled by the service layer after validation.
	PasswordHash string `json:"-"`
}

// SubscriptionPatch is the nested `subscription` object of a client
// profile update.  UpdatedAt is kept raw until validated.
type SubscriptionPatch struct {
	ID        *uint64 `json:"id"`
	Month     *int    `json:"month"`
	UpdatedAt *string `json:"updated_at"`

	// ParsedUpdatedAt is filled by the service layer after validation.
	ParsedUpdatedAt *time.Time `json:"-"`
}

// ProfilePatch is a partial profile update.  Nil members are left untouched.
type ProfilePatch struct {
	User         *UserPatch
	Subscription *SubscriptionPatch
	LinkedIDs    *[]uint64
	PositionID   *uint64
}

// ProfileFilter holds list filters.  Client-only and staff-only filters
// are ignored by the other kind.
type ProfileFilter struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	ServiceName string
	Expired     *bool

	PositionName string
	ClientIDs    []uint64

	// Today is the reference date for the Expired filter.
	Today time.Time
}
