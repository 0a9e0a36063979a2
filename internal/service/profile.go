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

// ProfileRepo is implemented once per profile kind.  The dispatcher picks
// the implementation from the role parameter and never branches on the
// kind itself.
type ProfileRepo interface {
	Kind() model.ProfileKind
	List(ctx context.Context, f model.ProfileFilter) ([]model.Profile, error)
	GetByID(ctx context.Context, id uint64) (model.Profile, error)
	ExistsForUser(ctx context.Context, userID uint64) (bool, error)
	Create(ctx context.Context, in model.ProfileInput) (model.Profile, error)
	Update(ctx context.Context, id uint64, patch model.ProfilePatch) (model.Profile, error)
	Delete(ctx context.Context, id uint64) (uint64, error)
}

// ProfileService implements list/retrieve/create/update/delete on the
// role-partitioned /users resource.
type ProfileService struct {
	repos      map[model.ProfileKind]ProfileRepo
	users      UserStore
	events     EventPublisher
	bcryptCost int

	// Now is the clock used for expiry flags and the expired filter.
	Now func() time.Time
}

func NewProfileService(cfg config.Config, users UserStore, events EventPublisher, repos ...ProfileRepo) *ProfileService {
	m := make(map[model.ProfileKind]ProfileRepo, len(repos))
	for _, r := range repos {
		m[r.Kind()] = r
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = 12
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &ProfileService{repos: m, users: users, events: events, bcryptCost: cost, Now: time.Now}
}

func (s *ProfileService) repo(kind model.ProfileKind) (ProfileRepo, error) {
	r, ok := s.repos[kind]
	if !ok {
		return nil, model.ErrInvalidRoleParameter
	}
	return r, nil
}

// linkedField names the request field holding a kind's linked ids.
func linkedField(kind model.ProfileKind) string {
	if kind == model.KindStaff {
		return "clients"
	}
	return "services"
}

// ProfileView is a profile as returned to the caller.  Expired is set for
// client profiles only.
type ProfileView struct {
	Profile model.Profile
	Expired *bool
}

func (s *ProfileService) view(p model.Profile) ProfileView {
	v := ProfileView{Profile: p}
	if cp, ok := p.(*model.ClientProfile); ok {
		expired := IsExpired(cp, s.Now())
		v.Expired = &expired
	}
	return v
}

// List returns the profiles of kind matching f.  Only staff and admins
// may enumerate profiles.
func (s *ProfileService) List(ctx context.Context, p *model.Principal, kind model.ProfileKind, f model.ProfileFilter) ([]ProfileView, error) {
	r, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, AnyOf(StaffOnly, AdminOnly)); err != nil {
		return nil, err
	}
	if f.Today.IsZero() {
		f.Today = s.Now().UTC()
	}
	profiles, err := r.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list %s profiles: %w", kind, err)
	}
	out := make([]ProfileView, 0, len(profiles))
	for _, pr := range profiles {
		out = append(out, s.view(pr))
	}
	return out, nil
}

// load fetches a profile and checks the caller may act on it: the
// instance must exist first, then the ownership policy applies.
func (s *ProfileService) load(ctx context.Context, p *model.Principal, kind model.ProfileKind, id uint64) (ProfileRepo, model.Profile, error) {
	r, err := s.repo(kind)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, ErrNotAuthenticated
	}
	pr, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("load %s profile: %w", kind, err)
	}
	owner := pr.Owner().ID
	if err := authorizeRole(p, kind.Role(), &owner); err != nil {
		return nil, nil, err
	}
	return r, pr, nil
}

// Get returns one profile.  Expired client profiles are still returned.
func (s *ProfileService) Get(ctx context.Context, p *model.Principal, kind model.ProfileKind, id uint64) (ProfileView, error) {
	_, pr, err := s.load(ctx, p, kind, id)
	if err != nil {
		return ProfileView{}, err
	}
	return s.view(pr), nil
}

// CreateInput is the body of a profile create.  PositionID applies to
// staff profiles and Subscription to client profiles.
type CreateInput struct {
	UserID       uint64
	LinkedIDs    []uint64
	PositionID   *uint64
	Subscription *model.SubscriptionPatch
}

// Create makes a profile of kind for in.UserID.  Callers may only create
// their own profile unless they are superusers, and the target user must
// hold the kind's role.
func (s *ProfileService) Create(ctx context.Context, p *model.Principal, kind model.ProfileKind, in CreateInput) (ProfileView, error) {
	r, err := s.repo(kind)
	if err != nil {
		return ProfileView{}, err
	}
	if p == nil {
		return ProfileView{}, ErrNotAuthenticated
	}
	if in.UserID == 0 {
		return ProfileView{}, fieldError("user", CodeRequired)
	}
	if err := authorizeRole(p, kind.Role(), &in.UserID); err != nil {
		return ProfileView{}, err
	}

	ve := &ValidationError{}
	target, err := s.users.GetByID(ctx, in.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		ve.Add("user", CodeUnknownRef)
	case err != nil:
		return ProfileView{}, fmt.Errorf("load user: %w", err)
	case target.Role != kind.Role():
		ve.Add("user", CodeRole)
	}

	input := model.ProfileInput{UserID: in.UserID, LinkedIDs: in.LinkedIDs}
	switch kind {
	case model.KindClient:
		if sp := in.Subscription; sp != nil {
			if sp.ID != nil {
				return ProfileView{}, ErrRestrictedField
			}
			checkSubscription(ve, sp)
			if sp.Month != nil {
				input.SubscriptionMonth = *sp.Month
			}
			input.SubscriptionUpdatedAt = sp.ParsedUpdatedAt
		}
	case model.KindStaff:
		if in.PositionID == nil || *in.PositionID == 0 {
			ve.Add("position", CodeRequired)
		} else {
			input.PositionID = *in.PositionID
		}
	}
	if err := ve.OrNil(); err != nil {
		return ProfileView{}, err
	}

	exists, err := r.ExistsForUser(ctx, in.UserID)
	if err != nil {
		return ProfileView{}, fmt.Errorf("check %s profile: %w", kind, err)
	}
	if exists {
		return ProfileView{}, ErrProfileAlreadyExists
	}

	pr, err := r.Create(ctx, input)
	if err != nil {
		return ProfileView{}, s.writeError(kind, err)
	}
	return s.view(pr), nil
}

// Update applies a partial update.  Every check runs before the first
// write, so a rejected patch leaves the store untouched.
func (s *ProfileService) Update(ctx context.Context, p *model.Principal, kind model.ProfileKind, id uint64, patch model.ProfilePatch) (ProfileView, error) {
	r, _, err := s.load(ctx, p, kind, id)
	if err != nil {
		return ProfileView{}, err
	}
	if err := restrictedFields(p, kind, patch); err != nil {
		return ProfileView{}, err
	}

	ve := &ValidationError{}
	if up := patch.User; up != nil {
		checkUserPatch(ve, up)
		// A profile's owner keeps the profile's role.
		if up.Role != nil && *up.Role != kind.Role() {
			ve.Add("role", CodeRoleKind)
		}
	}
	if sp := patch.Subscription; sp != nil {
		if kind != model.KindClient {
			ve.Add("subscription", CodeInvalid)
		} else {
			checkSubscription(ve, sp)
		}
	}
	if patch.PositionID != nil && (kind != model.KindStaff || *patch.PositionID == 0) {
		ve.Add("position", CodeInvalid)
	}
	if err := ve.OrNil(); err != nil {
		return ProfileView{}, err
	}

	if up := patch.User; up != nil && up.Password != nil {
		hash, err := utils.HashPassword(*up.Password, s.bcryptCost)
		if err != nil {
			return ProfileView{}, fmt.Errorf("hash password: %w", err)
		}
		up.PasswordHash = hash
	}

	pr, err := r.Update(ctx, id, patch)
	if err != nil {
		return ProfileView{}, s.writeError(kind, err)
	}
	return s.view(pr), nil
}

// Delete deactivates the owning user and removes the profile.  It returns
// the owning user's id.
func (s *ProfileService) Delete(ctx context.Context, p *model.Principal, kind model.ProfileKind, id uint64) (uint64, error) {
	r, pr, err := s.load(ctx, p, kind, id)
	if err != nil {
		return 0, err
	}
	userID, err := r.Delete(ctx, id)
	if err != nil {
		return 0, s.writeError(kind, err)
	}
	owner := pr.Owner()
	ev := q.NewUserEvent(q.EventUserDeactivated, userID, owner.Email, int(owner.Role))
	ev.ProfileID = id
	publish(ctx, s.events, ev)
	return userID, nil
}

func (s *ProfileService) writeError(kind model.ProfileKind, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrProfileAlreadyExists
	case errors.Is(err, repository.ErrEmailExists):
		return fieldError("email", CodeEmailTaken)
	case errors.Is(err, repository.ErrBadReference):
		return fieldError(linkedField(kind), CodeUnknownRef)
	}
	return fmt.Errorf("write %s profile: %w", kind, err)
}

// restrictedFields rejects writes nobody may make (user id, subscription
// id) and the admin-only user fields for everyone else.
func restrictedFields(p *model.Principal, kind model.ProfileKind, patch model.ProfilePatch) error {
	if up := patch.User; up != nil {
		if up.ID != nil {
			return ErrRestrictedField
		}
		if (up.Role != nil || up.IsActive != nil) && !p.IsAdmin() {
			return ErrRestrictedField
		}
	}
	if sp := patch.Subscription; sp != nil && sp.ID != nil && kind == model.KindClient {
		return ErrRestrictedField
	}
	return nil
}

func checkUserPatch(ve *ValidationError, up *model.UserPatch) {
	checkName := func(field string, v *string) {
		if v == nil {
			return
		}
		name := strings.TrimSpace(*v)
		*v = name
		switch {
		case name == "":
			ve.Add(field, CodeRequired)
		case len([]rune(name)) > 25:
			ve.Add(field, CodeTooLong)
		case numericName(name):
			ve.Add(field, CodeNumericName)
		}
	}
	checkName("first_name", up.FirstName)
	checkName("last_name", up.LastName)
	if up.Email != nil && !validEmail(repository.NormalizeEmail(*up.Email)) {
		ve.Add("email", CodeEmail)
	}
	if up.Password != nil {
		if code := passwordCode(*up.Password); code != "" {
			ve.Add("password", code)
		}
	}
	if up.Role != nil && !up.Role.Valid() {
		ve.Add("role", CodeRole)
	}
}

func checkSubscription(ve *ValidationError, sp *model.SubscriptionPatch) {
	if sp.Month != nil && !model.ValidSubscriptionMonth(*sp.Month) {
		ve.Add("month", CodeMonth)
	}
	if sp.UpdatedAt != nil {
		t, ok := parseDate(*sp.UpdatedAt)
		if !ok {
			ve.Add("updated_at", CodeDate)
			return
		}
		sp.ParsedUpdatedAt = &t
	}
}
