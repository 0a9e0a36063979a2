package service

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/gym-server/internal/model"
	q "github.com/iliyamo/gym-server/internal/queue"
	"github.com/iliyamo/gym-server/internal/repository"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[uint64]model.User
	nextID uint64
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint64]model.User{}, nextID: 100}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now().UTC().Truncate(24 * time.Hour)
	u.UpdatedAt = u.CreatedAt
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) SetActive(_ context.Context, id uint64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = active
	f.byID[id] = u
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	recs   map[uint64]model.RefreshToken
	writes int
}

func newFakeTokens() *fakeTokens { return &fakeTokens{recs: map[uint64]model.RefreshToken{}} }

func (f *fakeTokens) UpsertRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.recs[userID] = model.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (f *fakeTokens) RotateRefresh(_ context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.recs[userID]
	if !ok || t.TokenHash != oldHash {
		return repository.ErrNotFound
	}
	f.writes++
	f.recs[userID] = model.RefreshToken{UserID: userID, TokenHash: newHash, ExpiresAt: exp}
	return nil
}

func (f *fakeTokens) DeleteForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	delete(f.recs, userID)
	return nil
}

type fakePublisher struct {
	events []q.UserEvent
}

func (f *fakePublisher) PublishUserEvent(_ context.Context, ev q.UserEvent) error {
	f.events = append(f.events, ev)
	return nil
}

// fakeProfiles is an in-memory ProfileRepo for one kind.
type fakeProfiles struct {
	kind     model.ProfileKind
	byID     map[uint64]model.Profile
	nextID   uint64
	calls    int
	writes   int
	lastIn   model.ProfileInput
	lastPat  model.ProfilePatch
	lastList model.ProfileFilter
}

func newFakeProfiles(kind model.ProfileKind, profiles ...model.Profile) *fakeProfiles {
	f := &fakeProfiles{kind: kind, byID: map[uint64]model.Profile{}, nextID: 50}
	for _, p := range profiles {
		f.byID[p.ProfileID()] = p
	}
	return f
}

func (f *fakeProfiles) Kind() model.ProfileKind { return f.kind }

func (f *fakeProfiles) List(_ context.Context, flt model.ProfileFilter) ([]model.Profile, error) {
	f.calls++
	f.lastList = flt
	out := []model.Profile{}
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id uint64) (model.Profile, error) {
	f.calls++
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) ExistsForUser(_ context.Context, userID uint64) (bool, error) {
	f.calls++
	for _, p := range f.byID {
		if p.Owner().ID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProfiles) Create(_ context.Context, in model.ProfileInput) (model.Profile, error) {
	f.calls++
	f.writes++
	f.lastIn = in
	f.nextID++
	var p model.Profile
	if f.kind == model.KindClient {
		month := in.SubscriptionMonth
		if month == 0 {
			month = 1
		}
		p = &model.ClientProfile{ID: f.nextID, User: model.User{ID: in.UserID, CreatedAt: time.Now().UTC()},
			Subscription: &model.Subscription{ID: f.nextID, Month: month, UpdatedAt: in.SubscriptionUpdatedAt}}
	} else {
		p = &model.StaffProfile{ID: f.nextID, User: model.User{ID: in.UserID}, Position: &model.Position{ID: in.PositionID}}
	}
	p.SetLinkedIDs(in.LinkedIDs)
	f.byID[f.nextID] = p
	return p, nil
}

func (f *fakeProfiles) Update(_ context.Context, id uint64, patch model.ProfilePatch) (model.Profile, error) {
	f.calls++
	f.writes++
	f.lastPat = patch
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.LinkedIDs != nil {
		p.SetLinkedIDs(*patch.LinkedIDs)
	}
	return p, nil
}

func (f *fakeProfiles) Delete(_ context.Context, id uint64) (uint64, error) {
	f.calls++
	f.writes++
	p, ok := f.byID[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	delete(f.byID, id)
	return p.Owner().ID, nil
}
