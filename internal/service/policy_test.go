package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/gym-server/internal/model"
)

var (
	clientP    = &model.Principal{ID: 1, Role: model.RoleClient, IsActive: true}
	staffP     = &model.Principal{ID: 2, Role: model.RoleStaff, IsActive: true}
	otherStaff = &model.Principal{ID: 3, Role: model.RoleStaff, IsActive: true}
	adminP     = &model.Principal{ID: 4, Role: model.RoleAdmin, IsActive: true, IsStaff: true}
	superP     = &model.Principal{ID: 5, Role: model.RoleAdmin, IsActive: true, IsStaff: true, IsSuperuser: true}
	inactiveP  = &model.Principal{ID: 6, Role: model.RoleStaff, IsActive: false}
)

func ptr[T any](v T) *T { return &v }

func TestPermits(t *testing.T) {
	cases := []struct {
		name     string
		p        *model.Principal
		role     model.Role
		owner    *uint64
		expected bool
	}{
		{"client denied staff action", clientP, model.RoleStaff, nil, false},
		{"staff own profile", staffP, model.RoleStaff, ptr(uint64(2)), true},
		{"staff other staff profile", staffP, model.RoleStaff, ptr(uint64(3)), false},
		{"superuser any role", superP, model.RoleStaff, nil, true},
		{"superuser other owner", superP, model.RoleClient, ptr(uint64(1)), true},
		{"is_staff flag is not superuser", adminP, model.RoleStaff, ptr(uint64(2)), false},
		{"inactive", inactiveP, model.RoleStaff, nil, false},
		{"anonymous", nil, model.RoleClient, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Permits(tc.p, tc.role, tc.owner))
		})
	}
}

func TestCapabilities(t *testing.T) {
	staffOrAdmin := AnyOf(StaffOnly, AdminOnly)
	assert.False(t, staffOrAdmin(clientP))
	assert.True(t, staffOrAdmin(staffP))
	assert.True(t, staffOrAdmin(adminP))
	assert.True(t, staffOrAdmin(superP))
	assert.False(t, staffOrAdmin(inactiveP))
	assert.False(t, staffOrAdmin(nil))

	assert.True(t, ClientOnly(clientP))
	assert.False(t, ClientOnly(staffP))

	assert.ErrorIs(t, Authorize(nil, ClientOnly), ErrNotAuthenticated)
	assert.ErrorIs(t, Authorize(clientP, StaffOnly), ErrPermissionDenied)
	assert.NoError(t, Authorize(clientP, ClientOnly))
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, day(2025, time.February, 28), addMonths(day(2025, time.January, 31), 1))
	assert.Equal(t, day(2024, time.February, 29), addMonths(day(2024, time.January, 31), 1))
	assert.Equal(t, day(2026, time.January, 15), addMonths(day(2025, time.January, 15), 12))
	assert.Equal(t, day(2025, time.April, 30), addMonths(day(2024, time.October, 31), 6))
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2025, 8, 10, 15, 0, 0, 0, time.UTC)
	sevenMonthsAgo := now.AddDate(0, -7, 0)

	p := &model.ClientProfile{
		User:         model.User{CreatedAt: sevenMonthsAgo},
		Subscription: &model.Subscription{Month: 6},
	}
	assert.True(t, IsExpired(p, now))

	renewed := day(2025, time.July, 1)
	p.Subscription.UpdatedAt = &renewed
	assert.False(t, IsExpired(p, now))

	// The expiry day itself counts as expired.
	assert.True(t, IsExpired(p, day(2026, time.January, 1)))
	assert.False(t, IsExpired(p, day(2025, time.December, 31)))

	assert.True(t, IsExpired(&model.ClientProfile{}, now))
}

func TestIsExpiredMonotonic(t *testing.T) {
	created := day(2024, time.January, 31)
	for _, month := range []int{1, 6, 12} {
		p := &model.ClientProfile{User: model.User{CreatedAt: created}, Subscription: &model.Subscription{Month: month}}
		seen := false
		for d := 0; d < 500; d++ {
			expired := IsExpired(p, created.AddDate(0, 0, d))
			if seen {
				assert.True(t, expired, "month=%d day=%d", month, d)
			}
			seen = seen || expired
		}
		assert.True(t, seen)
	}
}
