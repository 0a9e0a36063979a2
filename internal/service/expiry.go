package service

import (
	"time"

	"github.com/iliyamo/gym-server/internal/model"
)

// addMonths adds n calendar months to the date of t, clamping the day to
// the last day of the target month (Jan 31 + 1 month = Feb 28 or 29).
// The result is midnight UTC.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// ExpiresAt returns the date a client profile's subscription lapses.  The
// reference date is the subscription's updated_at, or the owning user's
// created_at when the subscription was never renewed.  ok is false for a
// profile without a subscription.
func ExpiresAt(p *model.ClientProfile) (exp time.Time, ok bool) {
	if p == nil || p.Subscription == nil {
		return time.Time{}, false
	}
	ref := p.User.CreatedAt
	if p.Subscription.UpdatedAt != nil {
		ref = *p.Subscription.UpdatedAt
	}
	return addMonths(ref, p.Subscription.Month), true
}

// IsExpired reports whether the profile's subscription has lapsed as of
// now: the date of now is on or after the expiry date.  A profile with
// no subscription counts as expired.
func IsExpired(p *model.ClientProfile, now time.Time) bool {
	exp, ok := ExpiresAt(p)
	if !ok {
		return true
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !today.Before(exp)
}
