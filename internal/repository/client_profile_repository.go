package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/gym-server/internal/model"
)

// ClientProfileRepo stores client profiles together with their
// subscription and linked services.
type ClientProfileRepo struct{ db *sql.DB }

func NewClientProfileRepo(db *sql.DB) *ClientProfileRepo { return &ClientProfileRepo{db: db} }

func (r *ClientProfileRepo) Kind() model.ProfileKind { return model.KindClient }

const clientSelect = "SELECT cp.id, " + userColumns + ", s.id, s.month, s.updated_at" +
	" FROM client_profiles cp" +
	" JOIN users u ON u.id = cp.user_id" +
	" LEFT JOIN subscriptions s ON s.id = cp.subscription_id"

// expiryExpr is the subscription expiry date.  DATE_ADD clamps to the end
// of the month the same way the expiry calculator does.
const expiryExpr = "DATE_ADD(COALESCE(s.updated_at, u.created_at), INTERVAL s.month MONTH)"

func scanClient(s rowScanner) (*model.ClientProfile, error) {
	p := &model.ClientProfile{}
	var (
		subID      sql.NullInt64
		subMonth   sql.NullInt64
		subUpdated sql.NullTime
	)
	dest := append([]any{&p.ID}, userDest(&p.User)...)
	dest = append(dest, &subID, &subMonth, &subUpdated)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if subID.Valid {
		p.Subscription = &model.Subscription{ID: uint64(subID.Int64), Month: int(subMonth.Int64)}
		if subUpdated.Valid {
			t := subUpdated.Time
			p.Subscription.UpdatedAt = &t
		}
	}
	return p, nil
}

// buildClientList returns the list query for f.
func buildClientList(f model.ProfileFilter) (string, []any) {
	var w whereBuilder
	commonProfileFilters(&w, f)
	if f.ServiceName != "" {
		w.add(`EXISTS (SELECT 1 FROM client_profile_services cps JOIN services sv ON sv.id = cps.service_id
			WHERE cps.profile_id = cp.id AND sv.name LIKE ?)`, likeContains(f.ServiceName))
	}
	if f.Expired != nil {
		today := f.Today
		if today.IsZero() {
			today = time.Now().UTC()
		}
		day := today.Format(time.DateOnly)
		if *f.Expired {
			w.add("(s.id IS NULL OR "+expiryExpr+" <= ?)", day)
		} else {
			w.add("(s.id IS NOT NULL AND "+expiryExpr+" > ?)", day)
		}
	}
	return clientSelect + w.sql() + " ORDER BY cp.id", w.args
}

// List returns client profiles matching f in id order.
func (r *ClientProfileRepo) List(ctx context.Context, f model.ProfileFilter) ([]model.Profile, error) {
	q, args := buildClientList(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var profiles []*model.ClientProfile
	for rows.Next() {
		p, err := scanClient(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]model.Profile, 0, len(profiles))
	for _, p := range profiles {
		if err := r.loadServices(ctx, r.db, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// GetByID returns the client profile with the given id.
func (r *ClientProfileRepo) GetByID(ctx context.Context, id uint64) (model.Profile, error) {
	p, err := scanClient(r.db.QueryRowContext(ctx, clientSelect+" WHERE cp.id = ?", id))
	if err != nil {
		return nil, translate(err, ErrDuplicate)
	}
	if err := r.loadServices(ctx, r.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ClientProfileRepo) loadServices(ctx context.Context, q querier, p *model.ClientProfile) error {
	rows, err := q.QueryContext(ctx,
		`SELECT sv.id, sv.name, sv.time_start, sv.time_end
		 FROM client_profile_services cps JOIN services sv ON sv.id = cps.service_id
		 WHERE cps.profile_id = ? ORDER BY sv.id`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	p.Services = nil
	p.ServiceIDs = nil
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.TimeStart, &s.TimeEnd); err != nil {
			return err
		}
		p.Services = append(p.Services, s)
		p.ServiceIDs = append(p.ServiceIDs, s.ID)
	}
	return rows.Err()
}

// ExistsForUser reports whether userID already owns a client profile.
func (r *ClientProfileRepo) ExistsForUser(ctx context.Context, userID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM client_profiles WHERE user_id = ?", userID).Scan(&n)
	return n > 0, err
}

// Create inserts the subscription, the profile row and its service links
// in one transaction.  A second profile for the same user yields
// ErrDuplicate from the unique index.
func (r *ClientProfileRepo) Create(ctx context.Context, in model.ProfileInput) (model.Profile, error) {
	month := in.SubscriptionMonth
	if month == 0 {
		month = 1
	}
	var id uint64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO subscriptions (month, updated_at) VALUES (?, ?)", month, nullDate(in.SubscriptionUpdatedAt))
		if err != nil {
			return err
		}
		subID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx,
			"INSERT INTO client_profiles (user_id, subscription_id) VALUES (?, ?)", in.UserID, subID)
		if err != nil {
			return translate(err, ErrDuplicate)
		}
		pid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(pid)
		return replaceLinks(ctx, tx, "client_profile_services", "service_id", id, in.LinkedIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update applies a validated patch in one transaction.
func (r *ClientProfileRepo) Update(ctx context.Context, id uint64, patch model.ProfilePatch) (model.Profile, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			userID uint64
			subID  sql.NullInt64
		)
		if err := tx.QueryRowContext(ctx,
			"SELECT user_id, subscription_id FROM client_profiles WHERE id = ? FOR UPDATE", id).Scan(&userID, &subID); err != nil {
			return translate(err, ErrDuplicate)
		}
		if err := applyUserPatch(ctx, tx, userID, patch.User); err != nil {
			return err
		}
		if sp := patch.Subscription; sp != nil && (sp.Month != nil || sp.ParsedUpdatedAt != nil) {
			if err := upsertSubscription(ctx, tx, id, subID, sp); err != nil {
				return err
			}
		}
		if patch.LinkedIDs != nil {
			return replaceLinks(ctx, tx, "client_profile_services", "service_id", id, *patch.LinkedIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func upsertSubscription(ctx context.Context, tx *sql.Tx, profileID uint64, subID sql.NullInt64, sp *model.SubscriptionPatch) error {
	if !subID.Valid {
		month := 1
		if sp.Month != nil {
			month = *sp.Month
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO subscriptions (month, updated_at) VALUES (?, ?)", month, nullDate(sp.ParsedUpdatedAt))
		if err != nil {
			return err
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE client_profiles SET subscription_id = ? WHERE id = ?", newID, profileID)
		return err
	}
	if sp.Month != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE subscriptions SET month = ? WHERE id = ?", *sp.Month, subID.Int64); err != nil {
			return err
		}
	}
	if sp.ParsedUpdatedAt != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE subscriptions SET updated_at = ? WHERE id = ?",
			nullDate(sp.ParsedUpdatedAt), subID.Int64); err != nil {
			return err
		}
	}
	return nil
}

// Delete deactivates the owning user, deletes the subscription (if any),
// the service links and the profile row, in that order, in one
// transaction.  It returns the owning user's id.
func (r *ClientProfileRepo) Delete(ctx context.Context, id uint64) (uint64, error) {
	var userID uint64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var subID sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			"SELECT user_id, subscription_id FROM client_profiles WHERE id = ? FOR UPDATE", id).Scan(&userID, &subID); err != nil {
			return translate(err, ErrDuplicate)
		}
		if err := deactivateUser(ctx, tx, userID); err != nil {
			return err
		}
		if subID.Valid {
			if _, err := tx.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", subID.Int64); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM client_profile_services WHERE profile_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM client_profiles WHERE id = ?", id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}
