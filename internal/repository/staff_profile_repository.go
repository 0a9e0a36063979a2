package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/gym-server/internal/model"
)

// StaffProfileRepo stores staff profiles together with their position and
// the client users they look after.
type StaffProfileRepo struct{ db *sql.DB }

func NewStaffProfileRepo(db *sql.DB) *StaffProfileRepo { return &StaffProfileRepo{db: db} }

func (r *StaffProfileRepo) Kind() model.ProfileKind { return model.KindStaff }

const staffSelect = "SELECT sp.id, " + userColumns + ", p.id, p.name, p.duty" +
	" FROM staff_profiles sp" +
	" JOIN users u ON u.id = sp.user_id" +
	" LEFT JOIN positions p ON p.id = sp.position_id"

func scanStaff(s rowScanner) (*model.StaffProfile, error) {
	p := &model.StaffProfile{}
	var (
		posID   sql.NullInt64
		posName sql.NullString
		posDuty sql.NullString
	)
	dest := append([]any{&p.ID}, userDest(&p.User)...)
	dest = append(dest, &posID, &posName, &posDuty)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if posID.Valid {
		p.Position = &model.Position{ID: uint64(posID.Int64), Name: posName.String, Duty: posDuty.String}
	}
	return p, nil
}

// buildStaffList returns the list query for f.
func buildStaffList(f model.ProfileFilter) (string, []any) {
	var w whereBuilder
	commonProfileFilters(&w, f)
	if f.PositionName != "" {
		w.add("p.name LIKE ?", likeContains(f.PositionName))
	}
	if len(f.ClientIDs) > 0 {
		ids := dedupe(f.ClientIDs)
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		w.add("EXISTS (SELECT 1 FROM staff_profile_clients spc WHERE spc.profile_id = sp.id AND spc.client_user_id IN ("+
			placeholders(len(ids))+"))", args...)
	}
	return staffSelect + w.sql() + " ORDER BY sp.id", w.args
}

// List returns staff profiles matching f in id order.
func (r *StaffProfileRepo) List(ctx context.Context, f model.ProfileFilter) ([]model.Profile, error) {
	q, args := buildStaffList(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var profiles []*model.StaffProfile
	for rows.Next() {
		p, err := scanStaff(rows)
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
		if err := r.loadClients(ctx, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// GetByID returns the staff profile with the given id.
func (r *StaffProfileRepo) GetByID(ctx context.Context, id uint64) (model.Profile, error) {
	p, err := scanStaff(r.db.QueryRowContext(ctx, staffSelect+" WHERE sp.id = ?", id))
	if err != nil {
		return nil, translate(err, ErrDuplicate)
	}
	if err := r.loadClients(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *StaffProfileRepo) loadClients(ctx context.Context, p *model.StaffProfile) error {
	clients, err := usersByIDs(ctx, r.db,
		"SELECT "+userColumns+" FROM staff_profile_clients spc JOIN users u ON u.id = spc.client_user_id"+
			" WHERE spc.profile_id = ? ORDER BY u.id", p.ID)
	if err != nil {
		return err
	}
	p.Clients = clients
	p.ClientIDs = nil
	for _, c := range clients {
		p.ClientIDs = append(p.ClientIDs, c.ID)
	}
	return nil
}

// ExistsForUser reports whether userID already owns a staff profile.
func (r *StaffProfileRepo) ExistsForUser(ctx context.Context, userID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM staff_profiles WHERE user_id = ?", userID).Scan(&n)
	return n > 0, err
}

// Create inserts the profile row and its client links in one transaction.
func (r *StaffProfileRepo) Create(ctx context.Context, in model.ProfileInput) (model.Profile, error) {
	var id uint64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO staff_profiles (user_id, position_id) VALUES (?, ?)", in.UserID, in.PositionID)
		if err != nil {
			return translate(err, ErrDuplicate)
		}
		pid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(pid)
		return replaceLinks(ctx, tx, "staff_profile_clients", "client_user_id", id, in.LinkedIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update applies a validated patch in one transaction.
func (r *StaffProfileRepo) Update(ctx context.Context, id uint64, patch model.ProfilePatch) (model.Profile, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var userID uint64
		if err := tx.QueryRowContext(ctx,
			"SELECT user_id FROM staff_profiles WHERE id = ? FOR UPDATE", id).Scan(&userID); err != nil {
			return translate(err, ErrDuplicate)
		}
		if err := applyUserPatch(ctx, tx, userID, patch.User); err != nil {
			return err
		}
		if patch.PositionID != nil {
			if _, err := tx.ExecContext(ctx,
				"UPDATE staff_profiles SET position_id = ? WHERE id = ?", *patch.PositionID, id); err != nil {
				return translate(err, ErrDuplicate)
			}
		}
		if patch.LinkedIDs != nil {
			return replaceLinks(ctx, tx, "staff_profile_clients", "client_user_id", id, *patch.LinkedIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete deactivates the owning user and removes the profile with its
// client links in one transaction.  Staff profiles have no subscription.
func (r *StaffProfileRepo) Delete(ctx context.Context, id uint64) (uint64, error) {
	var userID uint64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"SELECT user_id FROM staff_profiles WHERE id = ? FOR UPDATE", id).Scan(&userID); err != nil {
			return translate(err, ErrDuplicate)
		}
		if err := deactivateUser(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM staff_profile_clients WHERE profile_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM staff_profiles WHERE id = ?", id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}
