package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/gym-server/internal/model"
)

// CatalogRepo serves the service, position and subscription catalogs.
type CatalogRepo struct{ db *sql.DB }

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// ServiceFilter filters ListServices.  Times are "HH:MM[:SS]".
type ServiceFilter struct {
	Name     string
	StartGTE string
	StartLTE string
}

// PositionFilter filters ListPositions with substring matches.
type PositionFilter struct {
	Name string
	Duty string
}

// SubscriptionFilter filters ListSubscriptions.
type SubscriptionFilter struct {
	Month         int
	UpdatedBefore *time.Time
	UpdatedAfter  *time.Time
}

func (r *CatalogRepo) ListServices(ctx context.Context, f ServiceFilter) ([]model.Service, error) {
	var w whereBuilder
	if f.Name != "" {
		w.add("name = ?", f.Name)
	}
	if f.StartGTE != "" {
		w.add("time_start >= ?", f.StartGTE)
	}
	if f.StartLTE != "" {
		w.add("time_start <= ?", f.StartLTE)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, time_start, time_end FROM services"+w.sql()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Service{}
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.TimeStart, &s.TimeEnd); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) GetService(ctx context.Context, id uint64) (model.Service, error) {
	var s model.Service
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, time_start, time_end FROM services WHERE id = ?", id).
		Scan(&s.ID, &s.Name, &s.TimeStart, &s.TimeEnd)
	return s, translate(err, ErrDuplicate)
}

func (r *CatalogRepo) CreateService(ctx context.Context, s *model.Service) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO services (name, time_start, time_end) VALUES (?, ?, ?)", s.Name, s.TimeStart, s.TimeEnd)
	if err != nil {
		return translate(err, ErrDuplicate)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (r *CatalogRepo) UpdateService(ctx context.Context, s model.Service) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE services SET name = ?, time_start = ?, time_end = ? WHERE id = ?", s.Name, s.TimeStart, s.TimeEnd, s.ID)
	return affected(res, err)
}

func (r *CatalogRepo) DeleteService(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM services WHERE id = ?", id)
	return affected(res, err)
}

func (r *CatalogRepo) ListPositions(ctx context.Context, f PositionFilter) ([]model.Position, error) {
	var w whereBuilder
	if f.Name != "" {
		w.add("name LIKE ?", likeContains(f.Name))
	}
	if f.Duty != "" {
		w.add("duty LIKE ?", likeContains(f.Duty))
	}
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, duty FROM positions"+w.sql()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Position{}
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.ID, &p.Name, &p.Duty); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) GetPosition(ctx context.Context, id uint64) (model.Position, error) {
	var p model.Position
	err := r.db.QueryRowContext(ctx, "SELECT id, name, duty FROM positions WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &p.Duty)
	return p, translate(err, ErrDuplicate)
}

func (r *CatalogRepo) CreatePosition(ctx context.Context, p *model.Position) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO positions (name, duty) VALUES (?, ?)", p.Name, p.Duty)
	if err != nil {
		return translate(err, ErrDuplicate)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *CatalogRepo) UpdatePosition(ctx context.Context, p model.Position) error {
	res, err := r.db.ExecContext(ctx, "UPDATE positions SET name = ?, duty = ? WHERE id = ?", p.Name, p.Duty, p.ID)
	return affected(res, err)
}

func (r *CatalogRepo) DeletePosition(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM positions WHERE id = ?", id)
	return affected(res, err)
}

func (r *CatalogRepo) ListSubscriptions(ctx context.Context, f SubscriptionFilter) ([]model.Subscription, error) {
	var w whereBuilder
	if f.Month != 0 {
		w.add("month = ?", f.Month)
	}
	if f.UpdatedBefore != nil {
		w.add("updated_at < ?", f.UpdatedBefore.Format(time.DateOnly))
	}
	if f.UpdatedAfter != nil {
		w.add("updated_at > ?", f.UpdatedAfter.Format(time.DateOnly))
	}
	rows, err := r.db.QueryContext(ctx, "SELECT id, month, updated_at FROM subscriptions"+w.sql()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var (
			s       model.Subscription
			updated sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Month, &updated); err != nil {
			return nil, err
		}
		if updated.Valid {
			t := updated.Time
			s.UpdatedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// affected converts a zero-row UPDATE/DELETE into ErrNotFound.  The DSN
// sets clientFoundRows, so an UPDATE that changes nothing still counts.
func affected(res sql.Result, err error) error {
	if err != nil {
		return translate(err, ErrDuplicate)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
