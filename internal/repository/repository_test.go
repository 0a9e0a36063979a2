package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gym-server/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestUpsertRefreshOverwritesByUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	exp := time.Now().Add(time.Hour)

	for _, hash := range []string{"first", "second"} {
		mock.ExpectExec(`INSERT INTO refresh_tokens \(user_id, token_hash, expires_at\) VALUES \(\?, \?, \?\)\s+ON DUPLICATE KEY UPDATE`).
			WithArgs(uint64(7), hash, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	require.NoError(t, repo.UpsertRefresh(context.Background(), 7, "first", exp))
	require.NoError(t, repo.UpsertRefresh(context.Background(), 7, "second", exp))
}

func TestRotateRefreshIsCompareAndSwap(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	exp := time.Now().Add(time.Hour)
	rotate := `UPDATE refresh_tokens SET token_hash = \?, expires_at = \? WHERE user_id = \? AND token_hash = \?`

	mock.ExpectExec(rotate).WithArgs("new", sqlmock.AnyArg(), uint64(7), "old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(rotate).WithArgs("newer", sqlmock.AnyArg(), uint64(7), "old").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RotateRefresh(context.Background(), 7, "old", "new", exp))
	assert.ErrorIs(t, repo.RotateRefresh(context.Background(), 7, "old", "newer", exp), ErrNotFound)
}

func TestUserSetActive(t *testing.T) {
	db, mock := newMock(t)
	set := `UPDATE users SET is_active = \?, updated_at = CURRENT_DATE WHERE id = \?`
	mock.ExpectExec(set).WithArgs(true, uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(set).WithArgs(true, uint64(6)).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepo(db)
	require.NoError(t, repo.SetActive(context.Background(), 5, true))
	assert.ErrorIs(t, repo.SetActive(context.Background(), 6, true), ErrNotFound)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("A", "B", "a@b.com", "hash", model.RoleClient, true, false, false).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.com' for key 'email'"})

	u := &model.User{FirstName: "A", LastName: "B", Email: "  A@B.com ", PasswordHash: "hash", Role: model.RoleClient, IsActive: true}
	err := NewUserRepo(db).Create(context.Background(), u)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserCreateFillsIDAndDates(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(`SELECT created_at, updated_at FROM users WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))

	u := &model.User{FirstName: "A", LastName: "B", Email: "a@b.com", Role: model.RoleClient, IsActive: true}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), u))
	assert.Equal(t, uint64(11), u.ID)
	assert.Equal(t, created, u.CreatedAt)
}

func TestUserGetByEmailNormalizes(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM users u WHERE u.email = \?`).
		WithArgs("a@b.com").
		WillReturnError(sql.ErrNoRows)

	_, err := NewUserRepo(db).GetByEmail(context.Background(), " A@b.COM")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientDeleteOrder(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id, subscription_id FROM client_profiles WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "subscription_id"}).AddRow(5, 9))
	mock.ExpectExec(`UPDATE users SET is_active = FALSE`).WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM subscriptions WHERE id = \?`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM client_profile_services WHERE profile_id = \?`).WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM client_profiles WHERE id = \?`).WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	userID, err := NewClientProfileRepo(db).Delete(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), userID)
}

func TestClientDeleteWithoutSubscription(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM client_profiles WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "subscription_id"}).AddRow(5, nil))
	mock.ExpectExec(`UPDATE users SET is_active = FALSE`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM client_profile_services`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM client_profiles`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := NewClientProfileRepo(db).Delete(context.Background(), 4)
	require.NoError(t, err)
}

func TestClientDeleteMissingRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM client_profiles WHERE id = \? FOR UPDATE`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := NewClientProfileRepo(db).Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaffCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO staff_profiles \(user_id, position_id\)`).
		WithArgs(uint64(2), uint64(1)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := NewStaffProfileRepo(db).Create(context.Background(), model.ProfileInput{UserID: 2, PositionID: 1})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStaffCreateUnknownClient(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO staff_profiles`).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(`DELETE FROM staff_profile_clients WHERE profile_id = \?`).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO staff_profile_clients \(profile_id, client_user_id\)`).
		WithArgs(uint64(3), uint64(99)).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	mock.ExpectRollback()

	_, err := NewStaffProfileRepo(db).Create(context.Background(),
		model.ProfileInput{UserID: 2, PositionID: 1, LinkedIDs: []uint64{99, 99}})
	assert.ErrorIs(t, err, ErrBadReference)
}

func TestBuildClientList(t *testing.T) {
	after := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expired := true
	q, args := buildClientList(model.ProfileFilter{
		CreatedAfter: &after,
		ServiceName:  "yoga_50%",
		Expired:      &expired,
		Today:        time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	})
	assert.Contains(t, q, "u.created_at > ?")
	assert.Contains(t, q, "sv.name LIKE ?")
	assert.Contains(t, q, "(s.id IS NULL OR "+expiryExpr+" <= ?)")
	assert.Contains(t, q, "ORDER BY cp.id")
	assert.Equal(t, []any{after, `%yoga\_50\%%`, "2025-06-15"}, args)

	q, args = buildClientList(model.ProfileFilter{})
	assert.NotContains(t, q, "WHERE")
	assert.Empty(t, args)
}

func TestBuildStaffListClientIDs(t *testing.T) {
	q, args := buildStaffList(model.ProfileFilter{ClientIDs: []uint64{3, 4, 3}, PositionName: "coach"})
	assert.Contains(t, q, "p.name LIKE ?")
	assert.Contains(t, q, "spc.client_user_id IN (?, ?)")
	assert.Equal(t, []any{"%coach%", uint64(3), uint64(4)}, args)
}

func TestUpdateServiceMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE services SET name = \?, time_start = \?, time_end = \? WHERE id = \?`).
		WithArgs("Yoga", "08:00:00", "09:00:00", uint64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewCatalogRepo(db).UpdateService(context.Background(),
		model.Service{ID: 12, Name: "Yoga", TimeStart: "08:00:00", TimeEnd: "09:00:00"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPositionsEmptyIsNotNil(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, name, duty FROM positions WHERE name LIKE \? ORDER BY id`).
		WithArgs("%coach%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "duty"}))

	out, err := NewCatalogRepo(db).ListPositions(context.Background(), PositionFilter{Name: "coach"})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

var userCols = []string{"id", "first_name", "last_name", "email", "password_hash", "role",
	"is_active", "is_staff", "is_superuser", "created_at", "updated_at"}

func userValues(id int64, role model.Role) []driver.Value {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []driver.Value{id, "Ann", "Lee", "ann@gym.local", "hash", int64(role), true, false, false, day, day}
}

// expectClientLoad queues the two reads GetByID makes after a write.
func expectClientLoad(mock sqlmock.Sqlmock, id, userID int64, sub []driver.Value, serviceIDs ...int64) {
	cols := append(append([]string{"cp_id"}, userCols...), "s_id", "s_month", "s_updated_at")
	vals := append(append([]driver.Value{id}, userValues(userID, model.RoleClient)...), sub...)
	mock.ExpectQuery(`FROM client_profiles cp JOIN users u .* WHERE cp\.id = \?`).
		WithArgs(uint64(id)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(vals...))
	rows := sqlmock.NewRows([]string{"id", "name", "time_start", "time_end"})
	for _, sid := range serviceIDs {
		rows.AddRow(sid, "Yoga", "08:00:00", "09:00:00")
	}
	mock.ExpectQuery(`FROM client_profile_services cps JOIN services sv`).WithArgs(uint64(id)).WillReturnRows(rows)
}

func expectStaffLoad(mock sqlmock.Sqlmock, id, userID, positionID int64, clientIDs ...int64) {
	cols := append(append([]string{"sp_id"}, userCols...), "p_id", "p_name", "p_duty")
	vals := append(append([]driver.Value{id}, userValues(userID, model.RoleStaff)...), positionID, "Coach", "Training")
	mock.ExpectQuery(`FROM staff_profiles sp JOIN users u .* WHERE sp\.id = \?`).
		WithArgs(uint64(id)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(vals...))
	rows := sqlmock.NewRows(userCols)
	for _, cid := range clientIDs {
		rows.AddRow(userValues(cid, model.RoleClient)...)
	}
	mock.ExpectQuery(`FROM staff_profile_clients spc JOIN users u`).WithArgs(uint64(id)).WillReturnRows(rows)
}

func ptr[T any](v T) *T { return &v }

func TestClientCreateOrder(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO subscriptions \(month, updated_at\) VALUES \(\?, \?\)`).
		WithArgs(1, nil).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(`INSERT INTO client_profiles \(user_id, subscription_id\) VALUES \(\?, \?\)`).
		WithArgs(uint64(5), int64(9)).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectExec(`DELETE FROM client_profile_services WHERE profile_id = \?`).WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO client_profile_services \(profile_id, service_id\)`).WithArgs(uint64(4), uint64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO client_profile_services \(profile_id, service_id\)`).WithArgs(uint64(4), uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectClientLoad(mock, 4, 5, []driver.Value{int64(9), int64(1), nil}, 2, 3)

	p, err := NewClientProfileRepo(db).Create(context.Background(),
		model.ProfileInput{UserID: 5, LinkedIDs: []uint64{2, 3, 2}})
	require.NoError(t, err)
	cp := p.(*model.ClientProfile)
	assert.Equal(t, uint64(4), cp.ID)
	assert.Equal(t, []uint64{2, 3}, cp.ServiceIDs)
	require.NotNil(t, cp.Subscription)
	assert.Equal(t, 1, cp.Subscription.Month)
	assert.Nil(t, cp.Subscription.UpdatedAt)
}

func TestClientCreateUnknownServiceRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO subscriptions`).WithArgs(6, "2025-02-01").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(`INSERT INTO client_profiles`).WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectExec(`DELETE FROM client_profile_services`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO client_profile_services`).
		WithArgs(uint64(4), uint64(77)).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	mock.ExpectRollback()

	day := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := NewClientProfileRepo(db).Create(context.Background(),
		model.ProfileInput{UserID: 5, LinkedIDs: []uint64{77}, SubscriptionMonth: 6, SubscriptionUpdatedAt: &day})
	assert.ErrorIs(t, err, ErrBadReference)
}

func TestClientUpdateOrder(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id, subscription_id FROM client_profiles WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "subscription_id"}).AddRow(5, 9))
	mock.ExpectExec(`UPDATE users SET first_name = \?, updated_at = CURRENT_DATE WHERE id = \?`).
		WithArgs("Ann", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE subscriptions SET month = \? WHERE id = \?`).WithArgs(6, int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE subscriptions SET updated_at = \? WHERE id = \?`).WithArgs("2025-02-01", int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM client_profile_services WHERE profile_id = \?`).WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	day := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	expectClientLoad(mock, 4, 5, []driver.Value{int64(9), int64(6), day})

	p, err := NewClientProfileRepo(db).Update(context.Background(), 4, model.ProfilePatch{
		User:         &model.UserPatch{FirstName: ptr("Ann")},
		Subscription: &model.SubscriptionPatch{Month: ptr(6), ParsedUpdatedAt: &day},
		LinkedIDs:    &[]uint64{},
	})
	require.NoError(t, err)
	cp := p.(*model.ClientProfile)
	assert.Empty(t, cp.ServiceIDs)
	require.NotNil(t, cp.Subscription.UpdatedAt)
	assert.Equal(t, day, *cp.Subscription.UpdatedAt)
}

func TestClientUpdateCreatesMissingSubscription(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM client_profiles WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "subscription_id"}).AddRow(5, nil))
	mock.ExpectExec(`INSERT INTO subscriptions \(month, updated_at\)`).WithArgs(12, nil).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(`UPDATE client_profiles SET subscription_id = \? WHERE id = \?`).
		WithArgs(int64(11), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectClientLoad(mock, 4, 5, []driver.Value{int64(11), int64(12), nil})

	p, err := NewClientProfileRepo(db).Update(context.Background(), 4, model.ProfilePatch{
		Subscription: &model.SubscriptionPatch{Month: ptr(12)},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), p.(*model.ClientProfile).Subscription.ID)
}

func TestClientUpdateTakenEmailRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM client_profiles WHERE id = \? FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "subscription_id"}).AddRow(5, 9))
	mock.ExpectExec(`UPDATE users SET email = \?`).
		WithArgs("taken@gym.local", uint64(5)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := NewClientProfileRepo(db).Update(context.Background(), 4, model.ProfilePatch{
		User:      &model.UserPatch{Email: ptr(" Taken@gym.local")},
		LinkedIDs: &[]uint64{1},
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestStaffUpdateOrder(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM staff_profiles WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))
	mock.ExpectExec(`UPDATE staff_profiles SET position_id = \? WHERE id = \?`).
		WithArgs(uint64(7), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM staff_profile_clients WHERE profile_id = \?`).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO staff_profile_clients \(profile_id, client_user_id\)`).WithArgs(uint64(3), uint64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectStaffLoad(mock, 3, 2, 7, 10)

	p, err := NewStaffProfileRepo(db).Update(context.Background(), 3, model.ProfilePatch{
		PositionID: ptr(uint64(7)),
		LinkedIDs:  &[]uint64{10},
	})
	require.NoError(t, err)
	sp := p.(*model.StaffProfile)
	require.NotNil(t, sp.Position)
	assert.Equal(t, uint64(7), sp.Position.ID)
	assert.Equal(t, []uint64{10}, sp.ClientIDs)
}

func TestStaffUpdateUnknownPositionRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM staff_profiles WHERE id = \? FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))
	mock.ExpectExec(`UPDATE staff_profiles SET position_id = \?`).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	mock.ExpectRollback()

	_, err := NewStaffProfileRepo(db).Update(context.Background(), 3, model.ProfilePatch{
		PositionID: ptr(uint64(99)),
		LinkedIDs:  &[]uint64{10},
	})
	assert.ErrorIs(t, err, ErrBadReference)
}
