// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service layer to
// distinguish between different failure scenarios without inspecting
// driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user insert or update collides with
// the unique index on users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when an insert collides with a unique index
// other than users.email, e.g. a second profile for the same user.
var ErrDuplicate = errors.New("duplicate entry")

// ErrBadReference is returned when a foreign key points at a missing row
// (unknown user, service, position or client id).
var ErrBadReference = errors.New("referenced row does not exist")

const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// translate maps driver errors onto the sentinels above.  dup is the
// sentinel used for duplicate-key violations in the calling context.
func translate(err error, dup error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	}
	switch mysqlCode(err) {
	case mysqlDuplicateEntry:
		return dup
	case mysqlNoReferenced:
		return ErrBadReference
	}
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
