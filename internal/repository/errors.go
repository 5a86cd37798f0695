// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when the unique index on users.email rejects
// an insert. Handlers translate it into 400 "Email already exists".
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrTenantNotFound is returned when no tenant matches the lookup.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrRefreshTokenNotFound is returned when a refresh record is absent,
// either because it never existed or because it was revoked.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// mysqlNoReferencedRow is ER_NO_REFERENCED_ROW_2 (foreign key target missing).
const mysqlNoReferencedRow = 1452

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}
