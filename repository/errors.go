package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound signals that the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUser signals a username/email uniqueness violation.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrDuplicateMembership signals that the song is already a member of
	// the playlist.
	ErrDuplicateMembership = errors.New("song already in playlist")
)

// isDuplicateEntry reports whether err is a MySQL duplicate-key error.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
