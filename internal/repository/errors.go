package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup misses, including ownership
// mismatches. Callers cannot distinguish "someone else's task" from
// "no such task".
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when opening a session would leave a user with two
// open sessions. Unreachable through the timer controller, which closes the
// prior session in the same transaction; kept as a backstop for direct
// ledger use.
var ErrConflict = errors.New("session already open")

// translateNotFound maps gorm's record-miss to the domain error.
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isOpenSessionConflict reports whether err is a violation of the partial
// unique index guarding the one-open-session invariant. SQLite reports the
// violated columns, not the index name.
func isOpenSessionConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: sessions.user_id")
}
