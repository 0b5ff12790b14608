package storage

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/qcatchat/catchat/internal/core"
)

// SQLite primary result codes for lock contention.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// IsTransient reports whether err is lock or timeout contention that a short
// pause and retry can clear.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrDatabaseLocked) {
		return true
	}

	// modernc reports the extended result code
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"database is locked", "database table is locked", "lock wait timeout", "deadlock", "sqlite_busy"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrRecordNotFound
	}
	return err
}
