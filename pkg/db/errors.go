package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation on
// either backend. A non-empty constraintName narrows the match to that
// constraint or index.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation &&
			(constraintName == "" || pgErr.ConstraintName == constraintName)
	}

	// sqlite names the violated columns, not the index, in its message.
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		unique := liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
		return unique && (constraintName == "" || strings.Contains(liteErr.Error(), constraintName))
	}

	return errors.Is(err, gorm.ErrDuplicatedKey) && constraintName == ""
}
