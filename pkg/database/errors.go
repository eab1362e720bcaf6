package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the handlers translate into client errors.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
	codeFKViolation     = "23503"
)

// IsUniqueViolation reports whether err is a unique-constraint violation
// (duplicate key), which handlers map to 400 "already exists".
func IsUniqueViolation(err error) bool {
	return pgErrCode(err) == codeUniqueViolation
}

// IsCheckViolation reports whether err is a check-constraint violation,
// e.g. a stock adjustment driving quantity below zero.
func IsCheckViolation(err error) bool {
	return pgErrCode(err) == codeCheckViolation
}

// IsForeignKeyViolation reports whether err is a foreign-key violation,
// e.g. deleting a row something else still references.
func IsForeignKeyViolation(err error) bool {
	return pgErrCode(err) == codeFKViolation
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
