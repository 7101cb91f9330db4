package pg

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"companion-backend/internal/platform"
)

func postgresError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// classify maps driver errors onto platform kinds. Codes are kept so callers
// can log what the database reported.
func classify(err error) error {
	if err == nil {
		return nil
	}
	code := postgresError(err)
	switch code {
	case "":
		return fmt.Errorf("unexpected DB error: %w", err)
	case pgerrcode.UniqueViolation:
		return &platform.Error{Kind: platform.KindConflict, Code: code, Message: pgMessage(err), Err: err}
	case pgerrcode.InsufficientPrivilege:
		return &platform.Error{Kind: platform.KindForbidden, Code: code, Message: pgMessage(err), Err: err}
	case pgerrcode.NoDataFound:
		return &platform.Error{Kind: platform.KindNotFound, Code: code, Message: pgMessage(err), Err: err}
	default:
		return &platform.Error{Kind: platform.KindOther, Code: code, Message: pgMessage(err), Err: err}
	}
}

func pgMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return err.Error()
}
