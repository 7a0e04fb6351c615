package server

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErrorMessage(err error) string {
	var pgErr *pgconn.PgError
	if ok := errors.As(err, &pgErr); ok && pgErr != nil {
		msg := strings.TrimSpace(pgErr.Message)
		if msg != "" {
			return msg
		}
	}
	return "UNKNOWN"
}

// stablePgMessage maps named constraint violations to the stable codes the
// API promises, instead of leaking raw postgres text.
func stablePgMessage(err error) string {
	msg := pgErrorMessage(err)
	if isStableDBCode(msg) {
		return msg
	}

	var pgErr *pgconn.PgError
	if ok := errors.As(err, &pgErr); ok && pgErr != nil {
		switch strings.TrimSpace(pgErr.ConstraintName) {
		case "approved_fields_category_name_unique":
			return "FIELD_NAME_TAKEN"
		case "record_field_values_record_field_unique":
			return "FIELD_VALUE_DUPLICATE"
		}
	}
	return err.Error()
}

func isStableDBCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" || code == "UNKNOWN" {
		return false
	}
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if ch >= 'A' && ch <= 'Z' {
			continue
		}
		if ch >= '0' && ch <= '9' {
			continue
		}
		if ch == '_' {
			continue
		}
		return false
	}
	return true
}
