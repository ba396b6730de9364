package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// LogFields flattens err into structured log fields: the message, the typed
// code, every wrapped layer and, for database failures, the driver diagnostics.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields["error_chain"] = chain

	for k, v := range databaseFields(err) {
		fields[k] = v
	}
	return fields
}

func databaseFields(err error) map[string]any {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return map[string]any{
			"db_code":       pgxErr.Code,
			"db_constraint": pgxErr.ConstraintName,
			"db_table":      pgxErr.TableName,
			"db_detail":     pgxErr.Detail,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return map[string]any{
			"db_code":       string(pqErr.Code),
			"db_constraint": pqErr.Constraint,
			"db_table":      pqErr.Table,
			"db_detail":     pqErr.Detail,
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return map[string]any{
			"db_code":   fmt.Sprintf("sqlite:%d", int(liteErr.ExtendedCode)),
			"db_detail": liteErr.Error(),
		}
	}
	return nil
}
