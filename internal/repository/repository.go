// Package repository contains the sqlx data access layer. Queries use
// positional Postgres placeholders; callers translate sql.ErrNoRows into
// domain errors.
package repository

import (
	"database/sql"
	"fmt"
)

func requireRowAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", entity, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
