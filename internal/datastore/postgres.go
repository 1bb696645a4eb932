package datastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres implements Store on a sqlx connection. SQL is assembled from
// the table name and filter columns, all of which come from code, never
// from user input; values are always passed as parameters.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Query(ctx context.Context, table string, filter Filter) ([]Row, error) {
	where, args := buildWhere(filter)
	query := "SELECT * FROM " + pq.QuoteIdentifier(table) + where

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func (s *Postgres) Insert(ctx context.Context, table string, row Row) error {
	cols := sortedKeys(row)

	columns := make([]string, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for i, col := range cols {
		columns = append(columns, pq.QuoteIdentifier(col))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, row[col])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Postgres) Update(ctx context.Context, table string, filter Filter, patch Row) error {
	cols := sortedKeys(patch)

	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+len(filter))
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), i+1))
		args = append(args, patch[col])
	}

	where, whereArgs := buildWhereFrom(filter, len(cols)+1)
	args = append(args, whereArgs...)

	query := "UPDATE " + pq.QuoteIdentifier(table) + " SET " + strings.Join(sets, ", ") + where

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Postgres) Delete(ctx context.Context, table string, filter Filter) error {
	where, args := buildWhere(filter)
	query := "DELETE FROM " + pq.QuoteIdentifier(table) + where

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// IsForeignKeyViolation reports whether an error is a postgres
// foreign-key constraint violation (SQLSTATE 23503).
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func buildWhere(filter Filter) (string, []interface{}) {
	return buildWhereFrom(filter, 1)
}

// buildWhereFrom builds a WHERE clause with placeholders starting at the
// given ordinal. Keys are sorted so generated SQL is deterministic.
func buildWhereFrom(filter Filter, start int) (string, []interface{}) {
	if len(filter) == 0 {
		return "", nil
	}

	conds := make([]string, 0, len(filter))
	args := make([]interface{}, 0, len(filter))
	n := start
	for _, col := range sortedKeys(Row(filter)) {
		if filter[col] == nil {
			conds = append(conds, pq.QuoteIdentifier(col)+" IS NULL")
			continue
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), n))
		args = append(args, filter[col])
		n++
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func sortedKeys(m Row) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
