package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// identPattern limits table and column names to plain SQL identifiers.
// Queries are assembled from caller-supplied names, so anything else is
// rejected before it reaches the database.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PG is the Client backend for a self-hosted PostgreSQL database. Rows
// travel as JSON (row_to_json on the way out) so the backend stays generic
// across tables, matching the hosted store's wire behavior.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func (p *PG) whereClause(q Query, args *[]interface{}) (string, error) {
	if len(q.filters) == 0 {
		return "", nil
	}
	var conds []string
	for _, f := range q.filters {
		if err := checkIdent(f.Field); err != nil {
			return "", err
		}
		*args = append(*args, f.Value)
		conds = append(conds, fmt.Sprintf("%s = $%d", f.Field, len(*args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

func (p *PG) Select(ctx context.Context, q Query, dest interface{}) error {
	if err := checkIdent(q.table); err != nil {
		return err
	}

	var args []interface{}
	where, err := p.whereClause(q, &args)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf("SELECT row_to_json(t) FROM %s t%s", q.table, where)
	if q.orderBy != "" {
		if err := checkIdent(q.orderBy); err != nil {
			return err
		}
		dir := "ASC"
		if q.orderDesc {
			dir = "DESC"
		}
		sql += fmt.Sprintf(" ORDER BY %s %s", q.orderBy, dir)
	}
	if q.limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.limit)
	}

	if q.single {
		var raw json.RawMessage
		err := p.pool.QueryRow(ctx, sql, args...).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("select %s: %w", q.table, err)
		}
		return unmarshalBody(raw, dest)
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("select %s: %w", q.table, err)
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("select %s: %w", q.table, err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("select %s: %w", q.table, err)
	}
	return decodeInto(out, dest)
}

func (p *PG) Insert(ctx context.Context, table string, row interface{}, dest interface{}) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	r, err := toRow(row)
	if err != nil {
		return err
	}
	if s, _ := r["id"].(string); s == "" {
		r["id"] = uuid.NewString()
	}

	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	args := make([]interface{}, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	for _, col := range cols {
		if err := checkIdent(col); err != nil {
			return err
		}
		args = append(args, r[col])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	sql := fmt.Sprintf("INSERT INTO %s AS t (%s) VALUES (%s) RETURNING row_to_json(t)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var raw json.RawMessage
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return unmarshalBody(raw, dest)
}

func (p *PG) Update(ctx context.Context, q Query, fields interface{}, dest interface{}) error {
	if err := checkIdent(q.table); err != nil {
		return err
	}
	patch, err := toRow(fields)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return fmt.Errorf("update %s: no fields", q.table)
	}

	cols := make([]string, 0, len(patch))
	for k := range patch {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	var args []interface{}
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		if err := checkIdent(col); err != nil {
			return err
		}
		args = append(args, patch[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	where, err := p.whereClause(q, &args)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf("UPDATE %s AS t SET %s%s RETURNING row_to_json(t)",
		q.table, strings.Join(sets, ", "), where)

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", q.table, err)
	}
	defer rows.Close()

	var first json.RawMessage
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("update %s: %w", q.table, err)
		}
		if first == nil {
			first = raw
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("update %s: %w", q.table, err)
	}
	if first == nil {
		return ErrNotFound
	}
	return unmarshalBody(first, dest)
}

func (p *PG) Delete(ctx context.Context, q Query) error {
	if err := checkIdent(q.table); err != nil {
		return err
	}
	var args []interface{}
	where, err := p.whereClause(q, &args)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s%s", q.table, where), args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", q.table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
