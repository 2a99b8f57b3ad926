// Package store implements the client side of the hosted table/query
// service the application persists through. The same Client interface is
// served by three backends: a REST backend speaking the PostgREST dialect
// of the hosted store, a direct PostgreSQL backend for self-hosted
// deployments, and an in-memory backend for development and tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a single-row query matches no rows, or when
// an update/delete touches nothing. Callers above the service layer never
// see it; the entity services collapse it into their failure sentinels.
var ErrNotFound = errors.New("store: no rows found")

// Filter is an equality predicate on a row field.
type Filter struct {
	Field string
	Value interface{}
}

// Query describes a table read or a mutation target. Build it fluently:
//
//	store.Table("patients").Eq("id", id).Single()
type Query struct {
	table     string
	filters   []Filter
	orderBy   string
	orderDesc bool
	limit     int
	single    bool
}

// Table starts a query against the named table.
func Table(name string) Query {
	return Query{table: name}
}

// Eq adds an equality filter.
func (q Query) Eq(field string, value interface{}) Query {
	q.filters = append(q.filters, Filter{Field: field, Value: value})
	return q
}

// Order sorts ascending by field.
func (q Query) Order(field string) Query {
	q.orderBy = field
	q.orderDesc = false
	return q
}

// OrderDesc sorts descending by field.
func (q Query) OrderDesc(field string) Query {
	q.orderBy = field
	q.orderDesc = true
	return q
}

// Limit caps the number of rows returned.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Single marks the query as expecting exactly one row. Select then decodes
// into a single value and yields ErrNotFound when nothing matches.
func (q Query) Single() Query {
	q.single = true
	return q
}

// Client is the table-store query protocol. dest arguments are decoded via
// JSON: pass *[]T for lists, *T for single-row queries and returned
// representations, or nil when the representation is not needed.
type Client interface {
	// Select reads rows matching q into dest.
	Select(ctx context.Context, q Query, dest interface{}) error
	// Insert writes one row and decodes the stored representation
	// (store-assigned id and timestamps included) into dest.
	Insert(ctx context.Context, table string, row interface{}, dest interface{}) error
	// Update applies the partial fields to all rows matching q and decodes
	// the first updated representation into dest. Matching no rows is
	// ErrNotFound.
	Update(ctx context.Context, q Query, fields interface{}, dest interface{}) error
	// Delete removes all rows matching q. Matching no rows is ErrNotFound.
	Delete(ctx context.Context, q Query) error
}

// toRow normalizes a struct or map into a generic row through JSON.
func toRow(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	row := map[string]interface{}{}
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

// decodeInto moves a generic value into the caller's typed destination.
func decodeInto(v interface{}, dest interface{}) error {
	if dest == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
