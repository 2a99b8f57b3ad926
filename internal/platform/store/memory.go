package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Client backend. It mirrors the hosted store's
// contract (generated ids, created_at/updated_at stamps, equality filters,
// ordering, single-row semantics) so development and tests run without
// any remote service.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]map[string]interface{}
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string][]map[string]interface{}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Select(ctx context.Context, q Query, dest interface{}) error {
	m.mu.RLock()
	rows := m.matchLocked(q)
	m.mu.RUnlock()

	if q.orderBy != "" {
		sortRows(rows, q.orderBy, q.orderDesc)
	}
	if q.limit > 0 && len(rows) > q.limit {
		rows = rows[:q.limit]
	}

	if q.single {
		if len(rows) == 0 {
			return ErrNotFound
		}
		return decodeInto(rows[0], dest)
	}
	return decodeInto(rows, dest)
}

func (m *Memory) Insert(ctx context.Context, table string, row interface{}, dest interface{}) error {
	r, err := toRow(row)
	if err != nil {
		return err
	}

	now := m.now().Format(time.RFC3339Nano)
	if s, _ := r["id"].(string); s == "" {
		r["id"] = uuid.NewString()
	}
	r["created_at"] = now
	r["updated_at"] = now

	m.mu.Lock()
	m.tables[table] = append(m.tables[table], copyRow(r))
	m.mu.Unlock()

	return decodeInto(r, dest)
}

func (m *Memory) Update(ctx context.Context, q Query, fields interface{}, dest interface{}) error {
	patch, err := toRow(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	var updated map[string]interface{}
	for _, row := range m.tables[q.table] {
		if !rowMatches(row, q.filters) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		row["updated_at"] = m.now().Format(time.RFC3339Nano)
		if updated == nil {
			updated = copyRow(row)
		}
	}
	m.mu.Unlock()

	if updated == nil {
		return ErrNotFound
	}
	return decodeInto(updated, dest)
}

func (m *Memory) Delete(ctx context.Context, q Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[q.table]
	kept := rows[:0]
	removed := 0
	for _, row := range rows {
		if rowMatches(row, q.filters) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	m.tables[q.table] = kept

	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// matchLocked returns copies of the rows matching q's filters.
func (m *Memory) matchLocked(q Query) []map[string]interface{} {
	out := []map[string]interface{}{}
	for _, row := range m.tables[q.table] {
		if rowMatches(row, q.filters) {
			out = append(out, copyRow(row))
		}
	}
	return out
}

func rowMatches(row map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(row[f.Field]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func sortRows(rows []map[string]interface{}, field string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		less := compareValues(rows[i][field], rows[j][field])
		if desc {
			return !less && compareValues(rows[j][field], rows[i][field])
		}
		return less
	})
}

func compareValues(a, b interface{}) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return strings.ToLower(fmt.Sprint(a)) < strings.ToLower(fmt.Sprint(b))
}

func copyRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
