// Package memory is an in-process DataBridge used by tests, the fill command
// and the preview service.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/schema"
)

// Option customises a Bridge.
type Option func(*Bridge)

// WithHook runs fn before every operation; a non-nil error fails the call.
// Tests use it to block or fail bridge calls.
func WithHook(fn func(ctx context.Context, op string) error) Option {
	return func(b *Bridge) {
		b.hook = fn
	}
}

// Bridge stores rows in maps keyed by table and stringified id.
type Bridge struct {
	allow *bridge.AllowList
	hook  func(ctx context.Context, op string) error

	mu     sync.Mutex
	rows   map[string]map[string]bridge.Record
	order  map[string][]string
	nextID map[string]int64
	calls  map[string]int
}

var _ bridge.DataBridge = (*Bridge)(nil)

// New returns an empty bridge over allow.
func New(allow *bridge.AllowList, opts ...Option) *Bridge {
	b := &Bridge{
		allow:  allow,
		rows:   make(map[string]map[string]bridge.Record),
		order:  make(map[string][]string),
		nextID: make(map[string]int64),
		calls:  make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Seed inserts rows directly. Rows must carry their primary key.
func (b *Bridge) Seed(table string, rows ...bridge.Record) error {
	t, err := b.allow.Table(table)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, row := range rows {
		id, ok := row[t.PrimaryKey]
		if !ok {
			return fmt.Errorf("memory: seed %s: row without %s", table, t.PrimaryKey)
		}
		b.put(table, key(id), row.Clone())
		if n, ok := schema.Number(id); ok && int64(n) >= b.nextID[table] {
			b.nextID[table] = int64(n)
		}
	}
	return nil
}

// Calls reports how many times op ran.
func (b *Bridge) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Rows returns a copy of table in insertion order.
func (b *Bridge) Rows(table string) []bridge.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bridge.Record, 0, len(b.order[table]))
	for _, k := range b.order[table] {
		out = append(out, b.rows[table][k].Clone())
	}
	return out
}

func (b *Bridge) enter(ctx context.Context, op string) error {
	b.mu.Lock()
	b.calls[op]++
	b.mu.Unlock()
	if b.hook != nil {
		if err := b.hook(ctx, op); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrUnavailable, err)
	}
	return nil
}

func (b *Bridge) LoadRecord(ctx context.Context, table string, id any) (bridge.Record, error) {
	if err := b.enter(ctx, "load"); err != nil {
		return nil, bridge.Wrap("load", table, err)
	}
	if _, err := b.allow.Table(table); err != nil {
		return nil, bridge.Wrap("load", table, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	row, ok := b.rows[table][key(id)]
	if !ok {
		return nil, bridge.Wrap("load", table, bridge.ErrNotFound)
	}
	return row.Clone(), nil
}

func (b *Bridge) SaveRecord(ctx context.Context, table string, data bridge.Record, id any) (bridge.SaveResult, error) {
	if err := b.enter(ctx, "save"); err != nil {
		return bridge.SaveResult{}, bridge.Wrap("save", table, err)
	}
	t, err := b.allow.Table(table)
	if err != nil {
		return bridge.SaveResult{}, bridge.Wrap("save", table, err)
	}
	cols := make([]string, 0, len(data))
	for c := range data {
		cols = append(cols, c)
	}
	if err := b.allow.Columns(table, cols...); err != nil {
		return bridge.SaveResult{}, bridge.Wrap("save", table, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if id == nil {
		b.nextID[table]++
		newID := b.nextID[table]
		row := data.Clone()
		row[t.PrimaryKey] = newID
		b.put(table, key(newID), row)
		return bridge.SaveResult{ID: newID, Created: true}, nil
	}
	row, ok := b.rows[table][key(id)]
	if !ok {
		return bridge.SaveResult{}, bridge.Wrap("save", table, fmt.Errorf("%w: no row %v", bridge.ErrSaveFailed, id))
	}
	row = row.Clone()
	for k, v := range data {
		row[k] = v
	}
	b.rows[table][key(id)] = row
	return bridge.SaveResult{ID: id, Updated: 1}, nil
}

func (b *Bridge) LoadComboData(ctx context.Context, q schema.QuerySpec) ([]bridge.Item, error) {
	if err := b.enter(ctx, "combo"); err != nil {
		return nil, bridge.Wrap("combo", q.Table, err)
	}
	if err := b.allow.CheckQuery(q.Table, q.ValueColumn, q.DisplayColumn, q.FilterColumn, q.OrderColumn); err != nil {
		return nil, bridge.Wrap("combo", q.Table, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var items []bridge.Item
	for _, k := range b.order[q.Table] {
		row := b.rows[q.Table][k]
		if q.FilterColumn != "" && !sameValue(row[q.FilterColumn], q.FilterValue) {
			continue
		}
		items = append(items, bridge.Item{Value: row[q.ValueColumn], Display: fmt.Sprint(row[q.DisplayColumn])})
	}
	orderBy := q.OrderColumn
	if orderBy == "" {
		orderBy = q.DisplayColumn
	}
	if orderBy == q.DisplayColumn {
		sort.SliceStable(items, func(i, j int) bool { return items[i].Display < items[j].Display })
	}
	return items, nil
}

func (b *Bridge) CheckUnique(ctx context.Context, table, column string, value, excludeID any) (bool, error) {
	if err := b.enter(ctx, "unique"); err != nil {
		return false, bridge.Wrap("unique", table, err)
	}
	t, err := b.allow.Table(table)
	if err != nil {
		return false, bridge.Wrap("unique", table, err)
	}
	if err := b.allow.Columns(table, column); err != nil {
		return false, bridge.Wrap("unique", table, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, row := range b.rows[table] {
		if excludeID != nil && key(row[t.PrimaryKey]) == key(excludeID) {
			continue
		}
		if sameValue(row[column], value) {
			return false, nil
		}
	}
	return true, nil
}

func (b *Bridge) DeleteRecord(ctx context.Context, table string, id any) (bool, error) {
	if err := b.enter(ctx, "delete"); err != nil {
		return false, bridge.Wrap("delete", table, err)
	}
	if _, err := b.allow.Table(table); err != nil {
		return false, bridge.Wrap("delete", table, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(id)
	if _, ok := b.rows[table][k]; !ok {
		return false, nil
	}
	delete(b.rows[table], k)
	order := b.order[table][:0]
	for _, existing := range b.order[table] {
		if existing != k {
			order = append(order, existing)
		}
	}
	b.order[table] = order
	return true, nil
}

func (b *Bridge) put(table, k string, row bridge.Record) {
	if b.rows[table] == nil {
		b.rows[table] = make(map[string]bridge.Record)
	}
	if _, exists := b.rows[table][k]; !exists {
		b.order[table] = append(b.order[table], k)
	}
	b.rows[table][k] = row
}

// key normalises ids so 7, int64(7) and 7.0 address the same row.
func key(id any) string {
	if n, ok := schema.Number(id); ok {
		return fmt.Sprintf("%g", n)
	}
	return fmt.Sprint(id)
}

func sameValue(a, b any) bool {
	return key(a) == key(b)
}
