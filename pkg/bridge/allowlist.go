package bridge

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Table describes one allow-listed table.
type Table struct {
	Name       string
	PrimaryKey string
	Columns    []string
}

// AllowList is the fixed set of tables and columns a bridge accepts. Names are
// matched exactly; nothing outside the list is ever interpolated into SQL.
type AllowList struct {
	mu     sync.RWMutex
	tables map[string]allowedTable
}

type allowedTable struct {
	Table
	columns map[string]struct{}
}

// NewAllowList registers tables. Invalid identifiers are rejected.
func NewAllowList(tables ...Table) (*AllowList, error) {
	a := &AllowList{tables: make(map[string]allowedTable)}
	for _, t := range tables {
		if err := a.Add(t); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// MustAllowList panics when NewAllowList fails.
func MustAllowList(tables ...Table) *AllowList {
	a, err := NewAllowList(tables...)
	if err != nil {
		panic(err)
	}
	return a
}

// Add registers or replaces a table. The primary key is always an allowed
// column.
func (a *AllowList) Add(t Table) error {
	if !identifierPattern.MatchString(t.Name) {
		return fmt.Errorf("%w: table %q", ErrIdentifier, t.Name)
	}
	if t.PrimaryKey == "" {
		t.PrimaryKey = "id"
	}
	entry := allowedTable{Table: t, columns: make(map[string]struct{}, len(t.Columns)+1)}
	for _, c := range append([]string{t.PrimaryKey}, t.Columns...) {
		if !identifierPattern.MatchString(c) {
			return fmt.Errorf("%w: column %q of %s", ErrIdentifier, c, t.Name)
		}
		entry.columns[c] = struct{}{}
	}
	entry.Table.Columns = sortedColumns(entry.columns)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tables == nil {
		a.tables = make(map[string]allowedTable)
	}
	a.tables[t.Name] = entry
	return nil
}

// Table returns the allow-listed table.
func (a *AllowList) Table(name string) (Table, error) {
	if a == nil {
		return Table{}, fmt.Errorf("%w: table %q", ErrIdentifier, name)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tables[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: table %q", ErrIdentifier, name)
	}
	return t.Table, nil
}

// Columns checks that every column belongs to table.
func (a *AllowList) Columns(table string, columns ...string) error {
	if a == nil {
		return fmt.Errorf("%w: table %q", ErrIdentifier, table)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tables[table]
	if !ok {
		return fmt.Errorf("%w: table %q", ErrIdentifier, table)
	}
	for _, c := range columns {
		if _, ok := t.columns[c]; !ok {
			return fmt.Errorf("%w: column %q of %s", ErrIdentifier, c, table)
		}
	}
	return nil
}

// Tables returns the registered table names in order.
func (a *AllowList) Tables() []string {
	if a == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.tables))
	for name := range a.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckQuery validates every identifier of a combo query.
func (a *AllowList) CheckQuery(table, value, display, filter, order string) error {
	cols := []string{value, display}
	if filter != "" {
		cols = append(cols, filter)
	}
	if order != "" {
		cols = append(cols, order)
	}
	return a.Columns(table, cols...)
}

func sortedColumns(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
