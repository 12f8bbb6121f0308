// Package sqlbridge implements bridge.DataBridge over database/sql through
// sqlx. Every identifier comes from the allow-list and is quoted; every value
// is a bound parameter.
package sqlbridge

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/schema"
)

// Option customises a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger for query failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bridge is a SQL backed DataBridge.
type Bridge struct {
	db     *sqlx.DB
	allow  *bridge.AllowList
	logger *slog.Logger
}

var _ bridge.DataBridge = (*Bridge)(nil)

// New wraps db. Queries are written with ? placeholders and rebound for the
// driver.
func New(db *sqlx.DB, allow *bridge.AllowList, opts ...Option) *Bridge {
	b := &Bridge{db: db, allow: allow, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Open connects with driverName and dsn.
func Open(ctx context.Context, driverName, dsn string, allow *bridge.AllowList, opts ...Option) (*Bridge, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlbridge: connect %s: %w: %v", driverName, bridge.ErrUnavailable, err)
	}
	return New(db, allow, opts...), nil
}

// Close releases the connection pool.
func (b *Bridge) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func quote(name string) string {
	return pq.QuoteIdentifier(name)
}

func (b *Bridge) unavailable(op, table string, err error) error {
	b.logger.Error("sqlbridge: query failed", "op", op, "table", table, "error", err)
	return bridge.Wrap(op, table, fmt.Errorf("%w: %v", bridge.ErrUnavailable, err))
}

func (b *Bridge) LoadRecord(ctx context.Context, table string, id any) (bridge.Record, error) {
	t, err := b.allow.Table(table)
	if err != nil {
		return nil, bridge.Wrap("load", table, err)
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quote(c)
	}
	query := b.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		strings.Join(cols, ", "), quote(t.Name), quote(t.PrimaryKey)))

	row := make(map[string]any, len(cols))
	if err := b.db.QueryRowxContext(ctx, query, id).MapScan(row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bridge.Wrap("load", table, bridge.ErrNotFound)
		}
		return nil, b.unavailable("load", table, err)
	}
	for k, v := range row {
		if raw, ok := v.([]byte); ok {
			row[k] = string(raw)
		}
	}
	return bridge.Record(row), nil
}

func (b *Bridge) SaveRecord(ctx context.Context, table string, data bridge.Record, id any) (bridge.SaveResult, error) {
	t, err := b.allow.Table(table)
	if err != nil {
		return bridge.SaveResult{}, bridge.Wrap("save", table, err)
	}
	cols := make([]string, 0, len(data))
	for c := range data {
		if c == t.PrimaryKey {
			continue
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	if err := b.allow.Columns(table, cols...); err != nil {
		return bridge.SaveResult{}, bridge.Wrap("save", table, err)
	}
	if len(cols) == 0 {
		return bridge.SaveResult{}, bridge.Wrap("save", table, fmt.Errorf("%w: no columns to write", bridge.ErrSaveFailed))
	}
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		args = append(args, data[c])
	}

	if id == nil {
		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = quote(c)
			marks[i] = "?"
		}
		query := b.db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			quote(t.Name), strings.Join(quoted, ", "), strings.Join(marks, ", "), quote(t.PrimaryKey)))
		var newID any
		if err := b.db.QueryRowxContext(ctx, query, args...).Scan(&newID); err != nil {
			return bridge.SaveResult{}, b.saveFailed(table, err)
		}
		return bridge.SaveResult{ID: newID, Created: true}, nil
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
	}
	query := b.db.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quote(t.Name), strings.Join(sets, ", "), quote(t.PrimaryKey)))
	res, err := b.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return bridge.SaveResult{}, b.saveFailed(table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return bridge.SaveResult{}, b.saveFailed(table, err)
	}
	if n == 0 {
		return bridge.SaveResult{}, bridge.Wrap("save", table, fmt.Errorf("%w: no row %v", bridge.ErrSaveFailed, id))
	}
	return bridge.SaveResult{ID: id, Updated: n}, nil
}

func (b *Bridge) saveFailed(table string, err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return b.unavailable("save", table, err)
	}
	b.logger.Error("sqlbridge: save failed", "table", table, "error", err)
	return bridge.Wrap("save", table, fmt.Errorf("%w: %v", bridge.ErrSaveFailed, err))
}

func (b *Bridge) LoadComboData(ctx context.Context, q schema.QuerySpec) ([]bridge.Item, error) {
	if err := b.allow.CheckQuery(q.Table, q.ValueColumn, q.DisplayColumn, q.FilterColumn, q.OrderColumn); err != nil {
		return nil, bridge.Wrap("combo", q.Table, err)
	}
	var (
		sb   strings.Builder
		args []any
	)
	fmt.Fprintf(&sb, "SELECT %s, %s FROM %s", quote(q.ValueColumn), quote(q.DisplayColumn), quote(q.Table))
	if q.FilterColumn != "" {
		fmt.Fprintf(&sb, " WHERE %s = ?", quote(q.FilterColumn))
		args = append(args, q.FilterValue)
	}
	order := q.OrderColumn
	if order == "" {
		order = q.DisplayColumn
	}
	fmt.Fprintf(&sb, " ORDER BY %s", quote(order))

	rows, err := b.db.QueryxContext(ctx, b.db.Rebind(sb.String()), args...)
	if err != nil {
		return nil, b.unavailable("combo", q.Table, err)
	}
	defer rows.Close()

	var items []bridge.Item
	for rows.Next() {
		var (
			value   any
			display sql.NullString
		)
		if err := rows.Scan(&value, &display); err != nil {
			return nil, b.unavailable("combo", q.Table, err)
		}
		if raw, ok := value.([]byte); ok {
			value = string(raw)
		}
		items = append(items, bridge.Item{Value: value, Display: display.String})
	}
	if err := rows.Err(); err != nil {
		return nil, b.unavailable("combo", q.Table, err)
	}
	return items, nil
}

func (b *Bridge) CheckUnique(ctx context.Context, table, column string, value, excludeID any) (bool, error) {
	t, err := b.allow.Table(table)
	if err != nil {
		return false, bridge.Wrap("unique", table, err)
	}
	if err := b.allow.Columns(table, column); err != nil {
		return false, bridge.Wrap("unique", table, err)
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", quote(t.Name), quote(column))
	args := []any{value}
	if excludeID != nil {
		query += fmt.Sprintf(" AND %s <> ?", quote(t.PrimaryKey))
		args = append(args, excludeID)
	}
	var count int64
	if err := b.db.GetContext(ctx, &count, b.db.Rebind(query), args...); err != nil {
		return false, b.unavailable("unique", table, err)
	}
	return count == 0, nil
}

func (b *Bridge) DeleteRecord(ctx context.Context, table string, id any) (bool, error) {
	t, err := b.allow.Table(table)
	if err != nil {
		return false, bridge.Wrap("delete", table, err)
	}
	query := b.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(t.Name), quote(t.PrimaryKey)))
	res, err := b.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, b.unavailable("delete", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, b.unavailable("delete", table, err)
	}
	return n > 0, nil
}
