// Package bridge defines the contract between the form engine and the data
// store. The engine only ever talks to a DataBridge; table and column names it
// passes are checked against the bridge's AllowList before any query is built.
package bridge

import (
	"context"

	"github.com/goliatone/go-iform/pkg/schema"
)

// Record is one row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Item is one option returned for a combo source.
type Item struct {
	Value   any    `json:"value"`
	Display string `json:"display"`
}

// SaveResult reports the outcome of SaveRecord. Inserts carry the new id,
// updates carry the affected row count.
type SaveResult struct {
	ID      any   `json:"id,omitempty"`
	Created bool  `json:"created"`
	Updated int64 `json:"updated"`
}

// DataBridge loads and stores records. Implementations own their timeout and
// retry policy; callers pass a context and treat every call as slow.
type DataBridge interface {
	// LoadRecord returns ErrNotFound when no row matches id.
	LoadRecord(ctx context.Context, table string, id any) (Record, error)
	// SaveRecord inserts when id is nil and updates otherwise.
	SaveRecord(ctx context.Context, table string, data Record, id any) (SaveResult, error)
	LoadComboData(ctx context.Context, query schema.QuerySpec) ([]Item, error)
	// CheckUnique reports whether no other row holds value in column. A
	// non-nil excludeID skips the row being edited.
	CheckUnique(ctx context.Context, table, column string, value, excludeID any) (bool, error)
	DeleteRecord(ctx context.Context, table string, id any) (bool, error)
}
