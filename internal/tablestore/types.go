// Package tablestore is a thin gateway over a partition/row-keyed table: list,
// filter by predicates, upsert, partial merge and delete.
package tablestore

import (
	"context"
	"errors"
	"strings"
)

// Reserved columns.
const (
	PartitionKey = "PartitionKey"
	RowKey       = "RowKey"
	// Timestamp holds the UTC instant (RFC 3339) of the first write of a row.
	Timestamp = "Timestamp"
)

var (
	// ErrNotFound is returned by Merge when the keyed row does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrMissingKey is returned when an entity lacks a non-empty PartitionKey or RowKey.
	ErrMissingKey = errors.New("entity requires PartitionKey and RowKey")
	// ErrUnsupportedFilter is returned for an unknown filter operator.
	ErrUnsupportedFilter = errors.New("unsupported filter operator")
)

// Entity is one table row keyed by column name.
type Entity map[string]interface{}

// PartitionKey returns the partition key, or "" when absent or not a string.
func (e Entity) PartitionKey() string {
	s, _ := e[PartitionKey].(string)
	return s
}

// RowKey returns the row key, or "" when absent or not a string.
func (e Entity) RowKey() string {
	s, _ := e[RowKey].(string)
	return s
}

// String returns the named column as a string, or "" when absent or not a string.
func (e Entity) String(column string) string {
	s, _ := e[column].(string)
	return s
}

// Clone returns a shallow copy of e.
func (e Entity) Clone() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func (e Entity) keys() (string, string, error) {
	pk, rk := e.PartitionKey(), e.RowKey()
	if strings.TrimSpace(pk) == "" || strings.TrimSpace(rk) == "" {
		return "", "", ErrMissingKey
	}
	return pk, rk, nil
}

// Op is a comparison operator for a Filter.
type Op string

const (
	Equal       Op = "="
	LessOrEqual Op = "<="
)

// Filter is a single column predicate. Filters passed together form a conjunction.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

// Eq is shorthand for an equality Filter.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: Equal, Value: value}
}

// Le is shorthand for a less-or-equal Filter.
func Le(column string, value interface{}) Filter {
	return Filter{Column: column, Op: LessOrEqual, Value: value}
}

// Gateway is the capability every handler and the sweeper use to reach a table.
type Gateway interface {
	// List returns every row in the table.
	List(ctx context.Context) ([]Entity, error)
	// Query returns the rows matching all filters; with no filters it behaves like List.
	Query(ctx context.Context, filters ...Filter) ([]Entity, error)
	// Upsert writes the columns of e, creating the row if needed. Timestamp is
	// assigned on first write only.
	Upsert(ctx context.Context, e Entity) error
	// Merge writes the columns of e into an existing row. Columns not in e are kept.
	Merge(ctx context.Context, e Entity) error
	// Delete removes the row. Deleting an absent row is not an error.
	Delete(ctx context.Context, partitionKey, rowKey string) error
}
