package tablestore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type memKey struct{ pk, rk string }

// MemoryTable is an in-process Gateway with the same semantics as Table. Values
// are stored in their DynamoDB attribute form, so reads return the same Go types
// a real table would (numbers come back as float64).
type MemoryTable struct {
	mu      sync.RWMutex
	rows    map[memKey]map[string]types.AttributeValue
	nowFunc func() time.Time
}

var _ Gateway = (*MemoryTable)(nil)

// NewMemoryTable returns an empty MemoryTable.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{
		rows:    map[memKey]map[string]types.AttributeValue{},
		nowFunc: time.Now,
	}
}

// WithClock overrides the clock used for Timestamp assignment.
func (m *MemoryTable) WithClock(now func() time.Time) *MemoryTable {
	m.nowFunc = now
	return m
}

// List returns every row ordered by PartitionKey then RowKey.
func (m *MemoryTable) List(ctx context.Context) ([]Entity, error) {
	return m.Query(ctx)
}

// Query returns the rows matching every filter.
func (m *MemoryTable) Query(_ context.Context, filters ...Filter) ([]Entity, error) {
	for _, f := range filters {
		if f.Op != Equal && f.Op != LessOrEqual {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFilter, f.Op)
		}
	}

	m.mu.RLock()
	keys := make([]memKey, 0, len(m.rows))
	for k := range m.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pk != keys[j].pk {
			return keys[i].pk < keys[j].pk
		}
		return keys[i].rk < keys[j].rk
	})

	out := []Entity{}
	for _, k := range keys {
		var e Entity
		if err := attributevalue.UnmarshalMap(m.rows[k], &e); err != nil {
			m.mu.RUnlock()
			return nil, fmt.Errorf("unmarshal entity: %w", err)
		}
		if matches(e, filters) {
			out = append(out, e)
		}
	}
	m.mu.RUnlock()
	return out, nil
}

// Upsert writes the columns of e, creating the row when absent.
func (m *MemoryTable) Upsert(_ context.Context, e Entity) error {
	pk, rk, err := e.keys()
	if err != nil {
		return err
	}
	cols, err := marshalColumns(e)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{pk, rk}
	row, ok := m.rows[k]
	if !ok {
		row = map[string]types.AttributeValue{}
		m.rows[k] = row
	}
	for col, v := range cols {
		if col == Timestamp {
			continue
		}
		row[col] = v
	}
	if _, has := row[Timestamp]; !has {
		if v, given := cols[Timestamp]; given {
			row[Timestamp] = v
		} else {
			row[Timestamp] = &types.AttributeValueMemberS{Value: m.nowFunc().UTC().Format(time.RFC3339Nano)}
		}
	}
	return nil
}

// Merge writes the columns of e into an existing row.
func (m *MemoryTable) Merge(_ context.Context, e Entity) error {
	pk, rk, err := e.keys()
	if err != nil {
		return err
	}
	cols, err := marshalColumns(e)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[memKey{pk, rk}]
	if !ok {
		return fmt.Errorf("merge %s/%s: %w", pk, rk, ErrNotFound)
	}
	for col, v := range cols {
		if col == Timestamp {
			continue
		}
		row[col] = v
	}
	return nil
}

// Delete removes the keyed row.
func (m *MemoryTable) Delete(_ context.Context, partitionKey, rowKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, memKey{partitionKey, rowKey})
	return nil
}

func marshalColumns(e Entity) (map[string]types.AttributeValue, error) {
	cols := make(map[string]types.AttributeValue, len(e))
	for col, v := range e {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		cols[col] = av
	}
	return cols, nil
}

func matches(e Entity, filters []Filter) bool {
	for _, f := range filters {
		got, ok := e[f.Column]
		if !ok || !compare(got, f.Op, normalize(f.Value)) {
			return false
		}
	}
	return true
}

// normalize maps Go numeric types to float64, matching decoded DynamoDB numbers.
func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

func compare(a interface{}, op Op, b interface{}) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if op == Equal {
			return av == bv
		}
		return av <= bv
	case string:
		bv, ok := b.(string)
		if !ok {
			return false
		}
		if op == Equal {
			return av == bv
		}
		return av <= bv
	case bool:
		bv, ok := b.(bool)
		return ok && op == Equal && av == bv
	}
	return false
}
