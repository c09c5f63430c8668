package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
)

// ErrInvalidArea is returned when an update moves an order to a blank or non-string area.
var ErrInvalidArea = errors.New("'area' must be a non-empty string")

// Store encapsulates operations on the orders table.
type Store struct {
	table tablestore.Gateway
}

// NewStore creates a new orders Store.
func NewStore(table tablestore.Gateway) *Store {
	return &Store{table: table}
}

// Search returns the orders matching every non-empty argument. With all three
// empty it lists the whole table. The result is never nil.
func (s *Store) Search(ctx context.Context, area, customerID, orderID string) ([]Order, error) {
	var filters []tablestore.Filter
	if area != "" {
		filters = append(filters, tablestore.Eq(tablestore.PartitionKey, area))
	}
	if customerID != "" {
		filters = append(filters, tablestore.Eq(ColCustomerID, customerID))
	}
	if orderID != "" {
		filters = append(filters, tablestore.Eq(tablestore.RowKey, orderID))
	}

	rows, err := s.table.Query(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromEntity(row))
	}
	return out, nil
}

// Create upserts the row for a validated payload keyed by (area, orderId).
func (s *Store) Create(ctx context.Context, payload map[string]interface{}) (tablestore.Entity, error) {
	e := NewEntity(payload)
	if err := s.table.Upsert(ctx, e); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return e, nil
}

// FindByOrderID returns the first row whose RowKey is orderID, searching every
// area. Returns (nil, nil) if not found.
func (s *Store) FindByOrderID(ctx context.Context, orderID string) (tablestore.Entity, error) {
	rows, err := s.table.Query(ctx, tablestore.Eq(tablestore.RowKey, orderID))
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Update merges the fields present in payload into existing. A changed area
// moves the row: every column, including the original Timestamp, is written
// under the new partition and the old row is deleted.
func (s *Store) Update(ctx context.Context, existing tablestore.Entity, payload map[string]interface{}) error {
	fields := MergeFields(payload)

	if raw, ok := payload[FieldArea]; ok {
		area, isString := raw.(string)
		if !isString || strings.TrimSpace(area) == "" {
			return ErrInvalidArea
		}
		if area == existing.PartitionKey() {
			return s.merge(ctx, existing, fields)
		}
		if err := tablestore.Move(ctx, s.table, existing, area, fields); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	}
	return s.merge(ctx, existing, fields)
}

func (s *Store) merge(ctx context.Context, existing, fields tablestore.Entity) error {
	fields[tablestore.PartitionKey] = existing.PartitionKey()
	fields[tablestore.RowKey] = existing.RowKey()
	if err := s.table.Merge(ctx, fields); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

// MarkDelivered sets Status to delivered on the keyed row and touches nothing else.
func (s *Store) MarkDelivered(ctx context.Context, area, orderID string) error {
	err := s.table.Merge(ctx, tablestore.Entity{
		tablestore.PartitionKey: area,
		tablestore.RowKey:       orderID,
		ColStatus:               StatusDelivered,
	})
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// All returns every row of the orders table.
func (s *Store) All(ctx context.Context) ([]tablestore.Entity, error) {
	rows, err := s.table.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return rows, nil
}
