package tablestore

import (
	"context"
	"fmt"
)

// Move rewrites existing under partitionKey with fields applied on top, then
// deletes the old row. Every column, including Timestamp, is carried over.
// Not atomic: a failed delete leaves both rows in place.
func Move(ctx context.Context, g Gateway, existing Entity, partitionKey string, fields Entity) error {
	moved := existing.Clone()
	for col, v := range fields {
		moved[col] = v
	}
	moved[PartitionKey] = partitionKey

	if err := g.Upsert(ctx, moved); err != nil {
		return fmt.Errorf("move row: %w", err)
	}
	if err := g.Delete(ctx, existing.PartitionKey(), existing.RowKey()); err != nil {
		return fmt.Errorf("move row: %w", err)
	}
	return nil
}
