package tablestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryTable_Semantics(t *testing.T) {
	now := time.Date(2025, 11, 26, 10, 0, 0, 0, time.UTC)
	tbl := NewMemoryTable().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, tbl.Upsert(ctx, Entity{
		PartitionKey:    "North",
		RowKey:          "O002",
		"CustomerID":    "C001",
		"EstimatedTime": 35,
		"Dishes":        []interface{}{"D007"},
	}))

	later := now.Add(time.Hour)
	tbl.WithClock(func() time.Time { return later })
	require.NoError(t, tbl.Upsert(ctx, Entity{PartitionKey: "North", RowKey: "O002", "Status": "Pending"}))
	require.NoError(t, tbl.Merge(ctx, Entity{PartitionKey: "North", RowKey: "O002", "Status": "delivered", Timestamp: "x"}))

	rows, err := tbl.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, now.Format(time.RFC3339Nano), row[Timestamp])
	require.Equal(t, float64(35), row["EstimatedTime"])
	require.Equal(t, "delivered", row["Status"])
	require.Equal(t, []interface{}{"D007"}, row["Dishes"])

	// Mutating a returned row never leaks into the table.
	row["Status"] = "tampered"
	again, err := tbl.Query(ctx, Eq(RowKey, "O002"))
	require.NoError(t, err)
	require.Equal(t, "delivered", again[0]["Status"])
}

func TestMemoryTable_QueryAndDelete(t *testing.T) {
	tbl := NewMemoryTable()
	ctx := context.Background()

	require.NoError(t, tbl.Upsert(ctx, Entity{PartitionKey: "East", RowKey: "D1", "Price": 9.5, "IsAvailable": true}))
	require.NoError(t, tbl.Upsert(ctx, Entity{PartitionKey: "East", RowKey: "D2", "Price": 14}))
	require.NoError(t, tbl.Upsert(ctx, Entity{PartitionKey: "West", RowKey: "D3", "Price": "cheap"}))

	rows, err := tbl.Query(ctx, Le("Price", 10))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "D1", rows[0].RowKey())

	rows, err = tbl.Query(ctx, Eq(PartitionKey, "East"), Eq("Price", 14))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "D2", rows[0].RowKey())

	rows, err = tbl.Query(ctx, Eq("IsAvailable", true))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, tbl.Delete(ctx, "East", "D1"))
	rows, err = tbl.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "D2", rows[0].RowKey())
	require.Equal(t, "D3", rows[1].RowKey())

	err = tbl.Merge(ctx, Entity{PartitionKey: "East", RowKey: "D1", "Price": 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMove_CarriesTimestamp(t *testing.T) {
	created := time.Date(2025, 11, 26, 9, 0, 0, 0, time.UTC)
	tbl := NewMemoryTable().WithClock(func() time.Time { return created })
	ctx := context.Background()

	require.NoError(t, tbl.Upsert(ctx, Entity{PartitionKey: "North", RowKey: "C1", "Name": "Ali", "Phone": "1"}))
	rows, err := tbl.List(ctx)
	require.NoError(t, err)

	tbl.WithClock(func() time.Time { return created.Add(2 * time.Hour) })
	require.NoError(t, Move(ctx, tbl, rows[0], "South", Entity{"Phone": "2"}))

	rows, err = tbl.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "South", rows[0].PartitionKey())
	require.Equal(t, "Ali", rows[0]["Name"])
	require.Equal(t, "2", rows[0]["Phone"])
	require.Equal(t, created.Format(time.RFC3339Nano), rows[0][Timestamp])
}
