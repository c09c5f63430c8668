package tablestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/nomnomnow-orders/internal/aws"
)

// Table is a Gateway backed by a DynamoDB table with hash key PartitionKey and
// range key RowKey.
type Table struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

var _ Gateway = (*Table)(nil)

// NewTable creates a Table bound to tableName.
func NewTable(client aws.DynamoDBAPI, tableName string) *Table {
	return &Table{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Name returns the underlying table name.
func (t *Table) Name() string { return t.tableName }

// List scans every page of the table.
func (t *Table) List(ctx context.Context) ([]Entity, error) {
	return t.scan(ctx, &dyn.ScanInput{TableName: &t.tableName})
}

// Query uses a DynamoDB Query when an equality on PartitionKey is present and a
// Scan otherwise. Predicates that are not part of the key condition become the
// filter expression.
func (t *Table) Query(ctx context.Context, filters ...Filter) ([]Entity, error) {
	if len(filters) == 0 {
		return t.List(ctx)
	}

	hasPartition := false
	for _, f := range filters {
		if f.Column == PartitionKey && f.Op == Equal {
			hasPartition = true
			break
		}
	}

	b := newExprBuilder()
	var keyConds, conds []string
	usedPK, usedRK := false, false
	for _, f := range filters {
		clause, err := b.compare(f)
		if err != nil {
			return nil, err
		}
		switch {
		case hasPartition && f.Op == Equal && f.Column == PartitionKey && !usedPK:
			usedPK = true
			keyConds = append(keyConds, clause)
		case hasPartition && f.Op == Equal && f.Column == RowKey && !usedRK:
			usedRK = true
			keyConds = append(keyConds, clause)
		default:
			conds = append(conds, clause)
		}
	}

	var filterExpr *string
	if len(conds) > 0 {
		filterExpr = awsString(strings.Join(conds, " AND "))
	}

	if hasPartition {
		return t.query(ctx, &dyn.QueryInput{
			TableName:                 &t.tableName,
			KeyConditionExpression:    awsString(strings.Join(keyConds, " AND ")),
			FilterExpression:          filterExpr,
			ExpressionAttributeNames:  b.namesOrNil(),
			ExpressionAttributeValues: b.valuesOrNil(),
		})
	}
	return t.scan(ctx, &dyn.ScanInput{
		TableName:                 &t.tableName,
		FilterExpression:          filterExpr,
		ExpressionAttributeNames:  b.namesOrNil(),
		ExpressionAttributeValues: b.valuesOrNil(),
	})
}

// Upsert writes the columns of e with UpdateItem, which creates the row when it
// is absent and leaves unspecified columns untouched when it is not.
func (t *Table) Upsert(ctx context.Context, e Entity) error {
	pk, rk, err := e.keys()
	if err != nil {
		return err
	}

	b := newExprBuilder()
	sets, err := b.assign(e, Timestamp)
	if err != nil {
		return err
	}

	var ts interface{} = t.nowFunc().UTC().Format(time.RFC3339Nano)
	if v, ok := e[Timestamp]; ok && v != nil {
		ts = v
	}
	tsName := b.name(Timestamp)
	tsVal, err := b.value(ts)
	if err != nil {
		return err
	}
	sets = append(sets, fmt.Sprintf("%s = if_not_exists(%s, %s)", tsName, tsName, tsVal))

	_, err = t.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &t.tableName,
		Key:                       keyAttributes(pk, rk),
		UpdateExpression:          awsString("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  b.namesOrNil(),
		ExpressionAttributeValues: b.valuesOrNil(),
	})
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", pk, rk, err)
	}
	return nil
}

// Merge writes the columns of e into the existing row. Timestamp is never
// rewritten. Returns ErrNotFound when the row does not exist.
func (t *Table) Merge(ctx context.Context, e Entity) error {
	pk, rk, err := e.keys()
	if err != nil {
		return err
	}

	b := newExprBuilder()
	sets, err := b.assign(e, Timestamp)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return t.exists(ctx, pk, rk)
	}

	cond := fmt.Sprintf("attribute_exists(%s)", b.name(PartitionKey))
	_, err = t.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &t.tableName,
		Key:                       keyAttributes(pk, rk),
		UpdateExpression:          awsString("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       &cond,
		ExpressionAttributeNames:  b.namesOrNil(),
		ExpressionAttributeValues: b.valuesOrNil(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("merge %s/%s: %w", pk, rk, ErrNotFound)
		}
		return fmt.Errorf("merge %s/%s: %w", pk, rk, err)
	}
	return nil
}

// Delete removes the keyed row.
func (t *Table) Delete(ctx context.Context, partitionKey, rowKey string) error {
	_, err := t.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &t.tableName,
		Key:       keyAttributes(partitionKey, rowKey),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", partitionKey, rowKey, err)
	}
	return nil
}

func (t *Table) exists(ctx context.Context, pk, rk string) error {
	out, err := t.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &t.tableName,
		Key:       keyAttributes(pk, rk),
	})
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return fmt.Errorf("merge %s/%s: %w", pk, rk, ErrNotFound)
	}
	return nil
}

func (t *Table) scan(ctx context.Context, in *dyn.ScanInput) ([]Entity, error) {
	var out []Entity
	p := dyn.NewScanPaginator(t.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.tableName, err)
		}
		entities, err := decodeItems(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, entities...)
	}
	return out, nil
}

func (t *Table) query(ctx context.Context, in *dyn.QueryInput) ([]Entity, error) {
	var out []Entity
	p := dyn.NewQueryPaginator(t.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", t.tableName, err)
		}
		entities, err := decodeItems(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, entities...)
	}
	return out, nil
}

func decodeItems(items []map[string]types.AttributeValue) ([]Entity, error) {
	out := make([]Entity, 0, len(items))
	for _, item := range items {
		var e Entity
		if err := attributevalue.UnmarshalMap(item, &e); err != nil {
			return nil, fmt.Errorf("unmarshal entity: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func awsString(s string) *string { return &s }
