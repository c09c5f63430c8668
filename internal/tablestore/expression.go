package tablestore

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// exprBuilder allocates #n/:v placeholders for a single DynamoDB request.
type exprBuilder struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func newExprBuilder() *exprBuilder {
	return &exprBuilder{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}
}

func (b *exprBuilder) name(column string) string {
	ph := fmt.Sprintf("#n%d", len(b.names))
	b.names[ph] = column
	return ph
}

func (b *exprBuilder) value(v interface{}) (string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	ph := fmt.Sprintf(":v%d", len(b.values))
	b.values[ph] = av
	return ph, nil
}

func (b *exprBuilder) compare(f Filter) (string, error) {
	switch f.Op {
	case Equal, LessOrEqual:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFilter, f.Op)
	}
	v, err := b.value(f.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", b.name(f.Column), f.Op, v), nil
}

// assign returns "#n = :v" clauses for every non-key column of e except skip,
// in column order.
func (b *exprBuilder) assign(e Entity, skip ...string) ([]string, error) {
	skipped := map[string]bool{PartitionKey: true, RowKey: true}
	for _, s := range skip {
		skipped[s] = true
	}

	columns := make([]string, 0, len(e))
	for col := range e {
		if !skipped[col] {
			columns = append(columns, col)
		}
	}
	sort.Strings(columns)

	clauses := make([]string, 0, len(columns))
	for _, col := range columns {
		v, err := b.value(e[col])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", b.name(col), v))
	}
	return clauses, nil
}

// namesOrNil and valuesOrNil keep empty maps off the wire; DynamoDB rejects them.
func (b *exprBuilder) namesOrNil() map[string]string {
	if len(b.names) == 0 {
		return nil
	}
	return b.names
}

func (b *exprBuilder) valuesOrNil() map[string]types.AttributeValue {
	if len(b.values) == 0 {
		return nil
	}
	return b.values
}

func keyAttributes(pk, rk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		PartitionKey: &types.AttributeValueMemberS{Value: pk},
		RowKey:       &types.AttributeValueMemberS{Value: rk},
	}
}
