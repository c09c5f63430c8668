package orders

import (
	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
)

// mergeColumns maps updatable payload fields to their table column.
// dishesOrdered and area are handled separately.
var mergeColumns = map[string]string{
	FieldCustomerID:       ColCustomerID,
	FieldEstimatedTime:    ColEstimatedTime,
	FieldEstimatedArrival: ColEstimatedArrival,
	FieldTotalCost:        ColTotalCost,
	FieldStatus:           ColStatus,
}

// NewEntity builds the row for a payload that passed ValidateOrder. Omitted
// optional fields get their defaults: Status "Pending", EstimatedTime 0,
// EstimatedArrival and TotalCost "".
func NewEntity(p map[string]interface{}) tablestore.Entity {
	area, _ := p[FieldArea].(string)
	orderID, _ := p[FieldOrderID].(string)

	e := tablestore.Entity{
		tablestore.PartitionKey: area,
		tablestore.RowKey:       orderID,
		ColOrderID:              orderID,
		ColCustomerID:           p[FieldCustomerID],
		ColDishesOrdered:        EncodeDishes(p[FieldDishesOrdered]),
		ColEstimatedTime:        0,
		ColEstimatedArrival:     "",
		ColTotalCost:            "",
		ColStatus:               StatusPending,
	}
	if v := p[FieldEstimatedTime]; v != nil {
		if n, ok := AsInt(v); ok {
			e[ColEstimatedTime] = n
		}
	}
	if v := p[FieldEstimatedArrival]; v != nil {
		e[ColEstimatedArrival] = v
	}
	if v := p[FieldTotalCost]; v != nil {
		e[ColTotalCost] = v
	}
	if v := p[FieldStatus]; v != nil {
		e[ColStatus] = v
	}
	return e
}

// MergeFields returns the columns to write for a PUT payload: only fields present
// in p, with dishesOrdered re-encoded. Keys are not included.
func MergeFields(p map[string]interface{}) tablestore.Entity {
	e := tablestore.Entity{}
	for field, col := range mergeColumns {
		if v, ok := p[field]; ok {
			e[col] = v
		}
	}
	if v, ok := p[FieldDishesOrdered]; ok {
		e[ColDishesOrdered] = EncodeDishes(v)
	}
	return e
}

// FromEntity projects a table row into the external Order shape.
func FromEntity(e tablestore.Entity) Order {
	orderID := e.String(ColOrderID)
	if orderID == "" {
		orderID = e.RowKey()
	}
	return Order{
		Area:             e.PartitionKey(),
		OrderID:          orderID,
		CustomerID:       e[ColCustomerID],
		DishesOrdered:    DecodeDishes(e[ColDishesOrdered]),
		EstimatedTime:    e[ColEstimatedTime],
		EstimatedArrival: e[ColEstimatedArrival],
		TotalCost:        e[ColTotalCost],
		Status:           e[ColStatus],
	}
}
