package orders

import "strings"

// Order statuses. Any other value is stored and returned untouched.
const (
	StatusPending   = "Pending"
	StatusDelivered = "delivered"
)

// Columns of the order table besides PartitionKey (area) and RowKey (orderId).
const (
	ColOrderID          = "OrderID"
	ColCustomerID       = "CustomerID"
	ColDishesOrdered    = "DishesOrdered"
	ColEstimatedTime    = "EstimatedTime"
	ColEstimatedArrival = "EstimatedArrival"
	ColTotalCost        = "TotalCost"
	ColStatus           = "Status"
)

// Payload field names of the external order shape.
const (
	FieldArea             = "area"
	FieldOrderID          = "orderId"
	FieldCustomerID       = "customerId"
	FieldDishesOrdered    = "dishesOrdered"
	FieldEstimatedTime    = "estimatedTime"
	FieldEstimatedArrival = "estimatedArrival"
	FieldTotalCost        = "totalCost"
	FieldStatus           = "status"
)

// Order is the external shape returned by GET /orders. Loosely typed columns
// keep whatever the table holds.
type Order struct {
	Area             string      `json:"area"`
	OrderID          string      `json:"orderId"`
	CustomerID       interface{} `json:"customerId"`
	DishesOrdered    interface{} `json:"dishesOrdered"`
	EstimatedTime    interface{} `json:"estimatedTime"`
	EstimatedArrival interface{} `json:"estimatedArrival"`
	TotalCost        interface{} `json:"totalCost"`
	Status           interface{} `json:"status"`
}

// IsPending reports whether status reads "pending" in any letter case.
func IsPending(status string) bool {
	return strings.EqualFold(status, "pending")
}
