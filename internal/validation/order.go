package validation

import (
	"strings"

	"github.com/imrishuroy/nomnomnow-orders/internal/orders"
)

// Violation messages reported by ValidateOrder.
const (
	MsgEmptyBody          = "Request body is empty"
	MsgNotObject          = "Request body must be a JSON object"
	MsgInvalidArea        = "Missing or invalid 'area' field"
	MsgInvalidOrderID     = "Missing or invalid 'orderId' field"
	MsgInvalidCustomerID  = "Missing or invalid 'customerId' field"
	MsgMissingDishes      = "Missing 'dishesOrdered' field"
	MsgDishesNotList      = "'dishesOrdered' must be a list"
	MsgDishesEmpty        = "'dishesOrdered' cannot be empty - at least one dish is required"
	MsgEstimatedTimeNaN   = "'estimatedTime' must be a valid number"
	MsgEstimatedTimeNeg   = "'estimatedTime' must be a positive number"
	MsgTotalCostWrongType = "'totalCost' must be a string or number"
)

// ValidateOrder checks a decoded JSON payload for an order submission. Every
// rule runs independently and all violations are returned in rule order; the
// payload is valid iff the list is empty.
func ValidateOrder(payload interface{}) (bool, []string) {
	if payload == nil {
		return false, []string{MsgEmptyBody}
	}
	body, ok := payload.(map[string]interface{})
	if !ok {
		return false, []string{MsgNotObject}
	}

	violations := []string{}

	if !nonBlankString(body[orders.FieldArea]) {
		violations = append(violations, MsgInvalidArea)
	}
	if !nonBlankString(body[orders.FieldOrderID]) {
		violations = append(violations, MsgInvalidOrderID)
	}
	if !nonBlankString(body[orders.FieldCustomerID]) {
		violations = append(violations, MsgInvalidCustomerID)
	}

	switch dishes := body[orders.FieldDishesOrdered].(type) {
	case nil:
		violations = append(violations, MsgMissingDishes)
	case []interface{}:
		if len(dishes) == 0 {
			violations = append(violations, MsgDishesEmpty)
		}
	default:
		violations = append(violations, MsgDishesNotList)
	}

	if v := body[orders.FieldEstimatedTime]; v != nil {
		if n, ok := orders.AsInt(v); !ok {
			violations = append(violations, MsgEstimatedTimeNaN)
		} else if n < 0 {
			violations = append(violations, MsgEstimatedTimeNeg)
		}
	}

	switch body[orders.FieldTotalCost].(type) {
	case nil, string, float64:
	default:
		violations = append(violations, MsgTotalCostWrongType)
	}

	return len(violations) == 0, violations
}

func nonBlankString(v interface{}) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}
