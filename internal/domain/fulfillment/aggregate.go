package fulfillment

// DeriveOrderStatus rolls item statuses up into an order status.
// A cancelled order stays cancelled. All items delivered means fulfilled,
// at least one delivered means partially fulfilled, anything else keeps
// the current status.
func DeriveOrderStatus(current OrderStatus, items []ItemStatus) OrderStatus {
	if current == OrderCancelled || len(items) == 0 {
		return current
	}

	delivered := 0
	for _, s := range items {
		if s == ItemDelivered {
			delivered++
		}
	}

	switch {
	case delivered == len(items):
		return OrderFulfilled
	case delivered > 0:
		return OrderPartiallyFulfilled
	default:
		return current
	}
}
