// Package fulfillment holds the item and order status enumerations, the
// transition table for order lines and the rule that rolls line statuses up
// into an order status.
package fulfillment

import (
	"fmt"

	"github.com/example/ec-fulfillment/internal/apperr"
)

type ItemStatus string

const (
	ItemPending   ItemStatus = "Pending"
	ItemShipped   ItemStatus = "Shipped"
	ItemDelivered ItemStatus = "Delivered"
	ItemCancelled ItemStatus = "Cancelled"
)

type OrderStatus string

const (
	OrderPending            OrderStatus = "Pending"
	OrderPartiallyFulfilled OrderStatus = "PartiallyFulfilled"
	OrderFulfilled          OrderStatus = "Fulfilled"
	OrderCancelled          OrderStatus = "Cancelled"
)

var ErrInvalidStatusTransition = apperr.ErrInvalidStatusTransition

// Trigger identifies who is moving an item between statuses.
type Trigger string

const (
	TriggerVendor       Trigger = "vendor"
	TriggerAdminDeliver Trigger = "admin_delivery"
	TriggerCancellation Trigger = "cancellation"
)

// itemTransitions defines allowed item transitions and the triggers that may
// cause each one. Delivered and Cancelled are terminal.
var itemTransitions = map[ItemStatus]map[ItemStatus][]Trigger{
	ItemPending: {
		ItemShipped:   {TriggerVendor},
		ItemDelivered: {TriggerVendor, TriggerAdminDeliver},
		ItemCancelled: {TriggerCancellation},
	},
	ItemShipped: {
		ItemDelivered: {TriggerVendor, TriggerAdminDeliver},
		ItemCancelled: {TriggerCancellation},
	},
	ItemDelivered: {},
	ItemCancelled: {},
}

// CanTransitionTo checks if an item in status s may move to target when
// driven by trigger.
func (s ItemStatus) CanTransitionTo(target ItemStatus, trigger Trigger) bool {
	allowed, exists := itemTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed[target] {
		if t == trigger {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ItemStatus) IsTerminal() bool {
	return len(itemTransitions[s]) == 0
}

// Transition validates a move and returns the target status.
func Transition(from, to ItemStatus, trigger Trigger) (ItemStatus, error) {
	if !from.CanTransitionTo(to, trigger) {
		return from, transitionError(from, to, trigger)
	}
	return to, nil
}

func transitionError(from, to ItemStatus, trigger Trigger) error {
	switch {
	case from == to:
		return fmt.Errorf("%w: item is already %s", ErrInvalidStatusTransition, from)
	case from.IsTerminal():
		return fmt.Errorf("%w: item is %s and cannot change", ErrInvalidStatusTransition, from)
	case to == ItemCancelled:
		return fmt.Errorf("%w: items are only cancelled by cancelling the order", ErrInvalidStatusTransition)
	default:
		return fmt.Errorf("%w: cannot move item from %s to %s (%s)", ErrInvalidStatusTransition, from, to, trigger)
	}
}

func ParseItemStatus(s string) (ItemStatus, error) {
	switch st := ItemStatus(s); st {
	case ItemPending, ItemShipped, ItemDelivered, ItemCancelled:
		return st, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown item status %q", s))
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderPartiallyFulfilled, OrderFulfilled, OrderCancelled:
		return st, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown order status %q", s))
}
