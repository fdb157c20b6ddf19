// README: Order aggregate, payment methods, and status definitions.
package order

import (
	"time"

	"kurye/internal/types"
)

type Status string

const (
	StatusWaiting         Status = "waiting"
	StatusInDelivery      Status = "in_delivery"
	StatusPendingApproval Status = "pending_approval"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusAutoDeleted     Status = "auto_deleted"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusAutoDeleted:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "nakit"
	PaymentCard   PaymentMethod = "kart"
	PaymentGift   PaymentMethod = "hediye"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentGift, PaymentOnline:
		return true
	}
	return false
}

// RequiresApproval reports whether delivery must pass through restaurant
// reconciliation before the order is final. Everything collected physically
// does; online payments settle out of band.
func (m PaymentMethod) RequiresApproval() bool {
	return m != PaymentOnline
}

type Order struct {
	ID            types.ID
	RestaurantID  types.ID
	CourierID     *types.ID
	Status        Status
	StatusVersion int

	Neighborhood           string
	PaymentMethod          PaymentMethod
	CashAmount             types.Money
	CardAmount             types.Money
	GiftAmount             types.Money
	CourierFee             types.Money
	RestaurantFee          types.Money
	PreparationTimeMinutes int
	ImageRef               string

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	DeliveredAt *time.Time
	ApprovedAt  *time.Time
	CancelledAt *time.Time
}

// ReconciliationTotal is the amount the restaurant settles with the courier.
// Online payments never enter reconciliation.
func (o *Order) ReconciliationTotal() types.Money {
	if o.PaymentMethod == PaymentOnline {
		return 0
	}
	return o.CashAmount + o.CardAmount + o.GiftAmount
}

// AutoDeleteDeadline is when an unaccepted order disappears.
func (o *Order) AutoDeleteDeadline(window time.Duration) time.Time {
	return o.CreatedAt.Add(window)
}

// DeliveryDeadline is the overdue threshold; zero time while unassigned.
func (o *Order) DeliveryDeadline(window time.Duration) time.Time {
	if o.AcceptedAt == nil {
		return time.Time{}
	}
	return o.AcceptedAt.Add(window)
}

// Event is one row of the append-only transition audit trail.
type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the order state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusWaiting:         {StatusInDelivery, StatusCancelled, StatusAutoDeleted},
	StatusInDelivery:      {StatusWaiting, StatusPendingApproval, StatusDelivered, StatusCancelled},
	StatusPendingApproval: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
