// README: Common value objects shared across modules.
package types

import "github.com/google/uuid"

// ID identifies orders, couriers, and restaurants. Generated IDs are UUIDs,
// but the type accepts any externally supplied identifier.
type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string { return string(id) }

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Money is an amount in whole Turkish lira. Orders carry separate cash, card,
// and gift amounts; the one matching the payment method is the only one that
// may be non-zero.
type Money int64
