// README: Courier location sample; latest-only, ephemeral.
package location

import (
	"time"

	"kurye/internal/types"
)

// Sample is a courier GPS ping tied to the order being delivered. Only the
// newest sample per (courier, order) is retained, with a short TTL — there is
// no trail and nothing survives a restart.
type Sample struct {
	CourierID types.ID    `json:"courierId"`
	OrderID   types.ID    `json:"orderId"`
	Position  types.Point `json:"position"`
	Speed     *float64    `json:"speed,omitempty"`
	Heading   *float64    `json:"heading,omitempty"`
	Accuracy  *float64    `json:"accuracy,omitempty"`
	At        time.Time   `json:"timestamp"`
}
