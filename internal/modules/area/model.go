// README: Delivery areas a restaurant serves.
package area

import (
	"time"

	"kurye/internal/types"
)

// Area is one neighborhood a restaurant delivers to. Center is filled by
// geocoding at registration; a failed geocode leaves it nil and the area
// works by name only.
type Area struct {
	ID           types.ID     `json:"id"`
	RestaurantID types.ID     `json:"restaurantId"`
	Neighborhood string       `json:"neighborhood"`
	City         string       `json:"city"`
	Center       *types.Point `json:"center,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}
