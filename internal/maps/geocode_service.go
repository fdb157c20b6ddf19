// README: Google Geocoding wrapper used by delivery-area registration.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"kurye/internal/types"
)

// GeocodeService resolves free-form neighborhood queries to coordinates.
type GeocodeService struct {
	client *maps.Client
}

func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Locate geocodes the query. Zero results is ok=false, not an error, so
// callers can degrade gracefully.
func (s *GeocodeService) Locate(ctx context.Context, query string) (types.Point, bool, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: query,
		Region:  "tr",
	})
	if err != nil {
		return types.Point{}, false, fmt.Errorf("geocoding %q: %w", query, err)
	}
	if len(results) == 0 {
		return types.Point{}, false, nil
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, true, nil
}
