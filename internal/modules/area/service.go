// README: Delivery-area service: registration with best-effort geocoding, lookup, serving checks.
package area

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"kurye/internal/clock"
	"kurye/internal/types"
)

var ErrValidation = errors.New("invalid delivery area")

// Geocoder resolves a neighborhood query to coordinates. ok=false means the
// query resolved to nothing; that is not an error.
type Geocoder interface {
	Locate(ctx context.Context, query string) (types.Point, bool, error)
}

type Service struct {
	store    *Store
	geocoder Geocoder
	clock    clock.Clock
	log      *zap.Logger
}

func NewService(store *Store, geocoder Geocoder, clk clock.Clock, log *zap.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, geocoder: geocoder, clock: clk, log: log}
}

type CreateCommand struct {
	RestaurantID types.ID
	Neighborhood string
	City         string
}

// Create registers a neighborhood for a restaurant. Geocoding is best
// effort: an unavailable or failing geocoder degrades to a name-only area.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Area, error) {
	if cmd.RestaurantID == "" || strings.TrimSpace(cmd.Neighborhood) == "" {
		return nil, ErrValidation
	}
	a := &Area{
		ID:           types.NewID(),
		RestaurantID: cmd.RestaurantID,
		Neighborhood: strings.TrimSpace(cmd.Neighborhood),
		City:         strings.TrimSpace(cmd.City),
		CreatedAt:    s.clock.Now(),
	}
	if s.geocoder != nil {
		query := a.Neighborhood
		if a.City != "" {
			query += ", " + a.City
		}
		p, ok, err := s.geocoder.Locate(ctx, query)
		if err != nil {
			s.log.Warn("geocoding failed, keeping name-only area",
				zap.String("query", query), zap.Error(err))
		} else if ok {
			a.Center = &p
		}
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListByRestaurant(ctx context.Context, restaurantID types.ID) ([]*Area, error) {
	return s.store.ListByRestaurant(ctx, restaurantID)
}

func (s *Service) Delete(ctx context.Context, restaurantID, areaID types.ID) (bool, error) {
	return s.store.Delete(ctx, restaurantID, areaID)
}

// Serves reports whether the restaurant delivers to the named neighborhood.
// Matching is by case-folded name; geocoded centers are informational for
// clients, not part of the check.
func (s *Service) Serves(ctx context.Context, restaurantID types.ID, neighborhood string) (bool, error) {
	areas, err := s.store.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return false, err
	}
	want := foldTurkish(neighborhood)
	for _, a := range areas {
		if foldTurkish(a.Neighborhood) == want {
			return true, nil
		}
	}
	return false, nil
}

// foldTurkish lowercases with the dotted/dotless i pair handled, so
// "Kadıköy" and "KADIKÖY" compare equal.
func foldTurkish(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch r {
		case 'I':
			r = 'ı'
		case 'İ':
			r = 'i'
		default:
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DistanceKm is the great-circle distance between two points.
func DistanceKm(a, b types.Point) float64 {
	const earthRadiusKm = 6371.0
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	rLat1 := radians(a.Lat)
	rLat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
