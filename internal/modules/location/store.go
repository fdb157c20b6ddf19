// README: Location store backed by Redis: latest sample per (courier, order) plus courier GEO presence.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kurye/internal/types"
)

const (
	courierGeoKey   = "loc:couriers"
	sampleKeyPrefix = "loc:order:%s:courier:%s"
	// sampleTTL keeps stale pings from outliving the delivery they belong to.
	sampleTTL = 15 * time.Minute
)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// SetLatest overwrites the sample for (courier, order) and refreshes the
// courier's presence in the GEO index.
func (s *Store) SetLatest(ctx context.Context, sample Sample) error {
	raw, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	pipe := s.redis.Pipeline()
	pipe.Set(ctx, sampleKey(sample.OrderID, sample.CourierID), raw, sampleTTL)
	pipe.GeoAdd(ctx, courierGeoKey, &redis.GeoLocation{
		Name:      string(sample.CourierID),
		Longitude: sample.Position.Lng,
		Latitude:  sample.Position.Lat,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// Latest returns the newest sample for (courier, order), or ok=false when
// none was recorded or it expired.
func (s *Store) Latest(ctx context.Context, orderID, courierID types.ID) (Sample, bool, error) {
	raw, err := s.redis.Get(ctx, sampleKey(orderID, courierID)).Bytes()
	if err == redis.Nil {
		return Sample{}, false, nil
	}
	if err != nil {
		return Sample{}, false, err
	}
	var sample Sample
	if err := json.Unmarshal(raw, &sample); err != nil {
		return Sample{}, false, err
	}
	return sample, true, nil
}

// NearbyCouriers lists couriers within radiusKm of a point, closest first.
func (s *Store) NearbyCouriers(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := s.redis.GeoSearch(ctx, courierGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

// RemoveCourier drops the courier from the presence index.
func (s *Store) RemoveCourier(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, courierGeoKey, string(id)).Err()
}

func sampleKey(orderID, courierID types.ID) string {
	return fmt.Sprintf(sampleKeyPrefix, string(orderID), string(courierID))
}
