// README: Delivery-area store backed by PostgreSQL.
package area

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"kurye/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, a *Area) error {
	var lat, lng *float64
	if a.Center != nil {
		lat, lng = &a.Center.Lat, &a.Center.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO delivery_areas (id, restaurant_id, neighborhood, city, center_lat, center_lng, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(a.ID), string(a.RestaurantID), a.Neighborhood, a.City, lat, lng, a.CreatedAt,
	)
	return err
}

func (s *Store) ListByRestaurant(ctx context.Context, restaurantID types.ID) ([]*Area, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, restaurant_id, neighborhood, city, center_lat, center_lng, created_at
		FROM delivery_areas
		WHERE restaurant_id = $1
		ORDER BY neighborhood`, string(restaurantID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Area
	for rows.Next() {
		var a Area
		var lat, lng *float64
		var createdAt time.Time
		if err := rows.Scan(&a.ID, &a.RestaurantID, &a.Neighborhood, &a.City, &lat, &lng, &createdAt); err != nil {
			return nil, err
		}
		if lat != nil && lng != nil {
			a.Center = &types.Point{Lat: *lat, Lng: *lng}
		}
		a.CreatedAt = createdAt
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, restaurantID, areaID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM delivery_areas WHERE id = $1 AND restaurant_id = $2`,
		string(areaID), string(restaurantID))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
