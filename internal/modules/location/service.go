// README: Location relay: guard, store latest, republish to the order room.
package location

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kurye/internal/clock"
	"kurye/internal/realtime"
	"kurye/internal/types"
)

// AssignmentGuard answers whether a courier is currently delivering an order.
// Implemented by the order service.
type AssignmentGuard interface {
	InDeliveryBy(ctx context.Context, orderID, courierID types.ID) (bool, error)
}

// Notifier republishes accepted samples to the order's watcher room.
type Notifier interface {
	Publish(room, event string, payload any)
}

type Service struct {
	store    *Store
	guard    AssignmentGuard
	notifier Notifier
	clock    clock.Clock
	log      *zap.Logger
}

func NewService(store *Store, guard AssignmentGuard, notifier Notifier, clk clock.Clock, log *zap.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, guard: guard, notifier: notifier, clock: clk, log: log}
}

// Relay accepts a courier ping, keeps it as the latest sample, and fans it
// out to room order_<id>. Pings from anyone but the assigned courier, or for
// orders not in delivery, are dropped without a surfaced error so a rejected
// sender cannot probe who holds an order.
func (s *Service) Relay(ctx context.Context, msg realtime.LocationUpdateMsg) error {
	if msg.CourierID == "" || msg.OrderID == "" {
		return nil
	}
	assigned, err := s.guard.InDeliveryBy(ctx, msg.OrderID, msg.CourierID)
	if err != nil {
		return err
	}
	if !assigned {
		s.log.Debug("ignoring location ping from unassigned sender",
			zap.String("order_id", msg.OrderID.String()),
			zap.String("courier_id", msg.CourierID.String()))
		return nil
	}

	at := time.UnixMilli(msg.TimestampMs).In(clock.Zone)
	if msg.TimestampMs == 0 {
		at = s.clock.Now()
	}
	sample := Sample{
		CourierID: msg.CourierID,
		OrderID:   msg.OrderID,
		Position:  types.Point{Lat: msg.Lat, Lng: msg.Lng},
		Speed:     msg.Speed,
		Heading:   msg.Heading,
		Accuracy:  msg.Accuracy,
		At:        at,
	}
	if err := s.store.SetLatest(ctx, sample); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Publish(realtime.OrderRoom(msg.OrderID), realtime.EventLocationUpdate, sample)
	}
	return nil
}

// Latest exposes the newest sample for pull-based refresh.
func (s *Service) Latest(ctx context.Context, orderID, courierID types.ID) (Sample, bool, error) {
	return s.store.Latest(ctx, orderID, courierID)
}

// NearbyCouriers lists couriers around a point, closest first.
func (s *Service) NearbyCouriers(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	return s.store.NearbyCouriers(ctx, p, radiusKm)
}
