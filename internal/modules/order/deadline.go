// README: Deadline engine: auto-delete and delivery-overdue watches as ticker goroutines.
package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kurye/internal/clock"
	"kurye/internal/config"
	"kurye/internal/realtime"
)

// DeadlineEngine scans the store on a fixed tick and forces the transitions
// client traffic never triggers. It holds no locks of its own: forced
// transitions go through the same coordinator commands (and the same store
// CAS) as everything else, so an order that moved on between the scan and the
// transition is a no-op, not an error.
type DeadlineEngine struct {
	service *Service
	clock   clock.Clock
	cfg     config.DeadlineConfig
	log     *zap.Logger
}

func NewDeadlineEngine(service *Service, clk clock.Clock, cfg config.DeadlineConfig, log *zap.Logger) *DeadlineEngine {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DeadlineEngine{service: service, clock: clk, cfg: cfg, log: log}
}

// RunAutoDeleteWatch forces waiting orders past the auto-delete window into
// auto_deleted. Fires at most once per order: after the forced transition the
// order is no longer waiting and drops out of the candidate query.
func (e *DeadlineEngine) RunAutoDeleteWatch(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepAutoDelete(ctx)
		}
	}
}

func (e *DeadlineEngine) sweepAutoDelete(ctx context.Context) {
	cutoff := e.clock.Now().Add(-e.cfg.AutoDeleteWindow)
	stale, err := e.service.store.ListWaitingCreatedBefore(ctx, cutoff)
	if err != nil {
		e.log.Warn("auto-delete sweep query failed", zap.Error(err))
		return
	}
	for _, o := range stale {
		if err := e.service.AutoDelete(ctx, o.ID); err != nil {
			e.log.Warn("auto-delete failed", zap.String("order_id", o.ID.String()), zap.Error(err))
			continue
		}
		e.log.Info("order auto-deleted", zap.String("order_id", o.ID.String()))
	}
}

// RunOverdueWatch periodically nags couriers whose delivery has exceeded the
// window. Informational only; the order stays in_delivery and the nag repeats
// every tick until delivery or cancellation.
func (e *DeadlineEngine) RunOverdueWatch(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepOverdue(ctx)
		}
	}
}

func (e *DeadlineEngine) sweepOverdue(ctx context.Context) {
	now := e.clock.Now()
	cutoff := now.Add(-e.cfg.DeliveryWindow)
	overdue, err := e.service.store.ListInDeliveryAcceptedBefore(ctx, cutoff)
	if err != nil {
		e.log.Warn("overdue sweep query failed", zap.Error(err))
		return
	}
	for _, o := range overdue {
		if o.CourierID == nil {
			// The order left in_delivery between query and here.
			continue
		}
		e.service.publish(realtime.CourierRoom(*o.CourierID), realtime.EventDeliveryOverdue, map[string]any{
			"orderId":        o.ID,
			"acceptedAt":     o.AcceptedAt.In(clock.Zone),
			"overdueMinutes": int(now.Sub(*o.AcceptedAt).Minutes()) - int(e.cfg.DeliveryWindow.Minutes()),
		})
	}
}
