// README: Order store backed by PostgreSQL; the status CAS is the per-order serialization point.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kurye/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const orderColumns = `
	id, restaurant_id, courier_id, status, status_version,
	neighborhood, payment_method, cash_amount, card_amount, gift_amount,
	courier_fee, restaurant_fee, preparation_minutes, image_ref,
	created_at, accepted_at, delivered_at, approved_at, cancelled_at`

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, restaurant_id, courier_id, status, status_version,
			neighborhood, payment_method, cash_amount, card_amount, gift_amount,
			courier_fee, restaurant_fee, preparation_minutes, image_ref,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15
		)`,
		string(o.ID),
		string(o.RestaurantID),
		idToStringPtr(o.CourierID),
		string(o.Status),
		o.StatusVersion,
		o.Neighborhood,
		string(o.PaymentMethod),
		int64(o.CashAmount), int64(o.CardAmount), int64(o.GiftAmount),
		int64(o.CourierFee), int64(o.RestaurantFee),
		o.PreparationTimeMinutes,
		o.ImageRef,
		o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

// UpdateStatus performs the compare-and-set transition. Timestamps move with
// the target status: acceptance stamps accepted_at, reverting to waiting
// clears the assignment cycle, approval from pending_approval stamps
// approved_at. Returns false when the guard row was not matched, meaning a
// concurrent writer got there first.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, courierID *types.ID, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
			status_version = status_version + 1,
			courier_id = CASE WHEN $1 = 'waiting' THEN NULL ELSE COALESCE($2, courier_id) END,
			accepted_at = CASE
				WHEN $1 = 'in_delivery' THEN $6
				WHEN $1 = 'waiting' THEN NULL
				ELSE accepted_at END,
			delivered_at = CASE
				WHEN $1 IN ('pending_approval', 'delivered') AND delivered_at IS NULL THEN $6
				ELSE delivered_at END,
			approved_at = CASE
				WHEN $1 = 'delivered' AND $4 = 'pending_approval' THEN $6
				ELSE approved_at END,
			cancelled_at = CASE
				WHEN $1 IN ('cancelled', 'auto_deleted') THEN $6
				ELSE cancelled_at END
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		idToStringPtr(courierID),
		string(id),
		string(from),
		version,
		now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// EditPatch carries the payload fields a restaurant may change while the
// order is still waiting.
type EditPatch struct {
	Neighborhood           string
	PaymentMethod          PaymentMethod
	CashAmount             types.Money
	CardAmount             types.Money
	GiftAmount             types.Money
	CourierFee             types.Money
	RestaurantFee          types.Money
	PreparationTimeMinutes int
	ImageRef               string
}

// UpdateFields mutates the order payload, guarded on status = waiting so an
// edit racing an accept loses cleanly.
func (s *Store) UpdateFields(ctx context.Context, id types.ID, p EditPatch) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET neighborhood = $1,
			payment_method = $2,
			cash_amount = $3,
			card_amount = $4,
			gift_amount = $5,
			courier_fee = $6,
			restaurant_fee = $7,
			preparation_minutes = $8,
			image_ref = $9
		WHERE id = $10 AND status = 'waiting'`,
		p.Neighborhood,
		string(p.PaymentMethod),
		int64(p.CashAmount), int64(p.CardAmount), int64(p.GiftAmount),
		int64(p.CourierFee), int64(p.RestaurantFee),
		p.PreparationTimeMinutes,
		p.ImageRef,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_state_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		idToStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

// ListWaiting is the courier feed: every order still up for grabs, oldest first.
func (s *Store) ListWaiting(ctx context.Context) ([]*Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+`
		FROM orders WHERE status = 'waiting' ORDER BY created_at`)
}

// ListActiveByCourier returns the courier's in-flight assignments.
func (s *Store) ListActiveByCourier(ctx context.Context, courierID types.ID) ([]*Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE courier_id = $1 AND status IN ('in_delivery', 'pending_approval')
		ORDER BY accepted_at`, string(courierID))
}

// ListOpenByRestaurant returns every non-terminal order owned by a restaurant.
func (s *Store) ListOpenByRestaurant(ctx context.Context, restaurantID types.ID) ([]*Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE restaurant_id = $1 AND status IN ('waiting', 'in_delivery', 'pending_approval')
		ORDER BY created_at`, string(restaurantID))
}

// ListPendingApproval returns the restaurant's reconciliation queue.
func (s *Store) ListPendingApproval(ctx context.Context, restaurantID types.ID) ([]*Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE restaurant_id = $1 AND status = 'pending_approval'
		ORDER BY delivered_at`, string(restaurantID))
}

// ListWaitingCreatedBefore returns auto-delete candidates.
func (s *Store) ListWaitingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+`
		FROM orders WHERE status = 'waiting' AND created_at < $1`, cutoff)
}

// ListInDeliveryAcceptedBefore returns overdue-notification candidates.
func (s *Store) ListInDeliveryAcceptedBefore(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'in_delivery' AND accepted_at IS NOT NULL AND accepted_at < $1`, cutoff)
}

// Totals aggregates delivered orders for courier or restaurant settlement.
type Totals struct {
	DeliveredCount int64
	Reconciliation types.Money
	Fees           types.Money
}

// CourierTotals sums a courier's delivered orders: physical collection
// (online excluded) plus earned courier fees.
func (s *Store) CourierTotals(ctx context.Context, courierID types.ID) (Totals, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN payment_method <> 'online'
				THEN cash_amount + card_amount + gift_amount ELSE 0 END), 0),
			COALESCE(SUM(courier_fee), 0)
		FROM orders
		WHERE courier_id = $1 AND status = 'delivered'`, string(courierID))
	var t Totals
	var rec, fees int64
	if err := row.Scan(&t.DeliveredCount, &rec, &fees); err != nil {
		return Totals{}, err
	}
	t.Reconciliation = types.Money(rec)
	t.Fees = types.Money(fees)
	return t, nil
}

// RestaurantTotals mirrors CourierTotals from the restaurant's side.
func (s *Store) RestaurantTotals(ctx context.Context, restaurantID types.ID) (Totals, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN payment_method <> 'online'
				THEN cash_amount + card_amount + gift_amount ELSE 0 END), 0),
			COALESCE(SUM(restaurant_fee), 0)
		FROM orders
		WHERE restaurant_id = $1 AND status = 'delivered'`, string(restaurantID))
	var t Totals
	var rec, fees int64
	if err := row.Scan(&t.DeliveredCount, &rec, &fees); err != nil {
		return Totals{}, err
	}
	t.Reconciliation = types.Money(rec)
	t.Fees = types.Money(fees)
	return t, nil
}

func (s *Store) list(ctx context.Context, sql string, args ...any) ([]*Order, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var courierID *string
	var cash, card, gift, courierFee, restaurantFee int64
	var acceptedAt, deliveredAt, approvedAt, cancelledAt *time.Time

	err := row.Scan(
		&o.ID, &o.RestaurantID, &courierID, &o.Status, &o.StatusVersion,
		&o.Neighborhood, &o.PaymentMethod, &cash, &card, &gift,
		&courierFee, &restaurantFee, &o.PreparationTimeMinutes, &o.ImageRef,
		&o.CreatedAt, &acceptedAt, &deliveredAt, &approvedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if courierID != nil {
		id := types.ID(*courierID)
		o.CourierID = &id
	}
	o.CashAmount = types.Money(cash)
	o.CardAmount = types.Money(card)
	o.GiftAmount = types.Money(gift)
	o.CourierFee = types.Money(courierFee)
	o.RestaurantFee = types.Money(restaurantFee)
	o.AcceptedAt = acceptedAt
	o.DeliveredAt = deliveredAt
	o.ApprovedAt = approvedAt
	o.CancelledAt = cancelledAt
	return &o, nil
}

func idToStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
