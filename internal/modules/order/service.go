// README: Order lifecycle coordinator: validates transitions, drives the store CAS, emits room events.
package order

import (
	"context"
	"errors"
	"time"

	"kurye/internal/clock"
	"kurye/internal/config"
	"kurye/internal/realtime"
	"kurye/internal/types"
)

var (
	ErrValidation   = errors.New("invalid order payload")
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order state conflict")
	ErrInvalidState = errors.New("invalid state transition")
)

// Notifier fans an event out to a room. Implemented by realtime.Hub.
// Publishing is fire-and-forget; the coordinator never learns whether anyone
// was listening.
type Notifier interface {
	Publish(room, event string, payload any)
}

type Service struct {
	store     *Store
	notifier  Notifier
	clock     clock.Clock
	deadlines config.DeadlineConfig
}

func NewService(store *Store, notifier Notifier, clk clock.Clock, deadlines config.DeadlineConfig) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{store: store, notifier: notifier, clock: clk, deadlines: deadlines}
}

type CreateCommand struct {
	RestaurantID           types.ID
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

type AcceptCommand struct {
	OrderID   types.ID
	CourierID types.ID
}

type EditCommand struct {
	OrderID      types.ID
	RestaurantID types.ID
	Patch        EditPatch
}

type CourierCancelCommand struct {
	OrderID   types.ID
	CourierID types.ID
}

type DeliverCommand struct {
	OrderID   types.ID
	CourierID types.ID
}

type ApproveCommand struct {
	OrderID      types.ID
	RestaurantID types.ID
}

type RestaurantDeleteCommand struct {
	OrderID      types.ID
	RestaurantID types.ID
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.RestaurantID == "" || cmd.Neighborhood == "" {
		return nil, ErrValidation
	}
	if err := validateAmounts(cmd.PaymentMethod, cmd.CashAmount, cmd.CardAmount, cmd.GiftAmount); err != nil {
		return nil, err
	}

	o := &Order{
		ID:                     types.NewID(),
		RestaurantID:           cmd.RestaurantID,
		Status:                 StatusWaiting,
		StatusVersion:          0,
		Neighborhood:           cmd.Neighborhood,
		PaymentMethod:          cmd.PaymentMethod,
		CashAmount:             cmd.CashAmount,
		CardAmount:             cmd.CardAmount,
		GiftAmount:             cmd.GiftAmount,
		CourierFee:             cmd.CourierFee,
		RestaurantFee:          cmd.RestaurantFee,
		PreparationTimeMinutes: cmd.PreparationTimeMinutes,
		ImageRef:               cmd.ImageRef,
		CreatedAt:              s.clock.Now(),
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, o.ID, "", StatusWaiting, "restaurant", &cmd.RestaurantID)
	s.publish(realtime.RoomCouriers, realtime.EventNewOrderAdded, s.Summarize(o))
	return o, nil
}

// Accept assigns the order to the calling courier. Exactly one concurrent
// caller wins; everyone else gets ErrConflict and must refetch.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrInvalidState
	}
	if o.Status != StatusWaiting {
		// Another courier already holds it.
		return nil, ErrConflict
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, StatusWaiting, StatusInDelivery, o.StatusVersion, &cmd.CourierID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendEvent(ctx, o.ID, StatusWaiting, StatusInDelivery, "courier", &cmd.CourierID)

	o, err = s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	s.publish(realtime.RestaurantRoom(o.RestaurantID), realtime.EventOrderAccepted, s.Summarize(o))
	// The order leaves every other courier's feed.
	s.publish(realtime.RoomCouriers, realtime.EventRefreshOrderList, map[string]any{"orderId": o.ID})
	return o, nil
}

// Edit mutates the order payload while it is still waiting.
func (s *Service) Edit(ctx context.Context, cmd EditCommand) (*Order, error) {
	if cmd.Patch.Neighborhood == "" {
		return nil, ErrValidation
	}
	if err := validateAmounts(cmd.Patch.PaymentMethod, cmd.Patch.CashAmount, cmd.Patch.CardAmount, cmd.Patch.GiftAmount); err != nil {
		return nil, err
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.RestaurantID != cmd.RestaurantID {
		return nil, ErrNotFound
	}
	ok, err := s.store.UpdateFields(ctx, cmd.OrderID, cmd.Patch)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with an accept or a deadline.
		return nil, ErrInvalidState
	}
	o, err = s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	s.publish(realtime.RoomCouriers, realtime.EventOrderUpdated, s.Summarize(o))
	return o, nil
}

// CancelByCourier returns an in-delivery order to the open pool, clearing the
// assignment cycle so any courier may take it again.
func (s *Service) CancelByCourier(ctx context.Context, cmd CourierCancelCommand) error {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if o.Status != StatusInDelivery {
		if o.Status.Terminal() {
			return ErrInvalidState
		}
		return ErrConflict
	}
	if o.CourierID == nil || *o.CourierID != cmd.CourierID {
		return ErrConflict
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, StatusInDelivery, StatusWaiting, o.StatusVersion, nil, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendEvent(ctx, o.ID, StatusInDelivery, StatusWaiting, "courier", &cmd.CourierID)

	o, err = s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	payload := s.Summarize(o)
	s.publish(realtime.RestaurantRoom(o.RestaurantID), realtime.EventOrderStatusUpdate, payload)
	s.publish(realtime.CourierRoom(cmd.CourierID), realtime.EventOrderCancelled, payload)
	s.publish(realtime.RoomCouriers, realtime.EventRefreshOrderList, map[string]any{"orderId": o.ID})
	return nil
}

// Deliver marks the order dropped off. Physically collected payments park in
// pending_approval for restaurant reconciliation; online settles immediately.
func (s *Service) Deliver(ctx context.Context, cmd DeliverCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusInDelivery {
		if o.Status.Terminal() {
			return nil, ErrInvalidState
		}
		return nil, ErrConflict
	}
	if o.CourierID == nil || *o.CourierID != cmd.CourierID {
		return nil, ErrConflict
	}

	to := StatusDelivered
	event := realtime.EventOrderDelivered
	if o.PaymentMethod.RequiresApproval() {
		to = StatusPendingApproval
		event = realtime.EventOrderPendingApproval
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, StatusInDelivery, to, o.StatusVersion, o.CourierID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendEvent(ctx, o.ID, StatusInDelivery, to, "courier", &cmd.CourierID)

	o, err = s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	s.publish(realtime.RestaurantRoom(o.RestaurantID), event, s.Summarize(o))
	return o, nil
}

// Approve finalizes a pending_approval order after the restaurant confirms
// the cash/card/gift reconciliation.
func (s *Service) Approve(ctx context.Context, cmd ApproveCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.RestaurantID != cmd.RestaurantID {
		return nil, ErrNotFound
	}
	if o.Status != StatusPendingApproval {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, StatusPendingApproval, StatusDelivered, o.StatusVersion, o.CourierID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendEvent(ctx, o.ID, StatusPendingApproval, StatusDelivered, "restaurant", &cmd.RestaurantID)

	o, err = s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.CourierID != nil {
		s.publish(realtime.CourierRoom(*o.CourierID), realtime.EventOrderApproved, s.Summarize(o))
	}
	return o, nil
}

// DeleteByRestaurant cancels an order the restaurant no longer wants. While
// waiting the couriers' feed is told; while in delivery the assigned courier
// is told directly.
func (s *Service) DeleteByRestaurant(ctx context.Context, cmd RestaurantDeleteCommand) error {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if o.RestaurantID != cmd.RestaurantID {
		return ErrNotFound
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return ErrInvalidState
	}
	from := o.Status
	ok, err := s.store.UpdateStatus(ctx, o.ID, from, StatusCancelled, o.StatusVersion, o.CourierID, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendEvent(ctx, o.ID, from, StatusCancelled, "restaurant", &cmd.RestaurantID)

	switch from {
	case StatusWaiting:
		s.publish(realtime.RoomCouriers, realtime.EventOrderDeleted, map[string]any{"orderId": o.ID})
	case StatusInDelivery:
		if o.CourierID != nil {
			s.publish(realtime.CourierRoom(*o.CourierID), realtime.EventOrderDeletedByCourierNotification, map[string]any{"orderId": o.ID})
		}
	}
	return nil
}

// AutoDelete is the forced transition for orders left waiting past the
// window. The caller (deadline engine) checks the deadline; here we only
// re-verify the state and silently skip if it already moved on.
func (s *Service) AutoDelete(ctx context.Context, orderID types.ID) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if o.Status != StatusWaiting {
		return nil
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, StatusWaiting, StatusAutoDeleted, o.StatusVersion, nil, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.appendEvent(ctx, o.ID, StatusWaiting, StatusAutoDeleted, "system", nil)

	payload := map[string]any{"orderId": o.ID}
	s.publish(realtime.RestaurantRoom(o.RestaurantID), realtime.EventOrderAutoDeleted, payload)
	s.publish(realtime.RoomCouriers, realtime.EventOrderAutoDeleted, payload)
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// InDeliveryBy reports whether the order is currently being delivered by the
// given courier. Used as the location relay guard.
func (s *Service) InDeliveryBy(ctx context.Context, orderID, courierID types.ID) (bool, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return o.Status == StatusInDelivery && o.CourierID != nil && *o.CourierID == courierID, nil
}

func (s *Service) ListWaiting(ctx context.Context) ([]*Order, error) {
	return s.store.ListWaiting(ctx)
}

func (s *Service) ListActiveByCourier(ctx context.Context, courierID types.ID) ([]*Order, error) {
	return s.store.ListActiveByCourier(ctx, courierID)
}

func (s *Service) ListOpenByRestaurant(ctx context.Context, restaurantID types.ID) ([]*Order, error) {
	return s.store.ListOpenByRestaurant(ctx, restaurantID)
}

func (s *Service) ListPendingApproval(ctx context.Context, restaurantID types.ID) ([]*Order, error) {
	return s.store.ListPendingApproval(ctx, restaurantID)
}

func (s *Service) CourierTotals(ctx context.Context, courierID types.ID) (Totals, error) {
	return s.store.CourierTotals(ctx, courierID)
}

func (s *Service) RestaurantTotals(ctx context.Context, restaurantID types.ID) (Totals, error) {
	return s.store.RestaurantTotals(ctx, restaurantID)
}

// Summary is the order as clients see it in events and API bodies, wire
// names included, deadlines pre-resolved in the business timezone.
type Summary struct {
	ID                     types.ID      `json:"id"`
	RestaurantID           types.ID      `json:"restaurantId"`
	CourierID              *types.ID     `json:"courierId,omitempty"`
	Status                 Status        `json:"status"`
	Neighborhood           string        `json:"neighborhood"`
	PaymentMethod          PaymentMethod `json:"odemeYontemi"`
	CashAmount             types.Money   `json:"nakitTutari"`
	CardAmount             types.Money   `json:"bankaTutari"`
	GiftAmount             types.Money   `json:"hediyeTutari"`
	CourierFee             types.Money   `json:"kuryeUcreti"`
	RestaurantFee          types.Money   `json:"restoranUcreti"`
	PreparationTimeMinutes int           `json:"hazirlikSuresi"`
	ImageRef               string        `json:"imageRef,omitempty"`
	ReconciliationTotal    types.Money   `json:"mutabakatToplami"`
	CreatedAt              time.Time     `json:"createdAt"`
	AcceptedAt             *time.Time    `json:"acceptedAt,omitempty"`
	DeliveredAt            *time.Time    `json:"deliveredAt,omitempty"`
	ApprovedAt             *time.Time    `json:"approvedAt,omitempty"`
	AutoDeleteAt           time.Time     `json:"autoDeleteAt"`
	DeliveryDeadline       *time.Time    `json:"deliveryDeadline,omitempty"`
}

func (s *Service) Summarize(o *Order) Summary {
	sum := Summary{
		ID:                     o.ID,
		RestaurantID:           o.RestaurantID,
		CourierID:              o.CourierID,
		Status:                 o.Status,
		Neighborhood:           o.Neighborhood,
		PaymentMethod:          o.PaymentMethod,
		CashAmount:             o.CashAmount,
		CardAmount:             o.CardAmount,
		GiftAmount:             o.GiftAmount,
		CourierFee:             o.CourierFee,
		RestaurantFee:          o.RestaurantFee,
		PreparationTimeMinutes: o.PreparationTimeMinutes,
		ImageRef:               o.ImageRef,
		ReconciliationTotal:    o.ReconciliationTotal(),
		CreatedAt:              o.CreatedAt.In(clock.Zone),
		AutoDeleteAt:           o.AutoDeleteDeadline(s.deadlines.AutoDeleteWindow).In(clock.Zone),
	}
	sum.AcceptedAt = inZone(o.AcceptedAt)
	sum.DeliveredAt = inZone(o.DeliveredAt)
	sum.ApprovedAt = inZone(o.ApprovedAt)
	if o.AcceptedAt != nil {
		d := o.DeliveryDeadline(s.deadlines.DeliveryWindow).In(clock.Zone)
		sum.DeliveryDeadline = &d
	}
	return sum
}

func inZone(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	z := t.In(clock.Zone)
	return &z
}

func validateAmounts(method PaymentMethod, cash, card, gift types.Money) error {
	if !method.Valid() {
		return ErrValidation
	}
	if cash < 0 || card < 0 || gift < 0 {
		return ErrValidation
	}
	switch method {
	case PaymentCash:
		if cash == 0 || card != 0 || gift != 0 {
			return ErrValidation
		}
	case PaymentCard:
		if card == 0 || cash != 0 || gift != 0 {
			return ErrValidation
		}
	case PaymentGift:
		if gift == 0 || cash != 0 || card != 0 {
			return ErrValidation
		}
	case PaymentOnline:
		if cash != 0 || card != 0 || gift != 0 {
			return ErrValidation
		}
	}
	return nil
}

func (s *Service) publish(room, event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(room, event, payload)
}

func (s *Service) appendEvent(ctx context.Context, orderID types.ID, from, to Status, actorType string, actorID *types.ID) {
	// Audit writes are best effort; a failed append never blocks a transition.
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  s.clock.Now(),
	})
}
