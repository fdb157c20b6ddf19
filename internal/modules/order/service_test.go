// README: Order service tests (flow + invalid requests). DB-backed cases need KURYE_TEST_DSN.
package order

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"kurye/internal/clock"
	"kurye/internal/config"
	"kurye/internal/types"
)

func TestCreateValidation(t *testing.T) {
	svc := NewService(nil, nil, clock.System{}, testDeadlines())
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  CreateCommand
	}{
		{"missing_restaurant", CreateCommand{Neighborhood: "Kadıköy", PaymentMethod: PaymentCash, CashAmount: 120}},
		{"missing_neighborhood", CreateCommand{RestaurantID: "r1", PaymentMethod: PaymentCash, CashAmount: 120}},
		{"bad_method", CreateCommand{RestaurantID: "r1", Neighborhood: "Kadıköy", PaymentMethod: "havale"}},
		{"amount_mismatch", CreateCommand{RestaurantID: "r1", Neighborhood: "Kadıköy", PaymentMethod: PaymentCash, CardAmount: 120}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.cmd); err != ErrValidation {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestOrderFlowCashHappyPath(t *testing.T) {
	svc, events := newTestService(t, clock.System{})
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "r_happy", PaymentCash, 120)
	assertStatus(t, svc, o.ID, StatusWaiting)
	events.expect(t, "couriers", "newOrderAdded")

	accepted, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "c1"})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.CourierID == nil || *accepted.CourierID != "c1" {
		t.Fatalf("expected courier c1 assigned, got %v", accepted.CourierID)
	}
	if accepted.AcceptedAt == nil {
		t.Fatal("expected accepted_at to be set")
	}
	assertStatus(t, svc, o.ID, StatusInDelivery)
	events.expect(t, "restaurant_r_happy", "orderAccepted")
	events.expect(t, "couriers", "refreshOrderList")

	delivered, err := svc.Deliver(ctx, DeliverCommand{OrderID: o.ID, CourierID: "c1"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	// Cash parks in pending_approval for reconciliation.
	if delivered.Status != StatusPendingApproval {
		t.Fatalf("expected pending_approval, got %s", delivered.Status)
	}
	if delivered.DeliveredAt == nil {
		t.Fatal("expected delivered_at to be set")
	}
	events.expect(t, "restaurant_r_happy", "orderPendingApproval")

	approved, err := svc.Approve(ctx, ApproveCommand{OrderID: o.ID, RestaurantID: "r_happy"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusDelivered {
		t.Fatalf("expected delivered, got %s", approved.Status)
	}
	if approved.ApprovedAt == nil {
		t.Fatal("expected approved_at to be set")
	}
	events.expect(t, "courier_c1", "orderApproved")
}

func TestOrderFlowOnlineSkipsApproval(t *testing.T) {
	svc, events := newTestService(t, clock.System{})
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "r_online", PaymentOnline, 0)
	if _, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "c1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	delivered, err := svc.Deliver(ctx, DeliverCommand{OrderID: o.ID, CourierID: "c1"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != StatusDelivered {
		t.Fatalf("online payment should deliver terminally, got %s", delivered.Status)
	}
	events.expect(t, "restaurant_r_online", "orderDelivered")

	if _, err := svc.Approve(ctx, ApproveCommand{OrderID: o.ID, RestaurantID: "r_online"}); err != ErrInvalidState {
		t.Fatalf("approve after terminal delivery: expected ErrInvalidState, got %v", err)
	}
}

func TestCourierCancelReopensOrder(t *testing.T) {
	svc, events := newTestService(t, clock.System{})
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "r_cancel", PaymentCash, 80)
	if _, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "c1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.CancelByCourier(ctx, CourierCancelCommand{OrderID: o.ID, CourierID: "c1"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := svc.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusWaiting {
		t.Fatalf("expected waiting after courier cancel, got %s", got.Status)
	}
	if got.CourierID != nil {
		t.Fatalf("expected courier_id cleared, got %s", *got.CourierID)
	}
	if got.AcceptedAt != nil {
		t.Fatal("expected accepted_at cleared")
	}
	events.expect(t, "restaurant_r_cancel", "orderStatusUpdate")
	events.expect(t, "courier_c1", "orderCancelled")

	// The re-opened order is up for grabs again, including by another courier.
	if _, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "c2"}); err != nil {
		t.Fatalf("re-accept: %v", err)
	}
	assertStatus(t, svc, o.ID, StatusInDelivery)
}

func TestCourierCancelWrongCourier(t *testing.T) {
	svc, _ := newTestService(t, clock.System{})
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "r_wrong", PaymentCash, 80)
	if _, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "c1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.CancelByCourier(ctx, CourierCancelCommand{OrderID: o.ID, CourierID: "c2"}); err != ErrConflict {
		t.Fatalf("cancel by non-assignee: expected ErrConflict, got %v", err)
	}
}

func TestRestaurantDelete(t *testing.T) {
	svc, events := newTestService(t, clock.System{})
	ctx := context.Background()

	t.Run("while_waiting", func(t *testing.T) {
		o := mustCreateOrder(t, svc, "r_del", PaymentCash, 60)
		if err := svc.DeleteByRestaurant(ctx, RestaurantDeleteCommand{OrderID: o.ID, RestaurantID: "r_del"}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		assertStatus(t, svc, o.ID, StatusCancelled)
		events.expect(t, "couriers", "orderDeleted")
	})

	t.Run("while_in_delivery", func(t *testing.T) {
		o := mustCreateOrder(t, svc, "r_del", PaymentCash, 60)
		if _, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "c9"}); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if err := svc.DeleteByRestaurant(ctx, RestaurantDeleteCommand{OrderID: o.ID, RestaurantID: "r_del"}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		assertStatus(t, svc, o.ID, StatusCancelled)
		events.expect(t, "courier_c9", "orderDeletedByCourierNotification")
	})

	t.Run("foreign_restaurant", func(t *testing.T) {
		o := mustCreateOrder(t, svc, "r_del", PaymentCash, 60)
		if err := svc.DeleteByRestaurant(ctx, RestaurantDeleteCommand{OrderID: o.ID, RestaurantID: "r_other"}); err != ErrNotFound {
			t.Fatalf("expected ErrNotFound for foreign restaurant, got %v", err)
		}
	})

	t.Run("while_pending_approval", func(t *testing.T) {
		o := mustCreateOrder(t, svc, "r_del", PaymentCash, 60)
		if _, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "c9"}); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if _, err := svc.Deliver(ctx, DeliverCommand{OrderID: o.ID, CourierID: "c9"}); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		if err := svc.DeleteByRestaurant(ctx, RestaurantDeleteCommand{OrderID: o.ID, RestaurantID: "r_del"}); err != ErrInvalidState {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})
}

func TestEditOnlyWhileWaiting(t *testing.T) {
	svc, events := newTestService(t, clock.System{})
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "r_edit", PaymentCash, 100)
	patch := EditPatch{
		Neighborhood:  "Moda",
		PaymentMethod: PaymentCard,
		CardAmount:    150,
	}
	edited, err := svc.Edit(ctx, EditCommand{OrderID: o.ID, RestaurantID: "r_edit", Patch: patch})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Neighborhood != "Moda" || edited.CardAmount != 150 || edited.PaymentMethod != PaymentCard {
		t.Fatalf("edit not applied: %+v", edited)
	}
	events.expect(t, "couriers", "orderUpdated")

	if _, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "c1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.Edit(ctx, EditCommand{OrderID: o.ID, RestaurantID: "r_edit", Patch: patch}); err != ErrInvalidState {
		t.Fatalf("edit after accept: expected ErrInvalidState, got %v", err)
	}
}

func TestReconciliationRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, clock.System{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCommand{
		RestaurantID:  "r_round",
		Neighborhood:  "Kadıköy",
		PaymentMethod: PaymentCash,
		CashAmount:    50,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if total := got.ReconciliationTotal(); total != 50 {
		t.Fatalf("reconciliation total = %d, want 50", total)
	}
}

func TestListings(t *testing.T) {
	svc, _ := newTestService(t, clock.System{})
	ctx := context.Background()

	a := mustCreateOrder(t, svc, "r_list", PaymentCash, 10)
	b := mustCreateOrder(t, svc, "r_list", PaymentCash, 20)
	if _, err := svc.Accept(ctx, AcceptCommand{OrderID: b.ID, CourierID: "c_list"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	waiting, err := svc.ListWaiting(ctx)
	if err != nil {
		t.Fatalf("list waiting: %v", err)
	}
	if !containsOrder(waiting, a.ID) || containsOrder(waiting, b.ID) {
		t.Fatalf("waiting feed wrong: %v", orderIDs(waiting))
	}

	active, err := svc.ListActiveByCourier(ctx, "c_list")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if !containsOrder(active, b.ID) {
		t.Fatalf("active list missing accepted order: %v", orderIDs(active))
	}

	open, err := svc.ListOpenByRestaurant(ctx, "r_list")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if !containsOrder(open, a.ID) || !containsOrder(open, b.ID) {
		t.Fatalf("restaurant open list wrong: %v", orderIDs(open))
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Room  string
	Event string
}

func (n *recordingNotifier) Publish(room, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Room: room, Event: event})
}

// expect asserts the (room, event) pair was published at least once.
func (n *recordingNotifier) expect(t *testing.T, room, event string) {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.Room == room && e.Event == event {
			return
		}
	}
	t.Fatalf("event %s not published to room %s (saw %v)", event, room, n.events)
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func testDeadlines() config.DeadlineConfig {
	return config.DeadlineConfig{
		AutoDeleteWindow: time.Hour,
		DeliveryWindow:   time.Hour,
		TickInterval:     time.Second,
	}
}

func newTestService(t *testing.T, clk clock.Clock) (*Service, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := NewService(setupTestStore(t), notifier, clk, testDeadlines())
	return svc, notifier
}

func mustCreateOrder(t *testing.T, svc *Service, restaurantID types.ID, method PaymentMethod, amount types.Money) *Order {
	t.Helper()
	cmd := CreateCommand{
		RestaurantID:  restaurantID,
		Neighborhood:  "Kadıköy",
		PaymentMethod: method,
		CourierFee:    15,
	}
	switch method {
	case PaymentCash:
		cmd.CashAmount = amount
	case PaymentCard:
		cmd.CardAmount = amount
	case PaymentGift:
		cmd.GiftAmount = amount
	}
	o, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func assertStatus(t *testing.T, svc *Service, orderID types.ID, want Status) {
	t.Helper()
	o, err := svc.Get(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.Status != want {
		t.Fatalf("expected status %s, got %s", want, o.Status)
	}
}

func containsOrder(orders []*Order, id types.ID) bool {
	for _, o := range orders {
		if o.ID == id {
			return true
		}
	}
	return false
}

func orderIDs(orders []*Order) []types.ID {
	ids := make([]types.ID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("KURYE_TEST_DSN")
	if dsn == "" {
		t.Skip("KURYE_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE order_state_events, orders"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewStore(db)
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	for _, name := range []string{"0001_init.sql", "0002_delivery_areas.sql"} {
		content, err := os.ReadFile(filepath.Join(root, "migrations", name))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQL(stripSQLComments(string(content))) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
