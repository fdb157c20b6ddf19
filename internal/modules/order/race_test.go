// README: Concurrency tests for the accept race. Needs KURYE_TEST_DSN.
package order

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"kurye/internal/clock"
	"kurye/internal/types"
)

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	svc, _ := newTestService(t, clock.System{})
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "r_race", PaymentCash, 100)

	const couriers = 8
	var wg sync.WaitGroup
	results := make(chan error, couriers)
	for i := 0; i < couriers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			courierID := types.ID(fmt.Sprintf("racer_%d", n))
			_, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: courierID})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch err {
		case nil:
			wins++
		case ErrConflict:
			conflicts++
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning courier, got %d", wins)
	}
	if conflicts != couriers-1 {
		t.Fatalf("expected %d conflicts, got %d", couriers-1, conflicts)
	}

	got, err := svc.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusInDelivery || got.CourierID == nil {
		t.Fatalf("order not held by the winner: status=%s courier=%v", got.Status, got.CourierID)
	}
}

func TestAcceptVersusDeleteRace(t *testing.T) {
	svc, _ := newTestService(t, clock.System{})
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "r_race_del", PaymentCash, 100)

	var wg sync.WaitGroup
	var acceptErr, deleteErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, acceptErr = svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: "racer_a"})
	}()
	go func() {
		defer wg.Done()
		deleteErr = svc.DeleteByRestaurant(ctx, RestaurantDeleteCommand{OrderID: o.ID, RestaurantID: "r_race_del"})
	}()
	wg.Wait()

	got, err := svc.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Either outcome is legal, but the CAS must have picked exactly one.
	switch {
	case acceptErr == nil && deleteErr == nil:
		// Accept first, then delete of the in-delivery order. Terminal cancel.
		if got.Status != StatusCancelled {
			t.Fatalf("both succeeded yet status is %s", got.Status)
		}
	case acceptErr == nil:
		if got.Status != StatusInDelivery {
			t.Fatalf("accept won but status is %s", got.Status)
		}
	case deleteErr == nil:
		if got.Status != StatusCancelled {
			t.Fatalf("delete won but status is %s", got.Status)
		}
	default:
		t.Fatalf("both sides lost: accept=%v delete=%v", acceptErr, deleteErr)
	}
}
