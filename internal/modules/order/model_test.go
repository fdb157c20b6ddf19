package order

import (
	"testing"

	"kurye/internal/types"
)

// TestCanTransition verifies the state machine transition table without a database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusWaiting, StatusInDelivery, true},
		{StatusInDelivery, StatusPendingApproval, true},
		{StatusInDelivery, StatusDelivered, true},
		{StatusPendingApproval, StatusDelivered, true},
		// cancellations
		{StatusWaiting, StatusCancelled, true},
		{StatusInDelivery, StatusCancelled, true},
		// courier cancel re-opens the order
		{StatusInDelivery, StatusWaiting, true},
		// deadline lapse
		{StatusWaiting, StatusAutoDeleted, true},
		// invalid: terminal states have no outgoing transitions
		{StatusDelivered, StatusWaiting, false},
		{StatusCancelled, StatusWaiting, false},
		{StatusAutoDeleted, StatusWaiting, false},
		// invalid: skipping states
		{StatusWaiting, StatusDelivered, false},
		{StatusWaiting, StatusPendingApproval, false},
		{StatusPendingApproval, StatusWaiting, false},
		{StatusPendingApproval, StatusCancelled, false},
		{StatusInDelivery, StatusAutoDeleted, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusDelivered, StatusCancelled, StatusAutoDeleted} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusWaiting, StatusInDelivery, StatusPendingApproval} {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestPaymentMethodRequiresApproval(t *testing.T) {
	cases := []struct {
		method PaymentMethod
		want   bool
	}{
		{PaymentCash, true},
		{PaymentCard, true},
		{PaymentGift, true},
		{PaymentOnline, false},
	}
	for _, tc := range cases {
		if got := tc.method.RequiresApproval(); got != tc.want {
			t.Errorf("RequiresApproval(%s) = %v, want %v", tc.method, got, tc.want)
		}
	}
}

func TestReconciliationTotal(t *testing.T) {
	cash := &Order{PaymentMethod: PaymentCash, CashAmount: 50}
	if got := cash.ReconciliationTotal(); got != 50 {
		t.Errorf("cash reconciliation = %d, want 50", got)
	}

	// Online amounts never enter reconciliation.
	online := &Order{PaymentMethod: PaymentOnline, CashAmount: 0, CardAmount: 0}
	if got := online.ReconciliationTotal(); got != 0 {
		t.Errorf("online reconciliation = %d, want 0", got)
	}
}

func TestValidateAmounts(t *testing.T) {
	cases := []struct {
		name             string
		method           PaymentMethod
		cash, card, gift types.Money
		wantErr          bool
	}{
		{"cash_ok", PaymentCash, 120, 0, 0, false},
		{"card_ok", PaymentCard, 0, 80, 0, false},
		{"gift_ok", PaymentGift, 0, 0, 30, false},
		{"online_ok", PaymentOnline, 0, 0, 0, false},
		{"cash_zero", PaymentCash, 0, 0, 0, true},
		{"cash_with_card", PaymentCash, 120, 10, 0, true},
		{"online_with_cash", PaymentOnline, 5, 0, 0, true},
		{"negative", PaymentCash, -1, 0, 0, true},
		{"unknown_method", PaymentMethod("havale"), 0, 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateAmounts(tc.method, tc.cash, tc.card, tc.gift)
			if (err != nil) != tc.wantErr {
				t.Fatalf("validateAmounts() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
