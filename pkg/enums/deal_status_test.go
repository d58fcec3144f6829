package enums

import "testing"

func TestDealStatusTransitions(t *testing.T) {
	allowed := map[DealStatus][]DealStatus{
		DealStatusOpen:           {DealStatusPendingPayment, DealStatusCancelled},
		DealStatusPendingPayment: {DealStatusPaid, DealStatusCancelled},
		DealStatusPaid:           {DealStatusComplete},
	}

	for _, from := range validDealStatuses {
		for _, to := range validDealStatuses {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s: expected %v got %v", from, to, want, got)
			}
		}
	}
}

func TestDealStatusNoSkips(t *testing.T) {
	if DealStatusOpen.CanTransitionTo(DealStatusPaid) {
		t.Fatal("OPEN must not jump to PAID")
	}
	if DealStatusPendingPayment.CanTransitionTo(DealStatusComplete) {
		t.Fatal("PENDING_PAYMENT must not jump to COMPLETE")
	}
	if DealStatusPaid.CanTransitionTo(DealStatusCancelled) {
		t.Fatal("PAID deals cannot be cancelled")
	}
}

func TestDealStatusActive(t *testing.T) {
	for _, s := range ActiveDealStatuses {
		if !s.Active() {
			t.Fatalf("%s should be active", s)
		}
	}
	if DealStatusCancelled.Active() || DealStatusComplete.Active() {
		t.Fatal("terminal statuses must not be active")
	}
}

func TestRequestStatusResolved(t *testing.T) {
	if RequestStatusOpen.Resolved() {
		t.Fatal("OPEN request is not resolved")
	}
	for _, s := range []RequestStatus{RequestStatusOfferAccepted, RequestStatusClosed, RequestStatusCancelled} {
		if !s.Resolved() {
			t.Fatalf("%s should be resolved", s)
		}
	}
}

func TestParseCurrencyDefaults(t *testing.T) {
	got, err := ParseCurrency("", CurrencyUSD)
	if err != nil || got != CurrencyUSD {
		t.Fatalf("expected USD fallback, got %q err=%v", got, err)
	}
	got, err = ParseCurrency(" eur ", CurrencyUSD)
	if err != nil || got != CurrencyEUR {
		t.Fatalf("expected EUR, got %q err=%v", got, err)
	}
	if _, err := ParseCurrency("DOGE", CurrencyUSD); err == nil {
		t.Fatal("expected invalid currency error")
	}
}

func TestUserRoleCanSell(t *testing.T) {
	if !UserRoleSeller.CanSell() || !UserRoleSellerVerified.CanSell() {
		t.Fatal("sellers should be able to sell")
	}
	if UserRoleBuyer.CanSell() {
		t.Fatal("buyers cannot sell")
	}
	if _, err := ParseUserRole("ROOT"); err == nil {
		t.Fatal("expected invalid role error")
	}
}
