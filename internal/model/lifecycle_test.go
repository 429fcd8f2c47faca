package model

import (
	"errors"
	"testing"
	"time"
)

func TestValidateStatusTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingConfirmed, BookingCheckedIn, true},
		{BookingCheckedIn, BookingCheckedOut, true},
		{BookingPending, BookingCancelled, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingCheckedIn, BookingCancelled, true},
		{BookingCheckedOut, BookingCancelled, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingPending, BookingCheckedIn, false},
		{BookingConfirmed, BookingPending, false},
	}
	for _, tc := range cases {
		err := ValidateStatusTransition(tc.from, tc.to)
		if (err == nil) != tc.ok {
			t.Fatalf("%s -> %s: err = %v, want ok=%v", tc.from, tc.to, err, tc.ok)
		}
		if err != nil {
			var te *TransitionError
			if !errors.As(err, &te) {
				t.Fatalf("%s -> %s: want *TransitionError, got %T", tc.from, tc.to, err)
			}
		}
	}
	if err := ValidateStatusTransition(BookingPending, "archived"); err == nil {
		t.Fatalf("unknown target status accepted")
	}
}

func TestValidatePaymentTransition(t *testing.T) {
	cases := []struct {
		from, to PaymentStatus
		ok       bool
	}{
		{PaymentPending, PaymentDepositPaid, true},
		{PaymentDepositPaid, PaymentFullyPaid, true},
		{PaymentPending, PaymentExpired, true},
		{PaymentFullyPaid, PaymentRefundPending, true},
		{PaymentRefundPending, PaymentRefunded, true},
		{PaymentRefundPending, PaymentNoRefund, true},
		{PaymentExpired, PaymentDepositPaid, false},
		{PaymentRefunded, PaymentPending, false},
		{PaymentDepositPaid, PaymentExpired, false},
	}
	for _, tc := range cases {
		err := ValidatePaymentTransition(tc.from, tc.to)
		if (err == nil) != tc.ok {
			t.Fatalf("%s -> %s: err = %v, want ok=%v", tc.from, tc.to, err, tc.ok)
		}
	}
}

func TestModifiable(t *testing.T) {
	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingCheckedIn} {
		if !s.Modifiable() {
			t.Fatalf("%s should be modifiable", s)
		}
	}
	for _, s := range []BookingStatus{BookingCheckedOut, BookingCancelled} {
		if s.Modifiable() {
			t.Fatalf("%s should not be modifiable", s)
		}
	}
}

func TestPaymentExpired(t *testing.T) {
	deadline := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := Booking{PaymentStatus: PaymentPending, PaymentExpiresAt: &deadline}
	if b.PaymentExpired(deadline.Add(-time.Minute)) {
		t.Fatalf("expired before deadline")
	}
	if !b.PaymentExpired(deadline.Add(time.Minute)) {
		t.Fatalf("not expired after deadline")
	}
	b.PaymentStatus = PaymentDepositPaid
	if b.PaymentExpired(deadline.Add(time.Hour)) {
		t.Fatalf("paid booking reported expired")
	}
}

func TestLineItemAmount(t *testing.T) {
	in, out := "2026-01-01", "2026-01-04"
	li := LineItem{Kind: ItemAccommodation, Quantity: 2, CheckIn: &in, CheckOut: &out}
	li.UnitPrice = mustDec("500000")
	if got := li.Nights(); got != 3 {
		t.Fatalf("nights = %d, want 3", got)
	}
	if got := li.Amount(); !got.Equal(mustDec("3000000")) {
		t.Fatalf("amount = %s, want 3000000", got)
	}
	menu := LineItem{Kind: ItemMenu, Quantity: 3, UnitPrice: mustDec("45000"), CheckIn: &in, CheckOut: &out}
	if got := menu.Amount(); !got.Equal(mustDec("135000")) {
		t.Fatalf("menu amount = %s, want 135000", got)
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2026-03-05", "2026-03-05T00:00:00Z", "2026-03-05 00:00:00"} {
		got, err := ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseDate("0000-00-00x"); err == nil {
		t.Fatalf("malformed date parsed")
	}
}
