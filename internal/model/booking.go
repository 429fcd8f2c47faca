package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking is a reservation of one or more units over a date range, together
// with its derived monetary totals.
//
// Fields:
//  ID                 – primary key identifier.
//  Code               – public reference printed on confirmations.
//  ZoneID             – zone (site) the booking belongs to.
//  Status             – lifecycle state, see lifecycle.go.
//  PaymentStatus      – independent payment lifecycle state.
//  TaxInvoiceRequired – whether per-item tax is charged.
//  Totals             – derived amounts; only the totals recalculator writes them.
//  PaymentExpiresAt   – deadline for the first payment while PaymentStatus is pending.
type Booking struct {
	ID                 uint64        `db:"id" json:"id"`
	Code               string        `db:"code" json:"code"`
	ZoneID             uint64        `db:"zone_id" json:"zone_id"`
	CustomerName       string        `db:"customer_name" json:"customer_name"`
	CustomerEmail      string        `db:"customer_email" json:"customer_email"`
	Status             BookingStatus `db:"status" json:"status"`
	PaymentStatus      PaymentStatus `db:"payment_status" json:"payment_status"`
	TaxInvoiceRequired bool          `db:"tax_invoice_required" json:"tax_invoice_required"`
	Totals
	Currency         string     `db:"currency" json:"currency"`
	PaymentExpiresAt *time.Time `db:"payment_expires_at" json:"payment_expires_at,omitempty"`
	CreatedBy        uint64     `db:"created_by" json:"created_by"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Totals groups the amounts derived from a booking's line items and payments.
// Invariants after every recalculation:
//
//	Total == Subtotal - Discount + Tax
//	BalanceDue == max(0, Total - completed payments)
type Totals struct {
	Subtotal   decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount   decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	Tax        decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	Total      decimal.Decimal `db:"total_amount" json:"total_amount"`
	DepositDue decimal.Decimal `db:"deposit_due" json:"deposit_due"`
	BalanceDue decimal.Decimal `db:"balance_due" json:"balance_due"`
}

// Equal compares two totals amount by amount.
func (t Totals) Equal(o Totals) bool {
	return t.Subtotal.Equal(o.Subtotal) &&
		t.Discount.Equal(o.Discount) &&
		t.Tax.Equal(o.Tax) &&
		t.Total.Equal(o.Total) &&
		t.DepositDue.Equal(o.DepositDue) &&
		t.BalanceDue.Equal(o.BalanceDue)
}

// PaymentExpired reports whether the first-payment window has elapsed at now.
// Expiry is detected lazily on read; nothing cancels a booking on a timer.
func (b *Booking) PaymentExpired(now time.Time) bool {
	if b.PaymentStatus != PaymentPending || b.PaymentExpiresAt == nil {
		return false
	}
	return now.After(*b.PaymentExpiresAt)
}

// StatusChange is an immutable audit row recorded for every status or
// payment_status transition. It is for display only; the booking row stays
// authoritative.
type StatusChange struct {
	ID        uint64    `db:"id" json:"id"`
	BookingID uint64    `db:"booking_id" json:"booking_id"`
	Field     string    `db:"field" json:"field"`
	FromValue string    `db:"from_value" json:"from"`
	ToValue   string    `db:"to_value" json:"to"`
	ActorID   uint64    `db:"actor_id" json:"actor_id"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Session describes the authenticated caller. AccessibleZoneIDs nil means
// every zone.
type Session struct {
	UserID            uint64
	Role              string
	AccessibleZoneIDs []uint64
}

// CanAccessZone reports whether the caller may act on bookings of zoneID.
func (s Session) CanAccessZone(zoneID uint64) bool {
	if s.AccessibleZoneIDs == nil {
		return true
	}
	for _, id := range s.AccessibleZoneIDs {
		if id == zoneID {
			return true
		}
	}
	return false
}
