package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage format of stay and serving dates.
const DateLayout = "2006-01-02"

// ItemKind distinguishes the priced components of a booking.
type ItemKind string

const (
	ItemAccommodation ItemKind = "accommodation"
	ItemParameter     ItemKind = "parameter"
	ItemMenu          ItemKind = "menu"
)

// LineItem is one priced component of a booking: a unit reservation, a
// per-parameter surcharge or an ordered menu product. It is owned by exactly
// one booking.
//
// Fields:
//  UnitID        – reserved unit (accommodation and parameter items).
//  RefID         – parameter or menu product the item was priced from.
//  Quantity      – units reserved, parameter count or products ordered.
//  UnitPrice     – nightly rate, per-night surcharge or product price.
//  DiscountType  – "percentage" or "fixed" when a voucher was applied.
//  DiscountValue – voucher value the discount is re-derived from.
//  TaxRate       – percent; nil means untaxed.
//  CheckIn/Out   – stay window (accommodation and parameter items).
//  ServingDate   – optional date a menu product is served.
type LineItem struct {
	ID             uint64           `db:"id" json:"id"`
	BookingID      uint64           `db:"booking_id" json:"booking_id"`
	Kind           ItemKind         `db:"kind" json:"kind"`
	UnitID         *uint64          `db:"unit_id" json:"unit_id,omitempty"`
	RefID          *uint64          `db:"ref_id" json:"ref_id,omitempty"`
	Name           string           `db:"name" json:"name"`
	Quantity       int              `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal  `db:"unit_price" json:"unit_price"`
	DiscountType   *string          `db:"discount_type" json:"discount_type,omitempty"`
	DiscountValue  *decimal.Decimal `db:"discount_value" json:"discount_value,omitempty"`
	DiscountAmount decimal.Decimal  `db:"discount_amount" json:"discount_amount"`
	VoucherID      *uint64          `db:"voucher_id" json:"voucher_id,omitempty"`
	TaxRate        *decimal.Decimal `db:"tax_rate" json:"tax_rate,omitempty"`
	CheckIn        *string          `db:"check_in" json:"check_in,omitempty"`
	CheckOut       *string          `db:"check_out" json:"check_out,omitempty"`
	ServingDate    *string          `db:"serving_date" json:"serving_date,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// Nights returns the number of nights the item covers. Menu items and items
// with unreadable dates count as a single night.
func (li LineItem) Nights() int {
	if li.Kind == ItemMenu || li.CheckIn == nil || li.CheckOut == nil {
		return 1
	}
	in, err1 := ParseDate(*li.CheckIn)
	out, err2 := ParseDate(*li.CheckOut)
	if err1 != nil || err2 != nil {
		return 1
	}
	n := NightsBetween(in, out)
	if n < 1 {
		return 1
	}
	return n
}

// Amount is the pre-discount, pre-tax value of the line.
func (li LineItem) Amount() decimal.Decimal {
	amt := li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
	if li.Kind != ItemMenu {
		amt = amt.Mul(decimal.NewFromInt(int64(li.Nights())))
	}
	return amt
}

// Rate returns the item's tax rate in percent, 0 when unset.
func (li LineItem) Rate() decimal.Decimal {
	if li.TaxRate == nil {
		return decimal.Zero
	}
	return *li.TaxRate
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
}

// ParseDate reads a stored date. Drivers hand DATE columns back either as the
// bare date or as a full timestamp, so several layouts are accepted. The
// result is always midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string { return t.UTC().Format(DateLayout) }

// NightsBetween counts calendar days between two midnight-aligned dates.
func NightsBetween(in, out time.Time) int {
	return int(out.Sub(in).Hours() / 24)
}
