package model

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// ApplicationType restricts which kind of line item a voucher may discount.
type ApplicationType string

const (
	ApplyAll           ApplicationType = "all"
	ApplyAccommodation ApplicationType = "accommodation"
	ApplyMenu          ApplicationType = "menu"
)

const (
	RecurrenceOneTime   = "one_time"
	RecurrenceDateRange = "date_range"
)

// Voucher is a redeemable discount code. CurrentUses is only changed on the
// redemption path while the row is locked.
//
// Fields:
//  MaxUses         – NULL means unlimited.
//  Recurrence      – "one_time" (valid until first use) or "date_range".
//  ValidFrom/Until – window for date_range vouchers, either side open when NULL.
//  WeeklyDays      – comma separated weekdays (0=Sunday) the check-in must fall on; empty for any day.
//  ZoneID          – NULL for every zone.
type Voucher struct {
	ID              uint64          `db:"id" json:"id"`
	Code            string          `db:"code" json:"code"`
	Name            string          `db:"name" json:"name"`
	DiscountType    string          `db:"discount_type" json:"discount_type"`
	DiscountValue   decimal.Decimal `db:"discount_value" json:"discount_value"`
	CurrentUses     int             `db:"current_uses" json:"current_uses"`
	MaxUses         sql.NullInt64   `db:"max_uses" json:"-"`
	Status          string          `db:"status" json:"status"`
	Recurrence      string          `db:"recurrence" json:"recurrence"`
	ValidFrom       sql.NullTime    `db:"valid_from" json:"-"`
	ValidUntil      sql.NullTime    `db:"valid_until" json:"-"`
	WeeklyDays      string          `db:"weekly_days" json:"weekly_days,omitempty"`
	ZoneID          *uint64         `db:"zone_id" json:"zone_id,omitempty"`
	ApplicationType ApplicationType `db:"application_type" json:"application_type"`
	// ItemIDs restricts the voucher to specific units or products when non-empty.
	ItemIDs []uint64 `db:"-" json:"item_ids,omitempty"`
}

// Weekdays parses WeeklyDays. Unparseable entries are ignored.
func (v Voucher) Weekdays() []time.Weekday {
	if strings.TrimSpace(v.WeeklyDays) == "" {
		return nil
	}
	var out []time.Weekday
	for _, p := range strings.Split(v.WeeklyDays, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		out = append(out, time.Weekday(n))
	}
	return out
}
