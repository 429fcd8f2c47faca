// Package pricing derives the money side of a booking: voucher discounts,
// per-item tax and the persisted booking totals.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/repository"
)

// ErrInvalidVoucherRequest is returned when Validate is called without a code
// or with a non-positive charge. It is a caller bug, not a voucher outcome.
var ErrInvalidVoucherRequest = errors.New("voucher code and a positive charge are required")

// Reason codes reported in VoucherResult.Code when a voucher does not apply.
const (
	ReasonNotFound        = "not_found"
	ReasonInactive        = "inactive"
	ReasonUsageLimit      = "usage_limit"
	ReasonAlreadyUsed     = "already_used"
	ReasonNotStarted      = "not_started"
	ReasonExpired         = "expired"
	ReasonWeekday         = "weekday"
	ReasonZone            = "zone"
	ReasonApplicationType = "application_type"
	ReasonItem            = "item"
)

// VoucherContext describes the charge a voucher is being applied to.
//
// Fields:
//  ZoneID          – zone of the booking.
//  ItemID          – unit or menu product the line item was priced from.
//  Kind            – kind of line item, compared against the voucher's application type.
//  Charge          – pre-discount line amount.
//  CheckIn         – stay start, used for weekly-day rules.
//  ReservedInTx    – redemptions of this voucher already made by the enclosing transaction.
//  HeldUses        – uses counted in current_uses that belong to the lines being re-checked.
type VoucherContext struct {
	ZoneID       uint64
	ItemID       uint64
	Kind         model.ItemKind
	Charge       decimal.Decimal
	CheckIn      time.Time
	ReservedInTx int
	HeldUses     int
}

// VoucherResult is the outcome of a validation. When Valid is false Code and
// Reason explain which rule failed and the discount fields are zero.
type VoucherResult struct {
	Valid          bool            `json:"valid"`
	VoucherID      uint64          `json:"voucher_id,omitempty"`
	VoucherCode    string          `json:"voucher_code,omitempty"`
	DiscountType   string          `json:"discount_type,omitempty"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Code           string          `json:"code,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

func reject(code, reason string) VoucherResult {
	return VoucherResult{Code: code, Reason: reason}
}

// Validator checks voucher codes against a charge while holding the voucher's
// row lock.
type Validator struct {
	vouchers *repository.VoucherRepo
	now      func() time.Time
}

// NewValidator returns a Validator. A nil clock means time.Now.
func NewValidator(vouchers *repository.VoucherRepo, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{vouchers: vouchers, now: now}
}

// Validate locks the voucher identified by code for the rest of tx and
// evaluates it against vc. An unknown code is reported as an invalid result;
// the returned error is reserved for store failures and caller mistakes.
func (v *Validator) Validate(ctx context.Context, tx *sqlx.Tx, code string, vc VoucherContext) (VoucherResult, error) {
	code = strings.TrimSpace(code)
	if code == "" || !vc.Charge.IsPositive() {
		return VoucherResult{}, ErrInvalidVoucherRequest
	}
	voucher, err := v.vouchers.LockByCodeTx(ctx, tx, code)
	if errors.Is(err, repository.ErrVoucherNotFound) {
		return reject(ReasonNotFound, fmt.Sprintf("voucher %q does not exist", code)), nil
	}
	if err != nil {
		return VoucherResult{}, fmt.Errorf("lock voucher: %w", err)
	}
	return EvaluateVoucher(*voucher, vc, v.now()), nil
}

// Redeem records a successful result against a line item and increments the
// voucher's usage counter. It must run in the transaction that validated the
// voucher so the row lock is still held.
func (v *Validator) Redeem(ctx context.Context, tx *sqlx.Tx, res VoucherResult, bookingID, itemID uint64) error {
	if !res.Valid {
		return fmt.Errorf("redeem: voucher %q is not valid", res.VoucherCode)
	}
	return v.vouchers.RedeemTx(ctx, tx, res.VoucherID, bookingID, itemID, res.DiscountAmount, v.now())
}

// Release gives back the use consumed by a line item that is being removed.
// Items without a voucher are ignored.
func (v *Validator) Release(ctx context.Context, tx *sqlx.Tx, li model.LineItem) error {
	if li.VoucherID == nil {
		return nil
	}
	if _, err := v.vouchers.LockByIDTx(ctx, tx, *li.VoucherID); err != nil {
		if errors.Is(err, repository.ErrVoucherNotFound) {
			return nil
		}
		return err
	}
	_, err := v.vouchers.ReleaseTx(ctx, tx, *li.VoucherID, li.ID)
	return err
}

// Recheck re-evaluates the voucher already redeemed by li after the line's
// stay or charge changed. vc.Charge and vc.HeldUses must describe the line
// as it will be stored. When the voucher still applies, the redemption's
// discount amount is brought in line with the new charge.
func (v *Validator) Recheck(ctx context.Context, tx *sqlx.Tx, li model.LineItem, vc VoucherContext) (VoucherResult, error) {
	if li.VoucherID == nil || li.DiscountType == nil || li.DiscountValue == nil {
		return VoucherResult{}, ErrInvalidVoucherRequest
	}
	voucher, err := v.vouchers.LockByIDTx(ctx, tx, *li.VoucherID)
	if errors.Is(err, repository.ErrVoucherNotFound) {
		return reject(ReasonNotFound, fmt.Sprintf("voucher %d no longer exists", *li.VoucherID)), nil
	}
	if err != nil {
		return VoucherResult{}, fmt.Errorf("lock voucher: %w", err)
	}
	res := EvaluateVoucher(*voucher, vc, v.now())
	if !res.Valid {
		return res, nil
	}
	// the line keeps the terms it was sold with
	res.DiscountType = *li.DiscountType
	res.DiscountValue = *li.DiscountValue
	res.DiscountAmount = Discount(*li.DiscountType, *li.DiscountValue, vc.Charge)
	if err := v.vouchers.UpdateRedemptionTx(ctx, tx, voucher.ID, li.ID, res.DiscountAmount); err != nil {
		return VoucherResult{}, err
	}
	return res, nil
}

// EvaluateVoucher applies the voucher rules in order and stops at the first
// one that fails: status, usage limit, validity window, weekly days, zone,
// application type and item set.
func EvaluateVoucher(v model.Voucher, vc VoucherContext, now time.Time) VoucherResult {
	if v.Status != "active" {
		return reject(ReasonInactive, "voucher is not active")
	}
	used := v.CurrentUses + vc.ReservedInTx - vc.HeldUses
	if v.MaxUses.Valid && int64(used) >= v.MaxUses.Int64 {
		return reject(ReasonUsageLimit, "voucher usage limit has been reached")
	}
	switch v.Recurrence {
	case model.RecurrenceOneTime:
		if used > 0 {
			return reject(ReasonAlreadyUsed, "voucher has already been used")
		}
	default:
		if v.ValidFrom.Valid && now.Before(v.ValidFrom.Time) {
			return reject(ReasonNotStarted, "voucher is not valid yet")
		}
		if v.ValidUntil.Valid && now.After(v.ValidUntil.Time) {
			return reject(ReasonExpired, "voucher has expired")
		}
	}
	if days := v.Weekdays(); len(days) > 0 {
		if vc.CheckIn.IsZero() || !containsWeekday(days, vc.CheckIn.Weekday()) {
			return reject(ReasonWeekday, "voucher is not valid for the check-in day")
		}
	}
	if v.ZoneID != nil && *v.ZoneID != vc.ZoneID {
		return reject(ReasonZone, "voucher is not valid for this zone")
	}
	if !appliesTo(v.ApplicationType, vc.Kind) {
		return reject(ReasonApplicationType, fmt.Sprintf("voucher only applies to %s items", v.ApplicationType))
	}
	if len(v.ItemIDs) > 0 && !containsID(v.ItemIDs, vc.ItemID) {
		return reject(ReasonItem, "voucher is not valid for this item")
	}
	return VoucherResult{
		Valid:          true,
		VoucherID:      v.ID,
		VoucherCode:    v.Code,
		DiscountType:   v.DiscountType,
		DiscountValue:  v.DiscountValue,
		DiscountAmount: Discount(v.DiscountType, v.DiscountValue, vc.Charge),
	}
}

// Discount computes a percentage or fixed discount on charge, clamped to
// [0, charge] and rounded to two places.
func Discount(discountType string, value, charge decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch discountType {
	case model.DiscountPercentage:
		d = charge.Mul(value).Div(hundred)
	case model.DiscountFixed:
		d = value
	}
	return clamp(d.Round(2), decimal.Zero, charge)
}

func appliesTo(t model.ApplicationType, kind model.ItemKind) bool {
	switch t {
	case model.ApplyAll, "":
		return true
	case model.ApplyMenu:
		return kind == model.ItemMenu
	case model.ApplyAccommodation:
		return kind == model.ItemAccommodation || kind == model.ItemParameter
	}
	return false
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}

func containsID(ids []uint64, id uint64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
