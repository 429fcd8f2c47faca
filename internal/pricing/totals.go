package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/repository"
)

// DepositRule is a zone's upfront payment requirement.
type DepositRule struct {
	Type  string
	Value decimal.Decimal
}

// Deposit returns the deposit due on total, clamped to [0, total].
func (r DepositRule) Deposit(total decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch r.Type {
	case model.DiscountFixed:
		d = r.Value
	default:
		d = total.Mul(r.Value).Div(hundred).Round(2)
	}
	return clamp(d, decimal.Zero, total)
}

// LineDiscount re-derives the discount of a line from its stored voucher
// terms. Percentages are always taken of the pre-discount amount so repeated
// recalculation never compounds them.
func LineDiscount(li model.LineItem) decimal.Decimal {
	amount := li.Amount()
	if li.DiscountType == nil || li.DiscountValue == nil {
		return clamp(li.DiscountAmount, decimal.Zero, amount)
	}
	return Discount(*li.DiscountType, *li.DiscountValue, amount)
}

// ComputeTotals derives booking totals from line items whose DiscountAmount
// is already settled, the tax to charge and the sum of completed payments.
func ComputeTotals(items []model.LineItem, tax, paid decimal.Decimal, rule DepositRule) model.Totals {
	subtotal, discount := decimal.Zero, decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.Amount())
		discount = discount.Add(li.DiscountAmount)
	}
	total := subtotal.Sub(discount).Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}
	balance := total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return model.Totals{
		Subtotal:   subtotal,
		Discount:   discount,
		Tax:        tax,
		Total:      total,
		DepositDue: rule.Deposit(total),
		BalanceDue: balance,
	}
}

// SumPayments adds up payment amounts.
func SumPayments(ps []model.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range ps {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Recalculator is the only code that writes a booking's totals columns.
type Recalculator struct {
	bookings *repository.BookingRepo
	items    *repository.ItemRepo
	payments *repository.PaymentRepo
	catalog  *repository.CatalogRepo
	tax      *TaxCalculator
	now      func() time.Time
}

// NewRecalculator wires a Recalculator. A nil clock means time.Now.
func NewRecalculator(bookings *repository.BookingRepo, items *repository.ItemRepo, payments *repository.PaymentRepo,
	catalog *repository.CatalogRepo, tax *TaxCalculator, now func() time.Time) *Recalculator {
	if now == nil {
		now = time.Now
	}
	return &Recalculator{bookings: bookings, items: items, payments: payments, catalog: catalog, tax: tax, now: now}
}

// Recalculate re-derives and stores the totals of a booking from its current
// line items and completed payments. It must run in the transaction of the
// mutation that triggered it. Calling it again without an intervening
// mutation writes the same values.
func (r *Recalculator) Recalculate(ctx context.Context, tx *sqlx.Tx, bookingID uint64) (model.Totals, error) {
	b, err := r.bookings.LockTx(ctx, tx, bookingID)
	if err != nil {
		return model.Totals{}, err
	}
	items, err := r.items.ListByBooking(ctx, tx, bookingID)
	if err != nil {
		return model.Totals{}, fmt.Errorf("load items: %w", err)
	}
	for i := range items {
		d := LineDiscount(items[i])
		if d.Equal(items[i].DiscountAmount) {
			continue
		}
		if err := r.items.SetDiscountAmountTx(ctx, tx, items[i].ID, d); err != nil {
			return model.Totals{}, fmt.Errorf("store line discount: %w", err)
		}
		items[i].DiscountAmount = d
	}

	tax := decimal.Zero
	if b.TaxInvoiceRequired {
		breakdown, err := r.tax.ForBooking(ctx, tx, bookingID)
		if err != nil {
			return model.Totals{}, fmt.Errorf("compute tax: %w", err)
		}
		tax = breakdown.Total
	}

	paid, err := r.payments.ListCompleted(ctx, tx, bookingID)
	if err != nil {
		return model.Totals{}, fmt.Errorf("load payments: %w", err)
	}
	zone, err := r.catalog.GetZone(ctx, tx, b.ZoneID)
	if err != nil {
		return model.Totals{}, fmt.Errorf("load zone: %w", err)
	}

	t := ComputeTotals(items, tax, SumPayments(paid), DepositRule{Type: zone.DepositType, Value: zone.DepositValue})
	if t.Equal(b.Totals) {
		return t, nil
	}
	if err := writeTotals(ctx, tx, bookingID, t, r.now()); err != nil {
		return model.Totals{}, err
	}
	return t, nil
}

func writeTotals(ctx context.Context, tx *sqlx.Tx, bookingID uint64, t model.Totals, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET subtotal = ?, discount_amount = ?, tax_amount = ?, total_amount = ?,
             deposit_due = ?, balance_due = ?, updated_at = ?
         WHERE id = ?`,
		t.Subtotal, t.Discount, t.Tax, t.Total, t.DepositDue, t.BalanceDue, now, bookingID)
	if err != nil {
		return fmt.Errorf("write totals: %w", err)
	}
	return nil
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
