package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/database/dbtest"
	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strp(s string) *string { return &s }

func decp(s string) *decimal.Decimal { d := dec(s); return &d }

var fixedNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fixture struct {
	db       *sqlx.DB
	bookings *repository.BookingRepo
	recalc   *Recalculator
}

// newFixture seeds zone 1 (30% deposit) and booking 1 holding a one-night
// stay priced 1,000,000 with a 10% line tax.
func newFixture(t *testing.T, taxInvoice bool) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	flag := "0"
	if taxInvoice {
		flag = "1"
	}
	dbtest.Exec(t, db,
		`INSERT INTO zones (id, name, deposit_type, deposit_value) VALUES (1, 'Da Lat', 'percentage', 30)`,
		`INSERT INTO units (id, zone_id, name, nightly_price, tax_rate, inventory_quantity) VALUES (1, 1, 'Bell tent', 1000000, 10, 1)`,
		`INSERT INTO bookings (id, code, zone_id, status, payment_status, tax_invoice_required, created_at, updated_at)
         VALUES (1, 'GH-1', 1, 'confirmed', 'pending', `+flag+`, '2024-01-01 00:00:00', '2024-01-01 00:00:00')`,
		`INSERT INTO booking_items (booking_id, kind, unit_id, ref_id, name, quantity, unit_price, tax_rate, check_in, check_out, created_at)
         VALUES (1, 'accommodation', 1, 1, 'Bell tent', 1, 1000000, 10, '2024-01-01', '2024-01-02', '2024-01-01 00:00:00')`,
	)
	bookings := repository.NewBookingRepo(db)
	items := repository.NewItemRepo(db)
	recalc := NewRecalculator(bookings, items, repository.NewPaymentRepo(db), repository.NewCatalogRepo(db),
		NewTaxCalculator(items), clock)
	return &fixture{db: db, bookings: bookings, recalc: recalc}
}

func (f *fixture) recalculate(t *testing.T) model.Totals {
	t.Helper()
	ctx := context.Background()
	tx, err := f.db.BeginTxx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()
	got, err := f.recalc.Recalculate(ctx, tx, 1)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return got
}

func (f *fixture) stored(t *testing.T) model.Totals {
	t.Helper()
	b, err := f.bookings.GetByID(context.Background(), f.db, 1)
	if err != nil {
		t.Fatalf("load booking: %v", err)
	}
	return b.Totals
}

func assertDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: got %s, want %s", name, got, want)
	}
}

func assertInvariants(t *testing.T, tot model.Totals, paid decimal.Decimal) {
	t.Helper()
	if !tot.Total.Equal(tot.Subtotal.Sub(tot.Discount).Add(tot.Tax)) {
		t.Fatalf("total %s != subtotal %s - discount %s + tax %s", tot.Total, tot.Subtotal, tot.Discount, tot.Tax)
	}
	if tot.Total.IsNegative() {
		t.Fatalf("negative total %s", tot.Total)
	}
	want := decimal.Max(decimal.Zero, tot.Total.Sub(paid))
	if !tot.BalanceDue.Equal(want) {
		t.Fatalf("balance: got %s, want %s", tot.BalanceDue, want)
	}
}

func TestRecalculateTaxedBookingWithPayment(t *testing.T) {
	f := newFixture(t, true)
	got := f.recalculate(t)
	assertDec(t, "subtotal", got.Subtotal, "1000000")
	assertDec(t, "tax", got.Tax, "100000")
	assertDec(t, "total", got.Total, "1100000")
	assertDec(t, "deposit", got.DepositDue, "330000")
	assertInvariants(t, got, decimal.Zero)

	dbtest.Exec(t, f.db,
		`INSERT INTO payments (booking_id, amount, method, status, created_at, updated_at)
         VALUES (1, 500000, 'cash', 'completed', '2024-01-02 00:00:00', '2024-01-02 00:00:00')`,
		`INSERT INTO payments (booking_id, amount, method, status, created_at, updated_at)
         VALUES (1, 900000, 'cash', 'deleted', '2024-01-02 00:00:00', '2024-01-02 00:00:00')`)
	got = f.recalculate(t)
	assertDec(t, "balance", got.BalanceDue, "600000")
	assertInvariants(t, got, dec("500000"))

	stored := f.stored(t)
	if !stored.Equal(got) {
		t.Fatalf("stored totals %+v differ from returned %+v", stored, got)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	dbtest.Exec(t, f.db, `UPDATE booking_items SET discount_type = 'percentage', discount_value = 10 WHERE booking_id = 1`)
	first := f.recalculate(t)
	firstStored := f.stored(t)
	second := f.recalculate(t)
	secondStored := f.stored(t)
	if !first.Equal(second) || !firstStored.Equal(secondStored) {
		t.Fatalf("recalculation drifted: %+v then %+v", first, second)
	}
	// 10% of the pre-discount amount, never of an already discounted one.
	assertDec(t, "discount", second.Discount, "100000")
	assertDec(t, "tax", second.Tax, "90000")
	assertDec(t, "total", second.Total, "990000")
}

func TestRecalculateLeavesUnchangedBookingUntouched(t *testing.T) {
	f := newFixture(t, true)
	f.recalculate(t)
	dbtest.Exec(t, f.db, `UPDATE bookings SET updated_at = '2023-12-31 00:00:00' WHERE id = 1`)

	f.recalculate(t)
	var untouched int
	if err := f.db.Get(&untouched, `SELECT COUNT(*) FROM bookings WHERE id = 1 AND updated_at = '2023-12-31 00:00:00'`); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}
	if untouched != 1 {
		t.Fatalf("recalculation without changes rewrote updated_at")
	}

	dbtest.Exec(t, f.db, `UPDATE booking_items SET quantity = 2 WHERE booking_id = 1`)
	got := f.recalculate(t)
	assertDec(t, "subtotal", got.Subtotal, "2000000")
	if err := f.db.Get(&untouched, `SELECT COUNT(*) FROM bookings WHERE id = 1 AND updated_at = '2023-12-31 00:00:00'`); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}
	if untouched != 0 {
		t.Fatalf("changed totals were written without bumping updated_at")
	}
	if stored := f.stored(t); !stored.Equal(got) {
		t.Fatalf("stored totals %+v differ from returned %+v", stored, got)
	}
}

func TestDisablingTaxInvoiceRemovesExactlyTheTax(t *testing.T) {
	f := newFixture(t, true)
	dbtest.Exec(t, f.db, `UPDATE booking_items SET discount_type = 'fixed', discount_value = 50000 WHERE booking_id = 1`)
	before := f.recalculate(t)

	ctx := context.Background()
	tx, err := f.db.BeginTxx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.bookings.SetTaxInvoiceTx(ctx, tx, 1, false, fixedNow); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	after := f.recalculate(t)

	assertDec(t, "tax", after.Tax, "0")
	if !after.Subtotal.Equal(before.Subtotal) || !after.Discount.Equal(before.Discount) {
		t.Fatalf("subtotal/discount changed: %+v -> %+v", before, after)
	}
	if !before.Total.Sub(after.Total).Equal(before.Tax) {
		t.Fatalf("total dropped by %s, want %s", before.Total.Sub(after.Total), before.Tax)
	}
	if !before.BalanceDue.Sub(after.BalanceDue).Equal(before.Tax) {
		t.Fatalf("balance dropped by %s, want %s", before.BalanceDue.Sub(after.BalanceDue), before.Tax)
	}
}

func TestComputeTotalsClampsAndMixesRates(t *testing.T) {
	items := []model.LineItem{
		{ID: 1, Kind: model.ItemAccommodation, Quantity: 2, UnitPrice: dec("500000"), TaxRate: decp("8"),
			CheckIn: strp("2024-03-01"), CheckOut: strp("2024-03-04"), DiscountAmount: dec("100000")},
		{ID: 2, Kind: model.ItemMenu, Quantity: 3, UnitPrice: dec("45000"), TaxRate: decp("10")},
	}
	breakdown := ComputeTax(items)
	// (3,000,000 - 100,000) * 8% + 135,000 * 10%
	assertDec(t, "tax", breakdown.Total, "245500")
	if len(breakdown.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(breakdown.Lines))
	}

	tot := ComputeTotals(items, breakdown.Total, dec("5000000"), DepositRule{Type: model.DiscountFixed, Value: dec("9000000")})
	assertDec(t, "subtotal", tot.Subtotal, "3135000")
	assertDec(t, "total", tot.Total, "3280500")
	assertDec(t, "balance", tot.BalanceDue, "0")
	assertDec(t, "deposit", tot.DepositDue, "3280500")
}

func TestLineDiscountClampsToLineAmount(t *testing.T) {
	li := model.LineItem{Kind: model.ItemMenu, Quantity: 1, UnitPrice: dec("30000"),
		DiscountType: strp(model.DiscountFixed), DiscountValue: decp("50000")}
	assertDec(t, "discount", LineDiscount(li), "30000")

	li.DiscountType = strp(model.DiscountPercentage)
	li.DiscountValue = decp("15")
	assertDec(t, "discount", LineDiscount(li), "4500")
}
