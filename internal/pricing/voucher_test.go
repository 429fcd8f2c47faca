package pricing

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GHtech935/glampinghub/internal/database/dbtest"
	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/repository"
)

func baseVoucher() model.Voucher {
	return model.Voucher{
		ID:              7,
		Code:            "SAVE10",
		DiscountType:    model.DiscountPercentage,
		DiscountValue:   dec("10"),
		Status:          "active",
		Recurrence:      model.RecurrenceDateRange,
		ApplicationType: model.ApplyAll,
	}
}

func TestEvaluateVoucherRules(t *testing.T) {
	// 2024-01-13 is a Saturday.
	sat := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)
	zone := uint64(2)
	base := VoucherContext{ZoneID: 1, ItemID: 11, Kind: model.ItemAccommodation, Charge: dec("1000000"), CheckIn: sat}

	cases := []struct {
		name   string
		mutate func(v *model.Voucher, vc *VoucherContext)
		want   string
	}{
		{"inactive", func(v *model.Voucher, _ *VoucherContext) { v.Status = "inactive" }, ReasonInactive},
		{"usage limit", func(v *model.Voucher, _ *VoucherContext) {
			v.MaxUses = sql.NullInt64{Int64: 3, Valid: true}
			v.CurrentUses = 3
		}, ReasonUsageLimit},
		{"reserved in tx counts", func(v *model.Voucher, vc *VoucherContext) {
			v.MaxUses = sql.NullInt64{Int64: 2, Valid: true}
			v.CurrentUses = 1
			vc.ReservedInTx = 1
		}, ReasonUsageLimit},
		{"one time already used", func(v *model.Voucher, vc *VoucherContext) {
			v.Recurrence = model.RecurrenceOneTime
			vc.ReservedInTx = 1
		}, ReasonAlreadyUsed},
		{"not started", func(v *model.Voucher, _ *VoucherContext) {
			v.ValidFrom = sql.NullTime{Time: fixedNow.Add(time.Hour), Valid: true}
		}, ReasonNotStarted},
		{"expired", func(v *model.Voucher, _ *VoucherContext) {
			v.ValidUntil = sql.NullTime{Time: fixedNow.Add(-time.Hour), Valid: true}
		}, ReasonExpired},
		{"weekday", func(v *model.Voucher, _ *VoucherContext) { v.WeeklyDays = "1,2,3" }, ReasonWeekday},
		{"zone", func(v *model.Voucher, _ *VoucherContext) { v.ZoneID = &zone }, ReasonZone},
		{"application type", func(v *model.Voucher, _ *VoucherContext) { v.ApplicationType = model.ApplyMenu }, ReasonApplicationType},
		{"item set", func(v *model.Voucher, _ *VoucherContext) { v.ItemIDs = []uint64{12, 13} }, ReasonItem},
		{"first failing rule wins", func(v *model.Voucher, _ *VoucherContext) {
			v.Status = "inactive"
			v.ZoneID = &zone
		}, ReasonInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, vc := baseVoucher(), base
			tc.mutate(&v, &vc)
			res := EvaluateVoucher(v, vc, fixedNow)
			if res.Valid || res.Code != tc.want {
				t.Fatalf("got valid=%v code=%q, want code %q", res.Valid, res.Code, tc.want)
			}
			if res.Reason == "" {
				t.Fatalf("missing reason for %q", tc.want)
			}
		})
	}

	v := baseVoucher()
	v.WeeklyDays = "6,0"
	v.ItemIDs = []uint64{11}
	res := EvaluateVoucher(v, base, fixedNow)
	if !res.Valid {
		t.Fatalf("got %+v, want valid", res)
	}
	assertDec(t, "discount", res.DiscountAmount, "100000")
}

func TestFixedVoucherIsClampedToCharge(t *testing.T) {
	v := baseVoucher()
	v.DiscountType = model.DiscountFixed
	v.DiscountValue = dec("200000")
	res := EvaluateVoucher(v, VoucherContext{Kind: model.ItemMenu, Charge: dec("150000")}, fixedNow)
	if !res.Valid {
		t.Fatalf("got %+v, want valid", res)
	}
	assertDec(t, "discount", res.DiscountAmount, "150000")
}

func TestValidateRequiresCodeAndCharge(t *testing.T) {
	db := dbtest.Open(t)
	val := NewValidator(repository.NewVoucherRepo(db), clock)
	tx, err := db.BeginTxx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := val.Validate(context.Background(), tx, " ", VoucherContext{Charge: dec("1")}); !errors.Is(err, ErrInvalidVoucherRequest) {
		t.Fatalf("empty code: got %v, want ErrInvalidVoucherRequest", err)
	}
	if _, err := val.Validate(context.Background(), tx, "SAVE10", VoucherContext{}); !errors.Is(err, ErrInvalidVoucherRequest) {
		t.Fatalf("zero charge: got %v, want ErrInvalidVoucherRequest", err)
	}
	res, err := val.Validate(context.Background(), tx, "NOPE", VoucherContext{Charge: dec("1")})
	if err != nil || res.Valid || res.Code != ReasonNotFound {
		t.Fatalf("unknown code: got %+v, %v", res, err)
	}
}

func TestOneTimeVoucherRedeemedExactlyOnceUnderConcurrency(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.Exec(t, db, `INSERT INTO vouchers (code, discount_type, discount_value, current_uses, max_uses, status, recurrence, application_type)
        VALUES ('SAVE10', 'percentage', 10, 0, 1, 'active', 'one_time', 'all')`)
	vouchers := repository.NewVoucherRepo(db)
	val := NewValidator(vouchers, clock)

	const attempts = 8
	type outcome struct {
		res VoucherResult
		err error
	}
	results := make(chan outcome, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(bookingID uint64) {
			defer wg.Done()
			ctx := context.Background()
			tx, err := db.BeginTxx(ctx, nil)
			if err != nil {
				results <- outcome{err: err}
				return
			}
			defer func() { _ = tx.Rollback() }()
			res, err := val.Validate(ctx, tx, "save10", VoucherContext{ZoneID: 1, ItemID: 1, Kind: model.ItemAccommodation, Charge: dec("1000000")})
			if err == nil && res.Valid {
				err = val.Redeem(ctx, tx, res, bookingID, bookingID*10)
			}
			if err == nil {
				err = tx.Commit()
			}
			results <- outcome{res: res, err: err}
		}(uint64(i + 1))
	}
	wg.Wait()
	close(results)

	valid := 0
	for o := range results {
		if o.err != nil {
			t.Fatalf("attempt failed: %v", o.err)
		}
		if o.res.Valid {
			valid++
			assertDec(t, "discount", o.res.DiscountAmount, "100000")
			continue
		}
		if o.res.Code != ReasonUsageLimit && o.res.Code != ReasonAlreadyUsed {
			t.Fatalf("rejected with %q, want usage limit or already used", o.res.Code)
		}
	}
	if valid != 1 {
		t.Fatalf("got %d successful redemptions, want 1", valid)
	}
	n, err := vouchers.CountRedemptions(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d redemption rows, want 1", n)
	}
}

func TestReleaseGivesTheUseBack(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.Exec(t, db, `INSERT INTO vouchers (code, discount_type, discount_value, current_uses, max_uses, status, recurrence, application_type)
        VALUES ('ONCE', 'fixed', 50000, 0, 1, 'active', 'one_time', 'menu')`)
	val := NewValidator(repository.NewVoucherRepo(db), clock)
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	res, err := val.Validate(ctx, tx, "once", VoucherContext{Kind: model.ItemMenu, ItemID: 3, Charge: dec("80000")})
	if err != nil || !res.Valid {
		t.Fatalf("validate: %+v, %v", res, err)
	}
	if err := val.Redeem(ctx, tx, res, 1, 5); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	vid := res.VoucherID
	if err := val.Release(ctx, tx, model.LineItem{ID: 5, VoucherID: &vid}); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := val.Validate(ctx, tx, "ONCE", VoucherContext{Kind: model.ItemMenu, ItemID: 3, Charge: dec("80000")})
	if err != nil || !again.Valid {
		t.Fatalf("after release: %+v, %v", again, err)
	}
	_ = tx.Rollback()
}
