package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/model"
)

const voucherColumns = `id, code, name, discount_type, discount_value, current_uses, max_uses, status, recurrence,
    valid_from, valid_until, weekly_days, zone_id, application_type`

// VoucherRepo reads vouchers under a row lock and records redemptions. The
// usage counter is only ever changed here, inside the transaction that holds
// the lock.
type VoucherRepo struct {
	db *sqlx.DB
}

// NewVoucherRepo returns a new VoucherRepo bound to the given database.
func NewVoucherRepo(db *sqlx.DB) *VoucherRepo { return &VoucherRepo{db: db} }

// LockByCodeTx finds a voucher by code and locks its row until the
// transaction ends. The code column has a case-insensitive collation, so the
// lookup ignores case while still going through the unique index. The
// voucher's item set is loaded as well.
func (r *VoucherRepo) LockByCodeTx(ctx context.Context, tx *sqlx.Tx, code string) (*model.Voucher, error) {
	var v model.Voucher
	err := tx.GetContext(ctx, &v, `SELECT `+voucherColumns+` FROM vouchers WHERE code = ?`+forUpdate(tx), code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, tx, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// LockByIDTx locks a voucher by primary key.
func (r *VoucherRepo) LockByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (*model.Voucher, error) {
	var v model.Voucher
	err := tx.GetContext(ctx, &v, `SELECT `+voucherColumns+` FROM vouchers WHERE id = ?`+forUpdate(tx), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, tx, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VoucherRepo) loadItems(ctx context.Context, tx *sqlx.Tx, v *model.Voucher) error {
	var ids []uint64
	if err := tx.SelectContext(ctx, &ids, `SELECT item_id FROM voucher_items WHERE voucher_id = ? ORDER BY item_id`, v.ID); err != nil {
		return err
	}
	v.ItemIDs = ids
	return nil
}

// RedeemTx records that a line item used the voucher and bumps the usage
// counter. The voucher row must already be locked by the same transaction.
func (r *VoucherRepo) RedeemTx(ctx context.Context, tx *sqlx.Tx, voucherID, bookingID, itemID uint64, amount decimal.Decimal, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO voucher_redemptions (voucher_id, booking_id, booking_item_id, discount_amount, created_at)
         VALUES (?, ?, ?, ?, ?)`, voucherID, bookingID, itemID, amount, now); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE vouchers SET current_uses = current_uses + 1 WHERE id = ?`, voucherID)
	return err
}

// ReleaseTx undoes the redemption made by a line item. It reports whether a
// redemption existed.
func (r *VoucherRepo) ReleaseTx(ctx context.Context, tx *sqlx.Tx, voucherID, itemID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM voucher_redemptions WHERE voucher_id = ? AND booking_item_id = ?`, voucherID, itemID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE vouchers SET current_uses = current_uses - ? WHERE id = ? AND current_uses >= ?`, n, voucherID, n)
	return err == nil, err
}

// UpdateRedemptionTx rewrites the discount recorded for a line item's
// redemption after the line's charge changed.
func (r *VoucherRepo) UpdateRedemptionTx(ctx context.Context, tx *sqlx.Tx, voucherID, itemID uint64, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE voucher_redemptions SET discount_amount = ? WHERE voucher_id = ? AND booking_item_id = ?`, amount, voucherID, itemID)
	return err
}

// CountRedemptions returns how many line items currently hold the voucher.
func (r *VoucherRepo) CountRedemptions(ctx context.Context, q sqlx.ExtContext, voucherID uint64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM voucher_redemptions WHERE voucher_id = ?`, voucherID)
	return n, err
}
