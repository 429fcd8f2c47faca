package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GHtech935/glampinghub/internal/model"
)

const bookingColumns = `id, code, zone_id, customer_name, customer_email, status, payment_status,
    tax_invoice_required, subtotal, discount_amount, tax_amount, total_amount, deposit_due,
    balance_due, currency, payment_expires_at, created_by, created_at, updated_at`

// BookingRepo provides access to the bookings table. No method here writes
// the totals columns; the recalculator in the pricing package owns them.
type BookingRepo struct {
	db *sqlx.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a booking with zero totals and populates its ID. The
// caller must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (code, zone_id, customer_name, customer_email, status, payment_status,
                  tax_invoice_required, currency, payment_expires_at, created_by, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.Code, b.ZoneID, b.CustomerName, b.CustomerEmail, b.Status, b.PaymentStatus,
		b.TaxInvoiceRequired, b.Currency, b.PaymentExpiresAt, b.CreatedBy, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID loads a booking without locking it. It returns
// ErrBookingNotFound when no row matches.
func (r *BookingRepo) GetByID(ctx context.Context, q sqlx.ExtContext, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := sqlx.GetContext(ctx, q, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LockTx loads a booking and holds its row lock until the transaction ends,
// so concurrent mutations of the same booking apply one after another.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sqlx.Tx, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := tx.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`+forUpdate(tx), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SetTaxInvoiceTx toggles the tax-invoice flag.
func (r *BookingRepo) SetTaxInvoiceTx(ctx context.Context, tx *sqlx.Tx, id uint64, required bool, now time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET tax_invoice_required = ?, updated_at = ? WHERE id = ?`, required, now, id)
	return err
}

// UpdateStatusTx moves the booking from one status to another. It returns
// ErrConflict when the stored status is no longer from. Transition rules are
// checked by the caller through model.ValidateStatusTransition.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uint64, from, to model.BookingStatus, now time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, to, now, id, from)
	return expectOneRow(res, err)
}

// UpdatePaymentStatusTx is UpdateStatusTx for payment_status.
func (r *BookingRepo) UpdatePaymentStatusTx(ctx context.Context, tx *sqlx.Tx, id uint64, from, to model.PaymentStatus, now time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET payment_status = ?, updated_at = ? WHERE id = ? AND payment_status = ?`, to, now, id, from)
	return expectOneRow(res, err)
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
