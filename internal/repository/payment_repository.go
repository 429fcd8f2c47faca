package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GHtech935/glampinghub/internal/model"
)

const paymentColumns = `id, booking_id, amount, method, status, reference, created_by, created_at, updated_at`

// PaymentRepo provides access to the payments table.
type PaymentRepo struct {
	db *sqlx.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sqlx.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx records a payment and populates its ID.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, amount, method, status, reference, created_by, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.BookingID, p.Amount, p.Method, p.Status, p.Reference, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByBooking returns every payment of a booking, including deleted ones,
// oldest first.
func (r *PaymentRepo) ListByBooking(ctx context.Context, q sqlx.ExtContext, bookingID uint64) ([]model.Payment, error) {
	out := make([]model.Payment, 0)
	err := sqlx.SelectContext(ctx, q, &out, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = ? ORDER BY id`, bookingID)
	return out, err
}

// ListCompleted returns the payments that count toward the balance.
func (r *PaymentRepo) ListCompleted(ctx context.Context, q sqlx.ExtContext, bookingID uint64) ([]model.Payment, error) {
	out := make([]model.Payment, 0)
	err := sqlx.SelectContext(ctx, q, &out,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = ? AND status = ? ORDER BY id`,
		bookingID, model.PaymentRecordCompleted)
	return out, err
}

// GetTx loads one payment of a booking.
func (r *PaymentRepo) GetTx(ctx context.Context, tx *sqlx.Tx, bookingID, paymentID uint64) (*model.Payment, error) {
	var p model.Payment
	err := tx.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = ? AND booking_id = ?`, paymentID, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SoftDeleteTx marks a payment deleted. The row is kept for the audit trail.
func (r *PaymentRepo) SoftDeleteTx(ctx context.Context, tx *sqlx.Tx, paymentID uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`,
		model.PaymentRecordDeleted, now, paymentID)
	return err
}

// DeleteTx removes a payment row. Only used while the booking is still pending.
func (r *PaymentRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, paymentID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, paymentID)
	return err
}
