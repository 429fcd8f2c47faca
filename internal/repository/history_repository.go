package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GHtech935/glampinghub/internal/model"
)

// HistoryRepo appends and lists booking_status_history rows. Rows are never
// updated or deleted.
type HistoryRepo struct {
	db *sqlx.DB
}

func NewHistoryRepo(db *sqlx.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// RecordTx appends one transition.
func (r *HistoryRepo) RecordTx(ctx context.Context, tx *sqlx.Tx, c *model.StatusChange) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO booking_status_history (booking_id, field, from_value, to_value, actor_id, note, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.BookingID, c.Field, c.FromValue, c.ToValue, c.ActorID, c.Note, c.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ListByBooking returns the history of a booking in the order it was written.
func (r *HistoryRepo) ListByBooking(ctx context.Context, q sqlx.ExtContext, bookingID uint64) ([]model.StatusChange, error) {
	out := make([]model.StatusChange, 0)
	err := sqlx.SelectContext(ctx, q, &out,
		`SELECT id, booking_id, field, from_value, to_value, actor_id, note, created_at
         FROM booking_status_history WHERE booking_id = ? ORDER BY id`, bookingID)
	return out, err
}
