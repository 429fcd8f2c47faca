package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/GHtech935/glampinghub/internal/model"
)

const itemColumns = `id, booking_id, kind, unit_id, ref_id, name, quantity, unit_price, discount_type,
    discount_value, discount_amount, voucher_id, tax_rate, check_in, check_out, serving_date, created_at`

// ItemRepo provides CRUD operations for booking_items. Accommodation items
// double as the reservations the availability checker counts.
type ItemRepo struct {
	db *sqlx.DB
}

// NewItemRepo returns a new ItemRepo bound to the given database.
func NewItemRepo(db *sqlx.DB) *ItemRepo { return &ItemRepo{db: db} }

// CreateTx inserts a line item and populates its ID.
func (r *ItemRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, li *model.LineItem) error {
	const q = `INSERT INTO booking_items (booking_id, kind, unit_id, ref_id, name, quantity, unit_price,
                  discount_type, discount_value, discount_amount, voucher_id, tax_rate, check_in, check_out,
                  serving_date, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, li.BookingID, li.Kind, li.UnitID, li.RefID, li.Name, li.Quantity, li.UnitPrice,
		li.DiscountType, li.DiscountValue, li.DiscountAmount, li.VoucherID, li.TaxRate, li.CheckIn, li.CheckOut,
		li.ServingDate, li.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	li.ID = uint64(id)
	return nil
}

// ListByBooking returns every line item of a booking ordered by ID. Dates
// are normalized to YYYY-MM-DD regardless of how the driver returned them.
func (r *ItemRepo) ListByBooking(ctx context.Context, q sqlx.ExtContext, bookingID uint64) ([]model.LineItem, error) {
	items := make([]model.LineItem, 0)
	if err := sqlx.SelectContext(ctx, q, &items,
		`SELECT `+itemColumns+` FROM booking_items WHERE booking_id = ? ORDER BY id`, bookingID); err != nil {
		return nil, err
	}
	for i := range items {
		normalizeItemDates(&items[i])
	}
	return items, nil
}

// GetTx returns one item of a booking. ErrItemNotFound is returned when the
// item does not exist or belongs to another booking.
func (r *ItemRepo) GetTx(ctx context.Context, tx *sqlx.Tx, bookingID, itemID uint64) (*model.LineItem, error) {
	var li model.LineItem
	err := tx.GetContext(ctx, &li, `SELECT `+itemColumns+` FROM booking_items WHERE id = ? AND booking_id = ?`, itemID, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	normalizeItemDates(&li)
	return &li, nil
}

// DeleteTx removes a line item.
func (r *ItemRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, itemID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM booking_items WHERE id = ?`, itemID)
	return err
}

// UpdateStayTx moves every accommodation and parameter item of a booking to
// a new stay window. Menu items keep their serving dates.
func (r *ItemRepo) UpdateStayTx(ctx context.Context, tx *sqlx.Tx, bookingID uint64, checkIn, checkOut string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE booking_items SET check_in = ?, check_out = ? WHERE booking_id = ? AND kind IN (?, ?)`,
		checkIn, checkOut, bookingID, model.ItemAccommodation, model.ItemParameter)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetDiscountAmountTx stores the discount re-derived for an item.
func (r *ItemRepo) SetDiscountAmountTx(ctx context.Context, tx *sqlx.Tx, itemID uint64, amount interface{}) error {
	_, err := tx.ExecContext(ctx, `UPDATE booking_items SET discount_amount = ? WHERE id = ?`, amount, itemID)
	return err
}

// StayRecord is a reservation of a unit as seen by the availability checker.
// Dates are left raw so malformed historical rows can be skipped by the
// caller instead of failing the scan.
type StayRecord struct {
	BookingID uint64         `db:"booking_id"`
	UnitID    uint64         `db:"unit_id"`
	Quantity  int            `db:"quantity"`
	CheckIn   sql.NullString `db:"check_in"`
	CheckOut  sql.NullString `db:"check_out"`
}

// ListStays returns accommodation reservations of the given units that may
// overlap [from, to), ignoring cancelled bookings and, when non-zero, the
// excluded booking. The half-open test is repeated per day by the caller.
func (r *ItemRepo) ListStays(ctx context.Context, q sqlx.ExtContext, unitIDs []uint64, from, to string, excludeBookingID uint64) ([]StayRecord, error) {
	if len(unitIDs) == 0 {
		return []StayRecord{}, nil
	}
	placeholders := make([]string, 0, len(unitIDs))
	args := make([]interface{}, 0, len(unitIDs)+5)
	for _, id := range unitIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT bi.booking_id, bi.unit_id, bi.quantity, bi.check_in, bi.check_out
              FROM booking_items bi
              JOIN bookings b ON b.id = bi.booking_id
              WHERE bi.unit_id IN (` + strings.Join(placeholders, ",") + `)
                AND bi.kind = ?
                AND b.status <> ?
                AND bi.check_in < ? AND bi.check_out > ?`
	args = append(args, model.ItemAccommodation, model.BookingCancelled, to, from)
	if excludeBookingID != 0 {
		query += ` AND bi.booking_id <> ?`
		args = append(args, excludeBookingID)
	}
	stays := make([]StayRecord, 0)
	if err := sqlx.SelectContext(ctx, q, &stays, query, args...); err != nil {
		return nil, err
	}
	return stays, nil
}

func normalizeItemDates(li *model.LineItem) {
	for _, p := range []*string{li.CheckIn, li.CheckOut, li.ServingDate} {
		if p == nil {
			continue
		}
		if t, err := model.ParseDate(*p); err == nil {
			*p = model.FormatDate(t)
		}
	}
}
