// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service to distinguish between different failure scenarios
// without inspecting SQL errors.
package repository

import (
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource outside the zones they may manage.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state.
var ErrConflict = errors.New("conflict")

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrItemNotFound    = errors.New("booking item not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrUnitNotFound    = errors.New("unit not found")
	ErrProductNotFound = errors.New("menu product not found")
	ErrParamNotFound   = errors.New("unit parameter not found")
	ErrZoneNotFound    = errors.New("zone not found")
	ErrVoucherNotFound = errors.New("voucher not found")
)

// forUpdate returns the row-lock suffix for SELECTs run inside a
// transaction. SQLite has no row locks; its single writer already
// serializes transactions, so the clause is dropped there.
func forUpdate(q sqlx.ExtContext) string {
	if q.DriverName() == "mysql" {
		return " FOR UPDATE"
	}
	return ""
}
