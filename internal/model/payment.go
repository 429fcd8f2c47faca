package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecordStatus is the state of a single recorded payment.
type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
	PaymentRecordRefunded  PaymentRecordStatus = "refunded"
	PaymentRecordDeleted   PaymentRecordStatus = "deleted"
)

// Payment is money recorded against a booking. Once the booking has left the
// pending status a payment is only ever soft-deleted.
type Payment struct {
	ID        uint64              `db:"id" json:"id"`
	BookingID uint64              `db:"booking_id" json:"booking_id"`
	Amount    decimal.Decimal     `db:"amount" json:"amount"`
	Method    string              `db:"method" json:"method"`
	Status    PaymentRecordStatus `db:"status" json:"status"`
	Reference string              `db:"reference" json:"reference,omitempty"`
	CreatedBy uint64              `db:"created_by" json:"created_by"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// PaymentMethods lists the accepted payment methods.
var PaymentMethods = map[string]bool{
	"cash":          true,
	"bank_transfer": true,
	"card":          true,
	"qr":            true,
}
