package model

import "fmt"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingCheckedIn  BookingStatus = "checked_in"
	BookingCheckedOut BookingStatus = "checked_out"
	BookingCancelled  BookingStatus = "cancelled"
)

// PaymentStatus tracks money received for a booking independently of
// BookingStatus.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentDepositPaid   PaymentStatus = "deposit_paid"
	PaymentFullyPaid     PaymentStatus = "fully_paid"
	PaymentRefundPending PaymentStatus = "refund_pending"
	PaymentRefunded      PaymentStatus = "refunded"
	PaymentNoRefund      PaymentStatus = "no_refund"
	PaymentExpired       PaymentStatus = "expired"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingCancelled},
	BookingConfirmed:  {BookingCheckedIn, BookingCancelled},
	BookingCheckedIn:  {BookingCheckedOut, BookingCancelled},
	BookingCheckedOut: nil,
	BookingCancelled:  nil,
}

// The last three edges of deposit_paid/fully_paid are regressions used when a
// completed payment is deleted and the balance is re-derived.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:       {PaymentDepositPaid, PaymentFullyPaid, PaymentExpired, PaymentRefundPending},
	PaymentDepositPaid:   {PaymentFullyPaid, PaymentRefundPending, PaymentPending},
	PaymentFullyPaid:     {PaymentRefundPending, PaymentDepositPaid, PaymentPending},
	PaymentRefundPending: {PaymentRefunded, PaymentNoRefund},
	PaymentRefunded:      nil,
	PaymentNoRefund:      nil,
	PaymentExpired:       nil,
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// Modifiable reports whether stay dates, payments and line items of a booking
// in this status may still be edited.
func (s BookingStatus) Modifiable() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn:
		return true
	}
	return false
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// TransitionError is returned when a status change is not in the
// transition table.
type TransitionError struct {
	Field string
	From  string
	To    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot change from %q to %q", e.Field, e.From, e.To)
}

// ValidateStatusTransition is the single place booking status changes are
// checked.
func ValidateStatusTransition(from, to BookingStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown booking status %q", to)
	}
	for _, next := range bookingTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{Field: "status", From: string(from), To: string(to)}
}

// ValidatePaymentTransition is the single place payment status changes are
// checked.
func ValidatePaymentTransition(from, to PaymentStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown payment status %q", to)
	}
	for _, next := range paymentTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{Field: "payment_status", From: string(from), To: string(to)}
}
