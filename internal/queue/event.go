// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published on the booking.events queue.
const (
	EventBookingCreated       = "booking.created"
	EventBookingUpdated       = "booking.updated"
	EventStatusChanged        = "booking.status_changed"
	EventPaymentStatusChanged = "booking.payment_status_changed"
	EventPaymentRecorded      = "booking.payment_recorded"
)

// BookingEvent is published after a booking mutation commits. It carries
// enough for the notification consumer to render an email without querying
// the primary database. Amounts are decimal strings.
type BookingEvent struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	BookingID     uint64 `json:"booking_id"`
	BookingCode   string `json:"booking_code"`
	ZoneID        uint64 `json:"zone_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Currency      string `json:"currency"`
	TotalAmount   string `json:"total_amount"`
	DepositDue    string `json:"deposit_due"`
	BalanceDue    string `json:"balance_due"`
	ActorID       uint64 `json:"actor_id"`
	OccurredAt    string `json:"occurred_at"`
}
