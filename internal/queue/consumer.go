package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Mailer delivers templated emails. Delivery is outside the booking core;
// the consumer only decides which template a booking event maps to.
type Mailer interface {
	SendTemplateEmail(template string, to string, vars map[string]string) error
}

// LogMailer writes would-be emails to the process log.
type LogMailer struct{}

func (LogMailer) SendTemplateEmail(template, to string, vars map[string]string) error {
	log.Printf("mailer: template=%s to=%s vars=%v", template, to, vars)
	return nil
}

// StartNotificationConsumer connects to RabbitMQ, declares the booking.events
// queue (durable) and turns each event into an email through m. It runs a
// reconnect loop with capped backoff and never returns; messages that cannot
// be handled are rejected without requeue so one bad payload cannot stall the
// queue.
func StartNotificationConsumer(url string, m Mailer) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, m); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, m Mailer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(BookingEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(BookingEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, m); err != nil {
			log.Printf("notify-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// templateFor maps an event to the email template sent to the guest. An
// empty name means the event produces no email.
func templateFor(ev BookingEvent) string {
	switch ev.Type {
	case EventBookingCreated:
		return "booking_received"
	case EventPaymentRecorded:
		return "payment_received"
	case EventStatusChanged:
		switch ev.Status {
		case "confirmed":
			return "booking_confirmed"
		case "cancelled":
			return "booking_cancelled"
		}
	case EventPaymentStatusChanged:
		switch ev.PaymentStatus {
		case "expired":
			return "payment_expired"
		case "refunded":
			return "refund_completed"
		}
	}
	return ""
}

func handleMessage(body []byte, m Mailer) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	tpl := templateFor(ev)
	if tpl == "" || ev.CustomerEmail == "" {
		return nil
	}
	vars := map[string]string{
		"customer_name":  ev.CustomerName,
		"booking_code":   ev.BookingCode,
		"status":         ev.Status,
		"payment_status": ev.PaymentStatus,
		"total_amount":   ev.TotalAmount,
		"deposit_due":    ev.DepositDue,
		"balance_due":    ev.BalanceDue,
		"currency":       ev.Currency,
	}
	if err := m.SendTemplateEmail(tpl, ev.CustomerEmail, vars); err != nil {
		return fmt.Errorf("send %s: %w", tpl, err)
	}
	return nil
}
