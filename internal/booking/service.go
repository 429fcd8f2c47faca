// Package booking holds the operations that change a booking. Each one runs
// in a single transaction: lock the booking row, apply the change, recompute
// totals, reconcile the payment status and commit. Anything that goes wrong
// is rolled back and reported as an *Error.
package booking

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/availability"
	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/pricing"
	"github.com/GHtech935/glampinghub/internal/queue"
	"github.com/GHtech935/glampinghub/internal/repository"
)

// Publisher receives booking events after a mutation has committed.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// Options tune a Service. Zero values fall back to defaults.
type Options struct {
	PaymentWindow   time.Duration
	DefaultCurrency string
	Now             func() time.Time
	Publisher       Publisher
}

// Service implements the booking mutations.
type Service struct {
	db        *sqlx.DB
	bookings  *repository.BookingRepo
	items     *repository.ItemRepo
	payments  *repository.PaymentRepo
	catalog   *repository.CatalogRepo
	history   *repository.HistoryRepo
	vouchers  *pricing.Validator
	recalc    *pricing.Recalculator
	checker   *availability.Checker
	publisher Publisher
	now       func() time.Time
	window    time.Duration
	currency  string
}

// NewService wires a Service and its pricing and availability collaborators
// over db.
func NewService(db *sqlx.DB, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PaymentWindow <= 0 {
		opts.PaymentWindow = 30 * time.Minute
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "VND"
	}
	bookings := repository.NewBookingRepo(db)
	items := repository.NewItemRepo(db)
	payments := repository.NewPaymentRepo(db)
	catalog := repository.NewCatalogRepo(db)
	return &Service{
		db:        db,
		bookings:  bookings,
		items:     items,
		payments:  payments,
		catalog:   catalog,
		history:   repository.NewHistoryRepo(db),
		vouchers:  pricing.NewValidator(repository.NewVoucherRepo(db), opts.Now),
		recalc:    pricing.NewRecalculator(bookings, items, payments, catalog, pricing.NewTaxCalculator(items), opts.Now),
		checker:   availability.NewChecker(db, catalog, items),
		publisher: opts.Publisher,
		now:       opts.Now,
		window:    opts.PaymentWindow,
		currency:  opts.DefaultCurrency,
	}
}

// Outcome is returned by every successful mutation. Totals are the values
// just written by the recalculation, so callers never re-fetch.
type Outcome struct {
	Success       bool                `json:"success"`
	BookingID     uint64              `json:"booking_id"`
	BookingCode   string              `json:"booking_code"`
	Status        model.BookingStatus `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Totals        model.Totals        `json:"totals"`
	ItemID        uint64              `json:"item_id,omitempty"`
	PaymentID     uint64              `json:"payment_id,omitempty"`
	Changed       bool                `json:"changed"`
}

// mutation is the per-operation body run by mutate. It receives the locked
// booking and may update it in place when it changes status fields.
type mutation struct {
	event             string
	requireModifiable bool
	apply             func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error
}

// txState collects what happened inside a transaction so events can be
// published once it has committed.
type txState struct {
	events    []string
	itemID    uint64
	paymentID uint64
	unchanged bool
}

func (st *txState) emit(event string) { st.events = append(st.events, event) }

// mutate runs m inside one transaction on the booking identified by id.
func (s *Service) mutate(ctx context.Context, sess model.Session, id uint64, m mutation) (Outcome, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Outcome{}, classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	b, err := s.bookings.LockTx(ctx, tx, id)
	if err != nil {
		return Outcome{}, classify(err)
	}
	if !sess.CanAccessZone(b.ZoneID) {
		return Outcome{}, classify(repository.ErrForbidden)
	}
	if m.requireModifiable && !b.Status.Modifiable() {
		return Outcome{}, conflictf("booking is %s and can no longer be modified", b.Status)
	}

	st := &txState{}
	if err := m.apply(ctx, tx, b, st); err != nil {
		return Outcome{}, classify(err)
	}
	if m.event != "" && !st.unchanged {
		st.events = append([]string{m.event}, st.events...)
	}
	out := Outcome{BookingID: b.ID, BookingCode: b.Code, ItemID: st.itemID, PaymentID: st.paymentID, Changed: !st.unchanged}
	if err := s.finish(ctx, tx, sess, b, &out, st); err != nil {
		return Outcome{}, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return Outcome{}, classify(err)
	}
	s.publish(b, out, sess.UserID, st.events)
	return out, nil
}

// finish recalculates totals and brings payment_status in line with the
// completed payments.
func (s *Service) finish(ctx context.Context, tx *sqlx.Tx, sess model.Session, b *model.Booking, out *Outcome, st *txState) error {
	totals, err := s.recalc.Recalculate(ctx, tx, b.ID)
	if err != nil {
		return err
	}
	if err := s.reconcilePayment(ctx, tx, sess, b, totals, st); err != nil {
		return err
	}
	b.Totals = totals
	out.Success = true
	out.Totals = totals
	out.Status = b.Status
	out.PaymentStatus = b.PaymentStatus
	return nil
}

// derivePaymentStatus returns the payment status implied by what has been
// paid. Only the pending/deposit_paid/fully_paid band is derived; refund and
// expiry states are set explicitly.
func derivePaymentStatus(totals model.Totals, paid decimal.Decimal) model.PaymentStatus {
	switch {
	case !paid.IsPositive():
		return model.PaymentPending
	case totals.BalanceDue.IsZero():
		return model.PaymentFullyPaid
	case paid.GreaterThanOrEqual(totals.DepositDue):
		return model.PaymentDepositPaid
	}
	return model.PaymentPending
}

func (s *Service) reconcilePayment(ctx context.Context, tx *sqlx.Tx, sess model.Session, b *model.Booking, totals model.Totals, st *txState) error {
	switch b.PaymentStatus {
	case model.PaymentPending, model.PaymentDepositPaid, model.PaymentFullyPaid:
	default:
		return nil
	}
	if b.Status == model.BookingCancelled {
		return nil
	}
	completed, err := s.payments.ListCompleted(ctx, tx, b.ID)
	if err != nil {
		return err
	}
	target := derivePaymentStatus(totals, pricing.SumPayments(completed))
	if target == b.PaymentStatus {
		return nil
	}
	if err := s.setPaymentStatus(ctx, tx, sess, b, target, "derived from recorded payments"); err != nil {
		return err
	}
	st.emit(queue.EventPaymentStatusChanged)

	// A first payment covering the deposit confirms a pending booking.
	if b.Status == model.BookingPending && (target == model.PaymentDepositPaid || target == model.PaymentFullyPaid) {
		if err := s.setStatus(ctx, tx, sess, b, model.BookingConfirmed, "payment received"); err != nil {
			return err
		}
		st.emit(queue.EventStatusChanged)
	}
	return nil
}

// setStatus validates and writes a booking status change with its history row.
func (s *Service) setStatus(ctx context.Context, tx *sqlx.Tx, sess model.Session, b *model.Booking, to model.BookingStatus, note string) error {
	if err := model.ValidateStatusTransition(b.Status, to); err != nil {
		return err
	}
	now := s.now().UTC()
	if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, b.Status, to, now); err != nil {
		return err
	}
	if err := s.history.RecordTx(ctx, tx, &model.StatusChange{BookingID: b.ID, Field: "status",
		FromValue: string(b.Status), ToValue: string(to), ActorID: sess.UserID, Note: note, CreatedAt: now}); err != nil {
		return err
	}
	b.Status = to
	return nil
}

// setPaymentStatus validates and writes a payment status change with its
// history row.
func (s *Service) setPaymentStatus(ctx context.Context, tx *sqlx.Tx, sess model.Session, b *model.Booking, to model.PaymentStatus, note string) error {
	if err := model.ValidatePaymentTransition(b.PaymentStatus, to); err != nil {
		return err
	}
	now := s.now().UTC()
	if err := s.bookings.UpdatePaymentStatusTx(ctx, tx, b.ID, b.PaymentStatus, to, now); err != nil {
		return err
	}
	if err := s.history.RecordTx(ctx, tx, &model.StatusChange{BookingID: b.ID, Field: "payment_status",
		FromValue: string(b.PaymentStatus), ToValue: string(to), ActorID: sess.UserID, Note: note, CreatedAt: now}); err != nil {
		return err
	}
	b.PaymentStatus = to
	return nil
}

// publish sends one event per type collected during the transaction. Broker
// failures are logged and never undo the committed mutation.
func (s *Service) publish(b *model.Booking, out Outcome, actor uint64, types []string) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		ev := queue.BookingEvent{
			ID:            uuid.NewString(),
			Type:          t,
			BookingID:     b.ID,
			BookingCode:   b.Code,
			ZoneID:        b.ZoneID,
			CustomerName:  b.CustomerName,
			CustomerEmail: b.CustomerEmail,
			Status:        string(out.Status),
			PaymentStatus: string(out.PaymentStatus),
			Currency:      b.Currency,
			TotalAmount:   out.Totals.Total.String(),
			DepositDue:    out.Totals.DepositDue.String(),
			BalanceDue:    out.Totals.BalanceDue.String(),
			ActorID:       actor,
			OccurredAt:    s.now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.PublishBookingEvent(ctx, ev); err != nil {
			log.Printf("booking: publish %s for booking %d failed: %v", t, b.ID, err)
		}
	}
}

// newBookingCode returns a short public reference such as GH-1A2B3C4D.
func newBookingCode() string {
	return "GH-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// stayOf returns the stay window of a booking from its first accommodation
// item.
func stayOf(items []model.LineItem) (in, out time.Time, ok bool) {
	for _, li := range items {
		if li.Kind != model.ItemAccommodation || li.CheckIn == nil || li.CheckOut == nil {
			continue
		}
		a, err1 := model.ParseDate(*li.CheckIn)
		b, err2 := model.ParseDate(*li.CheckOut)
		if err1 == nil && err2 == nil {
			return a, b, true
		}
	}
	return time.Time{}, time.Time{}, false
}

// parseStay validates a requested stay window.
func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := time.Parse(model.DateLayout, strings.TrimSpace(checkIn))
	if err != nil {
		return time.Time{}, time.Time{}, validationf("check_in must be a date in YYYY-MM-DD form")
	}
	out, err := time.Parse(model.DateLayout, strings.TrimSpace(checkOut))
	if err != nil {
		return time.Time{}, time.Time{}, validationf("check_out must be a date in YYYY-MM-DD form")
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, validationf("check_out must be after check_in")
	}
	return in, out, nil
}
