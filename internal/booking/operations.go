package booking

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/availability"
	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/pricing"
	"github.com/GHtech935/glampinghub/internal/queue"
	"github.com/GHtech935/glampinghub/internal/repository"
)

// ParameterInput adds a per-night surcharge of the booked unit.
type ParameterInput struct {
	ParameterID uint64 `json:"parameter_id"`
	Quantity    int    `json:"quantity"`
}

// MenuInput orders a menu product, optionally with its own voucher code.
type MenuInput struct {
	ProductID   uint64 `json:"product_id"`
	Quantity    int    `json:"quantity"`
	ServingDate string `json:"serving_date,omitempty"`
	VoucherCode string `json:"voucher_code,omitempty"`
}

// CreateInput describes a new booking of one unit.
type CreateInput struct {
	UnitID             uint64           `json:"unit_id"`
	Quantity           int              `json:"quantity"`
	CheckIn            string           `json:"check_in"`
	CheckOut           string           `json:"check_out"`
	CustomerName       string           `json:"customer_name"`
	CustomerEmail      string           `json:"customer_email"`
	Parameters         []ParameterInput `json:"parameters"`
	Menu               []MenuInput      `json:"menu"`
	VoucherCode        string           `json:"voucher_code,omitempty"`
	TaxInvoiceRequired bool             `json:"tax_invoice_required"`
}

// pendingLine is a line item validated but not yet inserted, with the voucher
// result it will redeem.
type pendingLine struct {
	item    model.LineItem
	voucher *pricing.VoucherResult
}

// CreateBooking reserves a unit for a stay. The unit row is locked while its
// availability is counted so two concurrent bookings cannot both take the
// last unit. Every voucher use is validated before any is redeemed, with uses
// already claimed in this transaction counted against the limits.
func (s *Service) CreateBooking(ctx context.Context, sess model.Session, in CreateInput) (Outcome, error) {
	checkIn, checkOut, err := parseStay(in.CheckIn, in.CheckOut)
	if err != nil {
		return Outcome{}, err
	}
	if in.UnitID == 0 {
		return Outcome{}, validationf("unit_id is required")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return Outcome{}, validationf("quantity must be positive")
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return Outcome{}, validationf("customer_name is required")
	}
	for _, p := range in.Parameters {
		if p.ParameterID == 0 || p.Quantity <= 0 {
			return Outcome{}, validationf("parameters need a parameter_id and a positive quantity")
		}
	}
	for _, m := range in.Menu {
		if err := validateMenuInput(m); err != nil {
			return Outcome{}, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Outcome{}, classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	unit, err := s.catalog.LockUnitTx(ctx, tx, in.UnitID)
	if err != nil {
		return Outcome{}, classify(err)
	}
	if !unit.IsActive {
		return Outcome{}, validationf("unit %d is not bookable", unit.ID)
	}
	if !sess.CanAccessZone(unit.ZoneID) {
		return Outcome{}, classify(repository.ErrForbidden)
	}
	zone, err := s.catalog.GetZone(ctx, tx, unit.ZoneID)
	if err != nil {
		return Outcome{}, classify(err)
	}
	avail, err := s.checker.CheckExcluding(ctx, tx, unit.ID, checkIn, checkOut, 0)
	if err != nil {
		return Outcome{}, classify(err)
	}
	if !avail.Unlimited && avail.AvailableQuantity < in.Quantity {
		return Outcome{}, conflictf("unit %d has %d left for %s..%s, %d requested",
			unit.ID, avail.AvailableQuantity, in.CheckIn, in.CheckOut, in.Quantity)
	}

	now := s.now().UTC()
	ciStr, coStr := model.FormatDate(checkIn), model.FormatDate(checkOut)
	unitID := unit.ID
	reserved := map[string]int{}
	var lines []pendingLine

	stay := model.LineItem{Kind: model.ItemAccommodation, UnitID: &unitID, RefID: &unitID, Name: unit.Name,
		Quantity: in.Quantity, UnitPrice: unit.NightlyPrice, TaxRate: unit.TaxRate, CheckIn: &ciStr, CheckOut: &coStr, CreatedAt: now}
	line, err := s.priceLine(ctx, tx, stay, in.VoucherCode, unit.ZoneID, unit.ID, checkIn, reserved)
	if err != nil {
		return Outcome{}, classify(err)
	}
	lines = append(lines, line)

	for _, p := range in.Parameters {
		param, err := s.catalog.GetParameter(ctx, tx, unit.ID, p.ParameterID)
		if err != nil {
			return Outcome{}, classify(err)
		}
		ref := param.ID
		lines = append(lines, pendingLine{item: model.LineItem{Kind: model.ItemParameter, UnitID: &unitID, RefID: &ref,
			Name: param.Name, Quantity: p.Quantity, UnitPrice: param.PricePerNight, TaxRate: param.TaxRate,
			CheckIn: &ciStr, CheckOut: &coStr, CreatedAt: now}})
	}
	for _, m := range in.Menu {
		item, err := s.menuLine(ctx, tx, unit.ZoneID, m, now)
		if err != nil {
			return Outcome{}, classify(err)
		}
		line, err := s.priceLine(ctx, tx, item, m.VoucherCode, unit.ZoneID, m.ProductID, checkIn, reserved)
		if err != nil {
			return Outcome{}, classify(err)
		}
		lines = append(lines, line)
	}

	expires := now.Add(s.window)
	currency := zone.Currency
	if currency == "" {
		currency = s.currency
	}
	b := &model.Booking{
		Code:               newBookingCode(),
		ZoneID:             unit.ZoneID,
		CustomerName:       strings.TrimSpace(in.CustomerName),
		CustomerEmail:      strings.TrimSpace(in.CustomerEmail),
		Status:             model.BookingPending,
		PaymentStatus:      model.PaymentPending,
		TaxInvoiceRequired: in.TaxInvoiceRequired,
		Currency:           currency,
		PaymentExpiresAt:   &expires,
		CreatedBy:          sess.UserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
		return Outcome{}, classify(err)
	}
	if err := s.history.RecordTx(ctx, tx, &model.StatusChange{BookingID: b.ID, Field: "status",
		ToValue: string(model.BookingPending), ActorID: sess.UserID, Note: "created", CreatedAt: now}); err != nil {
		return Outcome{}, classify(err)
	}
	for i := range lines {
		if err := s.insertLine(ctx, tx, b.ID, &lines[i]); err != nil {
			return Outcome{}, classify(err)
		}
	}
	firstItem := lines[0].item.ID

	out := Outcome{BookingID: b.ID, BookingCode: b.Code, ItemID: firstItem, Changed: true}
	st := &txState{events: []string{queue.EventBookingCreated}}
	if err := s.finish(ctx, tx, sess, b, &out, st); err != nil {
		return Outcome{}, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return Outcome{}, classify(err)
	}
	s.publish(b, out, sess.UserID, st.events)
	return out, nil
}

func validateMenuInput(m MenuInput) error {
	if m.ProductID == 0 || m.Quantity <= 0 {
		return validationf("menu items need a product_id and a positive quantity")
	}
	if m.ServingDate != "" {
		if _, err := time.Parse(model.DateLayout, m.ServingDate); err != nil {
			return validationf("serving_date must be a date in YYYY-MM-DD form")
		}
	}
	return nil
}

// menuLine builds an unpriced menu line item for a product of zoneID.
func (s *Service) menuLine(ctx context.Context, tx *sqlx.Tx, zoneID uint64, m MenuInput, now time.Time) (model.LineItem, error) {
	p, err := s.catalog.GetMenuProduct(ctx, tx, m.ProductID)
	if err != nil {
		return model.LineItem{}, err
	}
	if !p.IsActive {
		return model.LineItem{}, validationf("menu product %d is not available", p.ID)
	}
	if p.ZoneID != zoneID {
		return model.LineItem{}, validationf("menu product %d belongs to another zone", p.ID)
	}
	ref := p.ID
	li := model.LineItem{Kind: model.ItemMenu, RefID: &ref, Name: p.Name, Quantity: m.Quantity,
		UnitPrice: p.Price, TaxRate: p.TaxRate, CreatedAt: now}
	if m.ServingDate != "" {
		d := m.ServingDate
		li.ServingDate = &d
	}
	return li, nil
}

// priceLine validates code against li and attaches the discount terms. A
// rejected voucher fails the whole operation with the voucher's reason.
func (s *Service) priceLine(ctx context.Context, tx *sqlx.Tx, li model.LineItem, code string, zoneID, itemID uint64,
	checkIn time.Time, reserved map[string]int) (pendingLine, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return pendingLine{item: li}, nil
	}
	key := strings.ToUpper(code)
	res, err := s.vouchers.Validate(ctx, tx, code, pricing.VoucherContext{
		ZoneID:       zoneID,
		ItemID:       itemID,
		Kind:         li.Kind,
		Charge:       li.Amount(),
		CheckIn:      checkIn,
		ReservedInTx: reserved[key],
	})
	if err != nil {
		return pendingLine{}, err
	}
	if !res.Valid {
		return pendingLine{}, &Error{Kind: KindConflict, Message: "voucher " + code + ": " + res.Reason}
	}
	reserved[key]++
	dt := res.DiscountType
	dv := res.DiscountValue
	vid := res.VoucherID
	li.DiscountType = &dt
	li.DiscountValue = &dv
	li.DiscountAmount = res.DiscountAmount
	li.VoucherID = &vid
	return pendingLine{item: li, voucher: &res}, nil
}

// insertLine stores a priced line and redeems its voucher. The new item ID is
// written back into l.
func (s *Service) insertLine(ctx context.Context, tx *sqlx.Tx, bookingID uint64, l *pendingLine) error {
	l.item.BookingID = bookingID
	if err := s.items.CreateTx(ctx, tx, &l.item); err != nil {
		return err
	}
	if l.voucher != nil {
		return s.vouchers.Redeem(ctx, tx, *l.voucher, bookingID, l.item.ID)
	}
	return nil
}

// AddMenuProduct orders a menu product on an existing booking.
func (s *Service) AddMenuProduct(ctx context.Context, sess model.Session, bookingID uint64, in MenuInput) (Outcome, error) {
	if err := validateMenuInput(in); err != nil {
		return Outcome{}, err
	}
	return s.mutate(ctx, sess, bookingID, mutation{
		event:             queue.EventBookingUpdated,
		requireModifiable: true,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			now := s.now().UTC()
			li, err := s.menuLine(ctx, tx, b.ZoneID, in, now)
			if err != nil {
				return err
			}
			items, err := s.items.ListByBooking(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			checkIn, _, _ := stayOf(items)
			line, err := s.priceLine(ctx, tx, li, in.VoucherCode, b.ZoneID, in.ProductID, checkIn, map[string]int{})
			if err != nil {
				return err
			}
			if err := s.insertLine(ctx, tx, b.ID, &line); err != nil {
				return err
			}
			st.itemID = line.item.ID
			return nil
		},
	})
}

// RemoveMenuProduct deletes a menu line item and gives back its voucher use.
func (s *Service) RemoveMenuProduct(ctx context.Context, sess model.Session, bookingID, itemID uint64) (Outcome, error) {
	if itemID == 0 {
		return Outcome{}, validationf("item id is required")
	}
	return s.mutate(ctx, sess, bookingID, mutation{
		event:             queue.EventBookingUpdated,
		requireModifiable: true,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			li, err := s.items.GetTx(ctx, tx, b.ID, itemID)
			if err != nil {
				return err
			}
			if li.Kind != model.ItemMenu {
				return validationf("item %d is not a menu product", itemID)
			}
			if err := s.vouchers.Release(ctx, tx, *li); err != nil {
				return err
			}
			st.itemID = li.ID
			return s.items.DeleteTx(ctx, tx, li.ID)
		},
	})
}

// SetTaxInvoice switches per-item tax on or off. Cancelled bookings keep
// their last totals.
func (s *Service) SetTaxInvoice(ctx context.Context, sess model.Session, bookingID uint64, required bool) (Outcome, error) {
	return s.mutate(ctx, sess, bookingID, mutation{
		event: queue.EventBookingUpdated,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			if b.Status == model.BookingCancelled {
				return conflictf("booking is cancelled")
			}
			if b.TaxInvoiceRequired == required {
				st.unchanged = true
				return nil
			}
			b.TaxInvoiceRequired = required
			return s.bookings.SetTaxInvoiceTx(ctx, tx, b.ID, required, s.now().UTC())
		},
	})
}

// ChangeStayDates moves every stay line of a booking to a new window after
// re-checking each unit with the booking's own reservations excluded.
func (s *Service) ChangeStayDates(ctx context.Context, sess model.Session, bookingID uint64, checkIn, checkOut string) (Outcome, error) {
	in, out, err := parseStay(checkIn, checkOut)
	if err != nil {
		return Outcome{}, err
	}
	return s.mutate(ctx, sess, bookingID, mutation{
		event:             queue.EventBookingUpdated,
		requireModifiable: true,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			items, err := s.items.ListByBooking(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			need := map[uint64]int{}
			var order []uint64
			for _, li := range items {
				if li.Kind != model.ItemAccommodation || li.UnitID == nil {
					continue
				}
				if _, ok := need[*li.UnitID]; !ok {
					order = append(order, *li.UnitID)
				}
				need[*li.UnitID] += li.Quantity
			}
			if len(order) == 0 {
				return validationf("booking has no stay to move")
			}
			for _, unitID := range order {
				if _, err := s.catalog.LockUnitTx(ctx, tx, unitID); err != nil {
					return err
				}
				res, err := s.checker.CheckExcluding(ctx, tx, unitID, in, out, b.ID)
				if err != nil {
					return err
				}
				if !res.Unlimited && res.AvailableQuantity < need[unitID] {
					return conflictf("unit %d is not available for %s..%s", unitID, model.FormatDate(in), model.FormatDate(out))
				}
			}
			if err := s.recheckVouchers(ctx, tx, b, items, in, out); err != nil {
				return err
			}
			_, err = s.items.UpdateStayTx(ctx, tx, b.ID, model.FormatDate(in), model.FormatDate(out))
			return err
		},
	})
}

// recheckVouchers re-evaluates every discounted line against the new stay.
// Weekly-day rules follow the new check-in and percentage discounts follow
// the new number of nights. A voucher that no longer applies rejects the
// change with its reason.
func (s *Service) recheckVouchers(ctx context.Context, tx *sqlx.Tx, b *model.Booking, items []model.LineItem, in, out time.Time) error {
	held := map[uint64]int{}
	for _, li := range items {
		if li.VoucherID != nil {
			held[*li.VoucherID]++
		}
	}
	ciStr, coStr := model.FormatDate(in), model.FormatDate(out)
	seen := map[uint64]int{}
	for _, li := range items {
		if li.VoucherID == nil {
			continue
		}
		if li.Kind == model.ItemAccommodation || li.Kind == model.ItemParameter {
			li.CheckIn, li.CheckOut = &ciStr, &coStr
		}
		var ref uint64
		if li.RefID != nil {
			ref = *li.RefID
		}
		vid := *li.VoucherID
		res, err := s.vouchers.Recheck(ctx, tx, li, pricing.VoucherContext{
			ZoneID:       b.ZoneID,
			ItemID:       ref,
			Kind:         li.Kind,
			Charge:       li.Amount(),
			CheckIn:      in,
			ReservedInTx: seen[vid],
			HeldUses:     held[vid],
		})
		if err != nil {
			return err
		}
		if !res.Valid {
			return conflictf("voucher on %s no longer applies for %s..%s: %s", li.Name, ciStr, coStr, res.Reason)
		}
		seen[vid]++
	}
	return nil
}

// PaymentInput records money received.
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
}

// RecordPayment stores a completed payment. Payments are refused once the
// first-payment window has lapsed or a refund is under way.
func (s *Service) RecordPayment(ctx context.Context, sess model.Session, bookingID uint64, in PaymentInput) (Outcome, error) {
	if !in.Amount.IsPositive() {
		return Outcome{}, validationf("amount must be positive")
	}
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if !model.PaymentMethods[method] {
		return Outcome{}, validationf("unsupported payment method %q", in.Method)
	}
	return s.mutate(ctx, sess, bookingID, mutation{
		event:             queue.EventPaymentRecorded,
		requireModifiable: true,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			now := s.now().UTC()
			switch b.PaymentStatus {
			case model.PaymentPending, model.PaymentDepositPaid, model.PaymentFullyPaid:
			default:
				return conflictf("payments cannot be recorded while payment status is %s", b.PaymentStatus)
			}
			if b.PaymentExpired(now) {
				return conflictf("payment window expired at %s", b.PaymentExpiresAt.UTC().Format(time.RFC3339))
			}
			p := &model.Payment{BookingID: b.ID, Amount: in.Amount, Method: method, Status: model.PaymentRecordCompleted,
				Reference: strings.TrimSpace(in.Reference), CreatedBy: sess.UserID, CreatedAt: now, UpdatedAt: now}
			if err := s.payments.CreateTx(ctx, tx, p); err != nil {
				return err
			}
			st.paymentID = p.ID
			return nil
		},
	})
}

// DeletePayment removes a payment from the balance. While the booking is
// still pending the row is deleted; afterwards it is only marked deleted.
func (s *Service) DeletePayment(ctx context.Context, sess model.Session, bookingID, paymentID uint64) (Outcome, error) {
	if paymentID == 0 {
		return Outcome{}, validationf("payment id is required")
	}
	return s.mutate(ctx, sess, bookingID, mutation{
		event:             queue.EventBookingUpdated,
		requireModifiable: true,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			p, err := s.payments.GetTx(ctx, tx, b.ID, paymentID)
			if err != nil {
				return err
			}
			if p.Status == model.PaymentRecordDeleted {
				return conflictf("payment %d is already deleted", p.ID)
			}
			st.paymentID = p.ID
			if b.Status == model.BookingPending {
				return s.payments.DeleteTx(ctx, tx, p.ID)
			}
			return s.payments.SoftDeleteTx(ctx, tx, p.ID, s.now().UTC())
		},
	})
}

// UpdateStatus moves the booking through its lifecycle. Cancelling a booking
// that has received money opens a refund.
func (s *Service) UpdateStatus(ctx context.Context, sess model.Session, bookingID uint64, to model.BookingStatus, note string) (Outcome, error) {
	if !to.Valid() {
		return Outcome{}, validationf("unknown booking status %q", to)
	}
	return s.mutate(ctx, sess, bookingID, mutation{
		event: queue.EventStatusChanged,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			if err := s.setStatus(ctx, tx, sess, b, to, note); err != nil {
				return err
			}
			if to == model.BookingCancelled &&
				(b.PaymentStatus == model.PaymentDepositPaid || b.PaymentStatus == model.PaymentFullyPaid) {
				if err := s.setPaymentStatus(ctx, tx, sess, b, model.PaymentRefundPending, "booking cancelled"); err != nil {
					return err
				}
				st.emit(queue.EventPaymentStatusChanged)
			}
			return nil
		},
	})
}

// UpdatePaymentStatus applies a manual payment status change, such as
// resolving a pending refund.
func (s *Service) UpdatePaymentStatus(ctx context.Context, sess model.Session, bookingID uint64, to model.PaymentStatus, note string) (Outcome, error) {
	if !to.Valid() {
		return Outcome{}, validationf("unknown payment status %q", to)
	}
	return s.mutate(ctx, sess, bookingID, mutation{
		event: queue.EventPaymentStatusChanged,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			return s.setPaymentStatus(ctx, tx, sess, b, to, note)
		},
	})
}

// ReconcileExpiry marks a booking whose first-payment window has lapsed as
// expired and cancels it, freeing its units. It is a no-op for bookings that
// have not expired, so a batch job may call it repeatedly.
func (s *Service) ReconcileExpiry(ctx context.Context, sess model.Session, bookingID uint64) (Outcome, error) {
	return s.mutate(ctx, sess, bookingID, mutation{
		event: queue.EventPaymentStatusChanged,
		apply: func(ctx context.Context, tx *sqlx.Tx, b *model.Booking, st *txState) error {
			if !b.PaymentExpired(s.now()) {
				st.unchanged = true
				return nil
			}
			if err := s.setPaymentStatus(ctx, tx, sess, b, model.PaymentExpired, "payment window elapsed"); err != nil {
				return err
			}
			if b.Status == model.BookingPending {
				if err := s.setStatus(ctx, tx, sess, b, model.BookingCancelled, "payment window elapsed"); err != nil {
					return err
				}
				st.emit(queue.EventStatusChanged)
			}
			return nil
		},
	})
}

// Recalculate recomputes and stores a booking's totals without changing
// anything else.
func (s *Service) Recalculate(ctx context.Context, sess model.Session, bookingID uint64) (Outcome, error) {
	return s.mutate(ctx, sess, bookingID, mutation{
		apply: func(context.Context, *sqlx.Tx, *model.Booking, *txState) error { return nil },
	})
}

// View is a booking with everything attached to it.
type View struct {
	Booking        *model.Booking       `json:"booking"`
	Items          []model.LineItem     `json:"items"`
	Payments       []model.Payment      `json:"payments"`
	History        []model.StatusChange `json:"history"`
	PaymentExpired bool                 `json:"payment_expired"`
}

// GetBooking loads a booking for display. Payment expiry is evaluated here
// against the current time; nothing is written.
func (s *Service) GetBooking(ctx context.Context, sess model.Session, bookingID uint64) (View, error) {
	b, err := s.bookings.GetByID(ctx, s.db, bookingID)
	if err != nil {
		return View{}, classify(err)
	}
	if !sess.CanAccessZone(b.ZoneID) {
		return View{}, classify(repository.ErrForbidden)
	}
	items, err := s.items.ListByBooking(ctx, s.db, b.ID)
	if err != nil {
		return View{}, classify(err)
	}
	payments, err := s.payments.ListByBooking(ctx, s.db, b.ID)
	if err != nil {
		return View{}, classify(err)
	}
	history, err := s.history.ListByBooking(ctx, s.db, b.ID)
	if err != nil {
		return View{}, classify(err)
	}
	return View{Booking: b, Items: items, Payments: payments, History: history, PaymentExpired: b.PaymentExpired(s.now())}, nil
}

// PreviewVoucher validates a code against a charge without redeeming it. The
// voucher row is locked only for the duration of the check.
func (s *Service) PreviewVoucher(ctx context.Context, code string, vc pricing.VoucherContext) (pricing.VoucherResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return pricing.VoucherResult{}, classify(err)
	}
	defer func() { _ = tx.Rollback() }()
	res, err := s.vouchers.Validate(ctx, tx, code, vc)
	if err != nil {
		return pricing.VoucherResult{}, classify(err)
	}
	return res, nil
}

// CheckAvailability wraps the checker so callers get classified errors.
func (s *Service) CheckAvailability(ctx context.Context, unitID uint64, checkIn, checkOut string) (availability.Result, error) {
	in, out, err := parseStay(checkIn, checkOut)
	if err != nil {
		return availability.Result{}, err
	}
	res, err := s.checker.Check(ctx, unitID, in, out)
	if err != nil {
		return availability.Result{}, classify(err)
	}
	return res, nil
}

// maxCalendarDays bounds a calendar request.
const maxCalendarDays = 366

// CheckAvailabilityBatch checks several units for the same stay. Units that
// do not exist or fail to load are marked on their own result.
func (s *Service) CheckAvailabilityBatch(ctx context.Context, unitIDs []uint64, checkIn, checkOut string) ([]availability.Result, error) {
	in, out, err := parseStay(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if len(unitIDs) == 0 {
		return nil, validationf("unit_ids is required")
	}
	res, err := s.checker.CheckBatch(ctx, unitIDs, in, out)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// Calendar returns per-night availability of a unit for [from, to).
func (s *Service) Calendar(ctx context.Context, unitID uint64, from, to string) ([]availability.Day, error) {
	in, out, err := parseStay(from, to)
	if err != nil {
		return nil, err
	}
	if out.Sub(in) > maxCalendarDays*24*time.Hour {
		return nil, validationf("calendar range is limited to %d days", maxCalendarDays)
	}
	days, err := s.checker.Calendar(ctx, unitID, in, out)
	if err != nil {
		return nil, classify(err)
	}
	return days, nil
}
