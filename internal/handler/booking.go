package handler

// Booking endpoints. Every mutation answers with the totals just written by
// the service, so clients never re-fetch after a change.

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/GHtech935/glampinghub/internal/booking"
	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/paymentinfo"
	"github.com/GHtech935/glampinghub/internal/repository"
)

// BookingHandler exposes booking.Service over HTTP.
type BookingHandler struct {
	Svc      *booking.Service
	Payments *paymentinfo.Provider
}

// NewBookingHandler panics if a dependency is missing.
func NewBookingHandler(svc *booking.Service, payments *paymentinfo.Provider) *BookingHandler {
	if svc == nil || payments == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, Payments: payments}
}

// outcome writes a mutation result or its error.
func outcome(c echo.Context, status int, out booking.Outcome, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, out)
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	var in booking.CreateInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Svc.CreateBooking(c.Request().Context(), sess, in)
	return outcome(c, http.StatusCreated, out, err)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	view, err := h.Svc.GetBooking(c.Request().Context(), sess, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// PaymentInfo handles GET /v1/bookings/:id/payment-info. The amount asked
// for is the deposit until it is paid, then the remaining balance.
func (h *BookingHandler) PaymentInfo(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx := c.Request().Context()
	view, err := h.Svc.GetBooking(ctx, sess, id)
	if err != nil {
		return writeError(c, err)
	}
	b := view.Booking
	amount := b.Totals.BalanceDue
	if b.PaymentStatus == model.PaymentPending {
		amount = b.Totals.DepositDue
	}
	info, err := h.Payments.Instructions(ctx, b.ZoneID, amount, b.Code)
	switch {
	case errors.Is(err, paymentinfo.ErrNoBankAccount):
		return c.JSON(http.StatusConflict, errorBody(string(booking.KindConflict), err.Error()))
	case errors.Is(err, repository.ErrZoneNotFound):
		return c.JSON(http.StatusNotFound, errorBody(string(booking.KindNotFound), err.Error()))
	case err != nil:
		c.Logger().Errorf("payment info for booking %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, errorBody(string(booking.KindInternal), "internal error"))
	}
	return c.JSON(http.StatusOK, echo.Map{"payment_expired": view.PaymentExpired, "instructions": info})
}

// AddMenuItem handles POST /v1/bookings/:id/menu-items.
func (h *BookingHandler) AddMenuItem(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var in booking.MenuInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Svc.AddMenuProduct(c.Request().Context(), sess, id, in)
	return outcome(c, http.StatusCreated, out, err)
}

// RemoveMenuItem handles DELETE /v1/bookings/:id/menu-items/:itemId.
func (h *BookingHandler) RemoveMenuItem(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return badRequest(c, "invalid item id")
	}
	out, err := h.Svc.RemoveMenuProduct(c.Request().Context(), sess, id, itemID)
	return outcome(c, http.StatusOK, out, err)
}

type taxInvoiceRequest struct {
	Required *bool `json:"tax_invoice_required"`
}

// SetTaxInvoice handles PUT /v1/bookings/:id/tax-invoice.
func (h *BookingHandler) SetTaxInvoice(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req taxInvoiceRequest
	if err := c.Bind(&req); err != nil || req.Required == nil {
		return badRequest(c, "tax_invoice_required must be true or false")
	}
	out, err := h.Svc.SetTaxInvoice(c.Request().Context(), sess, id, *req.Required)
	return outcome(c, http.StatusOK, out, err)
}

type stayDatesRequest struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// ChangeStayDates handles PUT /v1/bookings/:id/stay-dates.
func (h *BookingHandler) ChangeStayDates(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req stayDatesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Svc.ChangeStayDates(c.Request().Context(), sess, id, req.CheckIn, req.CheckOut)
	return outcome(c, http.StatusOK, out, err)
}

// RecordPayment handles POST /v1/bookings/:id/payments.
func (h *BookingHandler) RecordPayment(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var in booking.PaymentInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Svc.RecordPayment(c.Request().Context(), sess, id, in)
	return outcome(c, http.StatusCreated, out, err)
}

// DeletePayment handles DELETE /v1/bookings/:id/payments/:paymentId.
func (h *BookingHandler) DeletePayment(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	paymentID, ok := pathID(c, "paymentId")
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	out, err := h.Svc.DeletePayment(c.Request().Context(), sess, id, paymentID)
	return outcome(c, http.StatusOK, out, err)
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// UpdateStatus handles PUT /v1/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Svc.UpdateStatus(c.Request().Context(), sess, id, model.BookingStatus(req.Status), req.Note)
	return outcome(c, http.StatusOK, out, err)
}

// UpdatePaymentStatus handles PUT /v1/bookings/:id/payment-status.
func (h *BookingHandler) UpdatePaymentStatus(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Svc.UpdatePaymentStatus(c.Request().Context(), sess, id, model.PaymentStatus(req.Status), req.Note)
	return outcome(c, http.StatusOK, out, err)
}

// Recalculate handles POST /v1/bookings/:id/recalculate.
func (h *BookingHandler) Recalculate(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	out, err := h.Svc.Recalculate(c.Request().Context(), sess, id)
	return outcome(c, http.StatusOK, out, err)
}

// Expire handles POST /v1/bookings/:id/expire, called by the batch job that
// sweeps lapsed payment windows.
func (h *BookingHandler) Expire(c echo.Context) error {
	sess, ok := session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	out, err := h.Svc.ReconcileExpiry(c.Request().Context(), sess, id)
	return outcome(c, http.StatusOK, out, err)
}
