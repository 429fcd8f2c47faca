package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/booking"
	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/pricing"
)

// AvailabilityHandler serves the read-only availability and voucher preview
// endpoints.
type AvailabilityHandler struct {
	Svc *booking.Service
}

// NewAvailabilityHandler panics when svc is nil.
func NewAvailabilityHandler(svc *booking.Service) *AvailabilityHandler {
	if svc == nil {
		panic("nil service passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Svc: svc}
}

// Check handles GET /v1/units/:id/availability?check_in&check_out.
func (h *AvailabilityHandler) Check(c echo.Context) error {
	unitID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid unit id")
	}
	res, err := h.Svc.CheckAvailability(c.Request().Context(), unitID, c.QueryParam("check_in"), c.QueryParam("check_out"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Calendar handles GET /v1/units/:id/calendar?from&to.
func (h *AvailabilityHandler) Calendar(c echo.Context) error {
	unitID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid unit id")
	}
	days, err := h.Svc.Calendar(c.Request().Context(), unitID, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unit_id": unitID, "days": days})
}

type batchRequest struct {
	UnitIDs  []uint64 `json:"unit_ids"`
	CheckIn  string   `json:"check_in"`
	CheckOut string   `json:"check_out"`
}

// Batch handles POST /v1/availability/batch. Each unit gets its own result;
// an unknown unit does not fail the others.
func (h *AvailabilityHandler) Batch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Svc.CheckAvailabilityBatch(c.Request().Context(), req.UnitIDs, req.CheckIn, req.CheckOut)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"results": res})
}

type voucherPreviewRequest struct {
	Code    string          `json:"code"`
	ZoneID  uint64          `json:"zone_id"`
	ItemID  uint64          `json:"item_id"`
	Kind    string          `json:"kind"`
	Amount  decimal.Decimal `json:"amount"`
	CheckIn string          `json:"check_in"`
}

// PreviewVoucher handles POST /v1/vouchers/validate. Nothing is redeemed.
func (h *AvailabilityHandler) PreviewVoucher(c echo.Context) error {
	var req voucherPreviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	vc := pricing.VoucherContext{
		ZoneID: req.ZoneID,
		ItemID: req.ItemID,
		Kind:   model.ItemKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Charge: req.Amount,
	}
	if req.CheckIn != "" {
		d, err := model.ParseDate(req.CheckIn)
		if err != nil {
			return badRequest(c, "check_in must be a date in YYYY-MM-DD form")
		}
		vc.CheckIn = d
	}
	res, err := h.Svc.PreviewVoucher(c.Request().Context(), req.Code, vc)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
