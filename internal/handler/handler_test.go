package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/availability"
	"github.com/GHtech935/glampinghub/internal/booking"
	"github.com/GHtech935/glampinghub/internal/database/dbtest"
	"github.com/GHtech935/glampinghub/internal/middleware"
	"github.com/GHtech935/glampinghub/internal/paymentinfo"
	"github.com/GHtech935/glampinghub/internal/pricing"
	"github.com/GHtech935/glampinghub/internal/repository"
	"github.com/GHtech935/glampinghub/internal/utils"
)

const secret = "handler-secret"

type server struct {
	e *echo.Echo
	t *testing.T
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.Exec(t, db,
		`INSERT INTO zones (id, name, deposit_type, deposit_value, bank_name, bank_account_number, bank_account_name, currency)
         VALUES (1, 'Da Lat', 'percentage', 30, 'VCB', '0123456789', 'DA LAT GLAMPING', 'VND')`,
		`INSERT INTO zones (id, name, deposit_type, deposit_value) VALUES (2, 'Sa Pa', 'fixed', 500000)`,
		`INSERT INTO units (id, zone_id, name, nightly_price, tax_rate, inventory_quantity) VALUES (1, 1, 'Bell tent', 1000000, 10, 1)`,
		`INSERT INTO units (id, zone_id, name, nightly_price, inventory_quantity) VALUES (2, 2, 'Cabin', 800000, 3)`,
		`INSERT INTO vouchers (code, discount_type, discount_value, current_uses, max_uses, status, recurrence, application_type)
         VALUES ('SAVE10', 'percentage', 10, 0, 1, 'active', 'one_time', 'all')`,
	)
	svc := booking.NewService(db, booking.Options{PaymentWindow: time.Hour})
	ah := NewAvailabilityHandler(svc)
	bh := NewBookingHandler(svc, paymentinfo.NewProvider(db, repository.NewCatalogRepo(db)))

	e := echo.New()
	e.GET("/healthz", Health(db))
	e.GET("/v1/units/:id/availability", ah.Check)
	e.GET("/v1/units/:id/calendar", ah.Calendar)
	e.POST("/v1/availability/batch", ah.Batch)
	e.POST("/v1/vouchers/validate", ah.PreviewVoucher)
	g := e.Group("/v1/bookings", middleware.JWTAuth(secret), middleware.RequireRole("admin", "owner", "staff"))
	g.POST("", bh.Create)
	g.GET("/:id", bh.Get)
	g.GET("/:id/payment-info", bh.PaymentInfo)
	g.POST("/:id/payments", bh.RecordPayment)
	g.PUT("/:id/tax-invoice", bh.SetTaxInvoice)
	g.PUT("/:id/status", bh.UpdateStatus)
	g.POST("/:id/recalculate", bh.Recalculate)
	return &server{e: e, t: t}
}

func (s *server) token(zones []uint64) string {
	s.t.Helper()
	tok, err := utils.NewAccessToken(secret, 7, "staff", zones, time.Hour)
	if err != nil {
		s.t.Fatalf("sign: %v", err)
	}
	return tok.Token
}

func (s *server) do(method, target, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("got %d %s, want %d", rec.Code, rec.Body.String(), status)
	}
	var er errorResponse
	decode(t, rec, &er)
	if er.Error.Code != code || er.Error.Message == "" {
		t.Fatalf("got %+v, want code %s", er, code)
	}
}

func TestBookingFlowOverHTTP(t *testing.T) {
	s := newServer(t)
	tok := s.token(nil)

	rec := s.do(http.MethodPost, "/v1/bookings", tok, echo.Map{
		"unit_id": 1, "check_in": "2024-03-01", "check_out": "2024-03-03", "customer_name": "Nguyen An",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", rec.Code, rec.Body.String())
	}
	var out booking.Outcome
	decode(t, rec, &out)
	if !out.Success || out.BookingID == 0 || !out.Totals.Total.Equal(decimal.NewFromInt(2000000)) ||
		!out.Totals.DepositDue.Equal(decimal.NewFromInt(600000)) {
		t.Fatalf("create: got %+v", out)
	}
	path := "/v1/bookings/" + jsonID(out.BookingID)

	rec = s.do(http.MethodGet, path+"/payment-info", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("payment info: got %d %s", rec.Code, rec.Body.String())
	}
	var info struct {
		Instructions paymentinfo.Instructions `json:"instructions"`
	}
	decode(t, rec, &info)
	if !info.Instructions.Amount.Equal(decimal.NewFromInt(600000)) || info.Instructions.Reference != out.BookingCode {
		t.Fatalf("payment info: got %+v", info.Instructions)
	}

	rec = s.do(http.MethodPut, path+"/tax-invoice", tok, echo.Map{"tax_invoice_required": true})
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || !out.Totals.Tax.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("tax invoice: got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, path+"/payments", tok, echo.Map{"amount": "660000", "method": "bank_transfer"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: got %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &out)
	if out.PaymentStatus != "deposit_paid" || out.Status != "confirmed" || !out.Totals.BalanceDue.Equal(decimal.NewFromInt(1540000)) {
		t.Fatalf("payment: got %+v", out)
	}

	rec = s.do(http.MethodGet, path, tok, nil)
	var view booking.View
	decode(t, rec, &view)
	if rec.Code != http.StatusOK || len(view.Items) != 1 || len(view.Payments) != 1 || len(view.History) < 3 {
		t.Fatalf("get: got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPut, path+"/tax-invoice", tok, echo.Map{})
	wantError(t, rec, http.StatusBadRequest, "validation")
	rec = s.do(http.MethodPut, path+"/status", tok, echo.Map{"status": "pending"})
	wantError(t, rec, http.StatusConflict, "conflict")
}

func TestBookingErrorsOverHTTP(t *testing.T) {
	s := newServer(t)
	tok := s.token(nil)
	create := echo.Map{"unit_id": 1, "check_in": "2024-03-01", "check_out": "2024-03-03", "customer_name": "An"}

	if rec := s.do(http.MethodPost, "/v1/bookings", tok, create); rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", rec.Code, rec.Body.String())
	}
	wantError(t, s.do(http.MethodPost, "/v1/bookings", tok, create), http.StatusConflict, "conflict")
	wantError(t, s.do(http.MethodPost, "/v1/bookings", tok, echo.Map{"unit_id": 1, "check_in": "2024-03-03",
		"check_out": "2024-03-01", "customer_name": "An"}), http.StatusBadRequest, "validation")
	wantError(t, s.do(http.MethodGet, "/v1/bookings/999", tok, nil), http.StatusNotFound, "not_found")
	wantError(t, s.do(http.MethodGet, "/v1/bookings/abc", tok, nil), http.StatusBadRequest, "validation")
	wantError(t, s.do(http.MethodPost, "/v1/bookings/1/recalculate", s.token([]uint64{2}), nil), http.StatusForbidden, "forbidden")
	wantError(t, s.do(http.MethodGet, "/v1/bookings/1", "", nil), http.StatusUnauthorized, "unauthorized")

	// zone 2 has no bank account
	rec := s.do(http.MethodPost, "/v1/bookings", tok, echo.Map{"unit_id": 2, "check_in": "2024-03-01",
		"check_out": "2024-03-02", "customer_name": "Binh"})
	var out booking.Outcome
	decode(t, rec, &out)
	wantError(t, s.do(http.MethodGet, "/v1/bookings/"+jsonID(out.BookingID)+"/payment-info", tok, nil), http.StatusConflict, "conflict")
}

func TestAvailabilityOverHTTP(t *testing.T) {
	s := newServer(t)
	if rec := s.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: got %d", rec.Code)
	}
	s.do(http.MethodPost, "/v1/bookings", s.token(nil), echo.Map{"unit_id": 1, "check_in": "2024-03-01",
		"check_out": "2024-03-03", "customer_name": "An"})

	rec := s.do(http.MethodGet, "/v1/units/1/availability?check_in=2024-03-02&check_out=2024-03-04", "", nil)
	var res availability.Result
	decode(t, rec, &res)
	if rec.Code != http.StatusOK || res.Available || res.ConflictCount != 1 {
		t.Fatalf("check: got %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(http.MethodGet, "/v1/units/1/availability?check_in=2024-03-03&check_out=2024-03-04", "", nil)
	decode(t, rec, &res)
	if !res.Available {
		t.Fatalf("adjacent stay: got %s", rec.Body.String())
	}
	wantError(t, s.do(http.MethodGet, "/v1/units/1/availability?check_in=x&check_out=2024-03-04", "", nil),
		http.StatusBadRequest, "validation")
	wantError(t, s.do(http.MethodGet, "/v1/units/9/availability?check_in=2024-03-03&check_out=2024-03-04", "", nil),
		http.StatusNotFound, "not_found")

	rec = s.do(http.MethodGet, "/v1/units/1/calendar?from=2024-02-29&to=2024-03-04", "", nil)
	var cal struct {
		Days []availability.Day `json:"days"`
	}
	decode(t, rec, &cal)
	if len(cal.Days) != 4 || !cal.Days[0].Available || cal.Days[1].Available || !cal.Days[3].Available {
		t.Fatalf("calendar: got %s", rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/v1/availability/batch", "", echo.Map{"unit_ids": []uint64{1, 2, 5},
		"check_in": "2024-03-01", "check_out": "2024-03-02"})
	var batch struct {
		Results []availability.Result `json:"results"`
	}
	decode(t, rec, &batch)
	if len(batch.Results) != 3 || batch.Results[0].Available || !batch.Results[1].Available || !batch.Results[2].NotFound {
		t.Fatalf("batch: got %s", rec.Body.String())
	}
}

func TestPreviewVoucherDoesNotRedeem(t *testing.T) {
	s := newServer(t)
	req := echo.Map{"code": "save10", "zone_id": 1, "kind": "accommodation", "amount": "1000000"}
	for i := 0; i < 2; i++ {
		rec := s.do(http.MethodPost, "/v1/vouchers/validate", "", req)
		var res pricing.VoucherResult
		decode(t, rec, &res)
		if rec.Code != http.StatusOK || !res.Valid || !res.DiscountAmount.Equal(decimal.NewFromInt(100000)) {
			t.Fatalf("preview %d: got %d %s", i, rec.Code, rec.Body.String())
		}
	}
	rec := s.do(http.MethodPost, "/v1/vouchers/validate", "", echo.Map{"code": "NOPE", "kind": "menu", "amount": "10"})
	var res pricing.VoucherResult
	decode(t, rec, &res)
	if res.Valid || res.Code != pricing.ReasonNotFound {
		t.Fatalf("unknown code: got %s", rec.Body.String())
	}
	wantError(t, s.do(http.MethodPost, "/v1/vouchers/validate", "", echo.Map{"code": "SAVE10", "amount": "0"}),
		http.StatusBadRequest, "validation")
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = writeError(c, &booking.Error{Kind: booking.KindRetryable, Message: "booking is busy, retry the request"})
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("retryable: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = writeError(c, &booking.Error{Kind: booking.KindInternal, Message: "internal error", Err: errSecret})
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "dsn") {
		t.Fatalf("internal: got %d %s", rec.Code, rec.Body.String())
	}
}

var errSecret = errors.New("dial tcp: dsn=root:pw@tcp(db)")

func jsonID(id uint64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
