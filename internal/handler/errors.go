package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/GHtech935/glampinghub/internal/booking"
	"github.com/GHtech935/glampinghub/internal/middleware"
	"github.com/GHtech935/glampinghub/internal/model"
)

// statusByKind maps booking error kinds to HTTP status codes.
var statusByKind = map[booking.Kind]int{
	booking.KindValidation: http.StatusBadRequest,
	booking.KindNotFound:   http.StatusNotFound,
	booking.KindForbidden:  http.StatusForbidden,
	booking.KindConflict:   http.StatusConflict,
	booking.KindRetryable:  http.StatusServiceUnavailable,
	booking.KindInternal:   http.StatusInternalServerError,
}

// errorBody is the shape of every error response.
func errorBody(code, msg string) echo.Map {
	return echo.Map{"error": echo.Map{"code": code, "message": msg}}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody(string(booking.KindValidation), msg))
}

// writeError renders a service error. Internal causes are never shown.
func writeError(c echo.Context, err error) error {
	var be *booking.Error
	if !errors.As(err, &be) {
		c.Logger().Errorf("unclassified error: %v", err)
		return c.JSON(http.StatusInternalServerError, errorBody(string(booking.KindInternal), "internal error"))
	}
	status, ok := statusByKind[be.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if be.Kind == booking.KindRetryable {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, errorBody(string(be.Kind), be.Message))
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// session returns the caller stored by the JWT middleware.
func session(c echo.Context) (model.Session, bool) {
	return middleware.SessionFrom(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing session"))
}
