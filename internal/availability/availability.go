// Package availability derives free capacity of units from the reservations
// stored against them. Remaining inventory is never stored; it is counted on
// every request.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/repository"
)

// Unlimited is the AvailableQuantity reported for units without an
// inventory cap.
const Unlimited = -1

// ErrInvalidRange is returned when check-out is not after check-in.
var ErrInvalidRange = errors.New("check_out must be after check_in")

// Result is the availability of one unit for one date range. In batch mode
// NotFound and Error mark units that could not be checked.
type Result struct {
	UnitID            uint64 `json:"unit_id"`
	Available         bool   `json:"available"`
	AvailableQuantity int    `json:"available_quantity"`
	ConflictCount     int    `json:"conflict_count"`
	Unlimited         bool   `json:"unlimited,omitempty"`
	NotFound          bool   `json:"not_found,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Day is one calendar cell.
type Day struct {
	Date              string `json:"date"`
	Available         bool   `json:"available"`
	AvailableQuantity int    `json:"available_quantity"`
	Booked            int    `json:"booked"`
}

// Checker answers availability questions.
type Checker struct {
	db      *sqlx.DB
	catalog *repository.CatalogRepo
	items   *repository.ItemRepo
}

// NewChecker returns a Checker reading through db.
func NewChecker(db *sqlx.DB, catalog *repository.CatalogRepo, items *repository.ItemRepo) *Checker {
	return &Checker{db: db, catalog: catalog, items: items}
}

// Check reports whether unitID has capacity left for [checkIn, checkOut).
func (c *Checker) Check(ctx context.Context, unitID uint64, checkIn, checkOut time.Time) (Result, error) {
	return c.CheckExcluding(ctx, c.db, unitID, checkIn, checkOut, 0)
}

// CheckExcluding is Check run through q, ignoring the reservations of one
// booking. The booking engine uses it inside its own transaction when it
// moves a booking's dates, so the booking does not conflict with itself.
func (c *Checker) CheckExcluding(ctx context.Context, q sqlx.ExtContext, unitID uint64, checkIn, checkOut time.Time, excludeBookingID uint64) (Result, error) {
	if !checkOut.After(checkIn) {
		return Result{}, ErrInvalidRange
	}
	unit, err := c.catalog.GetUnit(ctx, q, unitID)
	if err != nil {
		return Result{}, err
	}
	stays, err := c.items.ListStays(ctx, q, []uint64{unitID}, model.FormatDate(checkIn), model.FormatDate(checkOut), excludeBookingID)
	if err != nil {
		return Result{}, fmt.Errorf("list stays: %w", err)
	}
	return evaluate(*unit, stays, checkIn, checkOut), nil
}

// CheckBatch checks several units for the same range. A unit that does not
// exist or fails to load gets its own marker; the batch itself only fails on
// an invalid range.
func (c *Checker) CheckBatch(ctx context.Context, unitIDs []uint64, checkIn, checkOut time.Time) ([]Result, error) {
	if !checkOut.After(checkIn) {
		return nil, ErrInvalidRange
	}
	out := make([]Result, 0, len(unitIDs))
	units, err := c.catalog.ListUnits(ctx, c.db, unitIDs)
	if err != nil {
		log.Printf("availability: batch unit lookup failed: %v", err)
		for _, id := range unitIDs {
			out = append(out, Result{UnitID: id, Error: "lookup failed"})
		}
		return out, nil
	}
	for _, id := range unitIDs {
		unit, ok := units[id]
		if !ok {
			out = append(out, Result{UnitID: id, NotFound: true, Error: repository.ErrUnitNotFound.Error()})
			continue
		}
		stays, err := c.items.ListStays(ctx, c.db, []uint64{id}, model.FormatDate(checkIn), model.FormatDate(checkOut), 0)
		if err != nil {
			log.Printf("availability: unit %d: %v", id, err)
			out = append(out, Result{UnitID: id, Error: "availability check failed"})
			continue
		}
		out = append(out, evaluate(unit, stays, checkIn, checkOut))
	}
	return out, nil
}

// Calendar reports remaining quantity for each night in [from, to). Each day
// is tested on its own, so a reservation ending mid-range frees the later
// days.
func (c *Checker) Calendar(ctx context.Context, unitID uint64, from, to time.Time) ([]Day, error) {
	if !to.After(from) {
		return nil, ErrInvalidRange
	}
	unit, err := c.catalog.GetUnit(ctx, c.db, unitID)
	if err != nil {
		return nil, err
	}
	stays, err := c.items.ListStays(ctx, c.db, []uint64{unitID}, model.FormatDate(from), model.FormatDate(to), 0)
	if err != nil {
		return nil, fmt.Errorf("list stays: %w", err)
	}
	return calendar(*unit, stays, from, to), nil
}

func evaluate(unit model.Unit, stays []repository.StayRecord, checkIn, checkOut time.Time) Result {
	res := Result{UnitID: unit.ID}
	if unit.UnlimitedInventory {
		res.Available = true
		res.AvailableQuantity = Unlimited
		res.Unlimited = true
		return res
	}
	res.ConflictCount = conflicts(stays, checkIn, checkOut)
	res.AvailableQuantity = unit.InventoryQuantity - res.ConflictCount
	if res.AvailableQuantity < 0 {
		res.AvailableQuantity = 0
	}
	res.Available = res.AvailableQuantity > 0
	return res
}

func calendar(unit model.Unit, stays []repository.StayRecord, from, to time.Time) []Day {
	var days []Day
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		next := d.AddDate(0, 0, 1)
		day := Day{Date: model.FormatDate(d)}
		if unit.UnlimitedInventory {
			day.Available = true
			day.AvailableQuantity = Unlimited
		} else {
			day.Booked = conflicts(stays, d, next)
			day.AvailableQuantity = unit.InventoryQuantity - day.Booked
			if day.AvailableQuantity < 0 {
				day.AvailableQuantity = 0
			}
			day.Available = day.AvailableQuantity > 0
		}
		days = append(days, day)
	}
	return days
}

// conflicts sums the quantity of every stay intersecting [from, to) using the
// half-open test in.Before(to) && out.After(from).
func conflicts(stays []repository.StayRecord, from, to time.Time) int {
	n := 0
	for _, s := range stays {
		in, out, ok := skipMalformedStay(s)
		if !ok {
			continue
		}
		if in.Before(to) && out.After(from) {
			n += s.Quantity
		}
	}
	return n
}

// skipMalformedStay parses a stored reservation window. Rows with a missing or
// unreadable date, or with check-out not after check-in, are logged and
// treated as non-conflicting rather than failing the whole check.
func skipMalformedStay(s repository.StayRecord) (in, out time.Time, ok bool) {
	if !s.CheckIn.Valid || !s.CheckOut.Valid {
		log.Printf("availability: skip booking %d unit %d: missing stay dates", s.BookingID, s.UnitID)
		return time.Time{}, time.Time{}, false
	}
	in, err1 := model.ParseDate(s.CheckIn.String)
	out, err2 := model.ParseDate(s.CheckOut.String)
	if err1 != nil || err2 != nil || in.IsZero() || !out.After(in) {
		log.Printf("availability: skip booking %d unit %d: malformed stay %q..%q", s.BookingID, s.UnitID, s.CheckIn.String, s.CheckOut.String)
		return time.Time{}, time.Time{}, false
	}
	return in, out, true
}
