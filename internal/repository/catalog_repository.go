package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/GHtech935/glampinghub/internal/model"
)

const unitColumns = `id, zone_id, name, nightly_price, tax_rate, inventory_quantity, unlimited_inventory, is_active`

// CatalogRepo reads zones, units, unit parameters and menu products. The
// booking engine never writes these tables.
type CatalogRepo struct {
	db *sqlx.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// GetUnit loads a unit by ID.
func (r *CatalogRepo) GetUnit(ctx context.Context, q sqlx.ExtContext, id uint64) (*model.Unit, error) {
	var u model.Unit
	err := sqlx.GetContext(ctx, q, &u, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// LockUnitTx loads a unit and holds its row lock, so two bookings of the same
// unit check availability one after the other.
func (r *CatalogRepo) LockUnitTx(ctx context.Context, tx *sqlx.Tx, id uint64) (*model.Unit, error) {
	var u model.Unit
	err := tx.GetContext(ctx, &u, `SELECT `+unitColumns+` FROM units WHERE id = ?`+forUpdate(tx), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUnits loads the given units keyed by ID. Missing IDs are simply absent
// from the map.
func (r *CatalogRepo) ListUnits(ctx context.Context, q sqlx.ExtContext, ids []uint64) (map[uint64]model.Unit, error) {
	out := make(map[uint64]model.Unit, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var units []model.Unit
	if err := sqlx.SelectContext(ctx, q, &units, `SELECT `+unitColumns+` FROM units WHERE id IN (`+ph+`)`, args...); err != nil {
		return nil, err
	}
	for _, u := range units {
		out[u.ID] = u
	}
	return out, nil
}

// GetParameter loads a parameter of the given unit.
func (r *CatalogRepo) GetParameter(ctx context.Context, q sqlx.ExtContext, unitID, paramID uint64) (*model.UnitParameter, error) {
	var p model.UnitParameter
	err := sqlx.GetContext(ctx, q, &p,
		`SELECT id, unit_id, name, price_per_night, tax_rate FROM unit_parameters WHERE id = ? AND unit_id = ?`, paramID, unitID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrParamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMenuProduct loads a menu product.
func (r *CatalogRepo) GetMenuProduct(ctx context.Context, q sqlx.ExtContext, id uint64) (*model.MenuProduct, error) {
	var p model.MenuProduct
	err := sqlx.GetContext(ctx, q, &p,
		`SELECT id, zone_id, name, price, tax_rate, is_active FROM menu_products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetZone loads a zone with its deposit rule and bank account.
func (r *CatalogRepo) GetZone(ctx context.Context, q sqlx.ExtContext, id uint64) (*model.Zone, error) {
	var z model.Zone
	err := sqlx.GetContext(ctx, q, &z,
		`SELECT id, name, deposit_type, deposit_value, bank_name, bank_account_number, bank_account_name, currency
         FROM zones WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrZoneNotFound
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}
