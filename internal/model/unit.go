package model

import "github.com/shopspring/decimal"

// Zone is a glamping site. It carries the deposit rule and the bank account
// shown in payment instructions.
type Zone struct {
	ID                uint64          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	DepositType       string          `db:"deposit_type" json:"deposit_type"`
	DepositValue      decimal.Decimal `db:"deposit_value" json:"deposit_value"`
	BankName          string          `db:"bank_name" json:"bank_name"`
	BankAccountNumber string          `db:"bank_account_number" json:"bank_account_number"`
	BankAccountName   string          `db:"bank_account_name" json:"bank_account_name"`
	Currency          string          `db:"currency" json:"currency"`
}

// Unit is a bookable accommodation item (a tent, a cabin) with its own
// inventory count. The booking engine never writes it.
type Unit struct {
	ID                 uint64           `db:"id" json:"id"`
	ZoneID             uint64           `db:"zone_id" json:"zone_id"`
	Name               string           `db:"name" json:"name"`
	NightlyPrice       decimal.Decimal  `db:"nightly_price" json:"nightly_price"`
	TaxRate            *decimal.Decimal `db:"tax_rate" json:"tax_rate,omitempty"`
	InventoryQuantity  int              `db:"inventory_quantity" json:"inventory_quantity"`
	UnlimitedInventory bool             `db:"unlimited_inventory" json:"unlimited_inventory"`
	IsActive           bool             `db:"is_active" json:"is_active"`
}

// UnitParameter is a per-night surcharge attached to a unit, such as an extra
// adult or a pet.
type UnitParameter struct {
	ID            uint64           `db:"id" json:"id"`
	UnitID        uint64           `db:"unit_id" json:"unit_id"`
	Name          string           `db:"name" json:"name"`
	PricePerNight decimal.Decimal  `db:"price_per_night" json:"price_per_night"`
	TaxRate       *decimal.Decimal `db:"tax_rate" json:"tax_rate,omitempty"`
}

// MenuProduct is food or an extra that can be added to a booking.
type MenuProduct struct {
	ID       uint64           `db:"id" json:"id"`
	ZoneID   uint64           `db:"zone_id" json:"zone_id"`
	Name     string           `db:"name" json:"name"`
	Price    decimal.Decimal  `db:"price" json:"price"`
	TaxRate  *decimal.Decimal `db:"tax_rate" json:"tax_rate,omitempty"`
	IsActive bool             `db:"is_active" json:"is_active"`
}
