package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Column types that differ between MySQL and the SQLite database used by the
// tests. Everything else in the DDL is shared.
type dialect struct {
	pk          string
	money       string
	rate        string
	nocase      string
	ifNotExists string
	tableEnd    string
}

func dialectFor(driver string) dialect {
	if driver == "mysql" {
		return dialect{
			pk:       "BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY",
			money:    "DECIMAL(15,2)",
			rate:     "DECIMAL(5,2)",
			nocase:   "COLLATE utf8mb4_unicode_ci",
			tableEnd: " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		}
	}
	return dialect{
		pk:          "INTEGER PRIMARY KEY AUTOINCREMENT",
		money:       "NUMERIC",
		rate:        "NUMERIC",
		nocase:      "COLLATE NOCASE",
		ifNotExists: "IF NOT EXISTS ",
	}
}

// Schema returns the CREATE TABLE statements for the given driver name, in
// dependency order.
func Schema(driver string) []string {
	d := dialectFor(driver)
	r := strings.NewReplacer("{pk}", d.pk, "{money}", d.money, "{rate}", d.rate, "{nocase}", d.nocase,
		"{ifnotexists}", d.ifNotExists, "{end}", d.tableEnd)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS zones (
            id {pk},
            name VARCHAR(255) NOT NULL,
            deposit_type VARCHAR(16) NOT NULL DEFAULT 'percentage',
            deposit_value {money} NOT NULL DEFAULT 0,
            bank_name VARCHAR(255) NOT NULL DEFAULT '',
            bank_account_number VARCHAR(64) NOT NULL DEFAULT '',
            bank_account_name VARCHAR(255) NOT NULL DEFAULT '',
            currency VARCHAR(8) NOT NULL DEFAULT 'VND'
        ){end}`,
		`CREATE TABLE IF NOT EXISTS units (
            id {pk},
            zone_id BIGINT NOT NULL,
            name VARCHAR(255) NOT NULL,
            nightly_price {money} NOT NULL DEFAULT 0,
            tax_rate {rate} NULL,
            inventory_quantity INT NOT NULL DEFAULT 1,
            unlimited_inventory BOOLEAN NOT NULL DEFAULT FALSE,
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        ){end}`,
		`CREATE TABLE IF NOT EXISTS unit_parameters (
            id {pk},
            unit_id BIGINT NOT NULL,
            name VARCHAR(255) NOT NULL,
            price_per_night {money} NOT NULL DEFAULT 0,
            tax_rate {rate} NULL
        ){end}`,
		`CREATE TABLE IF NOT EXISTS menu_products (
            id {pk},
            zone_id BIGINT NOT NULL,
            name VARCHAR(255) NOT NULL,
            price {money} NOT NULL DEFAULT 0,
            tax_rate {rate} NULL,
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        ){end}`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id {pk},
            code VARCHAR(64) NOT NULL UNIQUE,
            zone_id BIGINT NOT NULL,
            customer_name VARCHAR(255) NOT NULL DEFAULT '',
            customer_email VARCHAR(255) NOT NULL DEFAULT '',
            status VARCHAR(32) NOT NULL DEFAULT 'pending',
            payment_status VARCHAR(32) NOT NULL DEFAULT 'pending',
            tax_invoice_required BOOLEAN NOT NULL DEFAULT FALSE,
            subtotal {money} NOT NULL DEFAULT 0,
            discount_amount {money} NOT NULL DEFAULT 0,
            tax_amount {money} NOT NULL DEFAULT 0,
            total_amount {money} NOT NULL DEFAULT 0,
            deposit_due {money} NOT NULL DEFAULT 0,
            balance_due {money} NOT NULL DEFAULT 0,
            currency VARCHAR(8) NOT NULL DEFAULT 'VND',
            payment_expires_at DATETIME NULL,
            created_by BIGINT NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        ){end}`,
		`CREATE TABLE IF NOT EXISTS booking_items (
            id {pk},
            booking_id BIGINT NOT NULL,
            kind VARCHAR(16) NOT NULL,
            unit_id BIGINT NULL,
            ref_id BIGINT NULL,
            name VARCHAR(255) NOT NULL DEFAULT '',
            quantity INT NOT NULL DEFAULT 1,
            unit_price {money} NOT NULL DEFAULT 0,
            discount_type VARCHAR(16) NULL,
            discount_value {money} NULL,
            discount_amount {money} NOT NULL DEFAULT 0,
            voucher_id BIGINT NULL,
            tax_rate {rate} NULL,
            check_in DATE NULL,
            check_out DATE NULL,
            serving_date DATE NULL,
            created_at DATETIME NOT NULL
        ){end}`,
		`CREATE INDEX {ifnotexists}idx_booking_items_unit_stay ON booking_items (unit_id, check_in, check_out)`,
		`CREATE TABLE IF NOT EXISTS payments (
            id {pk},
            booking_id BIGINT NOT NULL,
            amount {money} NOT NULL,
            method VARCHAR(32) NOT NULL,
            status VARCHAR(16) NOT NULL DEFAULT 'completed',
            reference VARCHAR(255) NOT NULL DEFAULT '',
            created_by BIGINT NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        ){end}`,
		`CREATE TABLE IF NOT EXISTS vouchers (
            id {pk},
            code VARCHAR(64) {nocase} NOT NULL UNIQUE,
            name VARCHAR(255) NOT NULL DEFAULT '',
            discount_type VARCHAR(16) NOT NULL,
            discount_value {money} NOT NULL,
            current_uses INT NOT NULL DEFAULT 0,
            max_uses INT NULL,
            status VARCHAR(16) NOT NULL DEFAULT 'active',
            recurrence VARCHAR(16) NOT NULL DEFAULT 'date_range',
            valid_from DATETIME NULL,
            valid_until DATETIME NULL,
            weekly_days VARCHAR(32) NOT NULL DEFAULT '',
            zone_id BIGINT NULL,
            application_type VARCHAR(16) NOT NULL DEFAULT 'all'
        ){end}`,
		`CREATE TABLE IF NOT EXISTS voucher_items (
            voucher_id BIGINT NOT NULL,
            item_id BIGINT NOT NULL,
            PRIMARY KEY (voucher_id, item_id)
        ){end}`,
		`CREATE TABLE IF NOT EXISTS voucher_redemptions (
            id {pk},
            voucher_id BIGINT NOT NULL,
            booking_id BIGINT NOT NULL,
            booking_item_id BIGINT NOT NULL,
            discount_amount {money} NOT NULL,
            created_at DATETIME NOT NULL
        ){end}`,
		`CREATE TABLE IF NOT EXISTS booking_status_history (
            id {pk},
            booking_id BIGINT NOT NULL,
            field VARCHAR(32) NOT NULL,
            from_value VARCHAR(32) NOT NULL,
            to_value VARCHAR(32) NOT NULL,
            actor_id BIGINT NOT NULL DEFAULT 0,
            note VARCHAR(512) NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL
        ){end}`,
	}
	for i, s := range stmts {
		stmts[i] = r.Replace(s)
	}
	return stmts
}

// mysqlDupKeyName is returned by MySQL when an index already exists, which
// has no IF NOT EXISTS form there.
const mysqlDupKeyName = 1061

// Migrate creates any missing tables and indexes. It can be re-run against
// an existing schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range Schema(db.DriverName()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) && me.Number == mysqlDupKeyName {
				continue
			}
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
