// Package paymentinfo builds the bank transfer instructions shown to a guest.
// It only reads zone data and never touches a booking.
package paymentinfo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/repository"
)

// ErrNoBankAccount is returned when the zone has no account to pay into.
var ErrNoBankAccount = errors.New("zone has no bank account configured")

const qrBase = "https://img.vietqr.io/image/"

// Instructions is what a guest needs to make a transfer.
type Instructions struct {
	ZoneID        uint64          `json:"zone_id"`
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"`
	QRImageURL    string          `json:"qr_image_url"`
}

type zoneLoader interface {
	GetZone(ctx context.Context, q sqlx.ExtContext, id uint64) (*model.Zone, error)
}

// Provider reads bank details from zones.
type Provider struct {
	db    *sqlx.DB
	zones zoneLoader
}

// NewProvider returns a Provider reading zones through catalog.
func NewProvider(db *sqlx.DB, catalog *repository.CatalogRepo) *Provider {
	return &Provider{db: db, zones: catalog}
}

// Instructions returns the transfer details for paying amount into the
// account of zoneID. ref is put in the transfer note so the payment can be
// matched to its booking.
func (p *Provider) Instructions(ctx context.Context, zoneID uint64, amount decimal.Decimal, ref string) (Instructions, error) {
	z, err := p.zones.GetZone(ctx, p.db, zoneID)
	if err != nil {
		return Instructions{}, err
	}
	if strings.TrimSpace(z.BankAccountNumber) == "" || strings.TrimSpace(z.BankName) == "" {
		return Instructions{}, ErrNoBankAccount
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	amount = amount.Round(0)
	return Instructions{
		ZoneID:        z.ID,
		BankName:      z.BankName,
		AccountNumber: z.BankAccountNumber,
		AccountName:   z.BankAccountName,
		Amount:        amount,
		Currency:      z.Currency,
		Reference:     ref,
		QRImageURL:    QRImageURL(z.BankName, z.BankAccountNumber, z.BankAccountName, amount, ref),
	}, nil
}

// QRImageURL renders a VietQR quick link for the transfer.
func QRImageURL(bank, account, holder string, amount decimal.Decimal, note string) string {
	v := url.Values{}
	if amount.IsPositive() {
		v.Set("amount", amount.StringFixed(0))
	}
	if note != "" {
		v.Set("addInfo", note)
	}
	if holder != "" {
		v.Set("accountName", holder)
	}
	path := fmt.Sprintf("%s-%s-compact2.png", url.PathEscape(strings.TrimSpace(bank)), url.PathEscape(strings.TrimSpace(account)))
	if len(v) == 0 {
		return qrBase + path
	}
	return qrBase + path + "?" + v.Encode()
}
