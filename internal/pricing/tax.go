package pricing

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// LineTax is the tax owed on a single line item.
type LineTax struct {
	ItemID uint64          `json:"item_id"`
	Kind   model.ItemKind  `json:"kind"`
	Net    decimal.Decimal `json:"net"`
	Rate   decimal.Decimal `json:"rate"`
	Tax    decimal.Decimal `json:"tax"`
}

// TaxBreakdown is the result of a tax computation.
type TaxBreakdown struct {
	Total decimal.Decimal `json:"total"`
	Lines []LineTax       `json:"lines"`
}

// ComputeTax charges every line at its own rate on its net (post-discount)
// amount. Lines without a rate are listed with zero tax.
func ComputeTax(items []model.LineItem) TaxBreakdown {
	out := TaxBreakdown{Total: decimal.Zero, Lines: make([]LineTax, 0, len(items))}
	for _, li := range items {
		net := li.Amount().Sub(li.DiscountAmount)
		if net.IsNegative() {
			net = decimal.Zero
		}
		rate := li.Rate()
		tax := net.Mul(rate).Div(hundred).Round(2)
		out.Lines = append(out.Lines, LineTax{ItemID: li.ID, Kind: li.Kind, Net: net, Rate: rate, Tax: tax})
		out.Total = out.Total.Add(tax)
	}
	return out
}

// TaxCalculator computes tax for a stored booking.
type TaxCalculator struct {
	items *repository.ItemRepo
}

func NewTaxCalculator(items *repository.ItemRepo) *TaxCalculator {
	return &TaxCalculator{items: items}
}

// ForBooking reloads the booking's line items and computes their tax. Nothing
// is cached between calls.
func (c *TaxCalculator) ForBooking(ctx context.Context, q sqlx.ExtContext, bookingID uint64) (TaxBreakdown, error) {
	items, err := c.items.ListByBooking(ctx, q, bookingID)
	if err != nil {
		return TaxBreakdown{}, err
	}
	return ComputeTax(items), nil
}
