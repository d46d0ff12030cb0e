package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/invoice"
)

// TaxRatePercent is the standard VAT rate applied to the subtotal
const TaxRatePercent = 20

var taxRate = decimal.New(TaxRatePercent, -2)

// TaxOf returns the VAT due on subtotal, rounded to cents
func TaxOf(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(taxRate).Round(2)
}

// Recompute sums the line charges, each already rounded to cents, and
// derives tax and grand total
func Recompute(lines []entity.LineSnapshot) entity.Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Charge.Round(2))
	}
	tax := TaxOf(subtotal)
	return entity.Totals{
		SubtotalHT: subtotal,
		Tax:        tax,
		TotalTTC:   subtotal.Add(tax),
	}
}

// InvoicedHours sums the quantities of time-category lines
func InvoicedHours(lines []entity.LineSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l.Category.IsTime() {
			total = total.Add(l.Quantity)
		}
	}
	return total
}

// ApplyTotals writes the recomputed totals, billed hours and the corrected
// period bounds into the document header
func ApplyTotals(h *invoice.Header, lines []entity.LineSnapshot, totals entity.Totals, period entity.Period) error {
	if err := h.WriteTotals(totals); err != nil {
		return fmt.Errorf("failed to apply totals: %w", err)
	}
	if err := h.WriteBilledHours(InvoicedHours(lines)); err != nil {
		return fmt.Errorf("failed to apply billed hours: %w", err)
	}
	if period.IsZero() {
		return nil
	}
	if err := h.WritePeriod(period); err != nil {
		return fmt.Errorf("failed to apply period: %w", err)
	}
	return nil
}
