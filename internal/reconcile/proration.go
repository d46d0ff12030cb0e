package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
)

// Ratios carries what proration needs from a discrepancy report
type Ratios struct {
	// Hours maps each time category to its reported and invoiced hours
	Hours map[entity.Category]CategoryDelta
	// WorkedDays is the number of days with hours in the corrected period
	WorkedDays int
}

// NewRatios derives proration inputs from a report
func NewRatios(report *DiscrepancyReport) Ratios {
	hours := make(map[entity.Category]CategoryDelta, len(report.CategoryDeltas))
	for c, d := range report.CategoryDeltas {
		hours[c] = d
	}
	workedDays := report.WorkedDays
	if workedDays == 0 {
		workedDays = report.CorrectedPeriod.Days()
	}
	return Ratios{
		Hours:      hours,
		WorkedDays: workedDays,
	}
}

// Prorate returns corrected copies of lines; the input is not modified.
//
//   - time categories scale by reported/invoiced hours of their category and
//     drop to zero when no hours were reported
//   - meal and transport allowances keep one unit per worked day, unless
//     they are billed in hours
//   - bonuses and hour-billed allowances scale by the worked-hours ratio
//   - anything else is left untouched
//
// Charges keep the original unit rate and are rounded half-up to cents.
func Prorate(lines []entity.LineSnapshot, ratios Ratios) ([]entity.LineSnapshot, []Warning) {
	out := make([]entity.LineSnapshot, len(lines))
	var warnings []Warning

	for i, line := range lines {
		out[i] = line

		full, ok, warning := ratios.quantity(line)
		if warning != "" {
			warnings = append(warnings, Warning{Kind: WarningNoInvoicedHours, Line: i, Description: line.Description, Message: warning})
		}
		if !ok {
			continue
		}

		if line.Quantity.IsZero() {
			if !line.Charge.IsZero() {
				out[i].Charge = decimal.Zero
				warnings = append(warnings, Warning{
					Kind:        WarningArithmeticGuard,
					Line:        i,
					Description: line.Description,
					Message:     fmt.Sprintf("no original quantity to derive a unit rate, charge %s dropped", line.Charge.StringFixed(2)),
				})
			}
			continue
		}

		qty := full.Round(2)
		if qty.Equal(line.Quantity) {
			continue
		}
		out[i].Quantity = qty
		// rate x new quantity, from the unrounded quantity
		out[i].Charge = line.Charge.Mul(full).Div(line.Quantity).Round(2)
	}

	return out, warnings
}

// quantity returns the unrounded corrected quantity of line, ok=false when
// the line is not subject to proration
func (r Ratios) quantity(line entity.LineSnapshot) (decimal.Decimal, bool, string) {
	switch {
	case line.Category.IsTime():
		return r.scale(line.Quantity, line.Category)
	case line.Category.IsAllowance() && !line.MeasuredInHours():
		return decimal.Min(line.Quantity, decimal.NewFromInt(int64(r.WorkedDays))), true, ""
	case line.Category.IsAllowance(), line.Category == entity.CategoryBonus:
		return r.scale(line.Quantity, entity.CategoryWorkedHours)
	}
	return line.Quantity, false, ""
}

func (r Ratios) scale(qty decimal.Decimal, c entity.Category) (decimal.Decimal, bool, string) {
	d := r.Hours[c]
	if d.Reported.IsZero() {
		return decimal.Zero, true, ""
	}
	if d.Invoiced.IsZero() {
		return qty, false, fmt.Sprintf("%sh reported for %s but none invoiced", d.Reported.StringFixed(2), c)
	}
	if !d.Exceeds() {
		return qty, false, ""
	}
	return qty.Mul(d.Reported).Div(d.Invoiced), true, ""
}
