package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Totals holds the document-level amounts
type Totals struct {
	SubtotalHT decimal.Decimal `json:"subtotal_ht"`
	Tax        decimal.Decimal `json:"tax"`
	TotalTTC   decimal.Decimal `json:"total_ttc"`
}

// LineSnapshot is the read-only view of an invoice line at a point in time
type LineSnapshot struct {
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Charge      decimal.Decimal `json:"charge"`
}

// MeasuredInHours reports whether the line bills hours, by its unit or a
// description starting with "heure"
func (l LineSnapshot) MeasuredInHours() bool {
	return IsHourUnit(l.Unit) || strings.HasPrefix(Fold(l.Description), "heure")
}

// IsHourUnit reports whether a quantity unit code denotes hours
func IsHourUnit(unit string) bool {
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "HUR", "H", "HR", "HRS", "HEU", "HEURE", "HEURES", "HOUR", "HOURS":
		return true
	}
	return false
}

// Snapshot captures the values of a document before or after correction
type Snapshot struct {
	InvoiceID      string                       `json:"invoice_id"`
	DeclaredPeriod Period                       `json:"declared_period"`
	TimeCardHours  map[Category]decimal.Decimal `json:"timecard_hours"`
	InvoicedHours  decimal.Decimal              `json:"invoiced_hours"`
	Lines          []LineSnapshot               `json:"lines"`
	Totals         Totals                       `json:"totals"`
}

// ReportedHours sums timecard hours across the time categories
func (s *Snapshot) ReportedHours() decimal.Decimal {
	total := decimal.Zero
	for _, c := range TimeCategories {
		total = total.Add(s.TimeCardHours[c])
	}
	return total
}
