package entity

import "github.com/shopspring/decimal"

// TimeCardEntry is one reported time interval (RAF), the ground truth for billing.
// Entries are produced by extraction and never modified afterwards.
type TimeCardEntry struct {
	Period   Period          `json:"period"`
	Category Category        `json:"category"`
	Duration decimal.Decimal `json:"duration"`
	Label    string          `json:"label,omitempty"` // raw interval type as written in the document
}

// HoursByCategory sums entry durations per category
func HoursByCategory(entries []TimeCardEntry) map[Category]decimal.Decimal {
	out := make(map[Category]decimal.Decimal)
	for _, e := range entries {
		out[e.Category] = out[e.Category].Add(e.Duration)
	}
	return out
}
