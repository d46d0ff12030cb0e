package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CorrectionRecord is the stored outcome of processing one invoice document
type CorrectionRecord struct {
	ID               string          `json:"id"`
	FileName         string          `json:"file_name"`
	InvoiceID        string          `json:"invoice_id"`
	Status           string          `json:"status"`
	HasDiscrepancy   bool            `json:"has_discrepancy"`
	VerificationOK   bool            `json:"verification_ok"`
	OriginalHours    decimal.Decimal `json:"original_hours"`
	CorrectedHours   decimal.Decimal `json:"corrected_hours"`
	OriginalTotalHT  decimal.Decimal `json:"original_total_ht"`
	CorrectedTotalHT decimal.Decimal `json:"corrected_total_ht"`
	CorrectedPath    string          `json:"corrected_path,omitempty"`
	ReportPath       string          `json:"report_path,omitempty"`
	ReportJSON       string          `json:"-"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// HasOutput reports whether a corrected document was written for this record
func (r *CorrectionRecord) HasOutput() bool {
	return r.CorrectedPath != ""
}
