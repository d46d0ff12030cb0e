package entity

// Correction status constants
const (
	CorrectionStatusCorrected = "CORRECTED" // discrepancy found and a corrected document produced
	CorrectionStatusUnchanged = "UNCHANGED" // no discrepancy, document left as is
	CorrectionStatusReview    = "NEEDS_REVIEW"
	CorrectionStatusRejected  = "REJECTED" // schema mismatch or multi-period timecards
	CorrectionStatusFailed    = "FAILED"   // unreadable input
)
