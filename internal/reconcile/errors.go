package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
)

// ErrMultiSegmentUnsupported is wrapped by MultiSegmentError
var ErrMultiSegmentUnsupported = errors.New("timecards cover more than one contiguous period")

// MultiSegmentError is returned when the timecard days form disjoint ranges.
// Only one contiguous corrected period can be applied per document.
type MultiSegmentError struct {
	Segments []entity.Period
}

func (e *MultiSegmentError) Error() string {
	parts := make([]string, len(e.Segments))
	for i, s := range e.Segments {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%v: %s", ErrMultiSegmentUnsupported, strings.Join(parts, ", "))
}

func (e *MultiSegmentError) Unwrap() error {
	return ErrMultiSegmentUnsupported
}

// WarningKind classifies a non-fatal proration issue
type WarningKind string

// Warning kinds
const (
	// WarningArithmeticGuard: the line had no original quantity, its charge was zeroed
	WarningArithmeticGuard WarningKind = "ARITHMETIC_GUARD"
	// WarningNoInvoicedHours: timecards report hours the invoice never billed, the line is left as is
	WarningNoInvoicedHours WarningKind = "NO_INVOICED_HOURS"
)

// Warning is attached to a correction without stopping it
type Warning struct {
	Kind        WarningKind `json:"kind"`
	Line        int         `json:"line"`
	Description string      `json:"description"`
	Message     string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s line %d %q: %s", w.Kind, w.Line, w.Description, w.Message)
}
