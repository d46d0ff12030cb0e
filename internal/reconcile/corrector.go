package reconcile

import (
	"bytes"
	"fmt"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/invoice"
	"github.com/garyjia/invoice-corrector/internal/xmldoc"
)

// CorrectionResult is everything a caller needs to show, store or deliver
// a correction
type CorrectionResult struct {
	Original     entity.Snapshot     `json:"original"`
	Corrected    entity.Snapshot     `json:"corrected"`
	Report       *DiscrepancyReport  `json:"report"`
	Verification *VerificationResult `json:"verification,omitempty"`
	Warnings     []Warning           `json:"warnings,omitempty"`
	CorrectedXML []byte              `json:"-"`
	Changed      bool                `json:"changed"`
}

// Corrector runs the detection and correction pipeline on one document at
// a time. It holds no mutable state and may be shared between goroutines.
type Corrector struct {
	dialect invoice.Dialect
}

// Option configures a Corrector
type Option func(*Corrector)

// WithDialect overrides the element names the corrector looks for
func WithDialect(d invoice.Dialect) Option {
	return func(c *Corrector) {
		c.dialect = d
	}
}

// NewCorrector creates a Corrector for the PIXID invoice dialect
func NewCorrector(opts ...Option) *Corrector {
	c := &Corrector{dialect: invoice.DefaultDialect()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correct is NewCorrector().Correct
func Correct(raw []byte) (*CorrectionResult, error) {
	return NewCorrector().Correct(raw)
}

// Correct loads raw, prorates the invoice to the period its timecards
// support and returns the corrected bytes with before/after snapshots.
//
// A parse failure returns a nil result. Schema mismatches and multi-period
// timecards return a result holding the unmodified input together with the
// error. A failed verification is not an error: the corrected document is
// returned and Verification.OK is false.
func (c *Corrector) Correct(raw []byte) (*CorrectionResult, error) {
	doc, err := xmldoc.Load(raw)
	if err != nil {
		return nil, err
	}

	result := &CorrectionResult{
		CorrectedXML: append([]byte(nil), raw...),
		Report:       &DiscrepancyReport{CategoryDeltas: map[entity.Category]CategoryDelta{}},
	}

	before, err := read(doc, c.dialect)
	if err != nil {
		result.Report.Message = err.Error()
		return result, err
	}
	result.Original = before.snapshot()
	result.Corrected = result.Original

	report, err := Detect(before.timecards, before.lineSnapshots(), before.declared)
	result.Report = report
	if err != nil {
		return result, err
	}

	if !report.HasDiscrepancy {
		result.Verification = before.verify()
		return result, nil
	}

	corrected, warnings := Prorate(before.lineSnapshots(), NewRatios(report))
	result.Warnings = warnings

	for i, line := range before.lines {
		if err := applyLine(line, corrected[i]); err != nil {
			return result, err
		}
	}
	if err := ApplyTotals(before.header, corrected, Recompute(corrected), report.CorrectedPeriod); err != nil {
		return result, err
	}

	out, err := doc.Serialize()
	if err != nil {
		return result, fmt.Errorf("failed to serialize corrected document: %w", err)
	}

	reloaded, err := xmldoc.Load(out)
	if err != nil {
		return result, fmt.Errorf("corrected document does not reload: %w", err)
	}
	after, err := read(reloaded, c.dialect)
	if err != nil {
		return result, fmt.Errorf("corrected document does not read back: %w", err)
	}

	result.CorrectedXML = out
	result.Changed = !bytes.Equal(out, raw)
	result.Corrected = after.snapshot()
	result.Verification = after.verify()
	return result, nil
}

func applyLine(line *invoice.Line, v entity.LineSnapshot) error {
	if line.HasQuantity() && !v.Quantity.Equal(line.Quantity) {
		if err := line.SetQuantity(v.Quantity); err != nil {
			return err
		}
	}
	if line.HasCharge() && !v.Charge.Equal(line.Charge) {
		if err := line.SetCharge(v.Charge); err != nil {
			return err
		}
	}
	return nil
}

// reading is one pass of the invoice binding over a document
type reading struct {
	header    *invoice.Header
	timecards []entity.TimeCardEntry
	lines     []*invoice.Line
	declared  *entity.Period
}

func read(doc *xmldoc.Document, d invoice.Dialect) (*reading, error) {
	timecards, err := invoice.ExtractTimeCards(doc, d)
	if err != nil {
		return nil, err
	}
	lines, err := invoice.ReadLines(doc, d)
	if err != nil {
		return nil, err
	}
	header, err := invoice.ReadHeader(doc, d)
	if err != nil {
		return nil, err
	}
	declared, err := header.DeclaredPeriod()
	if err != nil {
		return nil, err
	}
	return &reading{header: header, timecards: timecards, lines: lines, declared: declared}, nil
}

func (r *reading) lineSnapshots() []entity.LineSnapshot {
	out := make([]entity.LineSnapshot, len(r.lines))
	for i, l := range r.lines {
		out[i] = l.Snapshot()
	}
	return out
}

func (r *reading) snapshot() entity.Snapshot {
	s := entity.Snapshot{
		InvoiceID:     r.header.InvoiceID,
		TimeCardHours: entity.HoursByCategory(r.timecards),
		Lines:         r.lineSnapshots(),
		Totals:        r.header.Totals,
	}
	if r.declared != nil {
		s.DeclaredPeriod = *r.declared
	}
	s.InvoicedHours = InvoicedHours(s.Lines)
	return s
}
