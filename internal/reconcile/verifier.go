package reconcile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/invoice"
	"github.com/garyjia/invoice-corrector/internal/xmldoc"
)

// Mismatch is one failed consistency check
type Mismatch struct {
	Field    string          `json:"field"`
	Expected string          `json:"expected"`
	Actual   string          `json:"actual"`
	Delta    decimal.Decimal `json:"delta"`
}

// VerificationResult lists every consistency check that failed
type VerificationResult struct {
	OK         bool       `json:"ok"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

func (v *VerificationResult) amount(field string, expected, actual decimal.Decimal) {
	delta := actual.Sub(expected)
	if delta.Abs().LessThanOrEqual(Tolerance) {
		return
	}
	v.Mismatches = append(v.Mismatches, Mismatch{
		Field:    field,
		Expected: expected.StringFixed(2),
		Actual:   actual.StringFixed(2),
		Delta:    delta,
	})
}

func (v *VerificationResult) day(field string, expected, actual time.Time) {
	if expected.Equal(actual) {
		return
	}
	v.Mismatches = append(v.Mismatches, Mismatch{
		Field:    field,
		Expected: expected.Format(entity.DateLayout),
		Actual:   actual.Format(entity.DateLayout),
		Delta:    decimal.NewFromInt(int64(actual.Sub(expected).Hours() / 24)),
	})
}

// Verify re-reads doc and checks that timecard hours match invoiced
// quantities per time category, that totals add up from the line charges
// at the standard tax rate, and that DEB_PER/FIN_PER bound the timecard
// period, both equal to its day when it is a single one. Hour and period
// checks are skipped when there is no timecard. The document is never
// modified.
func Verify(doc *xmldoc.Document, d invoice.Dialect) (*VerificationResult, error) {
	r, err := read(doc, d)
	if err != nil {
		return nil, err
	}
	return r.verify(), nil
}

func (r *reading) verify() *VerificationResult {
	v := &VerificationResult{}
	snaps := r.lineSnapshots()

	if len(r.timecards) > 0 {
		reported := entity.HoursByCategory(r.timecards)
		invoiced := invoicedByCategory(snaps)
		for _, c := range entity.TimeCategories {
			v.amount(fmt.Sprintf("hours[%s]", c), reported[c], invoiced[c])
		}
	}

	sum := decimal.Zero
	for _, l := range snaps {
		sum = sum.Add(l.Charge)
	}
	totals := r.header.Totals
	v.amount("TotalCharges", sum, totals.SubtotalHT)
	v.amount("TotalTax", TaxOf(totals.SubtotalHT), totals.Tax)
	v.amount("TotalAmount", totals.SubtotalHT.Add(totals.Tax), totals.TotalTTC)

	if len(r.timecards) > 0 && r.declared != nil {
		segments := Segments(r.timecards)
		span := entity.Period{Start: segments[0].Start, End: segments[len(segments)-1].End}
		if span.IsSingleDay() || !span.Within(*r.declared) {
			v.day("DEB_PER", span.Start, r.declared.Start)
			v.day("FIN_PER", span.End, r.declared.End)
		}
	}

	v.OK = len(v.Mismatches) == 0
	return v
}
