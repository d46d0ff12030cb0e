// Package reconcile detects week-split billing errors in an invoice, prorates
// its lines to the period the timecards support, recomputes totals and
// verifies the result.
package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
)

// Tolerance absorbs rounding when comparing hours and amounts
var Tolerance = decimal.New(1, -2)

// CategoryDelta pairs the hours reported by timecards with the quantity invoiced
type CategoryDelta struct {
	Reported decimal.Decimal `json:"reported"`
	Invoiced decimal.Decimal `json:"invoiced"`
}

// Diff returns reported minus invoiced
func (d CategoryDelta) Diff() decimal.Decimal {
	return d.Reported.Sub(d.Invoiced)
}

// Exceeds reports whether the difference is larger than Tolerance
func (d CategoryDelta) Exceeds() bool {
	return d.Diff().Abs().GreaterThan(Tolerance)
}

// DiscrepancyReport is the outcome of Detect
type DiscrepancyReport struct {
	HasDiscrepancy  bool                              `json:"has_discrepancy"`
	OriginalPeriod  entity.Period                     `json:"original_period"`
	CorrectedPeriod entity.Period                     `json:"corrected_period"`
	CategoryDeltas  map[entity.Category]CategoryDelta `json:"category_deltas"`
	Segments        []entity.Period                   `json:"segments,omitempty"`
	WorkedDays      int                               `json:"worked_days"`
	Message         string                            `json:"message"`
}

// Detect compares timecard hours with invoiced quantities per time category.
// A discrepancy needs both a difference above Tolerance and timecards
// covering a strict sub-period of the invoiced one. declared is the
// document's DEB_PER..FIN_PER range; without it the invoiced period is the
// Monday to Sunday week of the first timecard day.
func Detect(timecards []entity.TimeCardEntry, lines []entity.LineSnapshot, declared *entity.Period) (*DiscrepancyReport, error) {
	report := &DiscrepancyReport{
		CategoryDeltas: make(map[entity.Category]CategoryDelta),
	}
	if declared != nil {
		report.OriginalPeriod = *declared
	}

	if len(timecards) == 0 {
		report.Message = "no timecard in document, nothing to correct against"
		return report, nil
	}

	reported := entity.HoursByCategory(timecards)
	invoiced := invoicedByCategory(lines)
	for _, c := range entity.TimeCategories {
		r, i := reported[c], invoiced[c]
		if r.IsZero() && i.IsZero() {
			continue
		}
		report.CategoryDeltas[c] = CategoryDelta{Reported: r, Invoiced: i}
	}

	segments := Segments(timecards)
	report.Segments = segments
	report.WorkedDays = len(workedDays(timecards))
	if declared == nil {
		report.OriginalPeriod = entity.WeekOf(segments[0].Start)
	}

	var mismatched []string
	for _, c := range entity.TimeCategories {
		if d, ok := report.CategoryDeltas[c]; ok && d.Exceeds() {
			mismatched = append(mismatched, fmt.Sprintf("%s timecards %sh vs invoice %sh", c, d.Reported.StringFixed(2), d.Invoiced.StringFixed(2)))
		}
	}

	if len(mismatched) > 0 && len(segments) > 1 {
		report.Message = fmt.Sprintf("timecards cover %d disjoint periods, manual correction required", len(segments))
		return report, &MultiSegmentError{Segments: segments}
	}
	report.CorrectedPeriod = entity.Period{Start: segments[0].Start, End: segments[len(segments)-1].End}

	switch {
	case len(mismatched) == 0:
		report.Message = "timecards and invoice lines agree"
	case !report.CorrectedPeriod.StrictSubsetOf(report.OriginalPeriod):
		report.Message = fmt.Sprintf("hours mismatch (%s) but timecard period %s is not inside invoiced period %s",
			strings.Join(mismatched, ", "), report.CorrectedPeriod, report.OriginalPeriod)
	default:
		report.HasDiscrepancy = true
		report.Message = fmt.Sprintf("week split detected: invoiced %s, timecards %s; %s",
			report.OriginalPeriod, report.CorrectedPeriod, strings.Join(mismatched, ", "))
	}
	return report, nil
}

// Segments groups the days carrying timecard hours into contiguous periods,
// in chronological order. A gap made only of weekend days does not split a
// segment. Entries without hours are ignored unless no entry has any.
func Segments(timecards []entity.TimeCardEntry) []entity.Period {
	days := workedDays(timecards)
	if len(days) == 0 {
		return nil
	}

	var segments []entity.Period
	current := entity.SingleDay(days[0])
	for _, d := range days[1:] {
		if weekendGap(current.End, d) {
			current.End = d
			continue
		}
		segments = append(segments, current)
		current = entity.SingleDay(d)
	}
	return append(segments, current)
}

// workedDays returns the sorted distinct days with hours on a timecard
func workedDays(timecards []entity.TimeCardEntry) []time.Time {
	days := make(map[time.Time]struct{})
	collect := func(positiveOnly bool) {
		for _, e := range timecards {
			if positiveOnly && !e.Duration.IsPositive() {
				continue
			}
			e.Period.EachDay(func(day time.Time) {
				days[day] = struct{}{}
			})
		}
	}
	collect(true)
	if len(days) == 0 {
		collect(false)
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return sorted
}

// weekendGap reports whether every day strictly between from and to is a
// Saturday or Sunday
func weekendGap(from, to time.Time) bool {
	for d := from.AddDate(0, 0, 1); d.Before(to); d = d.AddDate(0, 0, 1) {
		if !entity.IsWeekend(d) {
			return false
		}
	}
	return true
}

func invoicedByCategory(lines []entity.LineSnapshot) map[entity.Category]decimal.Decimal {
	out := make(map[entity.Category]decimal.Decimal)
	for _, l := range lines {
		if l.Category.IsTime() {
			out[l.Category] = out[l.Category].Add(l.Quantity)
		}
	}
	return out
}
