package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/xmldoc"
)

// UnknownInvoiceID is reported when the document carries no DocumentIds/Id
const UnknownInvoiceID = "UNKNOWN"

// Header holds the document-level fields: identifier, totals, declared
// period and billed hours. Totals and period fields may be repeated in the
// document; values are read from the first occurrence and written to all.
type Header struct {
	InvoiceID string
	Totals    entity.Totals

	subtotal    []*xmldoc.Element
	tax         []*xmldoc.Element
	total       []*xmldoc.Element
	periodStart []*xmldoc.Element
	periodEnd   []*xmldoc.Element
	billedHours []*xmldoc.Element
}

// ReadHeader binds the header fields of doc. Missing totals are a schema mismatch.
func ReadHeader(doc *xmldoc.Document, d Dialect) (*Header, error) {
	h := &Header{
		InvoiceID:   UnknownInvoiceID,
		subtotal:    doc.FindAll(d.TotalCharges),
		tax:         doc.FindAll(d.TotalTax),
		total:       doc.FindAll(d.TotalAmount),
		periodStart: d.owned(doc, d.PeriodStartOwner),
		periodEnd:   d.owned(doc, d.PeriodEndOwner),
		billedHours: d.owned(doc, d.BilledHoursOwner),
	}

	for _, ids := range doc.FindAll(d.DocumentIDs) {
		if id := ids.Find(d.DocumentID); id != nil && id.Text() != "" {
			h.InvoiceID = id.Text()
			break
		}
	}

	fields := []struct {
		tag      string
		elements []*xmldoc.Element
		dst      *decimal.Decimal
	}{
		{d.TotalCharges, h.subtotal, &h.Totals.SubtotalHT},
		{d.TotalTax, h.tax, &h.Totals.Tax},
		{d.TotalAmount, h.total, &h.Totals.TotalTTC},
	}
	for _, f := range fields {
		if len(f.elements) == 0 {
			return nil, &SchemaMismatchError{Element: f.tag, Reason: "document has no total"}
		}
		v, err := ParseAmount(f.elements[0].Text())
		if err != nil {
			return nil, &SchemaMismatchError{Element: f.tag, Reason: err.Error()}
		}
		*f.dst = v
	}

	return h, nil
}

// DeclaredPeriod returns the DEB_PER..FIN_PER range, nil when the document
// declares neither bound. A single declared bound is used for both ends.
func (h *Header) DeclaredPeriod() (*entity.Period, error) {
	start := firstValue(h.periodStart)
	end := firstValue(h.periodEnd)
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" {
		start = end
	}
	if end == "" {
		end = start
	}

	startDay, err := entity.ParseDate(start)
	if err != nil {
		return nil, &SchemaMismatchError{Element: "DEB_PER", Reason: err.Error()}
	}
	endDay, err := entity.ParseDate(end)
	if err != nil {
		return nil, &SchemaMismatchError{Element: "FIN_PER", Reason: err.Error()}
	}
	p, err := entity.NewPeriod(startDay, endDay)
	if err != nil {
		return nil, &SchemaMismatchError{Element: "FIN_PER", Reason: err.Error()}
	}
	return &p, nil
}

// BilledHours returns the declared billed hours when present
func (h *Header) BilledHours() (decimal.Decimal, bool) {
	v := firstValue(h.billedHours)
	if v == "" {
		return decimal.Zero, false
	}
	hours, err := ParseAmount(v)
	if err != nil {
		return decimal.Zero, false
	}
	return hours, true
}

// WriteTotals writes the three amounts, rounded to cents, to every occurrence
func (h *Header) WriteTotals(t entity.Totals) error {
	t = entity.Totals{
		SubtotalHT: t.SubtotalHT.Round(2),
		Tax:        t.Tax.Round(2),
		TotalTTC:   t.TotalTTC.Round(2),
	}
	for _, group := range []struct {
		elements []*xmldoc.Element
		value    decimal.Decimal
	}{
		{h.subtotal, t.SubtotalHT},
		{h.tax, t.Tax},
		{h.total, t.TotalTTC},
	} {
		for _, el := range group.elements {
			if err := el.SetText(withSeparator(el, group.value.StringFixed(2))); err != nil {
				return fmt.Errorf("failed to write <%s>: %w", el.Name(), err)
			}
		}
	}
	h.Totals = t
	return nil
}

// WritePeriod rewrites DEB_PER and FIN_PER, keeping the date layout and any
// time suffix each field was written with
func (h *Header) WritePeriod(p entity.Period) error {
	if err := writeDates(h.periodStart, p.Start.Format(entity.DateLayout)); err != nil {
		return err
	}
	return writeDates(h.periodEnd, p.End.Format(entity.DateLayout))
}

// WriteBilledHours rewrites NbHeuresFacturees when the document has it
func (h *Header) WriteBilledHours(hours decimal.Decimal) error {
	for _, el := range h.billedHours {
		places := Places(el.Text())
		if places < 2 {
			places = 2
		}
		if err := el.SetText(withSeparator(el, FormatQuantity(hours, places))); err != nil {
			return fmt.Errorf("failed to write billed hours: %w", err)
		}
	}
	return nil
}

func writeDates(elements []*xmldoc.Element, isoDay string) error {
	for _, el := range elements {
		if err := el.SetText(reformatDate(el.Text(), isoDay)); err != nil {
			return fmt.Errorf("failed to write period bound: %w", err)
		}
	}
	return nil
}

// reformatDate renders isoDay in the layout of current, keeping whatever
// follows the date part (a time or zone suffix)
func reformatDate(current, isoDay string) string {
	day, err := entity.ParseDate(isoDay)
	if err != nil {
		return isoDay
	}
	current = strings.TrimSpace(current)
	layout := entity.DateLayoutOf(current)
	suffix := ""
	if _, err := entity.ParseDate(current); err == nil && len(current) > len(layout) {
		suffix = current[len(layout):]
	}
	return day.Format(layout) + suffix
}

func firstValue(elements []*xmldoc.Element) string {
	for _, el := range elements {
		if v := el.Text(); v != "" {
			return v
		}
	}
	return ""
}
