package invoice

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/xmldoc"
)

// Line is an invoice line bound to its elements in the document
type Line struct {
	Index          int
	Description    string
	Category       entity.Category
	Quantity       decimal.Decimal
	QuantityPlaces int32
	Unit           string
	Charge         decimal.Decimal

	element    *xmldoc.Element
	quantityEl *xmldoc.Element
	chargeEl   *xmldoc.Element
}

// HasQuantity reports whether the line carries a quantity element
func (l *Line) HasQuantity() bool {
	return l.quantityEl != nil
}

// HasCharge reports whether the line carries a charge total element
func (l *Line) HasCharge() bool {
	return l.chargeEl != nil
}

// Snapshot returns the line's current values
func (l *Line) Snapshot() entity.LineSnapshot {
	return entity.LineSnapshot{
		Description: l.Description,
		Category:    l.Category,
		Quantity:    l.Quantity,
		Unit:        l.Unit,
		Charge:      l.Charge,
	}
}

// SetQuantity writes a new quantity, keeping the number of decimals the
// document used unless that would drop significant digits
func (l *Line) SetQuantity(q decimal.Decimal) error {
	if l.quantityEl == nil {
		return fmt.Errorf("line %d has no quantity element", l.Index)
	}
	if err := l.quantityEl.SetText(withSeparator(l.quantityEl, FormatQuantity(q, l.QuantityPlaces))); err != nil {
		return fmt.Errorf("failed to write quantity of line %d: %w", l.Index, err)
	}
	l.Quantity = q
	return nil
}

// SetCharge writes a new charge total rounded to cents
func (l *Line) SetCharge(c decimal.Decimal) error {
	if l.chargeEl == nil {
		return fmt.Errorf("line %d has no charge element", l.Index)
	}
	c = c.Round(2)
	if err := l.chargeEl.SetText(withSeparator(l.chargeEl, c.StringFixed(2))); err != nil {
		return fmt.Errorf("failed to write charge of line %d: %w", l.Index, err)
	}
	l.Charge = c
	return nil
}

// FormatQuantity renders q with the given number of decimals, widening to
// two decimals when the rounded value does not fit
func FormatQuantity(q decimal.Decimal, places int32) string {
	r := q.Round(2)
	if places >= 2 || r.Equal(r.Round(places)) {
		return r.StringFixed(places)
	}
	return r.StringFixed(2)
}

// ReadLines returns every billable line, in document order. A line is
// billable when it carries a quantity or a charge total.
func ReadLines(doc *xmldoc.Document, d Dialect) ([]*Line, error) {
	var lines []*Line

	for _, tag := range d.LineTags {
		for _, el := range doc.FindAll(tag) {
			if d.insideLine(el) {
				continue
			}
			line, err := d.readLine(el)
			if err != nil {
				return nil, err
			}
			if line == nil {
				continue
			}
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return nil, &SchemaMismatchError{Element: d.LineTags[0], Reason: "document has no invoice line with a quantity or charge"}
	}

	sortByDocumentOrder(lines)
	for i, l := range lines {
		l.Index = i
	}
	return lines, nil
}

func (d Dialect) readLine(el *xmldoc.Element) (*Line, error) {
	line := &Line{Unit: d.DefaultUnit}

	for _, desc := range el.FindAll(d.Description) {
		if _, owned := desc.Attr(d.OwnerAttr); owned || desc.HasAncestor(d.TimeCard, el) {
			continue
		}
		if desc.Text() != "" {
			line.Description = desc.Text()
			break
		}
	}

	for _, q := range el.FindAll(d.Quantity) {
		if q.HasAncestor(d.TimeCard, el) {
			continue
		}
		line.quantityEl = q
		break
	}

	for _, total := range el.FindAll(d.ChargeTotal) {
		if total.Parent() == nil || total.Parent().Name() != d.Charge || total.HasAncestor(d.TimeCard, el) {
			continue
		}
		line.chargeEl = total
		break
	}

	if line.quantityEl == nil && line.chargeEl == nil {
		return nil, nil
	}

	if line.quantityEl != nil {
		raw := line.quantityEl.Text()
		q, err := ParseAmount(raw)
		if err != nil {
			return nil, &SchemaMismatchError{Element: d.Quantity, Reason: fmt.Sprintf("line %q: %v", line.Description, err)}
		}
		line.Quantity = q
		line.QuantityPlaces = Places(raw)
		if unit, ok := line.quantityEl.Attr(d.UnitAttr); ok && unit != "" {
			line.Unit = unit
		}
	}

	if line.chargeEl != nil {
		c, err := ParseAmount(line.chargeEl.Text())
		if err != nil {
			return nil, &SchemaMismatchError{Element: d.ChargeTotal, Reason: fmt.Sprintf("line %q: %v", line.Description, err)}
		}
		line.Charge = c
	}

	line.Category = entity.Classify(line.Description)
	line.element = el
	return line, nil
}

func (d Dialect) insideLine(el *xmldoc.Element) bool {
	for _, tag := range d.LineTags {
		if el.HasAncestor(tag, nil) {
			return true
		}
	}
	return false
}

func sortByDocumentOrder(lines []*Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].element.Position() < lines[j].element.Position()
	})
}
