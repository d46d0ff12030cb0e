// Package invoice binds the HR-XML SIDES invoice dialect to domain values:
// it reads timecards, invoice lines and header fields from an xmldoc.Document
// and writes corrected values back in place.
package invoice

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-corrector/internal/xmldoc"
)

// ErrSchemaMismatch is wrapped by every SchemaMismatchError
var ErrSchemaMismatch = errors.New("document does not match the invoice dialect")

// SchemaMismatchError reports a required element that is absent or unreadable
type SchemaMismatchError struct {
	Element string
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch on <%s>: %s", e.Element, e.Reason)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// Dialect names the elements and attributes of the targeted invoice format
type Dialect struct {
	TimeCard         string
	TimeInterval     string
	Duration         string
	IntervalTypeAttr string
	IntervalTypeTags []string
	StartDateTags    []string
	EndDateTags      []string

	LineTags    []string
	Description string
	OwnerAttr   string
	Quantity    string
	UnitAttr    string
	DefaultUnit string
	Charge      string
	ChargeTotal string

	DocumentIDs  string
	DocumentID   string
	TotalCharges string
	TotalTax     string
	TotalAmount  string

	PeriodStartOwner string
	PeriodEndOwner   string
	BilledHoursOwner string
}

// DefaultDialect returns the PIXID HR-XML SIDES invoice layout
func DefaultDialect() Dialect {
	return Dialect{
		TimeCard:         "TimeCard",
		TimeInterval:     "TimeInterval",
		Duration:         "Duration",
		IntervalTypeAttr: "type",
		IntervalTypeTags: []string{"Type", "Category"},
		StartDateTags:    []string{"PeriodStartDate", "StartDateTime", "StartDate"},
		EndDateTags:      []string{"PeriodEndDate", "EndDateTime", "EndDate"},

		LineTags:    []string{"Line", "InvoiceLine"},
		Description: "Description",
		OwnerAttr:   "owner",
		Quantity:    "ItemQuantity",
		UnitAttr:    "uom",
		DefaultUnit: "PCE",
		Charge:      "Charge",
		ChargeTotal: "Total",

		DocumentIDs:  "DocumentIds",
		DocumentID:   "Id",
		TotalCharges: "TotalCharges",
		TotalTax:     "TotalTax",
		TotalAmount:  "TotalAmount",

		PeriodStartOwner: "DEB_PER",
		PeriodEndOwner:   "FIN_PER",
		BilledHoursOwner: "NbHeuresFacturees",
	}
}

// owned returns elements tagged with owner="name" or named name
func (d Dialect) owned(doc *xmldoc.Document, name string) []*xmldoc.Element {
	out := doc.FindByAttr(d.OwnerAttr, name)
	if len(out) == 0 {
		out = doc.FindAll(name)
	}
	return out
}

var spaceRemover = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")

// normalizeNumber drops digit grouping and returns value with '.' as the
// decimal separator. When both '.' and ',' appear, the last one is the
// decimal separator.
func normalizeNumber(value string) string {
	cleaned := spaceRemover.Replace(strings.TrimSpace(value))
	dot, comma := strings.LastIndexByte(cleaned, '.'), strings.LastIndexByte(cleaned, ',')
	switch {
	case comma > dot:
		return strings.ReplaceAll(strings.ReplaceAll(cleaned, ".", ""), ",", ".")
	case comma >= 0:
		return strings.ReplaceAll(cleaned, ",", "")
	}
	return cleaned
}

// DecimalComma reports whether value is written with a decimal comma
func DecimalComma(value string) bool {
	return strings.LastIndexByte(value, ',') > strings.LastIndexByte(value, '.')
}

// ParseAmount reads a decimal written with either '.' or ',' as separator
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := normalizeNumber(value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	return decimal.NewFromString(cleaned)
}

// Places returns the number of digits written after the decimal separator
func Places(value string) int32 {
	cleaned := normalizeNumber(value)
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		return int32(len(cleaned) - i - 1)
	}
	return 0
}

// withSeparator writes value with a decimal comma when the element it
// replaces used one
func withSeparator(el *xmldoc.Element, value string) string {
	if DecimalComma(el.Text()) {
		return strings.Replace(value, ".", ",", 1)
	}
	return value
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseHours reads decimal hours or an ISO-8601 duration such as PT7H30M
func ParseHours(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(strings.ToUpper(value), "P") {
		return ParseAmount(value)
	}

	m := isoDurationRe.FindStringSubmatch(strings.ToUpper(value))
	if m == nil || value == "P" || strings.ToUpper(value) == "PT" {
		return decimal.Zero, fmt.Errorf("invalid duration %q", value)
	}

	hours := decimal.Zero
	// hours per unit for D and H, units per hour for M and S
	units := []struct {
		factor int64
		divide bool
	}{{24, false}, {1, false}, {60, true}, {3600, true}}
	for i, part := range m[1:] {
		if part == "" {
			continue
		}
		v, err := decimal.NewFromString(part)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid duration %q: %w", value, err)
		}
		if units[i].divide {
			hours = hours.Add(v.Div(decimal.NewFromInt(units[i].factor)))
		} else {
			hours = hours.Add(v.Mul(decimal.NewFromInt(units[i].factor)))
		}
	}
	return hours.Round(4), nil
}
