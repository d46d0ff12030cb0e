package invoice

import (
	"time"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/xmldoc"
)

// ExtractTimeCards collects every reported time interval of the document,
// whether the timecard sits in the header or under an invoice line.
// Intervals sharing the same period and category are summed.
func ExtractTimeCards(doc *xmldoc.Document, d Dialect) ([]entity.TimeCardEntry, error) {
	type key struct {
		start, end time.Time
		category   entity.Category
	}

	var entries []entity.TimeCardEntry
	index := make(map[key]int)

	for _, card := range doc.FindAll(d.TimeCard) {
		for _, interval := range card.FindAll(d.TimeInterval) {
			// a nested timecard reports its own intervals
			if interval.HasAncestor(d.TimeCard, card) {
				continue
			}

			entry, err := d.readInterval(card, interval)
			if err != nil {
				return nil, err
			}

			k := key{entry.Period.Start, entry.Period.End, entry.Category}
			if i, ok := index[k]; ok {
				entries[i].Duration = entries[i].Duration.Add(entry.Duration)
				continue
			}
			index[k] = len(entries)
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func (d Dialect) readInterval(card, interval *xmldoc.Element) (entity.TimeCardEntry, error) {
	label := d.intervalLabel(interval)

	period, err := d.intervalPeriod(card, interval)
	if err != nil {
		return entity.TimeCardEntry{}, err
	}

	durationEl := interval.Find(d.Duration)
	if durationEl == nil {
		return entity.TimeCardEntry{}, &SchemaMismatchError{Element: d.Duration, Reason: "time interval " + quote(label) + " has no duration"}
	}
	hours, err := ParseHours(durationEl.Text())
	if err != nil {
		return entity.TimeCardEntry{}, &SchemaMismatchError{Element: d.Duration, Reason: err.Error()}
	}

	return entity.TimeCardEntry{
		Period:   period,
		Category: entity.TimeCardCategory(label),
		Duration: hours,
		Label:    label,
	}, nil
}

func (d Dialect) intervalLabel(interval *xmldoc.Element) string {
	if v, ok := interval.Attr(d.IntervalTypeAttr); ok && v != "" {
		return v
	}
	for _, tag := range d.IntervalTypeTags {
		if el := interval.Child(tag); el != nil && el.Text() != "" {
			return el.Text()
		}
	}
	return ""
}

// intervalPeriod looks for dates on the interval itself, then on each
// enclosing element up to the timecard, then anywhere in the timecard
func (d Dialect) intervalPeriod(card, interval *xmldoc.Element) (entity.Period, error) {
	start := firstText(interval.Find, d.StartDateTags)
	end := firstText(interval.Find, d.EndDateTags)

	for p := interval.Parent(); start == "" && p != nil; p = p.Parent() {
		start = firstText(p.Child, d.StartDateTags)
		end = firstText(p.Child, d.EndDateTags)
		if p == card {
			break
		}
	}
	if start == "" {
		start = firstText(card.Find, d.StartDateTags)
		end = firstText(card.Find, d.EndDateTags)
	}
	if start == "" {
		return entity.Period{}, &SchemaMismatchError{Element: d.TimeCard, Reason: "time interval without start date"}
	}
	if end == "" {
		end = start
	}

	startDay, err := entity.ParseDate(start)
	if err != nil {
		return entity.Period{}, &SchemaMismatchError{Element: d.TimeCard, Reason: err.Error()}
	}
	endDay, err := entity.ParseDate(end)
	if err != nil {
		return entity.Period{}, &SchemaMismatchError{Element: d.TimeCard, Reason: err.Error()}
	}
	period, err := entity.NewPeriod(startDay, endDay)
	if err != nil {
		return entity.Period{}, &SchemaMismatchError{Element: d.TimeCard, Reason: err.Error()}
	}
	return period, nil
}

func firstText(lookup func(string) *xmldoc.Element, tags []string) string {
	for _, tag := range tags {
		if el := lookup(tag); el != nil && el.Text() != "" {
			return el.Text()
		}
	}
	return ""
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	return `"` + s + `"`
}
