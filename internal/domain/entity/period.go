package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in documents and reports
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when reading dates from documents
var dateLayouts = []string{DateLayout, "02/01/2006", "20060102"}

// Period is an inclusive range of calendar days
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a Period from two days, rejecting reversed bounds
func NewPeriod(start, end time.Time) (Period, error) {
	start, end = TruncateDay(start), TruncateDay(end)
	if end.Before(start) {
		return Period{}, fmt.Errorf("period end %s is before start %s", end.Format(DateLayout), start.Format(DateLayout))
	}
	return Period{Start: start, End: end}, nil
}

// SingleDay returns the period covering exactly one day
func SingleDay(day time.Time) Period {
	day = TruncateDay(day)
	return Period{Start: day, End: day}
}

// WeekOf returns the Monday to Sunday week containing day
func WeekOf(day time.Time) Period {
	day = TruncateDay(day)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Period{Start: start, End: start.AddDate(0, 0, 6)}
}

// ParseDate accepts a plain date (ISO, dd/mm/yyyy or yyyymmdd) or any
// timestamp whose leading characters are such a date
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		candidate := value
		if len(candidate) > len(layout) {
			candidate = candidate[:len(layout)]
		}
		if t, err := time.Parse(layout, candidate); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// DateLayoutOf returns the layout value was written with, DateLayout when unknown
func DateLayoutOf(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if len(value) >= len(layout) {
			if _, err := time.Parse(layout, value[:len(layout)]); err == nil {
				return layout
			}
		}
	}
	return DateLayout
}

// TruncateDay drops the time of day, keeping the calendar date in UTC
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether the period was never set
func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// Days returns the number of calendar days covered
func (p Period) Days() int {
	if p.IsZero() {
		return 0
	}
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// IsSingleDay reports whether the period collapses to one day
func (p Period) IsSingleDay() bool {
	return !p.IsZero() && p.Start.Equal(p.End)
}

// IsWeekend reports whether day is a Saturday or a Sunday
func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Contains reports whether day falls inside the period
func (p Period) Contains(day time.Time) bool {
	day = TruncateDay(day)
	return !day.Before(p.Start) && !day.After(p.End)
}

// Within reports whether p lies entirely inside other
func (p Period) Within(other Period) bool {
	return !p.Start.Before(other.Start) && !p.End.After(other.End)
}

// StrictSubsetOf reports whether p is non-empty, inside other and smaller than it
func (p Period) StrictSubsetOf(other Period) bool {
	return !p.IsZero() && p.Within(other) && !p.Equal(other)
}

// Equal compares both bounds
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// EachDay calls fn for every day of the period in order
func (p Period) EachDay(fn func(day time.Time)) {
	if p.IsZero() {
		return
	}
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

func (p Period) String() string {
	if p.IsZero() {
		return "-"
	}
	return p.Start.Format(DateLayout) + ".." + p.End.Format(DateLayout)
}

type periodJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON writes the bounds as plain dates
func (p Period) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(periodJSON{
		Start: p.Start.Format(DateLayout),
		End:   p.End.Format(DateLayout),
	})
}

// UnmarshalJSON reads the format written by MarshalJSON
func (p *Period) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Period{}
		return nil
	}
	var raw periodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.Start)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.End)
	if err != nil {
		return err
	}
	period, err := NewPeriod(start, end)
	if err != nil {
		return err
	}
	*p = period
	return nil
}
