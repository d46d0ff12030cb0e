package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		value      string
		want       string
		wantLayout string
	}{
		{"2025-08-26", "2025-08-26", DateLayout},
		{" 2025-08-26 ", "2025-08-26", DateLayout},
		{"2025-08-26T08:30:00+02:00", "2025-08-26", DateLayout},
		{"26/08/2025", "2025-08-26", "02/01/2006"},
		{"20250826", "2025-08-26", "20060102"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d, err := ParseDate(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Format(DateLayout))
			assert.Equal(t, tt.wantLayout, DateLayoutOf(tt.value))
		})
	}

	_, err := ParseDate("next tuesday")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(mustDate(t, "2025-08-26"), mustDate(t, "2025-09-01"))
	require.NoError(t, err)
	assert.Equal(t, 7, p.Days())
	assert.False(t, p.IsSingleDay())
	assert.Equal(t, "2025-08-26..2025-09-01", p.String())

	_, err = NewPeriod(mustDate(t, "2025-09-01"), mustDate(t, "2025-08-26"))
	assert.Error(t, err)
}

func TestWeekOf(t *testing.T) {
	tests := []struct {
		day       string
		wantStart string
	}{
		{"2025-08-25", "2025-08-25"},
		{"2025-08-26", "2025-08-25"},
		{"2025-08-31", "2025-08-25"},
		{"2025-09-01", "2025-09-01"},
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			w := WeekOf(mustDate(t, tt.day))
			assert.Equal(t, tt.wantStart, w.Start.Format(DateLayout))
			assert.Equal(t, 7, w.Days())
			assert.Equal(t, time.Monday, w.Start.Weekday())
		})
	}
}

func TestPeriod_Relations(t *testing.T) {
	week := Period{Start: mustDate(t, "2025-08-26"), End: mustDate(t, "2025-09-01")}
	day := SingleDay(mustDate(t, "2025-08-26"))

	assert.True(t, day.IsSingleDay())
	assert.True(t, day.StrictSubsetOf(week))
	assert.False(t, week.StrictSubsetOf(week))
	assert.True(t, week.Within(week))
	assert.False(t, week.StrictSubsetOf(day))
	assert.False(t, Period{}.StrictSubsetOf(week))

	outside := SingleDay(mustDate(t, "2025-09-02"))
	assert.False(t, outside.StrictSubsetOf(week))
	assert.True(t, week.Contains(mustDate(t, "2025-08-31")))
	assert.False(t, week.Contains(mustDate(t, "2025-09-02")))

	var days []string
	Period{Start: mustDate(t, "2025-08-30"), End: mustDate(t, "2025-09-01")}.EachDay(func(d time.Time) {
		days = append(days, d.Format(DateLayout))
	})
	assert.Equal(t, []string{"2025-08-30", "2025-08-31", "2025-09-01"}, days)

	assert.True(t, IsWeekend(mustDate(t, "2025-08-30")))
	assert.True(t, IsWeekend(mustDate(t, "2025-08-31")))
	assert.False(t, IsWeekend(mustDate(t, "2025-09-01")))
}

func TestPeriod_JSON(t *testing.T) {
	p := Period{Start: mustDate(t, "2025-08-26"), End: mustDate(t, "2025-08-26")}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2025-08-26","end":"2025-08-26"}`, string(data))

	var back Period
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, p.Equal(back))

	data, err = json.Marshal(Period{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
