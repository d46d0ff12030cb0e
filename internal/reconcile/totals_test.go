package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/invoice"
	"github.com/garyjia/invoice-corrector/internal/xmldoc"
)

func TestRecompute(t *testing.T) {
	tests := []struct {
		name    string
		charges []string
		wantHT  string
		wantTax string
		wantTTC string
	}{
		{"scenario", []string{"195.37", "0", "0", "6.50", "22.86"}, "224.73", "44.95", "269.68"},
		{"tax rounds half up", []string{"0.025"}, "0.03", "0.01", "0.04"},
		{"empty", nil, "0.00", "0.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []entity.LineSnapshot
			for _, c := range tt.charges {
				lines = append(lines, entity.LineSnapshot{Charge: dec(c)})
			}
			totals := Recompute(lines)
			assert.Equal(t, tt.wantHT, totals.SubtotalHT.StringFixed(2))
			assert.Equal(t, tt.wantTax, totals.Tax.StringFixed(2))
			assert.Equal(t, tt.wantTTC, totals.TotalTTC.StringFixed(2))
		})
	}
}

func TestRecompute_RoundsLinesBeforeSumming(t *testing.T) {
	lines := []entity.LineSnapshot{
		{Charge: dec("10.005")},
		{Charge: dec("10.005")},
	}
	// 10.01 + 10.01, not round(20.01)
	assert.Equal(t, "20.02", Recompute(lines).SubtotalHT.StringFixed(2))
}

func TestTaxOf(t *testing.T) {
	assert.Equal(t, 20, TaxRatePercent)
	assert.Equal(t, "238.97", TaxOf(dec("1194.83")).StringFixed(2))
	assert.Equal(t, "170.95", TaxOf(dec("854.76")).StringFixed(2))
}

func TestApplyTotals(t *testing.T) {
	doc, err := xmldoc.Load(readFixture(t, "week_split.xml"))
	require.NoError(t, err)

	d := invoice.DefaultDialect()
	header, err := invoice.ReadHeader(doc, d)
	require.NoError(t, err)

	lines := []entity.LineSnapshot{
		{Category: entity.CategoryWorkedHours, Quantity: dec("8"), Charge: dec("195.37")},
		{Category: entity.CategoryOvertime, Quantity: dec("0"), Charge: dec("0")},
		{Category: entity.CategoryMealAllowance, Quantity: dec("1"), Charge: dec("6.50")},
	}
	err = ApplyTotals(header, lines, Recompute(lines), entity.SingleDay(day("2025-08-26")))
	require.NoError(t, err)

	out, err := doc.Serialize()
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<TotalCharges currency="EUR">201.87</TotalCharges>`)
	assert.Contains(t, s, `<TotalTax currency="EUR">40.37</TotalTax>`)
	assert.Contains(t, s, `<TotalAmount currency="EUR">242.24</TotalAmount>`)
	assert.Contains(t, s, `<Data owner="NbHeuresFacturees">8.00</Data>`)
	assert.Contains(t, s, `<Data owner="DEB_PER">2025-08-26</Data>`)
	assert.Contains(t, s, `<Data owner="FIN_PER">2025-08-26</Data>`)
}
