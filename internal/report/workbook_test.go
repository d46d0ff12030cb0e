package report

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/batch"
	"github.com/garyjia/invoice-corrector/internal/domain/entity"
)

func TestSummaryWriter_WriteWorkbook(t *testing.T) {
	items := []batch.Item{
		{
			Path: "/in/week_split.xml",
			Record: &entity.CorrectionRecord{
				InvoiceID:        "FAC-1",
				Status:           entity.CorrectionStatusCorrected,
				VerificationOK:   true,
				OriginalHours:    decimal.RequireFromString("42.50"),
				CorrectedHours:   decimal.RequireFromString("8.00"),
				OriginalTotalHT:  decimal.RequireFromString("1194.83"),
				CorrectedTotalHT: decimal.RequireFromString("224.73"),
			},
		},
		{
			Path:   "/in/broken.xml",
			Record: &entity.CorrectionRecord{Status: entity.CorrectionStatusFailed},
			Err:    errors.New("xml parse error at offset 15"),
		},
		{Path: "/in/unreadable.xml", Err: errors.New("permission denied")},
	}

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, NewSummaryWriter(zap.NewNop()).WriteWorkbook(path, items))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{detailSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(detailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "File", rows[0][0])
	assert.Equal(t, []string{"week_split.xml", "FAC-1", "CORRECTED"}, rows[1][:3])
	assert.Equal(t, "OK", rows[1][7])
	assert.Equal(t, "FAILED", rows[2][2])
	assert.Equal(t, "xml parse error at offset 15", rows[2][8])
	assert.Equal(t, "unreadable.xml", rows[3][0])

	hours, err := f.GetCellValue(detailSheet, "E2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "8", hours)

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Status", "Files"},
		{"CORRECTED", "1"},
		{"FAILED", "2"},
		{"TOTAL", "3"},
	}, summary)
}

func TestSummaryWriter_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, NewSummaryWriter(zap.NewNop()).WriteWorkbook(path, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(detailSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSummaryWriter_BadPath(t *testing.T) {
	err := NewSummaryWriter(zap.NewNop()).WriteWorkbook(filepath.Join(t.TempDir(), "missing", "x.xlsx"), nil)
	assert.Error(t, err)
}
