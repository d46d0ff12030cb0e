// Package report writes batch correction summaries as Excel workbooks.
package report

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/batch"
)

const (
	detailSheet  = "Corrections"
	summarySheet = "Summary"
)

var detailHeader = []interface{}{
	"File", "Invoice ID", "Status",
	"Hours before", "Hours after",
	"Total HT before", "Total HT after",
	"Verification", "Error",
}

// SummaryWriter writes one row per batch item plus a status count sheet
type SummaryWriter struct {
	logger *zap.Logger
}

// NewSummaryWriter creates a new summary writer
func NewSummaryWriter(logger *zap.Logger) *SummaryWriter {
	return &SummaryWriter{logger: logger}
}

// WriteWorkbook saves the batch summary to outputPath
func (w *SummaryWriter) WriteWorkbook(outputPath string, items []batch.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", detailSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	if err := f.SetSheetRow(detailSheet, "A1", &detailHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	w.setStyle(f, detailSheet, "A1", "I1", bold)

	counts := make(map[string]int)
	for i, item := range items {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := rowValues(item)
		if err := f.SetSheetRow(detailSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		counts[values[2].(string)]++
	}
	if len(items) > 0 {
		last := len(items) + 1
		w.setStyle(f, detailSheet, "D2", fmt.Sprintf("G%d", last), amount)
	}
	w.setColWidth(f, detailSheet, "A", "A", 32)
	w.setColWidth(f, detailSheet, "B", "C", 18)
	w.setColWidth(f, detailSheet, "D", "H", 15)
	w.setColWidth(f, detailSheet, "I", "I", 60)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]interface{}{"Status", "Files"}); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	w.setStyle(f, summarySheet, "A1", "B1", bold)

	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for i, status := range statuses {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(summarySheet, cell, &[]interface{}{status, counts[status]}); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, len(statuses)+2)
	if err := f.SetSheetRow(summarySheet, totalCell, &[]interface{}{"TOTAL", len(items)}); err != nil {
		return fmt.Errorf("failed to write summary total: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}

	w.logger.Info("Batch summary written",
		zap.String("output_path", outputPath),
		zap.Int("rows", len(items)))
	return nil
}

func rowValues(item batch.Item) []interface{} {
	name := filepath.Base(item.Path)
	errMsg := ""
	if item.Err != nil {
		errMsg = item.Err.Error()
	}

	record := item.Record
	if record == nil {
		return []interface{}{name, "", "FAILED", nil, nil, nil, nil, "", errMsg}
	}

	verification := "OK"
	switch {
	case item.Failed():
		verification = ""
	case !record.VerificationOK:
		verification = "MISMATCH"
	}

	return []interface{}{
		name,
		record.InvoiceID,
		record.Status,
		record.OriginalHours.InexactFloat64(),
		record.CorrectedHours.InexactFloat64(),
		record.OriginalTotalHT.InexactFloat64(),
		record.CorrectedTotalHT.InexactFloat64(),
		verification,
		errMsg,
	}
}

// setStyle applies a style, logging instead of failing the whole report
func (w *SummaryWriter) setStyle(f *excelize.File, sheet, from, to string, style int) {
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		w.logger.Warn("Failed to set cell style",
			zap.String("sheet", sheet),
			zap.String("range", from+":"+to),
			zap.Error(err))
	}
}

func (w *SummaryWriter) setColWidth(f *excelize.File, sheet, from, to string, width float64) {
	if err := f.SetColWidth(sheet, from, to, width); err != nil {
		w.logger.Warn("Failed to set column width", zap.String("sheet", sheet), zap.Error(err))
	}
}
