// Package service runs invoice corrections on behalf of the HTTP server,
// the batch runner and the CLI, and keeps a history of every run.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/invoice"
	"github.com/garyjia/invoice-corrector/internal/reconcile"
	"github.com/garyjia/invoice-corrector/internal/storage"
	"github.com/garyjia/invoice-corrector/internal/xmldoc"
	"github.com/garyjia/invoice-corrector/pkg/utils"
)

var (
	// ErrNotFound is returned when a correction id is unknown
	ErrNotFound = errors.New("correction not found")

	// ErrNoOutput is returned when a correction produced no corrected document
	ErrNoOutput = errors.New("correction has no corrected document")
)

// CorrectionRepository defines persistence operations for correction history
type CorrectionRepository interface {
	Create(ctx context.Context, record *entity.CorrectionRecord) error
	GetByID(ctx context.Context, id string) (*entity.CorrectionRecord, error)
	List(ctx context.Context, limit, offset int) ([]*entity.CorrectionRecord, error)
}

// Figures are the headline numbers of a document
type Figures struct {
	Hours   decimal.Decimal `json:"hours"`
	TotalHT decimal.Decimal `json:"total_ht"`
}

// Report is the JSON document stored next to every corrected invoice
type Report struct {
	Timestamp    time.Time                     `json:"timestamp"`
	InvoiceID    string                        `json:"invoice_id"`
	FileName     string                        `json:"file_name"`
	Status       string                        `json:"status"`
	Original     Figures                       `json:"original"`
	Corrected    Figures                       `json:"corrected"`
	RatioApplied decimal.Decimal               `json:"ratio_applied"`
	Discrepancy  *reconcile.DiscrepancyReport  `json:"discrepancy,omitempty"`
	Verification *reconcile.VerificationResult `json:"verification,omitempty"`
	Warnings     []string                      `json:"warnings,omitempty"`
}

// Outcome is the result of processing one document
type Outcome struct {
	Record *entity.CorrectionRecord
	Result *reconcile.CorrectionResult
	Report *Report
}

// CorrectionService corrects documents and records the outcome
type CorrectionService struct {
	corrector *reconcile.Corrector
	repo      CorrectionRepository
	storage   storage.FileStorage
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewCorrectionService creates a new CorrectionService
func NewCorrectionService(
	corrector *reconcile.Corrector,
	repo CorrectionRepository,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) *CorrectionService {
	return &CorrectionService{
		corrector: corrector,
		repo:      repo,
		storage:   fileStorage,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Process corrects raw, writes the corrected document and its report under
// a new run directory and stores a history record.
//
// Correction errors are returned wrapped after the record has been stored,
// together with a non-nil Outcome. No file is written for a failed or
// rejected document.
func (s *CorrectionService) Process(ctx context.Context, fileName string, raw []byte) (*Outcome, error) {
	name := utils.SanitizeFileName(fileName)
	record := &entity.CorrectionRecord{
		ID:        s.newID(),
		FileName:  name,
		CreatedAt: s.now(),
	}

	s.logger.Info("Processing invoice document",
		zap.String("id", record.ID),
		zap.String("file_name", name),
		zap.Int("size", len(raw)))

	result, corrErr := s.corrector.Correct(raw)
	outcome := &Outcome{Record: record, Result: result}

	if result != nil {
		fillFigures(record, result)
	}

	if corrErr != nil {
		record.Status = failureStatus(corrErr)
		record.ErrorMessage = corrErr.Error()
		s.logger.Warn("Invoice document not corrected",
			zap.String("id", record.ID),
			zap.String("status", record.Status),
			zap.Error(corrErr))
		if err := s.repo.Create(ctx, record); err != nil {
			return outcome, err
		}
		return outcome, fmt.Errorf("correct %s: %w", name, corrErr)
	}

	record.Status = successStatus(result)
	outcome.Report = s.buildReport(record, result)

	reportJSON, err := json.MarshalIndent(outcome.Report, "", "  ")
	if err != nil {
		return outcome, fmt.Errorf("failed to encode report: %w", err)
	}
	record.ReportJSON = string(reportJSON)

	runDir := s.storage.RunDir(record.ID)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	if result.Changed {
		path := filepath.Join(runDir, "corrected_"+name)
		if err := s.storage.SaveFileWithType(path, result.CorrectedXML, storage.FileTypeXML); err != nil {
			return outcome, err
		}
		record.CorrectedPath = path
	}

	reportPath := filepath.Join(runDir, "report_"+stem+".json")
	if err := s.storage.SaveFileWithType(reportPath, reportJSON, storage.FileTypeJSON); err != nil {
		return outcome, err
	}
	record.ReportPath = reportPath

	if err := s.repo.Create(ctx, record); err != nil {
		return outcome, err
	}

	fields := []zap.Field{
		zap.String("id", record.ID),
		zap.String("invoice_id", record.InvoiceID),
		zap.String("status", record.Status),
		zap.String("hours_before", record.OriginalHours.String()),
		zap.String("hours_after", record.CorrectedHours.String()),
	}
	for _, w := range result.Warnings {
		s.logger.Warn("Correction warning", zap.String("id", record.ID), zap.String("warning", w.String()))
	}
	if record.Status == entity.CorrectionStatusReview {
		s.logger.Warn("Corrected document failed verification", fields...)
	} else {
		s.logger.Info("Invoice document processed", fields...)
	}

	return outcome, nil
}

// Get returns a stored correction record
func (s *CorrectionService) Get(ctx context.Context, id string) (*entity.CorrectionRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// List returns stored correction records, newest first
func (s *CorrectionService) List(ctx context.Context, limit, offset int) ([]*entity.CorrectionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// CorrectedDocument returns the corrected bytes of a stored correction
func (s *CorrectionService) CorrectedDocument(ctx context.Context, id string) (*entity.CorrectionRecord, []byte, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !record.HasOutput() {
		return record, nil, ErrNoOutput
	}
	content, err := s.storage.ReadFile(record.CorrectedPath)
	if err != nil {
		return record, nil, err
	}
	return record, content, nil
}

func (s *CorrectionService) buildReport(record *entity.CorrectionRecord, result *reconcile.CorrectionResult) *Report {
	report := &Report{
		Timestamp:    record.CreatedAt,
		InvoiceID:    record.InvoiceID,
		FileName:     record.FileName,
		Status:       record.Status,
		Original:     Figures{Hours: record.OriginalHours, TotalHT: record.OriginalTotalHT},
		Corrected:    Figures{Hours: record.CorrectedHours, TotalHT: record.CorrectedTotalHT},
		RatioApplied: ratio(record.CorrectedHours, record.OriginalHours),
		Discrepancy:  result.Report,
		Verification: result.Verification,
	}
	for _, w := range result.Warnings {
		report.Warnings = append(report.Warnings, w.String())
	}
	return report
}

func fillFigures(record *entity.CorrectionRecord, result *reconcile.CorrectionResult) {
	record.InvoiceID = result.Original.InvoiceID
	if record.InvoiceID == "" {
		record.InvoiceID = invoice.UnknownInvoiceID
	}
	record.OriginalHours = result.Original.InvoicedHours
	record.CorrectedHours = result.Corrected.InvoicedHours
	record.OriginalTotalHT = result.Original.Totals.SubtotalHT
	record.CorrectedTotalHT = result.Corrected.Totals.SubtotalHT
	if result.Report != nil {
		record.HasDiscrepancy = result.Report.HasDiscrepancy
	}
	if result.Verification != nil {
		record.VerificationOK = result.Verification.OK
	}
}

func failureStatus(err error) string {
	var schemaErr *invoice.SchemaMismatchError
	switch {
	case errors.As(err, &schemaErr), errors.Is(err, reconcile.ErrMultiSegmentUnsupported):
		return entity.CorrectionStatusRejected
	default:
		return entity.CorrectionStatusFailed
	}
}

func successStatus(result *reconcile.CorrectionResult) string {
	switch {
	case result.Verification != nil && !result.Verification.OK:
		return entity.CorrectionStatusReview
	case result.Report != nil && result.Report.HasDiscrepancy:
		return entity.CorrectionStatusCorrected
	default:
		return entity.CorrectionStatusUnchanged
	}
}

// ratio is corrected/original to four places, 1 when nothing was invoiced
func ratio(corrected, original decimal.Decimal) decimal.Decimal {
	if original.IsZero() {
		return decimal.NewFromInt(1)
	}
	return corrected.DivRound(original, 4)
}

// IsInputError reports whether err was caused by the submitted document
// rather than by the service
func IsInputError(err error) bool {
	return errors.Is(err, xmldoc.ErrParse) || errors.Is(err, xmldoc.ErrUnsupportedEncoding)
}

// IsRejected reports whether err is a well-formed document the corrector refuses
func IsRejected(err error) bool {
	return failureStatus(err) == entity.CorrectionStatusRejected
}
