package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"go.uber.org/zap"
)

// CorrectionRepository handles correction history database operations
type CorrectionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCorrectionRepository creates a new correction repository
func NewCorrectionRepository(db *sql.DB, logger *zap.Logger) *CorrectionRepository {
	return &CorrectionRepository{
		db:     db,
		logger: logger,
	}
}

const correctionColumns = `
	id, file_name, invoice_id, status, has_discrepancy, verification_ok,
	original_hours, corrected_hours, original_total_ht, corrected_total_ht,
	corrected_path, report_path, report_json, error_message, created_at`

// Create inserts a new correction record, stamping CreatedAt when unset
func (r *CorrectionRepository) Create(ctx context.Context, record *entity.CorrectionRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO corrections (` + correctionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.FileName,
		record.InvoiceID,
		record.Status,
		record.HasDiscrepancy,
		record.VerificationOK,
		record.OriginalHours.String(),
		record.CorrectedHours.String(),
		record.OriginalTotalHT.String(),
		record.CorrectedTotalHT.String(),
		record.CorrectedPath,
		record.ReportPath,
		record.ReportJSON,
		record.ErrorMessage,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create correction record",
			zap.String("id", record.ID),
			zap.String("file_name", record.FileName),
			zap.Error(err))
		return fmt.Errorf("failed to create correction: %w", err)
	}

	return nil
}

// GetByID retrieves a correction record, returning nil when it does not exist
func (r *CorrectionRepository) GetByID(ctx context.Context, id string) (*entity.CorrectionRecord, error) {
	query := `SELECT ` + correctionColumns + ` FROM corrections WHERE id = ?`

	record, err := scanCorrection(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get correction by ID",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get correction: %w", err)
	}

	return record, nil
}

// List returns correction records, newest first
func (r *CorrectionRepository) List(ctx context.Context, limit, offset int) ([]*entity.CorrectionRecord, error) {
	query := `SELECT ` + correctionColumns + ` FROM corrections
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list corrections", zap.Error(err))
		return nil, fmt.Errorf("failed to list corrections: %w", err)
	}
	defer rows.Close()

	records := []*entity.CorrectionRecord{}
	for rows.Next() {
		record, err := scanCorrection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanCorrection scans a single correction row
func scanCorrection(row rowScanner) (*entity.CorrectionRecord, error) {
	var record entity.CorrectionRecord

	err := row.Scan(
		&record.ID,
		&record.FileName,
		&record.InvoiceID,
		&record.Status,
		&record.HasDiscrepancy,
		&record.VerificationOK,
		&record.OriginalHours,
		&record.CorrectedHours,
		&record.OriginalTotalHT,
		&record.CorrectedTotalHT,
		&record.CorrectedPath,
		&record.ReportPath,
		&record.ReportJSON,
		&record.ErrorMessage,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}
