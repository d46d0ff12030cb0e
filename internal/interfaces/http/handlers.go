package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/reconcile"
	"github.com/garyjia/invoice-corrector/internal/service"
	"github.com/garyjia/invoice-corrector/pkg/utils"
)

// Version is reported by the health check
var Version = "1.0.0"

// CorrectionService is the part of service.CorrectionService the handlers use
type CorrectionService interface {
	Process(ctx context.Context, fileName string, raw []byte) (*service.Outcome, error)
	Get(ctx context.Context, id string) (*entity.CorrectionRecord, error)
	List(ctx context.Context, limit, offset int) ([]*entity.CorrectionRecord, error)
	CorrectedDocument(ctx context.Context, id string) (*entity.CorrectionRecord, []byte, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	service        CorrectionService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service CorrectionService, maxUploadBytes int64, logger *zap.Logger) *Handlers {
	return &Handlers{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CorrectionResponse represents a correction in API responses
type CorrectionResponse struct {
	ID               string                        `json:"id"`
	FileName         string                        `json:"file_name"`
	InvoiceID        string                        `json:"invoice_id"`
	Status           string                        `json:"status"`
	HasDiscrepancy   bool                          `json:"has_discrepancy"`
	VerificationOK   bool                          `json:"verification_ok"`
	OriginalHours    string                        `json:"original_hours"`
	CorrectedHours   string                        `json:"corrected_hours"`
	OriginalTotalHT  string                        `json:"original_total_ht"`
	CorrectedTotalHT string                        `json:"corrected_total_ht"`
	DownloadURL      string                        `json:"download_url,omitempty"`
	Error            string                        `json:"error,omitempty"`
	CreatedAt        string                        `json:"created_at"`
	Discrepancy      *reconcile.DiscrepancyReport  `json:"discrepancy,omitempty"`
	Verification     *reconcile.VerificationResult `json:"verification,omitempty"`
	Report           json.RawMessage               `json:"report,omitempty"`
}

// ListCorrectionsRequest represents query parameters for listing corrections
type ListCorrectionsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
		},
	})
}

// CreateCorrection handles POST /api/corrections
func (h *Handlers) CreateCorrection(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		h.fail(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	if header.Size > h.maxUploadBytes {
		h.fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("document exceeds %d bytes", h.maxUploadBytes))
		return
	}
	if err := utils.ValidateXMLFileName(header.Filename); err != nil {
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	file, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		h.fail(c, http.StatusBadRequest, "unreadable upload")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		h.fail(c, http.StatusBadRequest, "unreadable upload")
		return
	}

	outcome, err := h.service.Process(c.Request.Context(), header.Filename, raw)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case service.IsInputError(err):
			status = http.StatusBadRequest
		case service.IsRejected(err):
			status = http.StatusUnprocessableEntity
		}
		h.logger.Warn("Correction failed",
			zap.String("file_name", header.Filename),
			zap.Int("status", status),
			zap.Error(err))

		resp := Response{Success: false, Error: err.Error()}
		if outcome != nil && status != http.StatusInternalServerError {
			resp.Data = toOutcomeResponse(outcome)
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toOutcomeResponse(outcome),
	})
}

// ListCorrections handles GET /api/corrections
func (h *Handlers) ListCorrections(c *gin.Context) {
	var req ListCorrectionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	records, err := h.service.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("Failed to list corrections", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "failed to retrieve corrections")
		return
	}

	items := make([]CorrectionResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toCorrectionResponse(record))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    items,
	})
}

// GetCorrection handles GET /api/corrections/:id
func (h *Handlers) GetCorrection(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupFailed(c, err)
		return
	}

	resp := toCorrectionResponse(record)
	if record.ReportJSON != "" {
		resp.Report = json.RawMessage(record.ReportJSON)
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    resp,
	})
}

// DownloadCorrected handles GET /api/corrections/:id/xml
func (h *Handlers) DownloadCorrected(c *gin.Context) {
	record, content, err := h.service.CorrectedDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupFailed(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "corrected_"+record.FileName))
	c.Data(http.StatusOK, "application/xml", content)
}

func (h *Handlers) lookupFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.fail(c, http.StatusNotFound, "correction not found")
	case errors.Is(err, service.ErrNoOutput):
		h.fail(c, http.StatusNotFound, "no corrected document for this correction")
	default:
		h.logger.Error("Failed to load correction", zap.String("id", c.Param("id")), zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "failed to retrieve correction")
	}
}

func (h *Handlers) fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   message,
	})
}

// toCorrectionResponse converts a stored record to API response
func toCorrectionResponse(record *entity.CorrectionRecord) CorrectionResponse {
	resp := CorrectionResponse{
		ID:               record.ID,
		FileName:         record.FileName,
		InvoiceID:        record.InvoiceID,
		Status:           record.Status,
		HasDiscrepancy:   record.HasDiscrepancy,
		VerificationOK:   record.VerificationOK,
		OriginalHours:    record.OriginalHours.StringFixed(2),
		CorrectedHours:   record.CorrectedHours.StringFixed(2),
		OriginalTotalHT:  record.OriginalTotalHT.StringFixed(2),
		CorrectedTotalHT: record.CorrectedTotalHT.StringFixed(2),
		Error:            record.ErrorMessage,
		CreatedAt:        record.CreatedAt.Format(time.RFC3339),
	}
	if record.HasOutput() {
		resp.DownloadURL = "/api/corrections/" + record.ID + "/xml"
	}
	return resp
}

func toOutcomeResponse(outcome *service.Outcome) CorrectionResponse {
	resp := toCorrectionResponse(outcome.Record)
	if outcome.Result != nil {
		resp.Discrepancy = outcome.Result.Report
		resp.Verification = outcome.Result.Verification
	}
	return resp
}
