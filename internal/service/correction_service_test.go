package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/reconcile"
	"github.com/garyjia/invoice-corrector/internal/storage"
)

// MockCorrectionRepository mocks the CorrectionRepository interface
type MockCorrectionRepository struct {
	mock.Mock
}

func (m *MockCorrectionRepository) Create(ctx context.Context, record *entity.CorrectionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCorrectionRepository) GetByID(ctx context.Context, id string) (*entity.CorrectionRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*entity.CorrectionRecord)
	return record, args.Error(1)
}

func (m *MockCorrectionRepository) List(ctx context.Context, limit, offset int) ([]*entity.CorrectionRecord, error) {
	args := m.Called(ctx, limit, offset)
	records, _ := args.Get(0).([]*entity.CorrectionRecord)
	return records, args.Error(1)
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "reconcile", "testdata", name))
	require.NoError(t, err)
	return raw
}

func newTestService(t *testing.T, repo CorrectionRepository) (*CorrectionService, string) {
	t.Helper()
	outDir := t.TempDir()
	svc := NewCorrectionService(
		reconcile.NewCorrector(),
		repo,
		storage.NewLocalFileStorage(outDir, zap.NewNop()),
		zap.NewNop(),
	)
	svc.newID = func() string { return "run-1" }
	svc.now = func() time.Time { return time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC) }
	return svc, outDir
}

func TestCorrectionService_Process_WeekSplit(t *testing.T) {
	repo := new(MockCorrectionRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.CorrectionRecord")).Return(nil)
	svc, outDir := newTestService(t, repo)

	outcome, err := svc.Process(context.Background(), "week split.xml", readTestdata(t, "week_split.xml"))
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Create", 1)

	record := outcome.Record
	assert.Equal(t, "run-1", record.ID)
	assert.Equal(t, "week_split.xml", record.FileName)
	assert.Equal(t, entity.CorrectionStatusCorrected, record.Status)
	assert.True(t, record.HasDiscrepancy)
	assert.True(t, record.VerificationOK)
	assert.Equal(t, "42.5", record.OriginalHours.String())
	assert.Equal(t, "8", record.CorrectedHours.String())
	assert.Equal(t, "224.73", record.CorrectedTotalHT.StringFixed(2))

	assert.Equal(t, filepath.Join(outDir, "run-1", "corrected_week_split.xml"), record.CorrectedPath)
	assert.Equal(t, filepath.Join(outDir, "run-1", "report_week_split.json"), record.ReportPath)

	written, err := os.ReadFile(record.CorrectedPath)
	require.NoError(t, err)
	assert.Equal(t, string(readTestdata(t, "week_split_corrected.xml")), string(written))

	reportRaw, err := os.ReadFile(record.ReportPath)
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(reportRaw, &report))
	assert.Equal(t, "0.1882", report["ratio_applied"])
	assert.Equal(t, map[string]interface{}{"hours": "42.5", "total_ht": "1194.83"}, report["original"])
	assert.Equal(t, record.ReportJSON, string(reportRaw))
}

func TestCorrectionService_Process_AlreadyCorrect(t *testing.T) {
	repo := new(MockCorrectionRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	svc, _ := newTestService(t, repo)

	outcome, err := svc.Process(context.Background(), "done.xml", readTestdata(t, "week_split_corrected.xml"))
	require.NoError(t, err)

	assert.Equal(t, entity.CorrectionStatusUnchanged, outcome.Record.Status)
	assert.False(t, outcome.Record.HasOutput())
	assert.NotEmpty(t, outcome.Record.ReportPath)
	assert.True(t, decimal.NewFromInt(1).Equal(outcome.Report.RatioApplied))
}

func TestCorrectionService_Process_Malformed(t *testing.T) {
	repo := new(MockCorrectionRepository)
	var stored *entity.CorrectionRecord
	repo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*entity.CorrectionRecord) }).
		Return(nil)
	svc, outDir := newTestService(t, repo)

	outcome, err := svc.Process(context.Background(), "broken.xml", []byte("<Invoice><Line>"))
	require.Error(t, err)
	assert.True(t, IsInputError(err))
	assert.False(t, IsRejected(err))

	require.NotNil(t, stored)
	assert.Equal(t, entity.CorrectionStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)
	assert.Same(t, stored, outcome.Record)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no files are written for unreadable input")
}

func TestCorrectionService_Process_SchemaMismatch(t *testing.T) {
	repo := new(MockCorrectionRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	svc, _ := newTestService(t, repo)

	_, err := svc.Process(context.Background(), "other.xml", []byte(`<?xml version="1.0"?><Order><Id>1</Id></Order>`))
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.False(t, IsInputError(err))
}

func TestCorrectionService_Process_RepositoryFailure(t *testing.T) {
	repo := new(MockCorrectionRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	svc, _ := newTestService(t, repo)

	_, err := svc.Process(context.Background(), "a.xml", readTestdata(t, "week_split.xml"))
	assert.EqualError(t, err, "disk full")
}

func TestCorrectionService_Get(t *testing.T) {
	repo := new(MockCorrectionRepository)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, nil)
	repo.On("GetByID", mock.Anything, "plain").Return(&entity.CorrectionRecord{ID: "plain"}, nil)
	svc, _ := newTestService(t, repo)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.CorrectedDocument(context.Background(), "plain")
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestCorrectionService_List_ClampsPaging(t *testing.T) {
	repo := new(MockCorrectionRepository)
	repo.On("List", mock.Anything, 20, 0).Return([]*entity.CorrectionRecord{}, nil)
	svc, _ := newTestService(t, repo)

	_, err := svc.List(context.Background(), 0, -3)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
