package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileType represents the type of file being stored
type FileType int

const (
	FileTypeGeneric FileType = iota
	FileTypeXML
	FileTypeJSON
	FileTypeExcel
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFile writes content to the specified full path
	// Creates parent directories if needed
	SaveFile(fullPath string, content []byte) error

	// SaveFileWithType allows type-specific handling
	SaveFileWithType(fullPath string, content []byte, fileType FileType) error

	// ReadFile returns the content of a previously stored file
	ReadFile(fullPath string) ([]byte, error)

	// RunDir returns the directory holding the outputs of one correction run
	RunDir(runID string) string

	// ValidatePath checks path security (no traversal, within base)
	ValidatePath(fullPath string) error
}

// LocalFileStorage implements FileStorage for local filesystem
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) *LocalFileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// RunDir returns {baseDir}/{runID}
func (s *LocalFileStorage) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// SaveFile writes content to the specified full path
func (s *LocalFileStorage) SaveFile(fullPath string, content []byte) error {
	return s.SaveFileWithType(fullPath, content, FileTypeGeneric)
}

// SaveFileWithType writes content with type-specific handling.
// XML documents are written through a temporary file and renamed so a
// reader never sees a half-written correction.
func (s *LocalFileStorage) SaveFileWithType(fullPath string, content []byte, fileType FileType) error {
	if err := s.ValidatePath(fullPath); err != nil {
		return err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	var err error
	if fileType == FileTypeXML {
		err = writeAtomic(fullPath, content)
	} else {
		err = os.WriteFile(fullPath, content, 0644)
	}
	if err != nil {
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("File saved successfully",
		zap.String("path", fullPath),
		zap.Int("size", len(content)),
		zap.Int("file_type", int(fileType)))

	return nil
}

// ReadFile reads a file inside baseDir
func (s *LocalFileStorage) ReadFile(fullPath string) ([]byte, error) {
	if err := s.ValidatePath(fullPath); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// ValidatePath checks that the path is safe and within baseDir
func (s *LocalFileStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}

func writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
