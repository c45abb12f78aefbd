package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file exceeds size limit")
	ErrNotPDF        = errors.New("file is not a pdf")
)

// MaxFileSize is the maximum stored PDF size (25 MB)
const MaxFileSize = 25 * 1024 * 1024

var pdfMagic = []byte("%PDF-")

// FileStorage keeps PDF attachments of tracked emails
type FileStorage interface {
	Save(filename string, content io.Reader) (string, error)
	Get(filePath string) (io.ReadCloser, error)
	Delete(filePath string) error
}

// localStorage implements FileStorage on the local filesystem
type localStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(basePath string) (FileStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &localStorage{basePath: basePath}, nil
}

// ValidateFile checks that filename names a PDF and size is within MaxFileSize
func ValidateFile(filename string, size int64) error {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return ErrNotPDF
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// IsPDF reports whether content starts with the PDF header
func IsPDF(content []byte) bool {
	return bytes.HasPrefix(content, pdfMagic)
}

// resolve maps a stored relative path to an absolute path inside basePath
func (s *localStorage) resolve(filePath string) (string, error) {
	cleanPath := filepath.Clean(filePath)
	if filepath.IsAbs(cleanPath) || strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}
	// Windows-style roots are never valid stored paths
	if strings.Contains(cleanPath, ":") {
		return "", ErrPathTraversal
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absBase, cleanPath))
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return absPath, nil
}

// Save writes content under a generated name and returns its relative path.
// The file only appears once fully written.
func (s *localStorage) Save(filename string, content io.Reader) (string, error) {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	relPath := filepath.Join(name[:2], name)

	dir := filepath.Join(s.basePath, name[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(content, MaxFileSize+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if n > MaxFileSize {
		return "", ErrFileTooLarge
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.basePath, relPath)); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return filepath.ToSlash(relPath), nil
}

// Get opens a stored file
func (s *localStorage) Get(filePath string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file; missing files are not an error
func (s *localStorage) Delete(filePath string) error {
	fullPath, err := s.resolve(filePath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
