package validation

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"adcpview/internal/config"
	apperrors "adcpview/internal/errors"
)

// NetCDF classic (CDF\x01), 64-bit offset (CDF\x02) and NetCDF-4/HDF5 headers.
var netCDFMagic = [][]byte{
	[]byte("CDF\x01"),
	[]byte("CDF\x02"),
	[]byte("\x89HDF\r\n\x1a\n"),
}

// FileValidator checks the viewer's input and output locations before use
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateArchive checks that dir is a readable directory and returns the
// number of survey files in it. An empty archive is not an error.
func (v *FileValidator) ValidateArchive(dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		v.logger.Error("Archive directory unavailable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return 0, apperrors.NewIOError(dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Archive path is not a directory",
			slog.String("path", dir))
		return 0, apperrors.NewIOError(dir, fmt.Errorf("%s is not a directory", dir))
	}

	count, err := v.CountFiles(dir, config.SurveyFilePattern)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		v.logger.Warn("No survey files in archive",
			slog.String("directory", dir),
			slog.String("pattern", config.SurveyFilePattern))
		return 0, nil
	}

	v.logger.Info("Archive validated",
		slog.String("directory", dir),
		slog.Int("files_found", count))
	return count, nil
}

// ValidateOutputDirectory ensures dir exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("create "+dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("write "+dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks that path is a readable regular file
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		v.logger.Error("File unavailable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewIOError(path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewIOError(path, fmt.Errorf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewIOError(path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// CountFiles counts the regular files matching pattern in dir
func (v *FileValidator) CountFiles(dir string, pattern string) (int, error) {
	fullPattern := filepath.Join(dir, pattern)
	matches, err := filepath.Glob(fullPattern)
	if err != nil {
		v.logger.Error("Failed to count files",
			slog.String("pattern", fullPattern),
			slog.String("error", err.Error()))
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("bad file pattern %q", pattern))
	}

	fileCount := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err == nil && !info.IsDir() {
			fileCount++
		}
	}
	return fileCount, nil
}

// ValidateCatalogFile checks that path is a .csv or .xlsx catalog that is
// not an office lock file.
func (v *FileValidator) ValidateCatalogFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".xlsx" {
		v.logger.Error("Unsupported catalog format",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewAppValidationError(fmt.Sprintf("unsupported catalog format %q", ext))
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Catalog is a temporary Excel file",
			slog.String("file", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a temporary Excel file", filepath.Base(path)))
	}

	return nil
}

// ValidateNetCDFFile checks that path is readable and starts with a NetCDF
// or HDF5 signature.
func (v *FileValidator) ValidateNetCDFFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewIOError(path, err)
	}
	defer f.Close()

	head := make([]byte, 8)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return apperrors.NewIOError(path, err)
	}
	head = head[:n]

	for _, magic := range netCDFMagic {
		if bytes.HasPrefix(head, magic) {
			return nil
		}
	}

	v.logger.Error("File is not NetCDF",
		slog.String("file", path))
	return apperrors.NewDataFormatError(filepath.Base(path), fmt.Errorf("not a NetCDF file"))
}
