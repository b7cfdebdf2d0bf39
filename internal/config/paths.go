package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir  string
	DataDir        string
	ArchiveDir     string
	CatalogFile    string
	BathymetryFile string
	TransformedDir string
	ReportsDir     string
	LogsDir        string
}

// ResolvePaths turns a PathsConfig into absolute paths. A relative DataDir is
// taken relative to the executable directory; every other relative entry is
// taken relative to DataDir.
func ResolvePaths(pc PathsConfig) (*Paths, error) {
	exeDir, err := executableDir()
	if err != nil {
		return nil, err
	}

	dataDir := pc.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(exeDir, dataDir)
	}

	return &Paths{
		ExecutableDir:  exeDir,
		DataDir:        dataDir,
		ArchiveDir:     under(dataDir, pc.ArchiveDir),
		CatalogFile:    under(dataDir, pc.CatalogFile),
		BathymetryFile: under(dataDir, pc.BathymetryFile),
		TransformedDir: under(dataDir, pc.TransformedDir),
		ReportsDir:     under(dataDir, pc.ReportsDir),
		LogsDir:        under(dataDir, pc.LogsDir),
	}, nil
}

// NewPathsFromBase resolves pc against an explicit base directory instead of
// the executable location. Used by tools and tests.
func NewPathsFromBase(base string, pc PathsConfig) *Paths {
	dataDir := under(base, pc.DataDir)
	return &Paths{
		ExecutableDir:  base,
		DataDir:        dataDir,
		ArchiveDir:     under(dataDir, pc.ArchiveDir),
		CatalogFile:    under(dataDir, pc.CatalogFile),
		BathymetryFile: under(dataDir, pc.BathymetryFile),
		TransformedDir: under(dataDir, pc.TransformedDir),
		ReportsDir:     under(dataDir, pc.ReportsDir),
		LogsDir:        under(dataDir, pc.LogsDir),
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

func under(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// EnsureDirectories creates the writable directories if they don't exist.
// The archive and inputs are read-only and are never created.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.TransformedDir,
		p.ReportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetArchivePath returns the path of a survey file in the archive
func (p *Paths) GetArchivePath(filename string) string {
	return filepath.Join(p.ArchiveDir, filename)
}

// GetTransformedPath returns the sink path for a transformed survey file
func (p *Paths) GetTransformedPath(filename string) string {
	return filepath.Join(p.TransformedDir, filename)
}

// GetManifestPath returns the digest manifest of the transformed sink
func (p *Paths) GetManifestPath() string {
	return filepath.Join(p.TransformedDir, ManifestFileName)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("archive", p.ArchiveDir),
			slog.String("transformed", p.TransformedDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("inputs",
			slog.String("catalog", p.CatalogFile),
			slog.Bool("catalog_exists", FileExists(p.CatalogFile)),
			slog.String("bathymetry", p.BathymetryFile),
			slog.Bool("bathymetry_exists", FileExists(p.BathymetryFile)),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
