package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved directories a run reads from and writes to
type Paths struct {
	WorkingDir string
	DataDir    string
	ResultsDir string
	LogsDir    string
}

// Resolve turns the configured directories into absolute paths. Relative
// entries are taken from the current working directory, the way the batch
// scripts are launched from a job directory.
func (c *Config) Resolve() (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(wd, p)
	}

	return &Paths{
		WorkingDir: wd,
		DataDir:    abs(c.Paths.DataDir),
		ResultsDir: abs(c.Paths.ResultsDir),
		LogsDir:    abs(c.Paths.LogsDir),
	}, nil
}

// EnsureDirectories creates the output directories if they don't exist.
// The data directory is input only and is not created.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ResultsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// DataFile resolves name against the data directory unless it is absolute
func (p *Paths) DataFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
