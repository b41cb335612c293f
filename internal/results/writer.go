package results

import (
	"io"
	"log/slog"

	apperrors "phicli/internal/errors"
	"phicli/internal/files"
)

// Writer stores bundles under a Layout
type Writer struct {
	layout Layout
	suffix string
	files  *files.Manager
}

// NewWriter creates a bundle writer. suffix is appended to every file name
// ahead of BundleSuffix.
func NewWriter(layout Layout, suffix string, manager *files.Manager) *Writer {
	if manager == nil {
		manager = files.NewManager(nil)
	}
	return &Writer{layout: layout, suffix: suffix, files: manager}
}

// Layout returns the writer's layout
func (w *Writer) Layout() Layout {
	return w.layout
}

// PathFor is the bundle path of a channel-set id
func (w *Writer) PathFor(id int) string {
	return w.layout.Path(id, w.suffix)
}

// Exists reports whether id's bundle was already written
func (w *Writer) Exists(id int) bool {
	return w.files.FileExists(w.PathFor(id))
}

// Write stores b atomically and returns its path
func (w *Writer) Write(b *Bundle) (string, error) {
	path := w.PathFor(b.Meta.SetID)

	err := w.files.WriteAtomic(path, func(out io.Writer) error {
		return b.Encode(out)
	})
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeValidation) {
			return "", err
		}
		return "", apperrors.NewStorageError("failed to write bundle", err).
			WithContext("path", path)
	}

	slog.Debug("Bundle written",
		slog.Int("set_id", b.Meta.SetID),
		slog.String("path", path))
	return path, nil
}
