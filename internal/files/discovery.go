package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes one discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds recordings and result bundles below a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a Discovery; relative directories passed to its
// methods are joined onto basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

var recordingExts = map[string]bool{".npy": true, ".npz": true, ".csv": true}

// IsRecording reports whether name has a loadable recording extension
func IsRecording(name string) bool {
	return recordingExts[strings.ToLower(filepath.Ext(name))]
}

// FindRecordings lists loadable recordings directly inside dir, sorted by
// name
func (d *Discovery) FindRecordings(dir string) ([]FileInfo, error) {
	dir = d.resolve(dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var found []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !IsRecording(entry.Name()) {
			continue
		}
		if fi, ok := describe(filepath.Join(dir, entry.Name()), entry); ok {
			found = append(found, fi)
		}
	}
	sortByPath(found)
	return found, nil
}

// FindBundles walks a results root and returns every file ending in
// suffix, sorted by path. Dotfiles, such as temporaries left by an
// interrupted write, are skipped.
func (d *Discovery) FindBundles(root, suffix string) ([]FileInfo, error) {
	root = d.resolve(root)

	var found []FileInfo
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			return nil
		}
		if fi, ok := describe(path, entry); ok {
			found = append(found, fi)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sortByPath(found)
	return found, nil
}

// describe stats entry; files that vanished meanwhile are dropped
func describe(path string, entry fs.DirEntry) (FileInfo, bool) {
	info, err := entry.Info()
	if err != nil {
		return FileInfo{}, false
	}
	return FileInfo{Path: path, Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()}, true
}

func sortByPath(found []FileInfo) {
	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
