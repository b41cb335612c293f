package results

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// DefaultMaxFilesPerDir bounds the number of bundles in one directory
const DefaultMaxFilesPerDir = 1000000

// BundleSuffix ends every bundle file name
const BundleSuffix = "_phi.npz"

// Layout maps channel-set ids to bundle paths
type Layout struct {
	Root           string
	MaxFilesPerDir int
}

// NewLayout returns a layout rooted at root; a non-positive maxFiles
// falls back to DefaultMaxFilesPerDir.
func NewLayout(root string, maxFiles int) Layout {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFilesPerDir
	}
	return Layout{Root: root, MaxFilesPerDir: maxFiles}
}

// Dir is the shard directory holding id's bundle
func (l Layout) Dir(id int) string {
	max := l.MaxFilesPerDir
	if max <= 0 {
		max = DefaultMaxFilesPerDir
	}
	return filepath.Join(l.Root, strconv.Itoa(id/max))
}

// Path is the bundle path for id. suffix is inserted between the padded
// id and BundleSuffix and may be empty.
func (l Layout) Path(id int, suffix string) string {
	return filepath.Join(l.Dir(id), fmt.Sprintf("%08d%s%s", id, suffix, BundleSuffix))
}
