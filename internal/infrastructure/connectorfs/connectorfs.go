// Package connectorfs manages the on-disk workspace for exchange documents:
// downloaded catalog files, About snapshots, outgoing export files and the
// import log.
package connectorfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind selects one of the workspace subdirectories.
type Kind string

const (
	// KindProduct holds downloaded catalog data files awaiting import.
	KindProduct Kind = "product"
	// KindAbout holds short-lived peer About snapshots.
	KindAbout Kind = "about"
	// KindExport holds outgoing export files served to peers.
	KindExport Kind = "export"
)

// cleanupMaxAge is how long export and about files are kept.
const cleanupMaxAge = 12 * time.Hour

// FileInfo describes one workspace file.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FileSystem is the workspace rooted at a data directory.
type FileSystem struct {
	root string

	mu          sync.Mutex
	lastCleanup time.Time
}

// New creates the workspace directories below root.
func New(root string) (*FileSystem, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	for _, kind := range []Kind{KindProduct, KindAbout, KindExport} {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create workspace directory %s: %w", kind, err)
		}
	}
	return &FileSystem{root: root}, nil
}

// Root returns the workspace root directory.
func (fs *FileSystem) Root() string {
	return fs.root
}

// Dir returns the directory for a kind.
func (fs *FileSystem) Dir(kind Kind) string {
	return filepath.Join(fs.root, string(kind))
}

// FullPath returns the absolute path of a named file. The name is sanitized
// so workspace files can never escape their directory.
func (fs *FileSystem) FullPath(kind Kind, name string) string {
	return filepath.Join(fs.Dir(kind), SanitizeFileName(name))
}

// ImportLogPath returns the path of the import log file.
func (fs *FileSystem) ImportLogPath() string {
	return filepath.Join(fs.root, "import.log")
}

// TimestampedFileName builds the canonical download file name:
// "2006-01-02 15-04 name.xml".
func TimestampedFileName(name string, t time.Time) string {
	base := SanitizeFileName(name)
	if base == "" {
		base = "data"
	}
	if !strings.HasSuffix(base, ".xml") {
		base += ".xml"
	}
	return t.Format("2006-01-02 15-04") + " " + base
}

// SanitizeFileName strips path separators and characters that are invalid in
// file names.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ListFiles returns all files of a kind, newest first.
func (fs *FileSystem) ListFiles(kind Kind) ([]FileInfo, error) {
	entries, err := os.ReadDir(fs.Dir(kind))
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// CountFiles returns the number of files of a kind.
func (fs *FileSystem) CountFiles(kind Kind) int {
	files, err := fs.ListFiles(kind)
	if err != nil {
		return 0
	}
	return len(files)
}

// FileSize returns the size of a named file, zero if it does not exist.
func (fs *FileSystem) FileSize(kind Kind, name string) int64 {
	info, err := os.Stat(fs.FullPath(kind, name))
	if err != nil {
		return 0
	}
	return info.Size()
}

// Delete removes a named file. Deleting a missing file is not an error.
func (fs *FileSystem) Delete(kind Kind, name string) error {
	err := os.Remove(fs.FullPath(kind, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Cleanup removes export and about files older than 12 hours. Runs are
// throttled: at most one sweep per 12 hours per process.
func (fs *FileSystem) Cleanup() {
	fs.mu.Lock()
	if time.Since(fs.lastCleanup) < cleanupMaxAge {
		fs.mu.Unlock()
		return
	}
	fs.lastCleanup = time.Now()
	fs.mu.Unlock()

	fs.sweep(KindExport)
	fs.sweep(KindAbout)
}

func (fs *FileSystem) sweep(kind Kind) {
	files, err := fs.ListFiles(kind)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-cleanupMaxAge)
	for _, f := range files {
		if f.ModTime.Before(cutoff) {
			_ = os.Remove(fs.FullPath(kind, f.Name))
		}
	}
}
