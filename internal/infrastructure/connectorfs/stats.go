package connectorfs

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"sync"
)

// Per-file record counts are expensive to determine exactly (it would mean
// scanning the whole document), so counts recorded at download time are kept
// in a sidecar file and estimated from the file size when missing.
const (
	estimatedProductBytes    = 10000
	estimatedCategoriesCount = 1000
)

// FileStats holds the record counts of one downloaded catalog file.
type FileStats struct {
	Name          string `xml:"Name"`
	CategoryCount int    `xml:"CategoryCount"`
	ProductCount  int    `xml:"ProductCount"`
}

type statsDocument struct {
	XMLName xml.Name    `xml:"ImportStats"`
	Files   []FileStats `xml:"File"`
}

// ImportStats persists per-file record counts next to the product files.
type ImportStats struct {
	fs *FileSystem
	mu sync.Mutex
}

// NewImportStats creates the sidecar store for a workspace.
func NewImportStats(fs *FileSystem) *ImportStats {
	return &ImportStats{fs: fs}
}

func (s *ImportStats) path() string {
	return filepath.Join(s.fs.root, "import-stats.xml")
}

func (s *ImportStats) load() statsDocument {
	var doc statsDocument
	data, err := os.ReadFile(s.path())
	if err != nil {
		return doc
	}
	_ = xml.Unmarshal(data, &doc)
	return doc
}

func (s *ImportStats) save(doc statsDocument) error {
	data, err := xml.MarshalIndent(doc, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), append([]byte(xml.Header), data...), 0o644)
}

// Record stores the counts for a downloaded file, replacing any previous
// entry of the same name.
func (s *ImportStats) Record(stats FileStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	replaced := false
	for i := range doc.Files {
		if doc.Files[i].Name == stats.Name {
			doc.Files[i] = stats
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Files = append(doc.Files, stats)
	}
	return s.save(doc)
}

// Remove drops the entry for a deleted file.
func (s *ImportStats) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	kept := doc.Files[:0]
	for _, f := range doc.Files {
		if f.Name != name {
			kept = append(kept, f)
		}
	}
	doc.Files = kept
	return s.save(doc)
}

// StatsFor returns the recorded counts for a file. When no entry exists the
// counts are estimated from the file size.
func (s *ImportStats) StatsFor(name string) FileStats {
	s.mu.Lock()
	doc := s.load()
	s.mu.Unlock()

	for _, f := range doc.Files {
		if f.Name == name {
			return f
		}
	}

	size := s.fs.FileSize(KindProduct, name)
	return FileStats{
		Name:          name,
		CategoryCount: estimatedCategoriesCount,
		ProductCount:  int(size / estimatedProductBytes),
	}
}

// Sync drops sidecar entries whose files no longer exist in the product
// directory.
func (s *ImportStats) Sync() error {
	files, err := s.fs.ListFiles(KindProduct)
	if err != nil {
		return err
	}
	existing := make(map[string]struct{}, len(files))
	for _, f := range files {
		existing[f.Name] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	kept := doc.Files[:0]
	for _, f := range doc.Files {
		if _, ok := existing[f.Name]; ok {
			kept = append(kept, f)
		}
	}
	doc.Files = kept
	return s.save(doc)
}
