package connectorfs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T) *FileSystem {
	t.Helper()
	fs, err := New(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestNewCreatesKindDirectories(t *testing.T) {
	fs := newWorkspace(t)

	for _, kind := range []Kind{KindProduct, KindAbout, KindExport} {
		info, err := os.Stat(fs.Dir(kind))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestTimestampedFileName(t *testing.T) {
	ts := time.Date(2026, 3, 1, 14, 30, 45, 0, time.UTC)

	assert.Equal(t, "2026-03-01 14-30 shop.example.com.xml", TimestampedFileName("shop.example.com", ts))
	assert.Equal(t, "2026-03-01 14-30 data.xml", TimestampedFileName("", ts))
	// Already suffixed names keep a single extension.
	assert.Equal(t, "2026-03-01 14-30 peer.xml", TimestampedFileName("peer.xml", ts))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "peer-shop.xml", SanitizeFileName("peer-shop.xml"))
	assert.Equal(t, "....etcpasswd", SanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "ab", SanitizeFileName(`a<>:"|?*\/b`))
}

func TestFullPathStaysInsideWorkspace(t *testing.T) {
	fs := newWorkspace(t)

	p := fs.FullPath(KindProduct, "../escape.xml")
	assert.Equal(t, fs.Dir(KindProduct), filepath.Dir(p))
}

func TestListCountDeleteFiles(t *testing.T) {
	fs := newWorkspace(t)

	older := fs.FullPath(KindProduct, "older.xml")
	newer := fs.FullPath(KindProduct, "newer.xml")
	require.NoError(t, os.WriteFile(older, []byte("<Content/>"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("<Content></Content>"), 0o644))
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))

	files, err := fs.ListFiles(KindProduct)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "newer.xml", files[0].Name)
	assert.Equal(t, "older.xml", files[1].Name)

	assert.Equal(t, 2, fs.CountFiles(KindProduct))
	assert.Equal(t, int64(10), fs.FileSize(KindProduct, "older.xml"))

	require.NoError(t, fs.Delete(KindProduct, "older.xml"))
	assert.Equal(t, 1, fs.CountFiles(KindProduct))

	// Deleting a missing file is not an error.
	assert.NoError(t, fs.Delete(KindProduct, "older.xml"))
}

func TestCleanupRemovesStaleExportAndAboutFiles(t *testing.T) {
	fs := newWorkspace(t)

	stale := fs.FullPath(KindExport, "stale.xml")
	fresh := fs.FullPath(KindExport, "fresh.xml")
	product := fs.FullPath(KindProduct, "keep.xml")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(product, []byte("x"), 0o644))
	old := time.Now().Add(-13 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(product, old, old))

	fs.Cleanup()

	assert.Equal(t, 1, fs.CountFiles(KindExport))
	// Product files are never swept; they are deleted explicitly.
	assert.Equal(t, 1, fs.CountFiles(KindProduct))

	// Second run within the throttle window is a no-op even for new stale
	// files.
	stale2 := fs.FullPath(KindExport, "stale2.xml")
	require.NoError(t, os.WriteFile(stale2, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(stale2, old, old))
	fs.Cleanup()
	assert.Equal(t, 2, fs.CountFiles(KindExport))
}

func TestImportStatsRecordAndLookup(t *testing.T) {
	fs := newWorkspace(t)
	stats := NewImportStats(fs)

	require.NoError(t, stats.Record(FileStats{Name: "a.xml", CategoryCount: 12, ProductCount: 340}))
	require.NoError(t, stats.Record(FileStats{Name: "b.xml", CategoryCount: 1, ProductCount: 2}))
	// Overwrite.
	require.NoError(t, stats.Record(FileStats{Name: "a.xml", CategoryCount: 15, ProductCount: 400}))

	got := stats.StatsFor("a.xml")
	assert.Equal(t, 15, got.CategoryCount)
	assert.Equal(t, 400, got.ProductCount)

	require.NoError(t, stats.Remove("a.xml"))
	// After removal the counts fall back to size-based estimates; the file
	// does not exist so the product estimate is zero.
	got = stats.StatsFor("a.xml")
	assert.Equal(t, estimatedCategoriesCount, got.CategoryCount)
	assert.Equal(t, 0, got.ProductCount)
}

func TestImportStatsEstimatesFromFileSize(t *testing.T) {
	fs := newWorkspace(t)
	stats := NewImportStats(fs)

	data := make([]byte, 3*estimatedProductBytes)
	require.NoError(t, os.WriteFile(fs.FullPath(KindProduct, "big.xml"), data, 0o644))

	got := stats.StatsFor("big.xml")
	assert.Equal(t, 3, got.ProductCount)
	assert.Equal(t, estimatedCategoriesCount, got.CategoryCount)
}

func TestImportStatsSyncDropsMissingFiles(t *testing.T) {
	fs := newWorkspace(t)
	stats := NewImportStats(fs)

	require.NoError(t, os.WriteFile(fs.FullPath(KindProduct, "kept.xml"), []byte("x"), 0o644))
	require.NoError(t, stats.Record(FileStats{Name: "kept.xml", CategoryCount: 1, ProductCount: 1}))
	require.NoError(t, stats.Record(FileStats{Name: "gone.xml", CategoryCount: 9, ProductCount: 9}))

	require.NoError(t, stats.Sync())

	assert.Equal(t, 1, stats.StatsFor("kept.xml").CategoryCount)
	// gone.xml entry was dropped, so it estimates now.
	assert.Equal(t, estimatedCategoriesCount, stats.StatsFor("gone.xml").CategoryCount)
}
