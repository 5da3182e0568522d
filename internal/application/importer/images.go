package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/shopsync/backend/internal/application/exchange"
	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// maxPictureBytes bounds a single image download.
const maxPictureBytes = 20 << 20

// resolvePictures translates picture rows to local picture ids, fetching
// each distinct URL at most once per run. URLs not yet in the run memo
// download concurrently; a failed URL is memoized as zero and not retried.
func (e *Engine) resolvePictures(ctx context.Context, rows []exchange.PictureRow, c *cargo) []int {
	fetch := make(map[string]exchange.PictureRow)
	for _, row := range rows {
		url := row.FullSizeImageUrl
		if url == "" {
			continue
		}
		if _, seen := c.pictures[url]; seen {
			continue
		}
		if _, queued := fetch[url]; !queued {
			fetch[url] = row
		}
	}

	if len(fetch) > 0 {
		var wg sync.WaitGroup
		var mu sync.Mutex
		for url, row := range fetch {
			wg.Add(1)
			go func(url string, row exchange.PictureRow) {
				defer wg.Done()
				id, err := e.fetchPicture(ctx, row)
				if err != nil {
					e.importLog.Warn("picture download failed", zap.String("url", url), zap.Error(err))
					id = 0
				}
				mu.Lock()
				c.pictures[url] = id
				mu.Unlock()
			}(url, row)
		}
		wg.Wait()
	}

	ids := make([]int, len(rows))
	for i, row := range rows {
		ids[i] = c.pictures[row.FullSizeImageUrl]
	}
	return ids
}

// fetchPicture downloads one foreign image and stores it, deduplicated by
// content hash: the same binary downloaded twice reuses the existing picture
// row. Returns the local picture id, zero when the row carries no URL.
func (e *Engine) fetchPicture(ctx context.Context, row exchange.PictureRow) (int, error) {
	if row.FullSizeImageUrl == "" {
		return 0, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, row.FullSizeImageUrl, nil)
	if err != nil {
		return 0, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: status %d", row.FullSizeImageUrl, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPictureBytes))
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("download %s: empty body", row.FullSizeImageUrl)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := e.repos.Media.FindByContentHash(ctx, hash)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	mimeType := row.MimeType
	if mimeType == "" {
		mimeType = resp.Header.Get("Content-Type")
	}
	key := "pictures/" + hash + extensionFor(mimeType)

	if err := e.storage.Upload(ctx, key, data, mimeType); err != nil {
		return 0, err
	}

	picture := &catalog.Picture{
		BaseEntity:  shared.NewBaseEntity(),
		MimeType:    mimeType,
		SeoFilename: row.SeoFilename,
		ContentHash: hash,
		StorageKey:  key,
	}
	if err := e.repos.Media.Create(ctx, picture); err != nil {
		return 0, err
	}
	return picture.ID, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
