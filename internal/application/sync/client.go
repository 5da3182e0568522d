// Package sync implements the consumer side of a peer relationship: signed
// requests against a remote store, About snapshots and streaming catalog
// downloads into the local exchange workspace.
package sync

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	appconnector "github.com/shopsync/backend/internal/application/connector"
	"github.com/shopsync/backend/internal/application/exchange"
	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/connectorfs"
	"github.com/shopsync/backend/internal/infrastructure/hmacauth"
	"github.com/shopsync/backend/internal/infrastructure/xmlstream"
	"go.uber.org/zap"
)

// Exchange endpoint paths, relative to the peer's base URL.
const (
	AboutPath       = "/api/v1/connector/about"
	ProductDataPath = "/api/v1/connector/product-data"
)

// maxErrorBody bounds how much of an error response is read for diagnostics.
const maxErrorBody = 64 << 10

// operationResult mirrors the error body a peer returns on rejected
// requests.
type operationResult struct {
	XMLName      xml.Name `xml:"OperationResultModel"`
	HasError     bool     `xml:"HasError"`
	ShortMessage string   `xml:"ShortMessage"`
	Description  string   `xml:"Description,omitempty"`
}

// FetchOptions narrow a product data download.
type FetchOptions struct {
	CategoryIDs   []int
	UpdatedOnFrom *time.Time
}

// FetchResult describes one completed product data download.
type FetchResult struct {
	// FileName is empty when the peer had nothing to send.
	FileName      string
	Empty         bool
	CategoryStats xmlstream.SectionStats
	ProductStats  xmlstream.SectionStats
}

// Client talks to remote stores over their import connections.
type Client struct {
	cfg         *config.Config
	connections connector.ConnectionRepository
	fs          *connectorfs.FileSystem
	stats       *connectorfs.ImportStats
	hmac        *hmacauth.Authenticator
	http        *http.Client
	logger      *zap.Logger

	now func() time.Time
}

// NewClient creates a Client.
func NewClient(cfg *config.Config, connections connector.ConnectionRepository, fs *connectorfs.FileSystem, stats *connectorfs.ImportStats, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:         cfg,
		connections: connections,
		fs:          fs,
		stats:       stats,
		hmac:        hmacauth.NewAuthenticator(),
		http:        &http.Client{Timeout: 10 * time.Minute},
		logger:      logger,
		now:         time.Now,
	}
}

// FetchAbout downloads and parses the peer's store description. A snapshot of
// the raw document is kept in the workspace for the admin UI.
func (c *Client) FetchAbout(ctx context.Context, conn *connector.Connection) (*exchange.About, error) {
	resp, err := c.do(ctx, conn, peerURL(conn, AboutPath, nil))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read about response: %w", err)
	}

	var about exchange.About
	if err := xml.Unmarshal(body, &about); err != nil {
		return nil, fmt.Errorf("parse about response: %w", err)
	}

	snapshot := connectorfs.TimestampedFileName(conn.Domain(), c.now())
	if err := os.WriteFile(c.fs.FullPath(connectorfs.KindAbout, snapshot), body, 0o644); err != nil {
		c.logger.Warn("write about snapshot", zap.Error(err))
	}

	c.syncCounters(ctx, conn, resp.Header)
	return &about, nil
}

// FetchProductData streams a catalog document from the peer into the product
// workspace. An empty response is discarded rather than left around as a
// zero-record file.
func (c *Client) FetchProductData(ctx context.Context, conn *connector.Connection, opts FetchOptions) (*FetchResult, error) {
	query := url.Values{}
	if len(opts.CategoryIDs) > 0 {
		parts := make([]string, len(opts.CategoryIDs))
		for i, id := range opts.CategoryIDs {
			parts[i] = strconv.Itoa(id)
		}
		query.Set("categoryIds", strings.Join(parts, ","))
	}
	if opts.UpdatedOnFrom != nil {
		query.Set("updatedOnFrom", opts.UpdatedOnFrom.UTC().Format(time.RFC3339))
	}

	resp, err := c.do(ctx, conn, peerURL(conn, ProductDataPath, query))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &FetchResult{
		CategoryStats: xmlstream.ParseSectionStats(resp.Header.Get(hmacauth.HeaderCategory)),
		ProductStats:  xmlstream.ParseSectionStats(resp.Header.Get(hmacauth.HeaderProduct)),
	}

	name := connectorfs.TimestampedFileName(conn.Domain(), c.now())
	path := c.fs.FullPath(connectorfs.KindProduct, name)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create download file: %w", err)
	}
	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		if copyErr != nil {
			return nil, fmt.Errorf("download product data: %w", copyErr)
		}
		return nil, fmt.Errorf("download product data: %w", closeErr)
	}

	if result.ProductStats.TotalRecords == 0 && result.CategoryStats.TotalRecords == 0 {
		if err := c.fs.Delete(connectorfs.KindProduct, name); err != nil {
			c.logger.Warn("delete empty download", zap.String("file", name), zap.Error(err))
		}
		result.Empty = true
		c.syncCounters(ctx, conn, resp.Header)
		return result, nil
	}

	result.FileName = name
	if err := c.stats.Record(connectorfs.FileStats{
		Name:          name,
		CategoryCount: result.CategoryStats.TotalRecords,
		ProductCount:  result.ProductStats.TotalRecords,
	}); err != nil {
		c.logger.Warn("record download stats", zap.String("file", name), zap.Error(err))
	}

	c.syncCounters(ctx, conn, resp.Header)

	c.logger.Info("product data downloaded",
		zap.String("file", name),
		zap.String("categories", result.CategoryStats.CSV()),
		zap.String("products", result.ProductStats.CSV()))
	return result, nil
}

// do sends one signed GET request and turns any failure response into an
// error.
func (c *Client) do(ctx context.Context, conn *connector.Connection, rawURL string) (*http.Response, error) {
	req, err := c.signedRequest(ctx, conn, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.responseError(resp)
	}

	if header := resp.Header.Get(hmacauth.HeaderVersion); header != "" {
		if appconnector.CheckVersion(header) != hmacauth.Success {
			resp.Body.Close()
			return nil, fmt.Errorf("peer protocol version %q is incompatible", header)
		}
	}
	return resp, nil
}

// signedRequest builds a request carrying the HMAC authentication headers.
// The absolute URL is signed exactly as sent, query string included.
func (c *Client) signedRequest(ctx context.Context, conn *connector.Connection, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}

	timestamp := hmacauth.FormatTimestamp(c.now())
	digest := c.hmac.CreateContentDigest(nil)
	representation := c.hmac.CreateMessageRepresentation(method, digest, timestamp, rawURL)
	if representation == "" {
		return nil, fmt.Errorf("cannot build message representation for %s", rawURL)
	}
	signature := c.hmac.CreateSignature(conn.SecretKey, representation)

	req.Header.Set("Authorization", hmacauth.SchemeConstant+" "+signature)
	req.Header.Set(hmacauth.HeaderPublicKey, conn.PublicKey)
	req.Header.Set(hmacauth.HeaderDate, timestamp)
	req.Header.Set(hmacauth.HeaderVersion, appconnector.VersionString(c.cfg.App.Version))
	req.Header.Set("Accept", "text/xml,application/xml")
	return req, nil
}

// responseError extracts the most specific failure message the peer sent.
func (c *Client) responseError(resp *http.Response) error {
	if desc := resp.Header.Get(hmacauth.HeaderAuthResultDesc); desc != "" {
		return fmt.Errorf("peer rejected request: %s (status %d)", desc, resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var opResult operationResult
	if err := xml.Unmarshal(body, &opResult); err == nil && opResult.ShortMessage != "" {
		return fmt.Errorf("peer reported error: %s", opResult.ShortMessage)
	}
	return fmt.Errorf("peer returned status %d", resp.StatusCode)
}

// syncCounters mirrors the peer-reported connection counters onto the local
// import connection record. Best effort; the counters are informational.
func (c *Client) syncCounters(ctx context.Context, conn *connector.Connection, header http.Header) {
	changed := false

	if v := header.Get(hmacauth.HeaderRequestCount); v != "" {
		if count, err := strconv.ParseInt(v, 10, 64); err == nil {
			conn.RequestCount = count
			changed = true
		}
	}
	if v := header.Get(hmacauth.HeaderLastRequest); v != "" {
		if t, err := c.hmac.ParseTimestamp(v); err == nil {
			conn.LastRequestUtc = &t
			changed = true
		}
	}
	if v := header.Get(hmacauth.HeaderLastProductCall); v != "" {
		if t, err := c.hmac.ParseTimestamp(v); err == nil {
			conn.LastProductCallUtc = &t
			changed = true
		}
	}

	if !changed {
		return
	}
	if err := c.connections.Save(ctx, conn); err != nil {
		c.logger.Warn("persist connection counters", zap.Int("connection_id", conn.ID), zap.Error(err))
	}
}

// peerURL joins the connection's base URL with an endpoint path.
func peerURL(conn *connector.Connection, path string, query url.Values) string {
	base := strings.TrimRight(conn.Url, "/") + path
	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}
