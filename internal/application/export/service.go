// Package export builds the outgoing catalog exchange documents: the About
// metadata document and the compound category/product data file a peer store
// downloads. Documents are streamed to disk so memory stays flat regardless
// of catalog size.
package export

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopsync/backend/internal/application/exchange"
	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/connectorfs"
	"github.com/shopsync/backend/internal/infrastructure/hmacauth"
	"github.com/shopsync/backend/internal/infrastructure/xmlstream"
	"go.uber.org/zap"
)

// Repositories bundles the catalog lookups the export pipeline reads from.
type Repositories struct {
	Products      catalog.ProductRepository
	Categories    catalog.CategoryRepository
	Manufacturers catalog.ManufacturerRepository
	Tags          catalog.TagRepository
	Attributes    catalog.AttributeRepository
	Media         catalog.MediaRepository
	Localization  catalog.LocalizationRepository
	Stores        catalog.StoreRepository
	Lookups       catalog.LookupRepository
	SkuMappings   connector.SkuMappingRepository
}

// Service builds exchange documents for authenticated peers.
type Service struct {
	cfg    *config.Config
	repos  Repositories
	fs     *connectorfs.FileSystem
	logger *zap.Logger
}

// NewService creates an export Service.
func NewService(cfg *config.Config, repos Repositories, fs *connectorfs.FileSystem, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, repos: repos, fs: fs, logger: logger}
}

// Options narrow one product data export beyond the connection restrictions.
type Options struct {
	// CategoryIDs limits the export to products assigned to these categories.
	CategoryIDs []int
	// UpdatedOnFrom limits the export to products changed since this time.
	UpdatedOnFrom *time.Time
}

// Result describes a finished compound document in the export workspace.
type Result struct {
	FileName      string
	Path          string
	CategoryStats xmlstream.SectionStats
	ProductStats  xmlstream.SectionStats
}

// versionString is the Version attribute of the document sections and the
// value of the version response header.
func (s *Service) versionString() string {
	return fmt.Sprintf("%d %s", hmacauth.ConnectorVersion, s.cfg.App.Version)
}

// BuildProductData exports the connection's visible slice of the catalog into
// a compound document. Products are exported first so the category section
// only carries categories actually referenced (plus their ancestors).
// Individual record failures are counted, not fatal; the whole run is bounded
// by the configured export deadline.
func (s *Service) BuildProductData(ctx context.Context, conn *connector.Connection, opts Options) (*Result, error) {
	hours := s.cfg.Connector.MaxHoursToExport
	if hours <= 0 {
		hours = 12
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(hours)*time.Hour)
	defer cancel()

	s.fs.Cleanup()

	ex, err := s.newExporter(ctx, conn, opts)
	if err != nil {
		return nil, fmt.Errorf("prepare export: %w", err)
	}

	productPath := s.fs.FullPath(connectorfs.KindExport, "products-"+uuid.NewString()+".xml")
	categoryPath := s.fs.FullPath(connectorfs.KindExport, "categories-"+uuid.NewString()+".xml")
	defer func() {
		_ = os.Remove(productPath)
		_ = os.Remove(categoryPath)
	}()

	if err := s.writeDocument(productPath, func(dw *xmlstream.DocumentWriter) error {
		return ex.writeProducts(ctx, dw)
	}); err != nil {
		return nil, fmt.Errorf("export products: %w", err)
	}
	if err := s.writeDocument(categoryPath, func(dw *xmlstream.DocumentWriter) error {
		return ex.writeCategories(ctx, dw)
	}); err != nil {
		return nil, fmt.Errorf("export categories: %w", err)
	}

	fileName := "data-" + uuid.NewString() + ".xml"
	result, err := s.mergeCompound(fileName, categoryPath, productPath)
	if err != nil {
		return nil, fmt.Errorf("merge export: %w", err)
	}

	s.logger.Info("product data exported",
		zap.Int("connection_id", conn.ID),
		zap.String("file", result.FileName),
		zap.String("categories", result.CategoryStats.CSV()),
		zap.String("products", result.ProductStats.CSV()))
	return result, nil
}

func (s *Service) writeDocument(path string, write func(*xmlstream.DocumentWriter) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dw, err := xmlstream.NewDocumentWriter(f)
	if err != nil {
		return err
	}
	if err := write(dw); err != nil {
		return err
	}
	if err := dw.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func (s *Service) mergeCompound(fileName, categoryPath, productPath string) (*Result, error) {
	catFile, err := os.Open(categoryPath)
	if err != nil {
		return nil, err
	}
	defer catFile.Close()

	prodFile, err := os.Open(productPath)
	if err != nil {
		return nil, err
	}
	defer prodFile.Close()

	path := s.fs.FullPath(connectorfs.KindExport, fileName)
	dst, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	catStats, prodStats, err := xmlstream.MergeCompound(dst, catFile, prodFile, s.versionString())
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return &Result{
		FileName:      fileName,
		Path:          path,
		CategoryStats: catStats,
		ProductStats:  prodStats,
	}, nil
}

// BuildAbout assembles the shop metadata document. The category filter list
// is left empty when the catalog is too large to enumerate sensibly.
func (s *Service) BuildAbout(ctx context.Context, conn *connector.Connection) (*exchange.About, error) {
	stores, err := s.repos.Stores.Stores(ctx)
	if err != nil {
		return nil, err
	}

	about := &exchange.About{
		AppVersion:       s.cfg.App.Version,
		UtcTime:          time.Now().UTC(),
		ConnectorVersion: s.versionString(),
		StoreName:        s.cfg.App.Name,
		StoreUrl:         s.cfg.App.BaseURL,
		StoreCount:       len(stores),
		CompanyName:      s.cfg.App.CompanyName,
		StoreLogoUrl:     s.cfg.App.LogoURL,
	}

	manufacturers, err := s.repos.Manufacturers.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range manufacturers {
		about.Manufacturers = append(about.Manufacturers, exchange.NamedEntity{ID: m.ID, Name: m.Name})
	}

	categories, total, err := s.repos.Categories.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	if total <= int64(s.cfg.Connector.MaxCategoriesToFilter) {
		for _, c := range categories {
			about.Categories = append(about.Categories, exchange.NamedEntity{ID: c.ID, Name: c.Name})
		}
	}

	if conn != nil && conn.LastProductCallUtc != nil {
		_, updated, err := s.repos.Products.List(ctx, catalog.ProductFilter{
			ManufacturerIDs: conn.ManufacturerIDs(),
			StoreIDs:        conn.StoreIDs(),
			UpdatedOnFrom:   conn.LastProductCallUtc,
			IncludeHidden:   s.cfg.Connector.IncludeHiddenProducts,
			PageSize:        1,
		})
		if err != nil {
			return nil, err
		}
		about.UpdatedProductsCount = updated
	}

	return about, nil
}

// mediaURL builds the public download URL of a stored picture.
func (s *Service) mediaURL(p *catalog.Picture) string {
	base := strings.TrimRight(s.cfg.App.BaseURL, "/")
	return base + "/media/" + p.StorageKey
}
