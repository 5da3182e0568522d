// Package importer reconciles downloaded catalog exchange documents into the
// local shop. A run makes two passes: pass 1 streams the document fragments
// and creates or updates entities, collecting foreign-to-local id maps; pass
// 2 resolves the references between rows (linked products, bundle parts,
// grouped parents, required products) that could not be translated while the
// referenced rows were still unread.
package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/shopsync/backend/internal/application/exchange"
	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/domain/shared"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/connectorfs"
	"github.com/shopsync/backend/internal/infrastructure/logger"
	"github.com/shopsync/backend/internal/infrastructure/state"
	"github.com/shopsync/backend/internal/infrastructure/storage"
	"github.com/shopsync/backend/internal/infrastructure/xmlstream"
	"go.uber.org/zap"
)

// Repositories bundles the catalog persistence the import engine writes to.
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
}

// Settings select what one import run does.
type Settings struct {
	// FileName names the downloaded document in the product workspace.
	FileName string

	ImportCategories         bool
	UpdateExistingProducts   bool
	UpdateExistingCategories bool

	// ImportAll imports every product row; otherwise only the selected
	// foreign ids.
	ImportAll          bool
	SelectedProductIDs []int

	// Publish controls the published flag of newly created entities.
	Publish        bool
	DownloadImages bool

	LimitedToStores bool
	StoreIDs        []int

	// IgnoreEntityNames keeps local names and descriptions when updating.
	IgnoreEntityNames bool

	DeleteImportFile bool
	TaxCategoryID    int

	// TotalRecords seeds the progress denominator, typically from the
	// record counts captured at download time.
	TotalRecords int
}

// Engine runs catalog imports. One import at a time; progress and
// cancellation go through the state registry.
type Engine struct {
	cfg      *config.Config
	repos    Repositories
	fs       *connectorfs.FileSystem
	storage  storage.ObjectStorage
	registry state.Registry
	client   *http.Client
	logger   *zap.Logger

	// importLog is the user visible per-run log file.
	importLog *zap.Logger
}

// NewEngine creates an import Engine. The import log is written to a rotated
// file in the workspace root.
func NewEngine(cfg *config.Config, repos Repositories, fs *connectorfs.FileSystem, store storage.ObjectStorage, registry state.Registry, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	importLog, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "json",
		Output:     fs.ImportLogPath(),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return nil, fmt.Errorf("open import log: %w", err)
	}

	timeout := cfg.Import.ImageDownloadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Engine{
		cfg:       cfg,
		repos:     repos,
		fs:        fs,
		storage:   store,
		registry:  registry,
		client:    &http.Client{Timeout: timeout},
		logger:    log,
		importLog: importLog,
	}, nil
}

// Run executes one import. It blocks until the run finishes, fails or is
// cancelled; callers that want it in the background start their own
// goroutine. Returns the final counters.
func (e *Engine) Run(ctx context.Context, settings Settings) (state.ProcessingInfo, error) {
	info := state.ProcessingInfo{
		Running:      true,
		FileName:     settings.FileName,
		TotalRecords: settings.TotalRecords,
		StartedUtc:   time.Now().UTC(),
	}
	if err := e.registry.Begin(ctx, state.SlotProductImport, info); err != nil {
		return info, err
	}

	runErr := e.run(ctx, settings, &info)

	now := time.Now().UTC()
	info.Running = false
	info.FinishedUtc = &now
	if runErr != nil {
		info.ErrorMessage = runErr.Error()
	}
	if err := e.registry.Finish(ctx, state.SlotProductImport, info); err != nil {
		e.logger.Error("finish import slot", zap.Error(err))
	}

	if runErr == nil && settings.DeleteImportFile && info.FailedRecords == 0 {
		if err := e.fs.Delete(connectorfs.KindProduct, settings.FileName); err != nil {
			e.logger.Warn("delete import file", zap.String("file", settings.FileName), zap.Error(err))
		}
	}

	return info, runErr
}

func (e *Engine) run(ctx context.Context, settings Settings, info *state.ProcessingInfo) error {
	path := e.fs.FullPath(connectorfs.KindProduct, settings.FileName)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("import file: %w", err)
	}

	e.importLog.Info("import started",
		zap.String("file", settings.FileName),
		zap.Bool("categories", settings.ImportCategories),
		zap.Bool("update_existing", settings.UpdateExistingProducts))

	c := newCargo()
	if err := c.load(ctx, e.repos); err != nil {
		return fmt.Errorf("load local catalog indexes: %w", err)
	}

	if settings.ImportCategories {
		if err := e.importCategories(ctx, path, settings, c); err != nil {
			return fmt.Errorf("import categories: %w", err)
		}
	}

	if err := e.importProducts(ctx, path, settings, c, info); err != nil {
		return fmt.Errorf("import products: %w", err)
	}

	if err := e.runPassTwo(ctx, settings, c); err != nil {
		return fmt.Errorf("resolve references: %w", err)
	}

	e.importLog.Info("import finished",
		zap.Int("total", info.TotalProcessed),
		zap.Int("added", info.NewRecords),
		zap.Int("updated", info.ModifiedRecords),
		zap.Int("skipped", info.SkippedRecords),
		zap.Int("failed", info.FailedRecords))
	return nil
}

// cancelled polls the registry's cancellation flag.
func (e *Engine) cancelled(ctx context.Context) bool {
	flagged, err := e.registry.IsCancelled(ctx, state.SlotProductImport)
	if err != nil {
		return false
	}
	return flagged
}

// importCategories reads the category section and reconciles it branch by
// branch: a row becomes importable once its foreign parent is either the
// root or already translated, so the tree resolves top-down regardless of
// row order.
func (e *Engine) importCategories(ctx context.Context, path string, settings Settings, c *cargo) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var rows []exchange.CategoryRow
	batchSize := e.batchSize()
	err = xmlstream.ReadFragments(file, "Categories", "Category", batchSize, func(elements [][]byte) (bool, error) {
		for _, raw := range elements {
			var row exchange.CategoryRow
			if err := xml.Unmarshal(raw, &row); err != nil {
				e.importLog.Warn("unreadable category row", zap.Error(err))
				continue
			}
			rows = append(rows, row)
		}
		return !e.cancelled(ctx), nil
	})
	if err != nil {
		return err
	}

	pending := rows
	for len(pending) > 0 {
		if e.cancelled(ctx) {
			return nil
		}
		var stuck []exchange.CategoryRow
		progressed := false
		for _, row := range pending {
			destParent, ok := e.resolveCategoryParent(row.ParentCategoryID, c)
			if !ok {
				stuck = append(stuck, row)
				continue
			}
			if err := e.importCategory(ctx, row, destParent, settings, c); err != nil {
				e.importLog.Warn("category import failed",
					zap.Int("foreign_id", row.ID), zap.String("name", row.Name), zap.Error(err))
			}
			progressed = true
		}
		if !progressed {
			// Remaining rows reference parents missing from the document.
			for _, row := range stuck {
				e.importLog.Warn("category parent not in document",
					zap.Int("foreign_id", row.ID), zap.Int("foreign_parent_id", row.ParentCategoryID))
			}
			break
		}
		pending = stuck
	}
	return nil
}

// resolveCategoryParent translates a foreign parent id to the local
// destination parent. Zero is the root and always resolvable.
func (e *Engine) resolveCategoryParent(foreignParentID int, c *cargo) (int, bool) {
	if foreignParentID == 0 {
		return 0, true
	}
	imported, ok := c.categoryIDs[foreignParentID]
	if !ok {
		return 0, false
	}
	return imported.DestinationID, true
}

func (e *Engine) importCategory(ctx context.Context, row exchange.CategoryRow, destParent int, settings Settings, c *cargo) error {
	existing, err := e.repos.Categories.FindByNameAndParent(ctx, row.Name, destParent)
	if err != nil {
		return err
	}

	var category *catalog.Category
	if existing != nil {
		category = existing
		if settings.UpdateExistingCategories {
			if !settings.IgnoreEntityNames {
				category.Name = row.Name
				category.Description = row.Description
			}
			category.Alias = row.Alias
			category.DisplayOrder = row.DisplayOrder
			category.Touch()
			if err := e.repos.Categories.Update(ctx, category); err != nil {
				return err
			}
		}
	} else {
		category = &catalog.Category{
			BaseEntity:       shared.NewBaseEntity(),
			Name:             row.Name,
			Alias:            row.Alias,
			Description:      row.Description,
			ParentCategoryID: destParent,
			DisplayOrder:     row.DisplayOrder,
			Published:        settings.Publish,
			LimitedToStores:  settings.LimitedToStores,
		}
		if err := e.repos.Categories.Create(ctx, category); err != nil {
			return err
		}
		if settings.LimitedToStores {
			if err := e.repos.Stores.ReplaceMappings(ctx, "Category", category.ID, settings.StoreIDs); err != nil {
				return err
			}
		}
		if _, err := reserveSlug(ctx, e.repos.Localization, "Category", category.ID, 0, row.SeName, row.Name); err != nil {
			return err
		}
		if settings.DownloadImages && row.Picture != nil {
			if pictureID := e.resolvePictures(ctx, []exchange.PictureRow{*row.Picture}, c)[0]; pictureID != 0 {
				category.PictureID = &pictureID
				if err := e.repos.Categories.Update(ctx, category); err != nil {
					return err
				}
			}
		}
	}

	if err := e.applyLocalized(ctx, "Category", category.ID, row.Localized, c); err != nil {
		return err
	}

	c.categoryIDs[row.ID] = importedCategory{
		ForeignParentID: row.ParentCategoryID,
		DestinationID:   category.ID,
	}
	return nil
}

// applyLocalized upserts the translated field values of one entity for every
// culture that maps to a configured local language.
func (e *Engine) applyLocalized(ctx context.Context, group string, entityID int, rows []exchange.LocalizedRow, c *cargo) error {
	for _, loc := range rows {
		languageID, ok := c.languages[lowered(loc.Culture)]
		if !ok {
			continue
		}
		values := map[string]string{
			"Name":             loc.Name,
			"ShortDescription": loc.ShortDescription,
			"FullDescription":  loc.FullDescription,
			"Description":      loc.Description,
			"BundleTitleText":  loc.BundleTitleText,
			"Alias":            loc.Alias,
		}
		for key, value := range values {
			if value == "" {
				continue
			}
			err := e.repos.Localization.UpsertLocalizedProperty(ctx, &catalog.LocalizedProperty{
				EntityID:       entityID,
				LanguageID:     languageID,
				LocaleKeyGroup: group,
				LocaleKey:      key,
				LocaleValue:    value,
			})
			if err != nil {
				return err
			}
		}
		if loc.SeName != "" || loc.Name != "" {
			if _, err := reserveSlug(ctx, e.repos.Localization, group, entityID, languageID, loc.SeName, loc.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) batchSize() int {
	if e.cfg.Import.BatchSize > 0 {
		return e.cfg.Import.BatchSize
	}
	return xmlstream.DefaultBatchSize
}
