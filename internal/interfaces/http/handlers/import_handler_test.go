package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/shopsync/backend/internal/application/exchange"
	"github.com/shopsync/backend/internal/application/importer"
	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/connectorfs"
	"github.com/shopsync/backend/internal/infrastructure/persistence"
	"github.com/shopsync/backend/internal/infrastructure/state"
	"github.com/shopsync/backend/internal/infrastructure/storage"
	"github.com/shopsync/backend/internal/infrastructure/xmlstream"
	"github.com/shopsync/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type importFixture struct {
	engine   *gin.Engine
	cfg      *config.Config
	fs       *connectorfs.FileSystem
	stats    *connectorfs.ImportStats
	registry state.Registry
	repos    importer.Repositories
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	fs, err := connectorfs.New(t.TempDir())
	require.NoError(t, err)
	stats := connectorfs.NewImportStats(fs)

	store, err := storage.NewFileStorage(t.TempDir(), "")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Connector.IsImportEnabled = true
	cfg.Connector.MaxFileSizeForPreview = 400 << 20
	cfg.Import.BatchSize = 10

	repos := importer.Repositories{
		Products:      persistence.NewProductRepository(db),
		Categories:    persistence.NewCategoryRepository(db),
		Manufacturers: persistence.NewManufacturerRepository(db),
		Tags:          persistence.NewTagRepository(db),
		Attributes:    persistence.NewAttributeRepository(db),
		Media:         persistence.NewMediaRepository(db),
		Localization:  persistence.NewLocalizationRepository(db),
		Stores:        persistence.NewStoreRepository(db),
		Lookups:       persistence.NewLookupRepository(db),
	}

	registry := state.NewMemoryRegistry()
	t.Cleanup(func() { _ = registry.Close() })

	engineSvc, err := importer.NewEngine(cfg, repos, fs, store, registry, nil)
	require.NoError(t, err)

	// The admin token middleware is exercised in its own tests.
	passThrough := func(c *gin.Context) {}

	engine := gin.New()
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(NewImportHandler(cfg, fs, stats, engineSvc, registry, passThrough, nil).Routes())
	r.Setup()

	return &importFixture{
		engine:   engine,
		cfg:      cfg,
		fs:       fs,
		stats:    stats,
		registry: registry,
		repos:    repos,
	}
}

func (f *importFixture) writeDocument(t *testing.T, name string, products []exchange.ProductRow) {
	t.Helper()

	file, err := os.Create(f.fs.FullPath(connectorfs.KindProduct, name))
	require.NoError(t, err)
	defer file.Close()

	dw, err := xmlstream.NewDocumentWriter(file)
	require.NoError(t, err)
	require.NoError(t, dw.BeginSection("Categories", "3"))
	require.NoError(t, dw.CloseSection())
	require.NoError(t, dw.BeginSection("Products", "3"))
	for _, p := range products {
		require.NoError(t, dw.WriteEntity("Product", p))
	}
	require.NoError(t, dw.CloseSection())
	require.NoError(t, dw.Close())
}

func importRow(id int, name, sku string) exchange.ProductRow {
	return exchange.ProductRow{
		ID:            id,
		Name:          name,
		Sku:           sku,
		ProductTypeID: catalog.ProductTypeSimple,
		Price:         decimal.NewFromInt(10),
		StockQuantity: 3,
	}
}

func (f *importFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestImportListAndDeleteFiles(t *testing.T) {
	f := newImportFixture(t)
	f.writeDocument(t, "data.xml", []exchange.ProductRow{importRow(101, "Oak Chair", "CH-OAK")})
	require.NoError(t, f.stats.Record(connectorfs.FileStats{Name: "data.xml", CategoryCount: 2, ProductCount: 1}))

	w := f.do(http.MethodGet, "/api/v1/import/files", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Data []struct {
			Name          string `json:"name"`
			Size          int64  `json:"size"`
			CategoryCount int    `json:"category_count"`
			ProductCount  int    `json:"product_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "data.xml", list.Data[0].Name)
	assert.Equal(t, 2, list.Data[0].CategoryCount)
	assert.Equal(t, 1, list.Data[0].ProductCount)
	assert.Positive(t, list.Data[0].Size)

	w = f.do(http.MethodDelete, "/api/v1/import/files/data.xml", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/v1/import/files", "")
	require.Equal(t, http.StatusOK, w.Code)
	list.Data = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Data)
}

func TestImportStart(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t)
	f.writeDocument(t, "data.xml", []exchange.ProductRow{importRow(101, "Oak Chair", "CH-OAK")})

	w := f.do(http.MethodPost, "/api/v1/import/start",
		`{"file_name":"data.xml","import_categories":true,"update_existing_products":true,"publish":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		info, found, err := f.registry.Get(ctx, state.SlotProductImport)
		return err == nil && found && !info.Running
	}, 5*time.Second, 25*time.Millisecond)

	products, err := f.repos.Products.FindBySkus(ctx, []string{"CH-OAK"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Oak Chair", products[0].Name)
}

func TestImportStart_MissingFile(t *testing.T) {
	f := newImportFixture(t)

	w := f.do(http.MethodPost, "/api/v1/import/start", `{"file_name":"absent.xml"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportStart_AlreadyRunning(t *testing.T) {
	f := newImportFixture(t)
	f.writeDocument(t, "data.xml", nil)
	require.NoError(t, f.registry.Begin(context.Background(), state.SlotProductImport,
		state.ProcessingInfo{FileName: "busy.xml"}))

	w := f.do(http.MethodPost, "/api/v1/import/start", `{"file_name":"data.xml"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "IMPORT_RUNNING")
}

func TestImportStart_Disabled(t *testing.T) {
	f := newImportFixture(t)
	f.cfg.Connector.IsImportEnabled = false

	w := f.do(http.MethodPost, "/api/v1/import/start", `{"file_name":"data.xml"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestImportProgress(t *testing.T) {
	f := newImportFixture(t)

	w := f.do(http.MethodGet, "/api/v1/import/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	var empty struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.True(t, len(empty.Data) == 0 || string(empty.Data) == "null")

	require.NoError(t, f.registry.Begin(context.Background(), state.SlotProductImport,
		state.ProcessingInfo{FileName: "data.xml", TotalRecords: 10, TotalProcessed: 5}))

	w = f.do(http.MethodGet, "/api/v1/import/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Running          bool    `json:"running"`
			FileName         string  `json:"file_name"`
			ProcessedPercent float64 `json:"processed_percent"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Running)
	assert.Equal(t, "data.xml", body.Data.FileName)
	assert.InDelta(t, 50.0, body.Data.ProcessedPercent, 0.01)
}

func TestImportCancel(t *testing.T) {
	f := newImportFixture(t)
	require.NoError(t, f.registry.Begin(context.Background(), state.SlotProductImport,
		state.ProcessingInfo{FileName: "data.xml"}))

	w := f.do(http.MethodPost, "/api/v1/import/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)

	cancelled, err := f.registry.IsCancelled(context.Background(), state.SlotProductImport)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestImportPreview_TooLarge(t *testing.T) {
	f := newImportFixture(t)
	f.writeDocument(t, "data.xml", []exchange.ProductRow{importRow(101, "Oak Chair", "CH-OAK")})
	f.cfg.Connector.MaxFileSizeForPreview = 1

	w := f.do(http.MethodGet, "/api/v1/import/files/data.xml/preview", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "FILE_TOO_LARGE")
}

func TestImportDownloadLog_NotFound(t *testing.T) {
	f := newImportFixture(t)

	w := f.do(http.MethodGet, "/api/v1/import/log", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
