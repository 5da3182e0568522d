package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopsync/backend/internal/application/importer"
	"github.com/shopsync/backend/internal/domain/shared"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/connectorfs"
	"github.com/shopsync/backend/internal/infrastructure/state"
	"github.com/shopsync/backend/internal/interfaces/http/dto"
	"github.com/shopsync/backend/internal/interfaces/http/middleware"
	"github.com/shopsync/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// ImportHandler drives catalog imports over the admin API: workspace file
// management, starting and observing the one import run allowed at a time.
type ImportHandler struct {
	cfg      *config.Config
	fs       *connectorfs.FileSystem
	stats    *connectorfs.ImportStats
	engine   *importer.Engine
	registry state.Registry
	authMW   gin.HandlerFunc
	logger   *zap.Logger
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(cfg *config.Config, fs *connectorfs.FileSystem, stats *connectorfs.ImportStats, engine *importer.Engine, registry state.Registry, authMW gin.HandlerFunc, logger *zap.Logger) *ImportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportHandler{
		cfg:      cfg,
		fs:       fs,
		stats:    stats,
		engine:   engine,
		registry: registry,
		authMW:   authMW,
		logger:   logger,
	}
}

// Routes returns the import route group.
func (h *ImportHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("import", "/import")
	g.Use(h.authMW)
	g.GET("/files", h.ListFiles)
	g.DELETE("/files/:name", h.DeleteFile)
	g.GET("/files/:name/download", h.DownloadFile)
	g.GET("/files/:name/preview", h.PreviewFile)
	g.POST("/start", h.Start)
	g.GET("/progress", h.Progress)
	g.POST("/cancel", h.Cancel)
	g.GET("/log", h.DownloadLog)
	return g
}

// importFileModel is one downloaded catalog file with its record counts.
type importFileModel struct {
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	ModTime       time.Time `json:"mod_time"`
	CategoryCount int       `json:"category_count"`
	ProductCount  int       `json:"product_count"`
}

// ListFiles returns the downloaded catalog files, newest first.
func (h *ImportHandler) ListFiles(c *gin.Context) {
	if err := h.stats.Sync(); err != nil {
		h.logger.Warn("sync import stats", zap.Error(err))
	}

	files, err := h.fs.ListFiles(connectorfs.KindProduct)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}

	models := make([]importFileModel, len(files))
	for i, f := range files {
		counts := h.stats.StatsFor(f.Name)
		models[i] = importFileModel{
			Name:          f.Name,
			Size:          f.Size,
			ModTime:       f.ModTime,
			CategoryCount: counts.CategoryCount,
			ProductCount:  counts.ProductCount,
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(models))
}

// DeleteFile removes a downloaded file and its recorded counts.
func (h *ImportHandler) DeleteFile(c *gin.Context) {
	name := c.Param("name")
	if err := h.fs.Delete(connectorfs.KindProduct, name); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}
	if err := h.stats.Remove(name); err != nil {
		h.logger.Warn("remove file stats", zap.String("file", name), zap.Error(err))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

// DownloadFile streams a downloaded catalog file back to the admin.
func (h *ImportHandler) DownloadFile(c *gin.Context) {
	name := c.Param("name")
	path := h.fs.FullPath(connectorfs.KindProduct, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", "file not found"))
		return
	}
	c.FileAttachment(path, connectorfs.SanitizeFileName(name))
}

// PreviewFile serves the raw document for inline display, refusing files too
// large to render.
func (h *ImportHandler) PreviewFile(c *gin.Context) {
	name := c.Param("name")
	path := h.fs.FullPath(connectorfs.KindProduct, name)
	info, err := os.Stat(path)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", "file not found"))
		return
	}
	if info.Size() > h.cfg.Connector.MaxFileSizeForPreview {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse("FILE_TOO_LARGE", "file exceeds the preview size limit"))
		return
	}
	c.Header("Content-Type", "text/xml; charset=utf-8")
	c.File(path)
}

type startImportRequest struct {
	FileName                 string `json:"file_name" binding:"required"`
	ImportCategories         bool   `json:"import_categories"`
	UpdateExistingProducts   bool   `json:"update_existing_products"`
	UpdateExistingCategories bool   `json:"update_existing_categories"`
	ImportAll                bool   `json:"import_all"`
	SelectedProductIDs       []int  `json:"selected_product_ids"`
	Publish                  bool   `json:"publish"`
	DownloadImages           bool   `json:"download_images"`
	LimitedToStores          bool   `json:"limited_to_stores"`
	StoreIDs                 []int  `json:"store_ids"`
	DeleteImportFile         bool   `json:"delete_import_file"`
	TaxCategoryID            int    `json:"tax_category_id"`
}

// Start launches an import run in the background. Only one run may be active
// at a time; a second start answers 409.
func (h *ImportHandler) Start(c *gin.Context) {
	if !h.cfg.Connector.IsImportEnabled {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse("IMPORT_DISABLED", "catalog import is turned off"))
		return
	}

	var req startImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", middleware.ValidationMessage(err)))
		return
	}

	if info, found, err := h.registry.Get(c.Request.Context(), state.SlotProductImport); err == nil && found && info.Running {
		c.JSON(http.StatusConflict, dto.NewErrorResponse(shared.ErrImportRunning.Code, shared.ErrImportRunning.Message))
		return
	}

	path := h.fs.FullPath(connectorfs.KindProduct, req.FileName)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", "import file not found"))
		return
	}

	settings := importer.Settings{
		FileName:                 connectorfs.SanitizeFileName(req.FileName),
		ImportCategories:         req.ImportCategories,
		UpdateExistingProducts:   req.UpdateExistingProducts,
		UpdateExistingCategories: req.UpdateExistingCategories,
		ImportAll:                req.ImportAll || len(req.SelectedProductIDs) == 0,
		SelectedProductIDs:       req.SelectedProductIDs,
		Publish:                  req.Publish,
		DownloadImages:           req.DownloadImages,
		LimitedToStores:          req.LimitedToStores,
		StoreIDs:                 req.StoreIDs,
		IgnoreEntityNames:        h.cfg.Connector.IgnoreEntityNames,
		DeleteImportFile:         req.DeleteImportFile,
		TaxCategoryID:            req.TaxCategoryID,
		TotalRecords:             h.stats.StatsFor(req.FileName).ProductCount,
	}

	go func() {
		// Detached from the request; the run outlives the response.
		if _, err := h.engine.Run(context.Background(), settings); err != nil {
			if !errors.Is(err, shared.ErrImportRunning) {
				h.logger.Error("import run failed", zap.String("file", settings.FileName), zap.Error(err))
			}
		}
	}()

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(gin.H{"file_name": settings.FileName}))
}

// progressModel adds the derived percentage to the raw counters.
type progressModel struct {
	state.ProcessingInfo
	ProcessedPercent float64 `json:"processed_percent"`
}

// Progress returns the counters of the current or last import run.
func (h *ImportHandler) Progress(c *gin.Context) {
	info, found, err := h.registry.Get(c.Request.Context(), state.SlotProductImport)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}
	if !found {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(progressModel{
		ProcessingInfo:   info,
		ProcessedPercent: info.ProcessedPercent(),
	}))
}

// Cancel flags the running import; the worker stops at the next batch
// boundary.
func (h *ImportHandler) Cancel(c *gin.Context) {
	if err := h.registry.Cancel(c.Request.Context(), state.SlotProductImport); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

// DownloadLog streams the import log file.
func (h *ImportHandler) DownloadLog(c *gin.Context) {
	path := h.fs.ImportLogPath()
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", "no import log yet"))
		return
	}
	c.FileAttachment(path, "import.log")
}
