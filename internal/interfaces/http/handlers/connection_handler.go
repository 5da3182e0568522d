package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	appconnector "github.com/shopsync/backend/internal/application/connector"
	appsync "github.com/shopsync/backend/internal/application/sync"
	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/interfaces/http/dto"
	"github.com/shopsync/backend/internal/interfaces/http/middleware"
	"github.com/shopsync/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// ConnectionHandler manages peer connections and SKU overrides over the
// admin API. Remote calls (About, catalog download) run through the sync
// client against the peer named by the connection.
type ConnectionHandler struct {
	svc    *appconnector.ConnectionService
	client *appsync.Client
	authMW gin.HandlerFunc
	logger *zap.Logger
}

// NewConnectionHandler creates a ConnectionHandler. authMW guards every
// route.
func NewConnectionHandler(svc *appconnector.ConnectionService, client *appsync.Client, authMW gin.HandlerFunc, logger *zap.Logger) *ConnectionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionHandler{svc: svc, client: client, authMW: authMW, logger: logger}
}

// Routes returns the connection route group.
func (h *ConnectionHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("connections", "/connections")
	g.Use(h.authMW)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/about", h.PeerAbout)
	g.POST("/:id/fetch", h.FetchProductData)
	return g
}

// SkuMappingRoutes returns the SKU override route group.
func (h *ConnectionHandler) SkuMappingRoutes() *router.DomainGroup {
	g := router.NewDomainGroup("sku-mappings", "/sku-mappings")
	g.Use(h.authMW)
	g.GET("", h.ListSkuMappings)
	g.POST("", h.SaveSkuMapping)
	g.DELETE("/:id", h.DeleteSkuMapping)
	return g
}

// connectionModel is the admin API shape of a connection. The secret key is
// included: the admin hands it to the peer when setting up an export
// connection.
type connectionModel struct {
	ID                 int                 `json:"id"`
	Direction          connector.Direction `json:"direction"`
	Url                string              `json:"url"`
	IsActive           bool                `json:"is_active"`
	PublicKey          string              `json:"public_key"`
	SecretKey          string              `json:"secret_key"`
	RequestCount       int64               `json:"request_count"`
	LastRequestUtc     *time.Time          `json:"last_request_utc,omitempty"`
	LastProductCallUtc *time.Time          `json:"last_product_call_utc,omitempty"`
	ManufacturerIDs    []int               `json:"manufacturer_ids,omitempty"`
	StoreIDs           []int               `json:"store_ids,omitempty"`
	CreatedOnUtc       time.Time           `json:"created_on_utc"`
}

func toConnectionModel(conn *connector.Connection) connectionModel {
	return connectionModel{
		ID:                 conn.ID,
		Direction:          conn.Direction,
		Url:                conn.Url,
		IsActive:           conn.IsActive,
		PublicKey:          conn.PublicKey,
		SecretKey:          conn.SecretKey,
		RequestCount:       conn.RequestCount,
		LastRequestUtc:     conn.LastRequestUtc,
		LastProductCallUtc: conn.LastProductCallUtc,
		ManufacturerIDs:    conn.ManufacturerIDs(),
		StoreIDs:           conn.StoreIDs(),
		CreatedOnUtc:       conn.CreatedOnUtc,
	}
}

type createConnectionRequest struct {
	Direction connector.Direction `json:"direction" binding:"required,oneof=export import"`
	Url       string              `json:"url" binding:"required,url"`
	// PublicKey and SecretKey are required for import connections; they were
	// issued by the remote provider.
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

type updateConnectionRequest struct {
	Url             string `json:"url"`
	IsActive        bool   `json:"is_active"`
	ManufacturerIDs []int  `json:"manufacturer_ids"`
	StoreIDs        []int  `json:"store_ids"`
}

// List returns one page of connections of a direction.
func (h *ConnectionHandler) List(c *gin.Context) {
	direction := connector.Direction(c.DefaultQuery("direction", string(connector.DirectionExport)))
	page := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&page); err != nil {
		page = dto.DefaultListRequest()
	}

	conns, total, err := h.svc.List(c.Request.Context(), direction, (page.Page-1)*page.PageSize, page.PageSize)
	if err != nil {
		h.fail(c, err, "list connections")
		return
	}

	models := make([]connectionModel, len(conns))
	for i, conn := range conns {
		models[i] = toConnectionModel(conn)
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(models, total, page.Page, page.PageSize))
}

// Create registers a new connection. Export connections get a generated key
// pair; import connections use the peer issued one.
func (h *ConnectionHandler) Create(c *gin.Context) {
	var req createConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", middleware.ValidationMessage(err)))
		return
	}

	var (
		conn *connector.Connection
		err  error
	)
	switch req.Direction {
	case connector.DirectionExport:
		conn, err = h.svc.CreateExportConnection(c.Request.Context(), req.Url)
	case connector.DirectionImport:
		conn, err = h.svc.CreateImportConnection(c.Request.Context(), req.Url, req.PublicKey, req.SecretKey)
	}
	if err != nil {
		h.fail(c, err, "create connection")
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(toConnectionModel(conn)))
}

// Get returns one connection.
func (h *ConnectionHandler) Get(c *gin.Context) {
	conn, ok := h.connection(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(toConnectionModel(conn)))
}

// Update applies the mutable fields.
func (h *ConnectionHandler) Update(c *gin.Context) {
	var id dto.IDRequest
	if err := c.ShouldBindUri(&id); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", "invalid connection id"))
		return
	}
	var req updateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", err.Error()))
		return
	}

	conn, err := h.svc.Update(c.Request.Context(), id.ID, appconnector.UpdateConnectionInput{
		Url:             req.Url,
		IsActive:        req.IsActive,
		ManufacturerIDs: req.ManufacturerIDs,
		StoreIDs:        req.StoreIDs,
	})
	if err != nil {
		h.fail(c, err, "update connection")
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(toConnectionModel(conn)))
}

// Delete removes a connection.
func (h *ConnectionHandler) Delete(c *gin.Context) {
	var id dto.IDRequest
	if err := c.ShouldBindUri(&id); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", "invalid connection id"))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id.ID); err != nil {
		h.fail(c, err, "delete connection")
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

// PeerAbout fetches and returns the remote store description of an import
// connection.
func (h *ConnectionHandler) PeerAbout(c *gin.Context) {
	conn, ok := h.connection(c)
	if !ok {
		return
	}
	if conn.Direction != connector.DirectionImport {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse("INVALID_STATE", "only import connections can query a peer"))
		return
	}

	about, err := h.client.FetchAbout(c.Request.Context(), conn)
	if err != nil {
		h.logger.Warn("fetch peer about", zap.Int("connection_id", conn.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse("PEER_UNREACHABLE", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(about))
}

type fetchRequest struct {
	CategoryIDs   []int      `json:"category_ids"`
	UpdatedOnFrom *time.Time `json:"updated_on_from"`
}

// FetchProductData downloads a catalog document from the peer into the
// import workspace.
func (h *ConnectionHandler) FetchProductData(c *gin.Context) {
	conn, ok := h.connection(c)
	if !ok {
		return
	}
	if conn.Direction != connector.DirectionImport {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse("INVALID_STATE", "only import connections can download from a peer"))
		return
	}

	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", err.Error()))
		return
	}

	result, err := h.client.FetchProductData(c.Request.Context(), conn, appsync.FetchOptions{
		CategoryIDs:   req.CategoryIDs,
		UpdatedOnFrom: req.UpdatedOnFrom,
	})
	if err != nil {
		h.logger.Warn("fetch product data", zap.Int("connection_id", conn.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse("PEER_UNREACHABLE", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

type skuMappingRequest struct {
	ProductID int    `json:"product_id" binding:"required,min=1"`
	Domain    string `json:"domain" binding:"required"`
	Sku       string `json:"sku"`
}

// ListSkuMappings returns one page of SKU overrides.
func (h *ConnectionHandler) ListSkuMappings(c *gin.Context) {
	page := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&page); err != nil {
		page = dto.DefaultListRequest()
	}

	mappings, total, err := h.svc.SkuMappings(c.Request.Context(), (page.Page-1)*page.PageSize, page.PageSize)
	if err != nil {
		h.fail(c, err, "list sku mappings")
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(mappings, total, page.Page, page.PageSize))
}

// SaveSkuMapping creates a SKU override.
func (h *ConnectionHandler) SaveSkuMapping(c *gin.Context) {
	var req skuMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", middleware.ValidationMessage(err)))
		return
	}

	mapping, err := connector.NewSkuMapping(req.ProductID, req.Domain, req.Sku)
	if err != nil {
		h.fail(c, err, "build sku mapping")
		return
	}
	if err := h.svc.SaveSkuMapping(c.Request.Context(), mapping); err != nil {
		h.fail(c, err, "save sku mapping")
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(mapping))
}

// DeleteSkuMapping removes a SKU override.
func (h *ConnectionHandler) DeleteSkuMapping(c *gin.Context) {
	var id dto.IDRequest
	if err := c.ShouldBindUri(&id); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", "invalid mapping id"))
		return
	}
	if err := h.svc.DeleteSkuMapping(c.Request.Context(), id.ID); err != nil {
		h.fail(c, err, "delete sku mapping")
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

// connection binds the id parameter and loads the record.
func (h *ConnectionHandler) connection(c *gin.Context) (*connector.Connection, bool) {
	var id dto.IDRequest
	if err := c.ShouldBindUri(&id); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", "invalid connection id"))
		return nil, false
	}
	conn, err := h.svc.Get(c.Request.Context(), id.ID)
	if err != nil {
		h.fail(c, err, "load connection")
		return nil, false
	}
	return conn, true
}

func (h *ConnectionHandler) fail(c *gin.Context, err error, op string) {
	status := dto.GetHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, zap.Error(err))
	}
	c.JSON(status, dto.NewErrorResponse(dto.ErrorCode(err), err.Error()))
}
