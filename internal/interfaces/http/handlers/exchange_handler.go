// Package handlers wires the HTTP endpoints: the peer facing exchange
// surface and the JWT protected admin API.
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	appconnector "github.com/shopsync/backend/internal/application/connector"
	"github.com/shopsync/backend/internal/application/export"
	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/hmacauth"
	"github.com/shopsync/backend/internal/interfaces/http/dto"
	"github.com/shopsync/backend/internal/interfaces/http/middleware"
	"github.com/shopsync/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// ExchangeHandler serves the peer facing data endpoints. Every route runs
// behind the HMAC authentication middleware.
type ExchangeHandler struct {
	cfg      *config.Config
	auth     *appconnector.AuthService
	exporter *export.Service
	logger   *zap.Logger
}

// NewExchangeHandler creates an ExchangeHandler.
func NewExchangeHandler(cfg *config.Config, auth *appconnector.AuthService, exporter *export.Service, logger *zap.Logger) *ExchangeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeHandler{cfg: cfg, auth: auth, exporter: exporter, logger: logger}
}

// Routes returns the exchange route group.
func (h *ExchangeHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("connector", "/connector")
	g.Use(middleware.HMACAuth(h.auth, connector.DirectionExport, h.cfg.App.Version, h.logger))
	g.GET("/about", h.About)
	g.GET("/product-data", h.ProductData)
	return g
}

// About answers with this store's description document.
func (h *ExchangeHandler) About(c *gin.Context) {
	conn := middleware.ConnectionFrom(c)

	about, err := h.exporter.BuildAbout(c.Request.Context(), conn)
	if err != nil {
		h.logger.Error("build about document", zap.Error(err))
		c.XML(http.StatusInternalServerError, dto.NewOperationError("building the store description failed"))
		return
	}
	c.XML(http.StatusOK, about)
}

// ProductData builds and streams a catalog document for the requesting peer.
// The section counters travel in response headers so the consumer knows the
// record counts without parsing the body.
func (h *ExchangeHandler) ProductData(c *gin.Context) {
	conn := middleware.ConnectionFrom(c)

	opts := export.Options{CategoryIDs: parseIDParam(c.Query("categoryIds"))}
	if raw := c.Query("updatedOnFrom"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.XML(http.StatusBadRequest, dto.NewOperationError("updatedOnFrom must be an RFC 3339 timestamp"))
			return
		}
		utc := from.UTC()
		opts.UpdatedOnFrom = &utc
	}

	result, err := h.exporter.BuildProductData(c.Request.Context(), conn, opts)
	if err != nil {
		h.logger.Error("build product data", zap.Int("connection_id", conn.ID), zap.Error(err))
		c.XML(http.StatusInternalServerError, dto.NewOperationError("building the catalog document failed"))
		return
	}

	if err := h.auth.RecordProductCall(c.Request.Context(), conn.ID, time.Now()); err != nil {
		h.logger.Warn("record product call", zap.Int("connection_id", conn.ID), zap.Error(err))
	}

	c.Header(hmacauth.HeaderCategory, result.CategoryStats.CSV())
	c.Header(hmacauth.HeaderProduct, result.ProductStats.CSV())
	c.Header(hmacauth.HeaderRequestCount, strconv.FormatInt(conn.RequestCount, 10))
	if conn.LastRequestUtc != nil {
		c.Header(hmacauth.HeaderLastRequest, hmacauth.FormatTimestamp(*conn.LastRequestUtc))
	}
	if conn.LastProductCallUtc != nil {
		c.Header(hmacauth.HeaderLastProductCall, hmacauth.FormatTimestamp(*conn.LastProductCallUtc))
	}

	c.FileAttachment(result.Path, result.FileName)
}

// parseIDParam splits a comma separated id list query parameter.
func parseIDParam(raw string) []int {
	if raw == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
