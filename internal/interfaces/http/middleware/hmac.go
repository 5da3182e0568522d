package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	appconnector "github.com/shopsync/backend/internal/application/connector"
	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/infrastructure/hmacauth"
	"github.com/shopsync/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// ConnectionKey is the gin context key under which an authenticated peer
// connection is stored.
const ConnectionKey = "connector_connection"

// HMACAuth authenticates exchange requests with the connector's keyed
// signature scheme. Failures answer with a 401, the challenge header and the
// machine readable auth result; successes stash the connection in the
// context and stamp the protocol version on the response.
func HMACAuth(svc *appconnector.AuthService, direction connector.Direction, appVersion string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		now := time.Now().UTC()

		var body []byte
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		req := appconnector.AuthRequest{
			Method:        c.Request.Method,
			URL:           requestURL(c),
			Body:          body,
			PublicKey:     c.GetHeader(hmacauth.HeaderPublicKey),
			Timestamp:     c.GetHeader(hmacauth.HeaderDate),
			Authorization: c.GetHeader("Authorization"),
		}

		result, conn := svc.Authenticate(c.Request.Context(), direction, req, now)
		c.Header(hmacauth.HeaderDate, hmacauth.FormatTimestamp(now))

		if result == hmacauth.Success {
			if header := c.GetHeader(hmacauth.HeaderVersion); header != "" {
				if appconnector.CheckVersion(header) != hmacauth.Success {
					result = hmacauth.IncompatibleVersion
					conn = nil
				}
			}
		}

		if result != hmacauth.Success {
			if svc.LogUnauthorized() {
				logger.Warn("exchange request rejected",
					zap.String("result", result.String()),
					zap.String("public_key", req.PublicKey),
					zap.String("remote", c.ClientIP()),
					zap.String("path", c.Request.URL.Path))
			}
			c.Header("WWW-Authenticate", hmacauth.SchemeConstant)
			c.Header(hmacauth.HeaderAuthResultID, strconv.Itoa(int(result)))
			c.Header(hmacauth.HeaderAuthResultDesc, result.String())
			c.XML(http.StatusUnauthorized, dto.NewOperationError(result.String()))
			c.Abort()
			return
		}

		c.Header(hmacauth.HeaderVersion, appconnector.VersionString(appVersion))
		c.Set(ConnectionKey, conn)
		c.Next()
	}
}

// ConnectionFrom returns the peer connection an HMACAuth middleware stored.
func ConnectionFrom(c *gin.Context) *connector.Connection {
	if v, ok := c.Get(ConnectionKey); ok {
		if conn, ok := v.(*connector.Connection); ok {
			return conn
		}
	}
	return nil
}

// requestURL reconstructs the absolute URL the client signed. Behind a
// reverse proxy the forwarded protocol header wins.
func requestURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + c.Request.Host + c.Request.RequestURI
}
