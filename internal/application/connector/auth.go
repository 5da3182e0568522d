package connector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/hmacauth"
	"go.uber.org/zap"
)

// AuthRequest carries the parts of an incoming HTTP request the
// authentication decision needs.
type AuthRequest struct {
	Method string
	// URL is the absolute request URL as the client saw it when signing.
	URL  string
	Body []byte

	PublicKey     string
	Timestamp     string
	Authorization string
}

// AuthService makes the server-side authorization decision for data
// endpoints. Checks run in a fixed order and the first failure wins.
type AuthService struct {
	cfg    config.ConnectorConfig
	cache  *ConnectionCache
	hmac   *hmacauth.Authenticator
	logger *zap.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(cfg config.ConnectorConfig, cache *ConnectionCache, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		cfg:    cfg,
		cache:  cache,
		hmac:   hmacauth.NewAuthenticator(),
		logger: logger,
	}
}

// Authenticate verifies a signed request against the cached connection set.
// On success the connection's request counter and last-request time are
// updated in the cache and the updated snapshot is returned.
func (s *AuthService) Authenticate(ctx context.Context, direction connector.Direction, req AuthRequest, now time.Time) (hmacauth.AuthResult, *connector.Connection) {
	if !s.cfg.IsExportEnabled && !s.cfg.IsImportEnabled {
		return hmacauth.ConnectorUnavailable, nil
	}
	if direction == connector.DirectionExport && !s.cfg.IsExportEnabled {
		return hmacauth.ExportDeactivated, nil
	}
	if strings.TrimSpace(req.PublicKey) == "" {
		return hmacauth.ConnectionInvalid, nil
	}

	authorization := strings.Fields(req.Authorization)
	if len(authorization) != 2 || !s.hmac.IsAuthorizationHeaderValid(authorization[0], authorization[1]) {
		return hmacauth.InvalidAuthorizationHeader, nil
	}

	headTime, err := s.hmac.ParseTimestamp(req.Timestamp)
	if err != nil {
		return hmacauth.InvalidTimestamp, nil
	}

	maxMinutes := s.cfg.ValidMinutePeriod
	if maxMinutes <= 0 {
		maxMinutes = hmacauth.DefaultValidMinutes
	}
	skew := headTime.Sub(now.UTC())
	if skew < 0 {
		skew = -skew
	}
	if skew > time.Duration(maxMinutes)*time.Minute {
		return hmacauth.TimestampOutOfPeriod, nil
	}

	conn, err := s.cache.Lookup(ctx, direction, req.PublicKey)
	if err != nil {
		s.logger.Error("connection lookup failed", zap.Error(err))
		return hmacauth.FailedForUnknownReason, nil
	}
	if conn == nil {
		return hmacauth.ConnectionUnknown, nil
	}
	if !conn.IsActive {
		return hmacauth.ConnectionDisabled, nil
	}
	// Equal timestamps are rejected too: a replayed request carries the
	// timestamp that is already stored.
	if conn.LastRequestUtc != nil && !headTime.After(*conn.LastRequestUtc) {
		return hmacauth.TimestampOlderThanLastRequest, nil
	}

	digest := s.hmac.CreateContentDigest(req.Body)
	representation := s.hmac.CreateMessageRepresentation(req.Method, digest, req.Timestamp, req.URL)
	if representation == "" {
		return hmacauth.MissingMessageRepresentationParameter, nil
	}

	expected := s.hmac.CreateSignature(conn.SecretKey, representation)
	if !s.hmac.SignaturesEqual(expected, authorization[1]) {
		return hmacauth.InvalidSignature, nil
	}

	if err := s.cache.Mutate(ctx, conn.ID, func(c *connector.Connection) {
		c.RecordRequest(now)
	}); err != nil {
		s.logger.Warn("recording request failed", zap.Int("connection_id", conn.ID), zap.Error(err))
	}
	conn.RecordRequest(now)

	return hmacauth.Success, conn
}

// RecordProductCall remembers a successful product export for the peer.
func (s *AuthService) RecordProductCall(ctx context.Context, connectionID int, now time.Time) error {
	return s.cache.Mutate(ctx, connectionID, func(c *connector.Connection) {
		c.RecordProductCall(now)
	})
}

// LogUnauthorized reports whether failed authentications should be logged.
func (s *AuthService) LogUnauthorized() bool {
	return s.cfg.LogUnauthorized
}

// VersionString renders the version header value: protocol version followed
// by the application version.
func VersionString(appVersion string) string {
	return fmt.Sprintf("%d %s", hmacauth.ConnectorVersion, appVersion)
}

// CheckVersion compares the protocol version carried in a version header
// against our own. A malformed or older protocol version yields
// IncompatibleVersion; data endpoints treat that as blocking, admin views as
// a warning.
func CheckVersion(header string) hmacauth.AuthResult {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return hmacauth.IncompatibleVersion
	}
	version, err := strconv.Atoi(fields[0])
	if err != nil || version < hmacauth.ConnectorVersion {
		return hmacauth.IncompatibleVersion
	}
	return hmacauth.Success
}
