package connector

import (
	"context"

	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/domain/shared"
	"github.com/shopsync/backend/internal/infrastructure/hmacauth"
	"go.uber.org/zap"
)

// maxKeyAttempts caps key-pair generation retries before connection creation
// is aborted.
const maxKeyAttempts = 9999

// ConnectionService manages connection records. Every mutation invalidates
// the connection cache so the authentication path sees fresh data.
type ConnectionService struct {
	repo    connector.ConnectionRepository
	skuRepo connector.SkuMappingRepository
	cache   *ConnectionCache
	hmac    *hmacauth.Authenticator
	logger  *zap.Logger
}

// NewConnectionService creates a ConnectionService.
func NewConnectionService(repo connector.ConnectionRepository, skuRepo connector.SkuMappingRepository, cache *ConnectionCache, logger *zap.Logger) *ConnectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionService{
		repo:    repo,
		skuRepo: skuRepo,
		cache:   cache,
		hmac:    hmacauth.NewAuthenticator(),
		logger:  logger,
	}
}

// CreateExportConnection registers a peer that may pull data from this store.
// A fresh key pair is generated, retrying until the public key is unused.
func (s *ConnectionService) CreateExportConnection(ctx context.Context, url string) (*connector.Connection, error) {
	publicKey, secretKey, err := s.generateUniqueKeys(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := connector.NewConnection(connector.DirectionExport, url, publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	s.logger.Info("export connection created",
		zap.Int("connection_id", conn.ID), zap.String("url", conn.Url))
	return conn, nil
}

// CreateImportConnection registers a remote provider this store pulls from,
// using the key pair that provider issued.
func (s *ConnectionService) CreateImportConnection(ctx context.Context, url, publicKey, secretKey string) (*connector.Connection, error) {
	conn, err := connector.NewConnection(connector.DirectionImport, url, publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	s.logger.Info("import connection created",
		zap.Int("connection_id", conn.ID), zap.String("url", conn.Url))
	return conn, nil
}

func (s *ConnectionService) generateUniqueKeys(ctx context.Context) (string, string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		publicKey, secretKey, err := s.hmac.CreateKeys()
		if err != nil {
			return "", "", err
		}
		exists, err := s.repo.ExistsByPublicKey(ctx, publicKey)
		if err != nil {
			return "", "", err
		}
		if !exists {
			return publicKey, secretKey, nil
		}
	}
	return "", "", shared.ErrKeyExhausted
}

// Get returns a connection by id.
func (s *ConnectionService) Get(ctx context.Context, id int) (*connector.Connection, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns one page of connections of the given direction.
func (s *ConnectionService) List(ctx context.Context, direction connector.Direction, offset, limit int) ([]*connector.Connection, int64, error) {
	return s.repo.FindByDirection(ctx, direction, offset, limit)
}

// UpdateConnectionInput carries the mutable connection fields.
type UpdateConnectionInput struct {
	Url             string
	IsActive        bool
	ManufacturerIDs []int
	StoreIDs        []int
}

// Update applies the input to an existing connection.
func (s *ConnectionService) Update(ctx context.Context, id int, input UpdateConnectionInput) (*connector.Connection, error) {
	conn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Url != "" {
		conn.Url = input.Url
	}
	conn.IsActive = input.IsActive
	conn.SetManufacturerIDs(input.ManufacturerIDs)
	conn.SetStoreIDs(input.StoreIDs)
	conn.Touch()

	if err := s.repo.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return conn, nil
}

// Delete removes a connection.
func (s *ConnectionService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("connection deleted", zap.Int("connection_id", id))
	return nil
}

// SkuMappings returns one page of SKU overrides.
func (s *ConnectionService) SkuMappings(ctx context.Context, offset, limit int) ([]*connector.SkuMapping, int64, error) {
	return s.skuRepo.List(ctx, offset, limit)
}

// SaveSkuMapping creates or updates a SKU override row.
func (s *ConnectionService) SaveSkuMapping(ctx context.Context, mapping *connector.SkuMapping) error {
	return s.skuRepo.Save(ctx, mapping)
}

// DeleteSkuMapping removes a SKU override row.
func (s *ConnectionService) DeleteSkuMapping(ctx context.Context, id int) error {
	return s.skuRepo.Delete(ctx, id)
}
