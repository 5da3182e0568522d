package connector

import "context"

// ConnectionRepository persists connection records.
type ConnectionRepository interface {
	FindByID(ctx context.Context, id int) (*Connection, error)
	FindAll(ctx context.Context) ([]*Connection, error)
	FindByDirection(ctx context.Context, direction Direction, offset, limit int) ([]*Connection, int64, error)
	ExistsByPublicKey(ctx context.Context, publicKey string) (bool, error)
	Save(ctx context.Context, conn *Connection) error
	Delete(ctx context.Context, id int) error
}

// SkuMappingRepository persists peer specific SKU overrides.
type SkuMappingRepository interface {
	FindByID(ctx context.Context, id int) (*SkuMapping, error)
	FindByProductIDs(ctx context.Context, domain string, productIDs []int) ([]*SkuMapping, error)
	List(ctx context.Context, offset, limit int) ([]*SkuMapping, int64, error)
	Save(ctx context.Context, mapping *SkuMapping) error
	Delete(ctx context.Context, id int) error
}
