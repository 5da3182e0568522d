package persistence

import (
	"context"
	"errors"

	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ConnectionRepository is the GORM implementation of
// connector.ConnectionRepository.
type ConnectionRepository struct {
	db *gorm.DB
}

var _ connector.ConnectionRepository = (*ConnectionRepository)(nil)

// NewConnectionRepository creates a ConnectionRepository.
func NewConnectionRepository(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) FindByID(ctx context.Context, id int) (*connector.Connection, error) {
	var conn connector.Connection
	if err := r.db.WithContext(ctx).First(&conn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

func (r *ConnectionRepository) FindAll(ctx context.Context) ([]*connector.Connection, error) {
	var conns []*connector.Connection
	if err := r.db.WithContext(ctx).Order("id").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

func (r *ConnectionRepository) FindByDirection(ctx context.Context, direction connector.Direction, offset, limit int) ([]*connector.Connection, int64, error) {
	query := r.db.WithContext(ctx).Model(&connector.Connection{}).Where("direction = ?", direction)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var conns []*connector.Connection
	if err := query.Order("id").Offset(offset).Limit(limit).Find(&conns).Error; err != nil {
		return nil, 0, err
	}
	return conns, total, nil
}

func (r *ConnectionRepository) ExistsByPublicKey(ctx context.Context, publicKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&connector.Connection{}).
		Where("public_key = ?", publicKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ConnectionRepository) Save(ctx context.Context, conn *connector.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

func (r *ConnectionRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&connector.Connection{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SkuMappingRepository is the GORM implementation of
// connector.SkuMappingRepository.
type SkuMappingRepository struct {
	db *gorm.DB
}

var _ connector.SkuMappingRepository = (*SkuMappingRepository)(nil)

// NewSkuMappingRepository creates a SkuMappingRepository.
func NewSkuMappingRepository(db *gorm.DB) *SkuMappingRepository {
	return &SkuMappingRepository{db: db}
}

func (r *SkuMappingRepository) FindByID(ctx context.Context, id int) (*connector.SkuMapping, error) {
	var mapping connector.SkuMapping
	if err := r.db.WithContext(ctx).First(&mapping, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

func (r *SkuMappingRepository) FindByProductIDs(ctx context.Context, domain string, productIDs []int) ([]*connector.SkuMapping, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var mappings []*connector.SkuMapping
	err := r.db.WithContext(ctx).
		Where("domain = ? AND product_id IN ?", domain, productIDs).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

func (r *SkuMappingRepository) List(ctx context.Context, offset, limit int) ([]*connector.SkuMapping, int64, error) {
	query := r.db.WithContext(ctx).Model(&connector.SkuMapping{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var mappings []*connector.SkuMapping
	if err := query.Order("id").Offset(offset).Limit(limit).Find(&mappings).Error; err != nil {
		return nil, 0, err
	}
	return mappings, total, nil
}

func (r *SkuMappingRepository) Save(ctx context.Context, mapping *connector.SkuMapping) error {
	return r.db.WithContext(ctx).Save(mapping).Error
}

func (r *SkuMappingRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&connector.SkuMapping{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
