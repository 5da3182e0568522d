package persistence

import (
	"context"
	"errors"

	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// CategoryRepository is the GORM implementation of catalog.CategoryRepository.
type CategoryRepository struct {
	db *gorm.DB
}

var _ catalog.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository creates a CategoryRepository.
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) FindByID(ctx context.Context, id int) (*catalog.Category, error) {
	var c catalog.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) FindByIDs(ctx context.Context, ids []int) ([]*catalog.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var categories []*catalog.Category
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted = ?", ids, false).
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// FindByNameAndParent matches an existing category by name within the same
// parent. Returns nil without error when no category matches.
func (r *CategoryRepository) FindByNameAndParent(ctx context.Context, name string, parentID int) (*catalog.Category, error) {
	var c catalog.Category
	err := r.db.WithContext(ctx).
		Where("name = ? AND parent_category_id = ? AND deleted = ?", name, parentID, false).
		Order("id").
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context, offset, limit int) ([]*catalog.Category, int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Category{}).Where("deleted = ?", false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	var categories []*catalog.Category
	if err := query.Order("parent_category_id, display_order, id").Find(&categories).Error; err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *catalog.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CategoryRepository) Update(ctx context.Context, c *catalog.Category) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// ManufacturerRepository is the GORM implementation of
// catalog.ManufacturerRepository.
type ManufacturerRepository struct {
	db *gorm.DB
}

var _ catalog.ManufacturerRepository = (*ManufacturerRepository)(nil)

// NewManufacturerRepository creates a ManufacturerRepository.
func NewManufacturerRepository(db *gorm.DB) *ManufacturerRepository {
	return &ManufacturerRepository{db: db}
}

func (r *ManufacturerRepository) All(ctx context.Context) ([]*catalog.Manufacturer, error) {
	var manufacturers []*catalog.Manufacturer
	err := r.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("name").
		Find(&manufacturers).Error
	if err != nil {
		return nil, err
	}
	return manufacturers, nil
}

func (r *ManufacturerRepository) FindByIDs(ctx context.Context, ids []int) ([]*catalog.Manufacturer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var manufacturers []*catalog.Manufacturer
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted = ?", ids, false).
		Find(&manufacturers).Error
	if err != nil {
		return nil, err
	}
	return manufacturers, nil
}

func (r *ManufacturerRepository) FindByNames(ctx context.Context, names []string) ([]*catalog.Manufacturer, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var manufacturers []*catalog.Manufacturer
	err := r.db.WithContext(ctx).
		Where("name IN ? AND deleted = ?", names, false).
		Find(&manufacturers).Error
	if err != nil {
		return nil, err
	}
	return manufacturers, nil
}

func (r *ManufacturerRepository) Create(ctx context.Context, m *catalog.Manufacturer) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// TagRepository is the GORM implementation of catalog.TagRepository.
type TagRepository struct {
	db *gorm.DB
}

var _ catalog.TagRepository = (*TagRepository)(nil)

// NewTagRepository creates a TagRepository.
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) FindByIDs(ctx context.Context, ids []int) ([]*catalog.ProductTag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []*catalog.ProductTag
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *TagRepository) FindByNames(ctx context.Context, names []string) ([]*catalog.ProductTag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var tags []*catalog.ProductTag
	err := r.db.WithContext(ctx).
		Where("name IN ?", names).
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *TagRepository) Create(ctx context.Context, t *catalog.ProductTag) error {
	return r.db.WithContext(ctx).Create(t).Error
}
