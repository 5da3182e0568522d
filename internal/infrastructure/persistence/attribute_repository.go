package persistence

import (
	"context"

	"github.com/shopsync/backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// AttributeRepository is the GORM implementation of
// catalog.AttributeRepository.
type AttributeRepository struct {
	db *gorm.DB
}

var _ catalog.AttributeRepository = (*AttributeRepository)(nil)

// NewAttributeRepository creates an AttributeRepository.
func NewAttributeRepository(db *gorm.DB) *AttributeRepository {
	return &AttributeRepository{db: db}
}

func (r *AttributeRepository) SpecificationAttributes(ctx context.Context) ([]*catalog.SpecificationAttribute, error) {
	var attrs []*catalog.SpecificationAttribute
	err := r.db.WithContext(ctx).Order("id").Find(&attrs).Error
	return attrs, err
}

func (r *AttributeRepository) OptionsByAttribute(ctx context.Context, attributeID int) ([]*catalog.SpecificationAttributeOption, error) {
	var options []*catalog.SpecificationAttributeOption
	err := r.db.WithContext(ctx).
		Where("specification_attribute_id = ?", attributeID).
		Order("display_order, id").
		Find(&options).Error
	return options, err
}

func (r *AttributeRepository) OptionsByIDs(ctx context.Context, ids []int) ([]*catalog.SpecificationAttributeOption, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var options []*catalog.SpecificationAttributeOption
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&options).Error
	return options, err
}

func (r *AttributeRepository) CreateSpecificationAttribute(ctx context.Context, a *catalog.SpecificationAttribute) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AttributeRepository) CreateOption(ctx context.Context, o *catalog.SpecificationAttributeOption) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *AttributeRepository) ProductSpecAttributes(ctx context.Context, productID int) ([]*catalog.ProductSpecificationAttribute, error) {
	var mappings []*catalog.ProductSpecificationAttribute
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("display_order, id").
		Find(&mappings).Error
	return mappings, err
}

func (r *AttributeRepository) AddProductSpecAttribute(ctx context.Context, m *catalog.ProductSpecificationAttribute) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *AttributeRepository) ProductAttributes(ctx context.Context) ([]*catalog.ProductAttribute, error) {
	var attrs []*catalog.ProductAttribute
	err := r.db.WithContext(ctx).Order("id").Find(&attrs).Error
	return attrs, err
}

func (r *AttributeRepository) CreateProductAttribute(ctx context.Context, a *catalog.ProductAttribute) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AttributeRepository) VariantAttributes(ctx context.Context, productID int) ([]*catalog.ProductVariantAttribute, error) {
	var attrs []*catalog.ProductVariantAttribute
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("display_order, id").
		Find(&attrs).Error
	return attrs, err
}

func (r *AttributeRepository) AddVariantAttribute(ctx context.Context, va *catalog.ProductVariantAttribute) error {
	return r.db.WithContext(ctx).Create(va).Error
}

func (r *AttributeRepository) VariantValues(ctx context.Context, variantAttributeID int) ([]*catalog.ProductVariantAttributeValue, error) {
	var values []*catalog.ProductVariantAttributeValue
	err := r.db.WithContext(ctx).
		Where("product_variant_attribute_id = ?", variantAttributeID).
		Order("display_order, id").
		Find(&values).Error
	return values, err
}

func (r *AttributeRepository) AddVariantValue(ctx context.Context, v *catalog.ProductVariantAttributeValue) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *AttributeRepository) UpdateVariantValue(ctx context.Context, v *catalog.ProductVariantAttributeValue) error {
	return r.db.WithContext(ctx).Save(v).Error
}
