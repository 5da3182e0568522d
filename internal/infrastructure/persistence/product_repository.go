package persistence

import (
	"context"
	"errors"

	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ProductRepository is the GORM implementation of catalog.ProductRepository.
type ProductRepository struct {
	db *gorm.DB
}

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a ProductRepository.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindByID(ctx context.Context, id int) (*catalog.Product, error) {
	var p catalog.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) FindBySkus(ctx context.Context, skus []string) ([]*catalog.Product, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	var products []*catalog.Product
	err := r.db.WithContext(ctx).
		Where("sku IN ? AND deleted = ?", skus, false).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) FindByGtins(ctx context.Context, gtins []string) ([]*catalog.Product, error) {
	if len(gtins) == 0 {
		return nil, nil
	}
	var products []*catalog.Product
	err := r.db.WithContext(ctx).
		Where("gtin IN ? AND deleted = ?", gtins, false).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// List applies the combinable product filter. Deleted products are never
// returned; hidden ones only when the filter asks for them.
func (r *ProductRepository) List(ctx context.Context, filter catalog.ProductFilter) ([]*catalog.Product, int64, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&catalog.Product{}).Where("deleted = ?", false)

	if !filter.IncludeHidden {
		query = query.Where("published = ?", true)
	}
	if filter.UpdatedOnFrom != nil {
		query = query.Where("updated_on_utc >= ?", *filter.UpdatedOnFrom)
	}
	if len(filter.CategoryIDs) > 0 {
		sub := db.Model(&catalog.ProductCategory{}).
			Select("product_id").
			Where("category_id IN ?", filter.CategoryIDs)
		query = query.Where("id IN (?)", sub)
	}
	if len(filter.ManufacturerIDs) > 0 {
		sub := db.Model(&catalog.ProductManufacturer{}).
			Select("product_id").
			Where("manufacturer_id IN ?", filter.ManufacturerIDs)
		query = query.Where("id IN (?)", sub)
	}
	if len(filter.StoreIDs) > 0 {
		// Products without store restriction are visible in every store.
		sub := db.Model(&catalog.StoreMapping{}).
			Select("entity_id").
			Where("entity_name = ? AND store_id IN ?", "Product", filter.StoreIDs)
		query = query.Where("limited_to_stores = ? OR id IN (?)", false, sub)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var products []*catalog.Product
	if err := query.Order("id").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProductRepository) CategoryIDs(ctx context.Context, productID int) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).
		Model(&catalog.ProductCategory{}).
		Where("product_id = ?", productID).
		Order("display_order").
		Pluck("category_id", &ids).Error
	return ids, err
}

func (r *ProductRepository) Categories(ctx context.Context, productID int) ([]*catalog.ProductCategory, error) {
	var mappings []*catalog.ProductCategory
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("display_order").
		Find(&mappings).Error
	return mappings, err
}

func (r *ProductRepository) AddCategory(ctx context.Context, m *catalog.ProductCategory) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ProductRepository) Manufacturers(ctx context.Context, productID int) ([]*catalog.ProductManufacturer, error) {
	var mappings []*catalog.ProductManufacturer
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("display_order").
		Find(&mappings).Error
	return mappings, err
}

func (r *ProductRepository) AddManufacturer(ctx context.Context, m *catalog.ProductManufacturer) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ProductRepository) TagIDs(ctx context.Context, productID int) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).
		Model(&catalog.ProductTagMapping{}).
		Where("product_id = ?", productID).
		Pluck("product_tag_id", &ids).Error
	return ids, err
}

func (r *ProductRepository) AttachTag(ctx context.Context, productID, tagID int) error {
	return r.db.WithContext(ctx).Create(&catalog.ProductTagMapping{
		ProductID:    productID,
		ProductTagID: tagID,
	}).Error
}

func (r *ProductRepository) TierPrices(ctx context.Context, productID int) ([]*catalog.TierPrice, error) {
	var prices []*catalog.TierPrice
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("quantity").
		Find(&prices).Error
	return prices, err
}

func (r *ProductRepository) AddTierPrice(ctx context.Context, tp *catalog.TierPrice) error {
	return r.db.WithContext(ctx).Create(tp).Error
}

func (r *ProductRepository) BundleItems(ctx context.Context, bundleProductID int) ([]*catalog.ProductBundleItem, error) {
	var items []*catalog.ProductBundleItem
	err := r.db.WithContext(ctx).
		Where("bundle_product_id = ?", bundleProductID).
		Order("display_order").
		Find(&items).Error
	return items, err
}

func (r *ProductRepository) AddBundleItem(ctx context.Context, item *catalog.ProductBundleItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ProductRepository) UpdateBundleItem(ctx context.Context, item *catalog.ProductBundleItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *ProductRepository) Combinations(ctx context.Context, productID int) ([]*catalog.ProductVariantAttributeCombination, error) {
	var combinations []*catalog.ProductVariantAttributeCombination
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id").
		Find(&combinations).Error
	return combinations, err
}

func (r *ProductRepository) AddCombination(ctx context.Context, c *catalog.ProductVariantAttributeCombination) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ProductRepository) Pictures(ctx context.Context, productID int) ([]*catalog.ProductPicture, error) {
	var pictures []*catalog.ProductPicture
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("display_order").
		Find(&pictures).Error
	return pictures, err
}

func (r *ProductRepository) AddPicture(ctx context.Context, pp *catalog.ProductPicture) error {
	return r.db.WithContext(ctx).Create(pp).Error
}
