package catalog

import (
	"context"
	"time"
)

// ProductFilter narrows a product query. All fields are optional and
// combinable.
type ProductFilter struct {
	ManufacturerIDs []int
	StoreIDs        []int
	CategoryIDs     []int
	UpdatedOnFrom   *time.Time
	IncludeHidden   bool

	Page     int
	PageSize int
}

// ProductRepository persists products and the mapping rows owned by them.
type ProductRepository interface {
	FindByID(ctx context.Context, id int) (*Product, error)
	FindBySkus(ctx context.Context, skus []string) ([]*Product, error)
	FindByGtins(ctx context.Context, gtins []string) ([]*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, int64, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error

	CategoryIDs(ctx context.Context, productID int) ([]int, error)
	Categories(ctx context.Context, productID int) ([]*ProductCategory, error)
	AddCategory(ctx context.Context, m *ProductCategory) error

	Manufacturers(ctx context.Context, productID int) ([]*ProductManufacturer, error)
	AddManufacturer(ctx context.Context, m *ProductManufacturer) error

	TagIDs(ctx context.Context, productID int) ([]int, error)
	AttachTag(ctx context.Context, productID, tagID int) error

	TierPrices(ctx context.Context, productID int) ([]*TierPrice, error)
	AddTierPrice(ctx context.Context, tp *TierPrice) error

	BundleItems(ctx context.Context, bundleProductID int) ([]*ProductBundleItem, error)
	AddBundleItem(ctx context.Context, item *ProductBundleItem) error
	UpdateBundleItem(ctx context.Context, item *ProductBundleItem) error

	Combinations(ctx context.Context, productID int) ([]*ProductVariantAttributeCombination, error)
	AddCombination(ctx context.Context, c *ProductVariantAttributeCombination) error

	Pictures(ctx context.Context, productID int) ([]*ProductPicture, error)
	AddPicture(ctx context.Context, pp *ProductPicture) error
}

// CategoryRepository persists the category tree.
type CategoryRepository interface {
	FindByID(ctx context.Context, id int) (*Category, error)
	FindByIDs(ctx context.Context, ids []int) ([]*Category, error)
	FindByNameAndParent(ctx context.Context, name string, parentID int) (*Category, error)
	List(ctx context.Context, offset, limit int) ([]*Category, int64, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
}

// ManufacturerRepository persists manufacturers.
type ManufacturerRepository interface {
	All(ctx context.Context) ([]*Manufacturer, error)
	FindByIDs(ctx context.Context, ids []int) ([]*Manufacturer, error)
	FindByNames(ctx context.Context, names []string) ([]*Manufacturer, error)
	Create(ctx context.Context, m *Manufacturer) error
}

// TagRepository persists product tags.
type TagRepository interface {
	FindByIDs(ctx context.Context, ids []int) ([]*ProductTag, error)
	FindByNames(ctx context.Context, names []string) ([]*ProductTag, error)
	Create(ctx context.Context, t *ProductTag) error
}

// AttributeRepository persists specification and product attributes with
// their options, values and product mappings.
type AttributeRepository interface {
	SpecificationAttributes(ctx context.Context) ([]*SpecificationAttribute, error)
	OptionsByAttribute(ctx context.Context, attributeID int) ([]*SpecificationAttributeOption, error)
	OptionsByIDs(ctx context.Context, ids []int) ([]*SpecificationAttributeOption, error)
	CreateSpecificationAttribute(ctx context.Context, a *SpecificationAttribute) error
	CreateOption(ctx context.Context, o *SpecificationAttributeOption) error

	ProductSpecAttributes(ctx context.Context, productID int) ([]*ProductSpecificationAttribute, error)
	AddProductSpecAttribute(ctx context.Context, m *ProductSpecificationAttribute) error

	ProductAttributes(ctx context.Context) ([]*ProductAttribute, error)
	CreateProductAttribute(ctx context.Context, a *ProductAttribute) error

	VariantAttributes(ctx context.Context, productID int) ([]*ProductVariantAttribute, error)
	AddVariantAttribute(ctx context.Context, va *ProductVariantAttribute) error

	VariantValues(ctx context.Context, variantAttributeID int) ([]*ProductVariantAttributeValue, error)
	AddVariantValue(ctx context.Context, v *ProductVariantAttributeValue) error
	UpdateVariantValue(ctx context.Context, v *ProductVariantAttributeValue) error
}

// MediaRepository persists pictures.
type MediaRepository interface {
	FindByIDs(ctx context.Context, ids []int) ([]*Picture, error)
	FindByContentHash(ctx context.Context, hash string) (*Picture, error)
	Create(ctx context.Context, p *Picture) error
}

// LocalizationRepository persists languages, translated field values and
// SEO slugs.
type LocalizationRepository interface {
	Languages(ctx context.Context) ([]*Language, error)
	LocalizedProperties(ctx context.Context, group string, entityID int) ([]*LocalizedProperty, error)
	UpsertLocalizedProperty(ctx context.Context, p *LocalizedProperty) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	ActiveSlug(ctx context.Context, entityName string, entityID, languageID int) (string, error)
	UpsertSlug(ctx context.Context, r *UrlRecord) error
}

// StoreRepository persists stores and per-entity store restrictions.
type StoreRepository interface {
	Stores(ctx context.Context) ([]*Store, error)
	MappingsFor(ctx context.Context, entityName string, entityID int) ([]*StoreMapping, error)
	MappingsByName(ctx context.Context, entityName string) ([]*StoreMapping, error)
	ReplaceMappings(ctx context.Context, entityName string, entityID int, storeIDs []int) error
}

// LookupRepository persists the small lookup entities matched by name during
// import.
type LookupRepository interface {
	DeliveryTimes(ctx context.Context) ([]*DeliveryTime, error)
	CreateDeliveryTime(ctx context.Context, dt *DeliveryTime) error
	QuantityUnits(ctx context.Context) ([]*QuantityUnit, error)
	CreateQuantityUnit(ctx context.Context, qu *QuantityUnit) error
}
