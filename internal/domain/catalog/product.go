package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/shopsync/backend/internal/domain/shared"
)

// Product type discriminator values, part of the exchange document contract.
const (
	ProductTypeSimple  = 5
	ProductTypeGrouped = 10
	ProductTypeBundle  = 50
)

// Product is the flat catalog product the import engine reconciles foreign
// rows against. Cross-entity links (categories, manufacturers, tags, tier
// prices, attributes, bundle items) live in their own mapping tables.
type Product struct {
	shared.BaseEntity

	Name             string `gorm:"size:400;not null"`
	ShortDescription string `gorm:"type:text"`
	FullDescription  string `gorm:"type:text"`

	Sku                    string `gorm:"size:400;index"`
	Gtin                   string `gorm:"size:400;index"`
	ManufacturerPartNumber string `gorm:"size:400"`

	ProductTypeID          int `gorm:"default:5"`
	ParentGroupedProductID int `gorm:"index"`

	Published bool
	Deleted   bool `gorm:"index"`

	Price       decimal.Decimal  `gorm:"type:numeric(18,4)"`
	OldPrice    decimal.Decimal  `gorm:"type:numeric(18,4)"`
	ProductCost decimal.Decimal  `gorm:"type:numeric(18,4)"`
	SpecialPrice *decimal.Decimal `gorm:"type:numeric(18,4)"`

	SpecialPriceStartUtc *time.Time
	SpecialPriceEndUtc   *time.Time

	DisableBuyButton      bool
	DisableWishlistButton bool

	TaxCategoryID    int
	StockQuantity    int
	MinStockQuantity int

	Weight decimal.Decimal `gorm:"type:numeric(18,4)"`
	Length decimal.Decimal `gorm:"type:numeric(18,4)"`
	Width  decimal.Decimal `gorm:"type:numeric(18,4)"`
	Height decimal.Decimal `gorm:"type:numeric(18,4)"`

	LimitedToStores bool

	// Comma separated product ids that must be added to the cart together
	// with this one. Translated from foreign to local ids in pass 2.
	RequiredProductIds               string `gorm:"size:1000"`
	RequireOtherProducts             bool
	AutomaticallyAddRequiredProducts bool

	BundleTitleText     string `gorm:"size:400"`
	BundlePerItemPricing bool

	DeliveryTimeID *int
	QuantityUnitID *int
}

// TableName maps the entity to its table.
func (Product) TableName() string { return "product" }

// ProductCategory links a product into a category.
type ProductCategory struct {
	ID           int `gorm:"primaryKey;autoIncrement"`
	ProductID    int `gorm:"index:idx_product_category,priority:1;not null"`
	CategoryID   int `gorm:"index:idx_product_category,priority:2;not null"`
	DisplayOrder int
}

func (ProductCategory) TableName() string { return "product_category_mapping" }

// ProductManufacturer links a product to a manufacturer.
type ProductManufacturer struct {
	ID             int `gorm:"primaryKey;autoIncrement"`
	ProductID      int `gorm:"index:idx_product_manufacturer,priority:1;not null"`
	ManufacturerID int `gorm:"index:idx_product_manufacturer,priority:2;not null"`
	DisplayOrder   int
}

func (ProductManufacturer) TableName() string { return "product_manufacturer_mapping" }

// ProductTag is a free-form label shared between products.
type ProductTag struct {
	ID   int    `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:400;not null;uniqueIndex"`
}

func (ProductTag) TableName() string { return "product_tag" }

// ProductTagMapping attaches a tag to a product.
type ProductTagMapping struct {
	ID           int `gorm:"primaryKey;autoIncrement"`
	ProductID    int `gorm:"index:idx_product_tag,priority:1;not null"`
	ProductTagID int `gorm:"index:idx_product_tag,priority:2;not null"`
}

func (ProductTagMapping) TableName() string { return "product_tag_mapping" }

// TierPrice is a quantity staffed price row. Imported rows are insert-only
// and only written for newly created products.
type TierPrice struct {
	ID        int `gorm:"primaryKey;autoIncrement"`
	ProductID int `gorm:"index;not null"`
	StoreID   int
	Quantity  int
	Price     decimal.Decimal `gorm:"type:numeric(18,4)"`
}

func (TierPrice) TableName() string { return "tier_price" }

// ProductBundleItem is one part of a bundle product. BundleProductID is the
// owning bundle, ProductID the contained product.
type ProductBundleItem struct {
	ID              int `gorm:"primaryKey;autoIncrement"`
	ProductID       int `gorm:"index;not null"`
	BundleProductID int `gorm:"index;not null"`

	Quantity           int
	Discount           *decimal.Decimal `gorm:"type:numeric(18,4)"`
	DiscountPercentage bool

	Name             string `gorm:"size:400"`
	ShortDescription string `gorm:"type:text"`

	FilterAttributes bool
	HideThumbnail    bool
	Visible          bool
	Published        bool
	DisplayOrder     int
}

func (ProductBundleItem) TableName() string { return "product_bundle_item" }
