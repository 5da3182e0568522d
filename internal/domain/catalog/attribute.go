package catalog

import "github.com/shopspring/decimal"

// SpecificationAttribute is a filterable product property (e.g. "Color").
// Identity during import is the name|alias pair; pairs that occur more than
// once locally are ambiguous and ignored for the whole run.
type SpecificationAttribute struct {
	ID           int    `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:400;not null;index"`
	Alias        string `gorm:"size:100"`
	DisplayOrder int
}

func (SpecificationAttribute) TableName() string { return "specification_attribute" }

// SpecificationAttributeOption is one selectable value of a specification
// attribute.
type SpecificationAttributeOption struct {
	ID                       int    `gorm:"primaryKey;autoIncrement"`
	SpecificationAttributeID int    `gorm:"index;not null"`
	Name                     string `gorm:"size:400;not null"`
	Alias                    string `gorm:"size:100"`
	DisplayOrder             int
}

func (SpecificationAttributeOption) TableName() string { return "specification_attribute_option" }

// ProductSpecificationAttribute assigns an option to a product.
type ProductSpecificationAttribute struct {
	ID                             int `gorm:"primaryKey;autoIncrement"`
	ProductID                      int `gorm:"index:idx_product_spec,priority:1;not null"`
	SpecificationAttributeOptionID int `gorm:"index:idx_product_spec,priority:2;not null"`
	AllowFiltering                 bool
	ShowOnProductPage              bool
	DisplayOrder                   int
}

func (ProductSpecificationAttribute) TableName() string { return "product_specification_attribute" }

// ProductAttribute is a variant-building attribute (e.g. "Size").
type ProductAttribute struct {
	ID          int    `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:400;not null;index"`
	Alias       string `gorm:"size:100"`
	Description string `gorm:"type:text"`
}

func (ProductAttribute) TableName() string { return "product_attribute" }

// ProductVariantAttribute assigns a product attribute to a product.
type ProductVariantAttribute struct {
	ID                     int `gorm:"primaryKey;autoIncrement"`
	ProductID              int `gorm:"index:idx_product_variant_attr,priority:1;not null"`
	ProductAttributeID     int `gorm:"index:idx_product_variant_attr,priority:2;not null"`
	TextPrompt             string `gorm:"size:400"`
	IsRequired             bool
	AttributeControlTypeID int
	DisplayOrder           int
}

func (ProductVariantAttribute) TableName() string { return "product_variant_attribute" }

// Attribute value types. Linked values point at another product and are
// resolved in pass 2 of the import.
const (
	AttributeValueTypeSimple        = 0
	AttributeValueTypeProductLinkage = 10
)

// ProductVariantAttributeValue is one selectable value of a product variant
// attribute.
type ProductVariantAttributeValue struct {
	ID                        int `gorm:"primaryKey;autoIncrement"`
	ProductVariantAttributeID int `gorm:"index;not null"`

	Name            string `gorm:"size:400;not null"`
	Alias           string `gorm:"size:100"`
	ColorSquaresRgb string `gorm:"size:100"`

	PriceAdjustment  decimal.Decimal `gorm:"type:numeric(18,4)"`
	WeightAdjustment decimal.Decimal `gorm:"type:numeric(18,4)"`

	IsPreSelected bool
	DisplayOrder  int

	ValueTypeID     int
	LinkedProductID int `gorm:"index"`
	Quantity        int
}

func (ProductVariantAttributeValue) TableName() string { return "product_variant_attribute_value" }

// ProductVariantAttributeCombination is a concrete variant with its own SKU,
// stock and price. AttributesXml stores the selected value ids in document
// form; imported combinations get their value ids rewritten to local ids.
type ProductVariantAttributeCombination struct {
	ID        int `gorm:"primaryKey;autoIncrement"`
	ProductID int `gorm:"index;not null"`

	Sku                    string `gorm:"size:400"`
	Gtin                   string `gorm:"size:400"`
	ManufacturerPartNumber string `gorm:"size:400"`

	Price *decimal.Decimal `gorm:"type:numeric(18,4)"`

	AttributesXml         string `gorm:"type:text"`
	StockQuantity         int
	AllowOutOfStockOrders bool
	IsActive              bool

	AssignedPictureIds string `gorm:"size:1000"`
}

func (ProductVariantAttributeCombination) TableName() string {
	return "product_variant_attribute_combination"
}
