// Package exchange defines the typed rows of the catalog exchange documents.
// The same structs are encoded by the export pipeline and decoded by the
// import engine, so the element names here are the wire contract between
// peers.
package exchange

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocalizedRow carries the translated variant of an entity's text fields for
// one culture. Absent fields mean "no translation".
type LocalizedRow struct {
	Culture          string `xml:"culture,attr"`
	Name             string `xml:"Name,omitempty"`
	ShortDescription string `xml:"ShortDescription,omitempty"`
	FullDescription  string `xml:"FullDescription,omitempty"`
	Description      string `xml:"Description,omitempty"`
	BundleTitleText  string `xml:"BundleTitleText,omitempty"`
	Alias            string `xml:"Alias,omitempty"`
	SeName           string `xml:"SeName,omitempty"`
}

// PictureRow describes an image by its public download URL. Consumers fetch
// the binary themselves and deduplicate it by content hash.
type PictureRow struct {
	ID               int    `xml:"Id"`
	FullSizeImageUrl string `xml:"FullSizeImageUrl"`
	MimeType         string `xml:"MimeType,omitempty"`
	SeoFilename      string `xml:"SeoFilename,omitempty"`
}

// ProductPictureRow links a picture to the product with an ordering.
type ProductPictureRow struct {
	DisplayOrder int        `xml:"DisplayOrder"`
	Picture      PictureRow `xml:"Picture"`
}

// CategoryRow is one node of the exported category tree. ParentCategoryId
// refers to the exporting shop's ids; the import translates them.
type CategoryRow struct {
	ID               int    `xml:"Id"`
	ParentCategoryID int    `xml:"ParentCategoryId"`
	Name             string `xml:"Name"`
	Alias            string `xml:"Alias,omitempty"`
	Description      string `xml:"Description,omitempty"`
	SeName           string `xml:"SeName,omitempty"`
	DisplayOrder     int    `xml:"DisplayOrder"`

	Picture   *PictureRow    `xml:"Picture,omitempty"`
	Localized []LocalizedRow `xml:"Localized,omitempty"`
}

// CategoryRef points a product at a category of the Categories section.
type CategoryRef struct {
	ID   int    `xml:"Id"`
	Name string `xml:"Name,omitempty"`
}

// ProductCategoryRow assigns a product to a category.
type ProductCategoryRow struct {
	DisplayOrder int         `xml:"DisplayOrder"`
	Category     CategoryRef `xml:"Category"`
}

// ManufacturerRow is matched by name on the importing side and created when
// missing.
type ManufacturerRow struct {
	Name        string `xml:"Name"`
	Description string `xml:"Description,omitempty"`
	SeName      string `xml:"SeName,omitempty"`

	Picture   *PictureRow    `xml:"Picture,omitempty"`
	Localized []LocalizedRow `xml:"Localized,omitempty"`
}

// ProductManufacturerRow assigns a product to a manufacturer.
type ProductManufacturerRow struct {
	DisplayOrder int             `xml:"DisplayOrder"`
	Manufacturer ManufacturerRow `xml:"Manufacturer"`
}

// ProductTagRow is matched by name and created when missing.
type ProductTagRow struct {
	Name      string         `xml:"Name"`
	Localized []LocalizedRow `xml:"Localized,omitempty"`
}

// TierPriceRow is a quantity staffed price. Imported insert-only for new
// products.
type TierPriceRow struct {
	Quantity int             `xml:"Quantity"`
	Price    decimal.Decimal `xml:"Price"`
}

// SpecificationAttributeRef identifies a specification attribute by the
// name|alias pair.
type SpecificationAttributeRef struct {
	ID           int    `xml:"Id"`
	Name         string `xml:"Name"`
	Alias        string `xml:"Alias,omitempty"`
	DisplayOrder int    `xml:"DisplayOrder"`
}

// SpecificationAttributeOptionRow is one option of a specification
// attribute, carrying its owning attribute inline.
type SpecificationAttributeOptionRow struct {
	ID                     int                       `xml:"Id"`
	Name                   string                    `xml:"Name"`
	Alias                  string                    `xml:"Alias,omitempty"`
	DisplayOrder           int                       `xml:"DisplayOrder"`
	SpecificationAttribute SpecificationAttributeRef `xml:"SpecificationAttribute"`
}

// ProductSpecificationAttributeRow assigns a specification option to the
// product.
type ProductSpecificationAttributeRow struct {
	AllowFiltering               bool                            `xml:"AllowFiltering"`
	ShowOnProductPage            bool                            `xml:"ShowOnProductPage"`
	DisplayOrder                 int                             `xml:"DisplayOrder"`
	SpecificationAttributeOption SpecificationAttributeOptionRow `xml:"SpecificationAttributeOption"`
}

// AttributeRef identifies a variant-building attribute by the name|alias
// pair.
type AttributeRef struct {
	ID          int    `xml:"Id"`
	Name        string `xml:"Name"`
	Alias       string `xml:"Alias,omitempty"`
	Description string `xml:"Description,omitempty"`
}

// AttributeValueRow is one selectable value of a product attribute.
// LinkedProductId refers to the exporting shop's product ids and is resolved
// in pass 2 of the import.
type AttributeValueRow struct {
	ID               int             `xml:"Id"`
	Name             string          `xml:"Name"`
	Alias            string          `xml:"Alias,omitempty"`
	ColorSquaresRgb  string          `xml:"ColorSquaresRgb,omitempty"`
	PriceAdjustment  decimal.Decimal `xml:"PriceAdjustment"`
	WeightAdjustment decimal.Decimal `xml:"WeightAdjustment"`
	IsPreSelected    bool            `xml:"IsPreSelected"`
	DisplayOrder     int             `xml:"DisplayOrder"`
	ValueTypeID      int             `xml:"ValueTypeId"`
	LinkedProductID  int             `xml:"LinkedProductId"`
	Quantity         int             `xml:"Quantity"`

	Localized []LocalizedRow `xml:"Localized,omitempty"`
}

// ProductAttributeRow assigns an attribute with its values to the product.
// Id is the exporting shop's mapping id, referenced from combination
// attribute sets.
type ProductAttributeRow struct {
	ID                     int    `xml:"Id"`
	TextPrompt             string `xml:"TextPrompt,omitempty"`
	IsRequired             bool   `xml:"IsRequired"`
	AttributeControlTypeID int    `xml:"AttributeControlTypeId"`
	DisplayOrder           int    `xml:"DisplayOrder"`

	Attribute       AttributeRef        `xml:"Attribute"`
	AttributeValues []AttributeValueRow `xml:"AttributeValues>AttributeValue"`
}

// ProductAttributeCombinationRow is a concrete variant. AttributesXml refers
// to the exporting shop's attribute and value ids; the import rewrites them
// to local ids.
type ProductAttributeCombinationRow struct {
	Sku                    string           `xml:"Sku,omitempty"`
	Gtin                   string           `xml:"Gtin,omitempty"`
	ManufacturerPartNumber string           `xml:"ManufacturerPartNumber,omitempty"`
	Price                  *decimal.Decimal `xml:"Price,omitempty"`
	StockQuantity          int              `xml:"StockQuantity"`
	AllowOutOfStockOrders  bool             `xml:"AllowOutOfStockOrders"`
	IsActive               bool             `xml:"IsActive"`
	AttributesXml          string           `xml:"AttributesXml,omitempty"`

	Pictures []PictureRow `xml:"Pictures>Picture"`
}

// ProductBundleItemRow is one part of a bundle. ProductId refers to the
// exporting shop's ids and is resolved in pass 2.
type ProductBundleItemRow struct {
	ProductID          int              `xml:"ProductId"`
	Quantity           int              `xml:"Quantity"`
	Discount           *decimal.Decimal `xml:"Discount,omitempty"`
	DiscountPercentage bool             `xml:"DiscountPercentage"`
	Name               string           `xml:"Name,omitempty"`
	ShortDescription   string           `xml:"ShortDescription,omitempty"`
	HideThumbnail      bool             `xml:"HideThumbnail"`
	Visible            bool             `xml:"Visible"`
	Published          bool             `xml:"Published"`
	DisplayOrder       int              `xml:"DisplayOrder"`
}

// DeliveryTimeRow is matched by name and created when missing.
type DeliveryTimeRow struct {
	Name          string `xml:"Name"`
	DisplayLocale string `xml:"DisplayLocale,omitempty"`
	ColorHexValue string `xml:"ColorHexValue,omitempty"`
	DisplayOrder  int    `xml:"DisplayOrder"`
}

// QuantityUnitRow is matched by name and created when missing.
type QuantityUnitRow struct {
	Name         string `xml:"Name"`
	Description  string `xml:"Description,omitempty"`
	DisplayOrder int    `xml:"DisplayOrder"`
}

// ProductRow is one exported product with everything hanging off it. Id is
// the exporting shop's product id; the import keeps a foreign-to-local id
// map so pass 2 can resolve references between rows.
type ProductRow struct {
	ID int `xml:"Id"`

	Name             string `xml:"Name"`
	ShortDescription string `xml:"ShortDescription,omitempty"`
	FullDescription  string `xml:"FullDescription,omitempty"`
	SeName           string `xml:"SeName,omitempty"`

	Sku                    string `xml:"Sku,omitempty"`
	Gtin                   string `xml:"Gtin,omitempty"`
	ManufacturerPartNumber string `xml:"ManufacturerPartNumber,omitempty"`

	ProductTypeID          int `xml:"ProductTypeId"`
	ParentGroupedProductID int `xml:"ParentGroupedProductId"`

	Price        decimal.Decimal  `xml:"Price"`
	OldPrice     decimal.Decimal  `xml:"OldPrice"`
	ProductCost  decimal.Decimal  `xml:"ProductCost"`
	SpecialPrice *decimal.Decimal `xml:"SpecialPrice,omitempty"`

	SpecialPriceStartUtc *time.Time `xml:"SpecialPriceStartDateTimeUtc,omitempty"`
	SpecialPriceEndUtc   *time.Time `xml:"SpecialPriceEndDateTimeUtc,omitempty"`

	DisableBuyButton      bool `xml:"DisableBuyButton"`
	DisableWishlistButton bool `xml:"DisableWishlistButton"`

	StockQuantity    int `xml:"StockQuantity"`
	MinStockQuantity int `xml:"MinStockQuantity"`

	Weight decimal.Decimal `xml:"Weight"`
	Length decimal.Decimal `xml:"Length"`
	Width  decimal.Decimal `xml:"Width"`
	Height decimal.Decimal `xml:"Height"`

	RequireOtherProducts             bool   `xml:"RequireOtherProducts"`
	RequiredProductIds               string `xml:"RequiredProductIds,omitempty"`
	AutomaticallyAddRequiredProducts bool   `xml:"AutomaticallyAddRequiredProducts"`

	BundleTitleText      string `xml:"BundleTitleText,omitempty"`
	BundlePerItemPricing bool   `xml:"BundlePerItemPricing"`

	DeliveryTime *DeliveryTimeRow `xml:"DeliveryTime,omitempty"`
	QuantityUnit *QuantityUnitRow `xml:"QuantityUnit,omitempty"`

	Localized []LocalizedRow `xml:"Localized,omitempty"`

	ProductCategories              []ProductCategoryRow               `xml:"ProductCategories>ProductCategory"`
	ProductManufacturers           []ProductManufacturerRow           `xml:"ProductManufacturers>ProductManufacturer"`
	ProductTags                    []ProductTagRow                    `xml:"ProductTags>ProductTag"`
	TierPrices                     []TierPriceRow                     `xml:"TierPrices>TierPrice"`
	ProductSpecificationAttributes []ProductSpecificationAttributeRow `xml:"ProductSpecificationAttributes>ProductSpecificationAttribute"`
	ProductAttributes              []ProductAttributeRow              `xml:"ProductAttributes>ProductAttribute"`
	ProductAttributeCombinations   []ProductAttributeCombinationRow   `xml:"ProductAttributeCombinations>ProductAttributeCombination"`
	ProductPictures                []ProductPictureRow                `xml:"ProductPictures>ProductPicture"`
	ProductBundleItems             []ProductBundleItemRow             `xml:"ProductBundleItems>ProductBundleItem"`
}
