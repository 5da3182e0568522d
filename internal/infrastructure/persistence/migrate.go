package persistence

import (
	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/domain/connector"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for every persisted entity.
// Production deployments run the SQL migrations instead; this covers dev
// setups on sqlite and the test suite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&connector.Connection{},
		&connector.SkuMapping{},

		&catalog.Product{},
		&catalog.ProductCategory{},
		&catalog.ProductManufacturer{},
		&catalog.ProductTag{},
		&catalog.ProductTagMapping{},
		&catalog.TierPrice{},
		&catalog.ProductBundleItem{},

		&catalog.Category{},
		&catalog.Manufacturer{},
		&catalog.DeliveryTime{},
		&catalog.QuantityUnit{},

		&catalog.SpecificationAttribute{},
		&catalog.SpecificationAttributeOption{},
		&catalog.ProductSpecificationAttribute{},
		&catalog.ProductAttribute{},
		&catalog.ProductVariantAttribute{},
		&catalog.ProductVariantAttributeValue{},
		&catalog.ProductVariantAttributeCombination{},

		&catalog.Picture{},
		&catalog.ProductPicture{},

		&catalog.Language{},
		&catalog.LocalizedProperty{},
		&catalog.UrlRecord{},

		&catalog.Store{},
		&catalog.StoreMapping{},
	)
}
