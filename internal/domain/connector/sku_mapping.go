package connector

import "github.com/shopsync/backend/internal/domain/shared"

// SkuMapping overrides a product's SKU for one specific peer shop. The
// export pipeline substitutes the mapped SKU into the outgoing record
// without touching the catalog product.
type SkuMapping struct {
	shared.BaseEntity

	ProductID int    `gorm:"index;not null"`
	Domain    string `gorm:"size:400;not null"`
	Sku       string `gorm:"size:400"`
}

// TableName maps the entity to its table.
func (SkuMapping) TableName() string {
	return "connector_sku_mapping"
}

// NewSkuMapping validates and builds a mapping row.
func NewSkuMapping(productID int, domain, sku string) (*SkuMapping, error) {
	if productID == 0 {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "product id is required")
	}
	if domain == "" {
		return nil, shared.NewDomainError("INVALID_DOMAIN", "peer domain is required")
	}
	return &SkuMapping{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		Domain:     domain,
		Sku:        sku,
	}, nil
}
