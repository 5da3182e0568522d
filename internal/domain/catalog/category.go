package catalog

import "github.com/shopsync/backend/internal/domain/shared"

// Category is a node of the catalog tree. ParentCategoryID of zero means a
// root category. Import matches existing categories by name within the same
// parent, so names need not be globally unique.
type Category struct {
	shared.BaseEntity

	Name        string `gorm:"size:400;not null;index"`
	Alias       string `gorm:"size:100"`
	Description string `gorm:"type:text"`

	ParentCategoryID int `gorm:"index"`
	DisplayOrder     int

	PictureID *int

	Published       bool
	Deleted         bool `gorm:"index"`
	LimitedToStores bool
}

// TableName maps the entity to its table.
func (Category) TableName() string { return "category" }

// Manufacturer is a product brand. Import creates manufacturers on demand,
// matching existing ones by exact name.
type Manufacturer struct {
	shared.BaseEntity

	Name        string `gorm:"size:400;not null;index"`
	Description string `gorm:"type:text"`

	PictureID    *int
	DisplayOrder int

	Published bool
	Deleted   bool
}

// TableName maps the entity to its table.
func (Manufacturer) TableName() string { return "manufacturer" }

// DeliveryTime describes how long shipping takes. Matched by name during
// import.
type DeliveryTime struct {
	ID            int    `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:50;not null"`
	DisplayLocale string `gorm:"size:50"`
	ColorHexValue string `gorm:"size:50"`
	DisplayOrder  int
}

func (DeliveryTime) TableName() string { return "delivery_time" }

// QuantityUnit describes the unit a product is sold in. Matched by name
// during import.
type QuantityUnit struct {
	ID           int    `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:50;not null"`
	Description  string `gorm:"size:500"`
	DisplayOrder int
}

func (QuantityUnit) TableName() string { return "quantity_unit" }
