package catalog

// Store is one storefront of a multi-store installation.
type Store struct {
	ID   int    `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:400;not null"`
	Url  string `gorm:"size:400"`
}

func (Store) TableName() string { return "store" }

// StoreMapping restricts an entity to specific stores. An entity without
// mappings (and LimitedToStores false) is visible everywhere.
type StoreMapping struct {
	ID         int    `gorm:"primaryKey;autoIncrement"`
	EntityID   int    `gorm:"index:idx_store_mapping,priority:2;not null"`
	EntityName string `gorm:"size:400;index:idx_store_mapping,priority:1;not null"`
	StoreID    int    `gorm:"index;not null"`
}

func (StoreMapping) TableName() string { return "store_mapping" }
