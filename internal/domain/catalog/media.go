package catalog

import "github.com/shopsync/backend/internal/domain/shared"

// Picture is a stored media item. ContentHash is the hash of the binary
// content; imported images are deduplicated against it so the same foreign
// image downloaded twice never creates two rows.
type Picture struct {
	shared.BaseEntity

	MimeType    string `gorm:"size:100"`
	SeoFilename string `gorm:"size:300"`
	ContentHash string `gorm:"size:64;index"`

	// Key of the binary in the media object store.
	StorageKey string `gorm:"size:400"`
}

// TableName maps the entity to its table.
func (Picture) TableName() string { return "picture" }

// ProductPicture links a picture to a product.
type ProductPicture struct {
	ID           int `gorm:"primaryKey;autoIncrement"`
	ProductID    int `gorm:"index:idx_product_picture,priority:1;not null"`
	PictureID    int `gorm:"index:idx_product_picture,priority:2;not null"`
	DisplayOrder int
}

func (ProductPicture) TableName() string { return "product_picture_mapping" }
