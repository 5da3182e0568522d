package shared

import "time"

// Entity is the base interface for all domain entities.
type Entity interface {
	GetID() int
	GetCreatedOnUtc() time.Time
	GetUpdatedOnUtc() time.Time
}

// BaseEntity provides common fields for all persisted entities. Identifiers
// are integers because they travel inside the exchange documents and must be
// translatable between peers.
type BaseEntity struct {
	ID           int       `gorm:"primaryKey;autoIncrement"`
	CreatedOnUtc time.Time `gorm:"autoCreateTime:false"`
	UpdatedOnUtc time.Time `gorm:"autoUpdateTime:false"`
}

// GetID returns the entity ID.
func (e *BaseEntity) GetID() int {
	return e.ID
}

// GetCreatedOnUtc returns the creation timestamp.
func (e *BaseEntity) GetCreatedOnUtc() time.Time {
	return e.CreatedOnUtc
}

// GetUpdatedOnUtc returns the last update timestamp.
func (e *BaseEntity) GetUpdatedOnUtc() time.Time {
	return e.UpdatedOnUtc
}

// NewBaseEntity creates a base entity with both timestamps set to now (UTC).
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		CreatedOnUtc: now,
		UpdatedOnUtc: now,
	}
}

// Touch refreshes the update timestamp.
func (e *BaseEntity) Touch() {
	e.UpdatedOnUtc = time.Now().UTC()
}
