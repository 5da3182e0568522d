package persistence

import (
	"context"
	"errors"

	"github.com/shopsync/backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// MediaRepository is the GORM implementation of catalog.MediaRepository.
type MediaRepository struct {
	db *gorm.DB
}

var _ catalog.MediaRepository = (*MediaRepository)(nil)

// NewMediaRepository creates a MediaRepository.
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) FindByIDs(ctx context.Context, ids []int) ([]*catalog.Picture, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var pictures []*catalog.Picture
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&pictures).Error
	if err != nil {
		return nil, err
	}
	return pictures, nil
}

// FindByContentHash returns the picture holding the given binary hash, or nil
// when none exists yet.
func (r *MediaRepository) FindByContentHash(ctx context.Context, hash string) (*catalog.Picture, error) {
	if hash == "" {
		return nil, nil
	}
	var p catalog.Picture
	err := r.db.WithContext(ctx).
		Where("content_hash = ?", hash).
		Order("id").
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *MediaRepository) Create(ctx context.Context, p *catalog.Picture) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// LocalizationRepository is the GORM implementation of
// catalog.LocalizationRepository.
type LocalizationRepository struct {
	db *gorm.DB
}

var _ catalog.LocalizationRepository = (*LocalizationRepository)(nil)

// NewLocalizationRepository creates a LocalizationRepository.
func NewLocalizationRepository(db *gorm.DB) *LocalizationRepository {
	return &LocalizationRepository{db: db}
}

func (r *LocalizationRepository) Languages(ctx context.Context) ([]*catalog.Language, error) {
	var languages []*catalog.Language
	err := r.db.WithContext(ctx).
		Where("published = ?", true).
		Order("id").
		Find(&languages).Error
	return languages, err
}

func (r *LocalizationRepository) LocalizedProperties(ctx context.Context, group string, entityID int) ([]*catalog.LocalizedProperty, error) {
	var props []*catalog.LocalizedProperty
	err := r.db.WithContext(ctx).
		Where("locale_key_group = ? AND entity_id = ?", group, entityID).
		Find(&props).Error
	return props, err
}

// UpsertLocalizedProperty updates the value of an existing
// (group, key, entity, language) row or inserts a new one.
func (r *LocalizationRepository) UpsertLocalizedProperty(ctx context.Context, p *catalog.LocalizedProperty) error {
	var existing catalog.LocalizedProperty
	err := r.db.WithContext(ctx).
		Where("locale_key_group = ? AND locale_key = ? AND entity_id = ? AND language_id = ?",
			p.LocaleKeyGroup, p.LocaleKey, p.EntityID, p.LanguageID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(p).Error
		}
		return err
	}

	existing.LocaleValue = p.LocaleValue
	p.ID = existing.ID
	return r.db.WithContext(ctx).Save(&existing).Error
}

func (r *LocalizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&catalog.UrlRecord{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ActiveSlug returns the active slug of an (entity, language) pair, or the
// empty string when none is recorded.
func (r *LocalizationRepository) ActiveSlug(ctx context.Context, entityName string, entityID, languageID int) (string, error) {
	var record catalog.UrlRecord
	err := r.db.WithContext(ctx).
		Where("entity_name = ? AND entity_id = ? AND language_id = ? AND is_active = ?",
			entityName, entityID, languageID, true).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return record.Slug, nil
}

// UpsertSlug replaces the active slug of an (entity, language) pair. The
// previous record, when present, is deactivated rather than deleted so old
// URLs stay resolvable.
func (r *LocalizationRepository) UpsertSlug(ctx context.Context, record *catalog.UrlRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&catalog.UrlRecord{}).
			Where("entity_name = ? AND entity_id = ? AND language_id = ? AND is_active = ?",
				record.EntityName, record.EntityID, record.LanguageID, true).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		record.IsActive = true
		return tx.Create(record).Error
	})
}

// StoreRepository is the GORM implementation of catalog.StoreRepository.
type StoreRepository struct {
	db *gorm.DB
}

var _ catalog.StoreRepository = (*StoreRepository)(nil)

// NewStoreRepository creates a StoreRepository.
func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) Stores(ctx context.Context) ([]*catalog.Store, error) {
	var stores []*catalog.Store
	err := r.db.WithContext(ctx).Order("id").Find(&stores).Error
	return stores, err
}

func (r *StoreRepository) MappingsFor(ctx context.Context, entityName string, entityID int) ([]*catalog.StoreMapping, error) {
	var mappings []*catalog.StoreMapping
	err := r.db.WithContext(ctx).
		Where("entity_name = ? AND entity_id = ?", entityName, entityID).
		Find(&mappings).Error
	return mappings, err
}

// MappingsByName returns every store restriction row of one entity type, for
// callers that resolve restrictions in bulk.
func (r *StoreRepository) MappingsByName(ctx context.Context, entityName string) ([]*catalog.StoreMapping, error) {
	var mappings []*catalog.StoreMapping
	err := r.db.WithContext(ctx).
		Where("entity_name = ?", entityName).
		Find(&mappings).Error
	return mappings, err
}

// ReplaceMappings rewrites the store restriction set of an entity.
func (r *StoreRepository) ReplaceMappings(ctx context.Context, entityName string, entityID int, storeIDs []int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("entity_name = ? AND entity_id = ?", entityName, entityID).
			Delete(&catalog.StoreMapping{}).Error
		if err != nil {
			return err
		}
		for _, storeID := range storeIDs {
			mapping := catalog.StoreMapping{
				EntityName: entityName,
				EntityID:   entityID,
				StoreID:    storeID,
			}
			if err := tx.Create(&mapping).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LookupRepository is the GORM implementation of catalog.LookupRepository.
type LookupRepository struct {
	db *gorm.DB
}

var _ catalog.LookupRepository = (*LookupRepository)(nil)

// NewLookupRepository creates a LookupRepository.
func NewLookupRepository(db *gorm.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

func (r *LookupRepository) DeliveryTimes(ctx context.Context) ([]*catalog.DeliveryTime, error) {
	var times []*catalog.DeliveryTime
	err := r.db.WithContext(ctx).Order("display_order, id").Find(&times).Error
	return times, err
}

func (r *LookupRepository) CreateDeliveryTime(ctx context.Context, dt *catalog.DeliveryTime) error {
	return r.db.WithContext(ctx).Create(dt).Error
}

func (r *LookupRepository) QuantityUnits(ctx context.Context) ([]*catalog.QuantityUnit, error) {
	var units []*catalog.QuantityUnit
	err := r.db.WithContext(ctx).Order("display_order, id").Find(&units).Error
	return units, err
}

func (r *LookupRepository) CreateQuantityUnit(ctx context.Context, qu *catalog.QuantityUnit) error {
	return r.db.WithContext(ctx).Create(qu).Error
}
