package catalog

// Language is a configured shop language. Localized fields in exchange
// documents are matched to local languages by culture code.
type Language struct {
	ID              int    `gorm:"primaryKey;autoIncrement"`
	LanguageCulture string `gorm:"size:20;not null"`
	UniqueSeoCode   string `gorm:"size:2"`
	Published       bool
}

func (Language) TableName() string { return "language" }

// LocalizedProperty stores one translated field value for one entity.
// The (group, key, entity, language) quadruple is the upsert identity.
type LocalizedProperty struct {
	ID             int    `gorm:"primaryKey;autoIncrement"`
	EntityID       int    `gorm:"index:idx_localized_property,priority:1;not null"`
	LanguageID     int    `gorm:"index:idx_localized_property,priority:2;not null"`
	LocaleKeyGroup string `gorm:"size:150;index:idx_localized_property,priority:3;not null"`
	LocaleKey      string `gorm:"size:400;not null"`
	LocaleValue    string `gorm:"type:text"`
}

func (LocalizedProperty) TableName() string { return "localized_property" }

// UrlRecord is a SEO slug for an entity, optionally per language
// (LanguageID zero is the standard slug). Slugs are globally unique; the
// import suffixes colliding slugs.
type UrlRecord struct {
	ID         int    `gorm:"primaryKey;autoIncrement"`
	EntityID   int    `gorm:"index:idx_url_record_entity,priority:2;not null"`
	EntityName string `gorm:"size:400;index:idx_url_record_entity,priority:1;not null"`
	Slug       string `gorm:"size:400;not null;uniqueIndex"`
	LanguageID int
	IsActive   bool
}

func (UrlRecord) TableName() string { return "url_record" }
