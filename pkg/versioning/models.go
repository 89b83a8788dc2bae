package versioning

import (
	"time"

	"github.com/complidesk/gpsr-registry/pkg/datastore"
)

// Entity is a versioned regulatory entity (manufacturer, importer,
// responsible person...). The row carries the latest accepted state; full
// history lives in entity_versions.
type Entity struct {
	ID               string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name             string    `gorm:"column:name;not null"`
	NormalizedName   string    `gorm:"column:normalized_name;index"`
	CountryCode      string    `gorm:"column:country_code"`
	CurrentVersionID string    `gorm:"column:current_version_id"`
	IsActive         bool      `gorm:"column:is_active;default:true;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Entity) TableName() string { return "entities" }

func (e *Entity) GetID() string                 { return e.ID }
func (e *Entity) GetCurrentVersionID() string   { return e.CurrentVersionID }
func (e *Entity) SetCurrentVersionID(id string) { e.CurrentVersionID = id }
func (e *Entity) SetActive(active bool)         { e.IsActive = active }
func (e *Entity) Active() bool                  { return e.IsActive }

// Snapshot returns the audit representation of the row.
func (e *Entity) Snapshot() datastore.JSONAny {
	return datastore.JSONAny{
		"id":               e.ID,
		"name":             e.Name,
		"normalizedName":   e.NormalizedName,
		"countryCode":      e.CountryCode,
		"currentVersionId": e.CurrentVersionID,
		"isActive":         e.IsActive,
	}
}

// EntityVersion is an immutable snapshot of an Entity. Versions are never
// updated or deleted; (entity_id, version_number) is unique and gap-free.
type EntityVersion struct {
	ID             string            `gorm:"primaryKey;column:id;type:varchar(36)"`
	EntityID       string            `gorm:"column:entity_id;uniqueIndex:idx_entity_version,priority:1;not null"`
	SourceID       string            `gorm:"column:source_id;not null"`
	VersionNumber  int               `gorm:"column:version_number;uniqueIndex:idx_entity_version,priority:2;not null"`
	OriginalData   datastore.JSONAny `gorm:"column:original_data;type:text;not null"`
	NormalizedData datastore.JSONAny `gorm:"column:normalized_data;type:text"`
	CapturedAt     time.Time         `gorm:"column:captured_at;autoCreateTime"`
	ChangeNote     string            `gorm:"column:change_note"`
}

// TableName returns the GORM table name.
func (EntityVersion) TableName() string { return "entity_versions" }

// Brand is a versioned brand record owned by an entity.
type Brand struct {
	ID               string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name             string    `gorm:"column:name;not null"`
	NormalizedName   string    `gorm:"column:normalized_name;index"`
	OwnerEntityID    string    `gorm:"column:owner_entity_id;index"`
	CurrentVersionID string    `gorm:"column:current_version_id"`
	IsActive         bool      `gorm:"column:is_active;default:true;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Brand) TableName() string { return "brands" }

func (b *Brand) GetID() string                 { return b.ID }
func (b *Brand) GetCurrentVersionID() string   { return b.CurrentVersionID }
func (b *Brand) SetCurrentVersionID(id string) { b.CurrentVersionID = id }
func (b *Brand) SetActive(active bool)         { b.IsActive = active }
func (b *Brand) Active() bool                  { return b.IsActive }

// Snapshot returns the audit representation of the row.
func (b *Brand) Snapshot() datastore.JSONAny {
	return datastore.JSONAny{
		"id":               b.ID,
		"name":             b.Name,
		"normalizedName":   b.NormalizedName,
		"ownerEntityId":    b.OwnerEntityID,
		"currentVersionId": b.CurrentVersionID,
		"isActive":         b.IsActive,
	}
}

// BrandVersion is an immutable snapshot of a Brand.
type BrandVersion struct {
	ID             string            `gorm:"primaryKey;column:id;type:varchar(36)"`
	BrandID        string            `gorm:"column:brand_id;uniqueIndex:idx_brand_version,priority:1;not null"`
	SourceID       string            `gorm:"column:source_id;not null"`
	VersionNumber  int               `gorm:"column:version_number;uniqueIndex:idx_brand_version,priority:2;not null"`
	OriginalData   datastore.JSONAny `gorm:"column:original_data;type:text;not null"`
	NormalizedData datastore.JSONAny `gorm:"column:normalized_data;type:text"`
	CapturedAt     time.Time         `gorm:"column:captured_at;autoCreateTime"`
	ChangeNote     string            `gorm:"column:change_note"`
}

// TableName returns the GORM table name.
func (BrandVersion) TableName() string { return "brand_versions" }

// SafetyInfo is product safety content per product, country and language.
// Unlike Entity and Brand it versions with an is_current flag plus a
// superseded_by link from old rows to their replacement: each row IS a
// version, and at most one row per key carries is_current=true.
type SafetyInfo struct {
	ID            string            `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProductID     string            `gorm:"column:product_id;uniqueIndex:idx_safety_version,priority:1;index:idx_safety_key,priority:1;not null"`
	CountryCode   string            `gorm:"column:country_code;uniqueIndex:idx_safety_version,priority:2;index:idx_safety_key,priority:2;not null"`
	LanguageCode  string            `gorm:"column:language_code;uniqueIndex:idx_safety_version,priority:3;index:idx_safety_key,priority:3;not null"`
	VersionNumber int               `gorm:"column:version_number;uniqueIndex:idx_safety_version,priority:4;not null"`
	SourceID      string            `gorm:"column:source_id;not null"`
	Content       datastore.JSONAny `gorm:"column:content;type:text;not null"`
	// Warnings are the hazard statements that must accompany the product in
	// this market and language.
	Warnings       datastore.JSONStringSlice `gorm:"column:warnings;type:text"`
	IsCurrent      bool                      `gorm:"column:is_current;index;not null"`
	SupersededByID string                    `gorm:"column:superseded_by_id"`
	CapturedAt     time.Time                 `gorm:"column:captured_at;autoCreateTime"`
	ChangeNote     string                    `gorm:"column:change_note"`
}

// TableName returns the GORM table name.
func (SafetyInfo) TableName() string { return "safety_info" }
