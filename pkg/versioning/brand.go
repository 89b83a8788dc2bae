package versioning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// BrandStore versions brand records.
type BrandStore = Store[*Brand, BrandVersion]

// NewBrandStore wires the generic version store to the Brand models.
func NewBrandStore(db *gorm.DB, sources *source.Store, auditStore *audit.Store) *BrandStore {
	return NewStore(Config[*Brand, BrandVersion]{
		DB:           db,
		Sources:      sources,
		Audit:        auditStore,
		Kind:         "brand",
		ParentColumn: "brand_id",
		Blank:        func() *Brand { return &Brand{} },
		NewAggregate: func(original, normalized datastore.JSONAny) *Brand {
			return &Brand{
				ID:             uuid.New().String(),
				Name:           stringField(original, "name"),
				NormalizedName: stringField(normalized, "name"),
				OwnerEntityID:  stringField(original, "ownerEntityId"),
				IsActive:       true,
			}
		},
		ApplyPatch: func(b *Brand, merged, normalized datastore.JSONAny) {
			b.Name = stringField(merged, "name")
			b.NormalizedName = stringField(normalized, "name")
			b.OwnerEntityID = stringField(merged, "ownerEntityId")
		},
		NewVersion: func(parentID string, number int, sourceID string, original, normalized datastore.JSONAny, changeNote string) BrandVersion {
			return BrandVersion{
				ID:             uuid.New().String(),
				BrandID:        parentID,
				SourceID:       sourceID,
				VersionNumber:  number,
				OriginalData:   original,
				NormalizedData: normalized,
				ChangeNote:     changeNote,
			}
		},
		VersionIDOf: func(v BrandVersion) string { return v.ID },
		Normalize:   normalizeCommon,
	})
}

// AutoMigrateBrands creates or updates the brand tables.
func AutoMigrateBrands(db *gorm.DB) error {
	return db.AutoMigrate(&Brand{}, &BrandVersion{})
}
