package versioning

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// EntityStore versions regulatory entities.
type EntityStore = Store[*Entity, EntityVersion]

// NewEntityStore wires the generic version store to the Entity models.
func NewEntityStore(db *gorm.DB, sources *source.Store, auditStore *audit.Store) *EntityStore {
	return NewStore(Config[*Entity, EntityVersion]{
		DB:           db,
		Sources:      sources,
		Audit:        auditStore,
		Kind:         "entity",
		ParentColumn: "entity_id",
		Blank:        func() *Entity { return &Entity{} },
		NewAggregate: func(original, normalized datastore.JSONAny) *Entity {
			return &Entity{
				ID:             uuid.New().String(),
				Name:           stringField(original, "name"),
				NormalizedName: stringField(normalized, "name"),
				CountryCode:    stringField(normalized, "countryCode"),
				IsActive:       true,
			}
		},
		ApplyPatch: func(e *Entity, merged, normalized datastore.JSONAny) {
			e.Name = stringField(merged, "name")
			e.NormalizedName = stringField(normalized, "name")
			e.CountryCode = stringField(normalized, "countryCode")
		},
		NewVersion: func(parentID string, number int, sourceID string, original, normalized datastore.JSONAny, changeNote string) EntityVersion {
			return EntityVersion{
				ID:             uuid.New().String(),
				EntityID:       parentID,
				SourceID:       sourceID,
				VersionNumber:  number,
				OriginalData:   original,
				NormalizedData: normalized,
				ChangeNote:     changeNote,
			}
		},
		VersionIDOf: func(v EntityVersion) string { return v.ID },
		Normalize:   normalizeCommon,
	})
}

// AutoMigrateEntities creates or updates the entity tables.
func AutoMigrateEntities(db *gorm.DB) error {
	return db.AutoMigrate(&Entity{}, &EntityVersion{})
}

// normalizeCommon is the default normalization applied before every write
// that touches searchable fields: whitespace collapse on names, upper-case
// trim on country codes. The full canonicalization collaborator (VAT, phone,
// address forms) plugs in via Config.Normalize in production wiring.
func normalizeCommon(data datastore.JSONAny) datastore.JSONAny {
	normalized := datastore.JSONAny{}
	for k, v := range data {
		normalized[k] = v
	}
	if name, ok := normalized["name"].(string); ok {
		normalized["name"] = strings.ToUpper(strings.Join(strings.Fields(name), " "))
	}
	if cc, ok := normalized["countryCode"].(string); ok {
		normalized["countryCode"] = strings.ToUpper(strings.TrimSpace(cc))
	}
	return normalized
}

func stringField(data datastore.JSONAny, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
