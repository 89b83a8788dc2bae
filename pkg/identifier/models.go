package identifier

import "time"

// Type classifies a business identifier scheme.
type Type string

const (
	TypeVATEU           Type = "VAT_EU"
	TypeEORI            Type = "EORI"
	TypeLEI             Type = "LEI"
	TypeDUNS            Type = "DUNS"
	TypeKRS             Type = "KRS"
	TypeNIP             Type = "NIP"
	TypeREGON           Type = "REGON"
	TypeGLN             Type = "GLN"
	TypeCompanyRegister Type = "COMPANY_REGISTER"
)

// EntityIdentifier is a normalized business identifier attached to an entity.
// (identifier_type, value) is globally unique across all entities; the unique
// index is the registry's dedup mechanism.
type EntityIdentifier struct {
	ID             string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	EntityID       string    `gorm:"column:entity_id;index;not null"`
	IdentifierType string    `gorm:"column:identifier_type;uniqueIndex:idx_identifier_value,priority:1;not null"`
	Value          string    `gorm:"column:value;uniqueIndex:idx_identifier_value,priority:2;not null"`
	IsPrimary      bool      `gorm:"column:is_primary;not null;default:false"`
	SourceID       string    `gorm:"column:source_id;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (EntityIdentifier) TableName() string { return "entity_identifiers" }

// DuplicateCandidate aggregates fuzzy identifier matches against one other
// entity.
type DuplicateCandidate struct {
	EntityID string            `json:"entityId"`
	Matches  []IdentifierMatch `json:"matches"`
}

// IdentifierMatch pairs one of the probed entity's identifiers with a
// suffix-matching identifier on another entity.
type IdentifierMatch struct {
	IdentifierType Type   `json:"identifierType"`
	OwnValue       string `json:"ownValue"`
	OtherValue     string `json:"otherValue"`
}
