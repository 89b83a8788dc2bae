package source

import "time"

// Type classifies where a piece of registry data originated.
type Type string

// Known source types, roughly ordered by ascending trust.
const (
	TypeCommunity        Type = "COMMUNITY"
	TypeWebsite          Type = "WEBSITE"
	TypeProductLabel     Type = "PRODUCT_LABEL"
	TypeAPIImport        Type = "API_IMPORT"
	TypeManualEntry      Type = "MANUAL_ENTRY"
	TypePrimarySource    Type = "PRIMARY_SOURCE"
	TypeOfficialRegistry Type = "OFFICIAL_REGISTRY"
	TypeSafetyGate       Type = "SAFETY_GATE"
)

// Source is a deduplicated provenance record. Rows are immutable in normal
// operation and never deleted; versions and claims reference them forever.
type Source struct {
	ID         string  `gorm:"primaryKey;column:id;type:varchar(36)"`
	SourceType string  `gorm:"column:source_type;uniqueIndex:idx_source_identity,priority:1;not null"`
	// SourceIdentifier is the external identity of the source (registry code,
	// crawler id, user handle). NULL identifiers are exempt from dedup.
	SourceIdentifier *string   `gorm:"column:source_identifier;uniqueIndex:idx_source_identity,priority:2"`
	SourceURL        string    `gorm:"column:source_url"`
	TrustNote        string    `gorm:"column:trust_note"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (Source) TableName() string { return "sources" }

// Info identifies or describes the provenance of a write. Stores resolve it
// to a Source row via FindOrCreate before writing versions or claims.
type Info struct {
	Type       Type
	Identifier string // optional dedup key; empty means always create
	URL        string
	TrustNote  string
}
