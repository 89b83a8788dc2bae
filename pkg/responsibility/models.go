package responsibility

import "time"

// Role names the regulatory function an entity performs for a product.
type Role string

const (
	RoleManufacturer      Role = "MANUFACTURER"
	RoleImporter          Role = "IMPORTER"
	RoleDistributor       Role = "DISTRIBUTOR"
	RoleAuthorizedRep     Role = "AUTHORIZED_REP"
	RoleResponsiblePerson Role = "RESPONSIBLE_PERSON"
)

// Status is the lifecycle state of a responsibility assignment.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusHistorical Status = "HISTORICAL"
	StatusDisputed   Status = "DISPUTED"
)

// ProductResponsibility assigns a role for a product in a country to an
// entity, bounded by a [valid_from, valid_to) window. At most one ACTIVE row
// exists per (product_id, country_code, role).
type ProductResponsibility struct {
	ID          string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProductID   string     `gorm:"column:product_id;index:idx_resp_key,priority:1;not null"`
	CountryCode string     `gorm:"column:country_code;index:idx_resp_key,priority:2;not null"`
	Role        string     `gorm:"column:role;index:idx_resp_key,priority:3;not null"`
	EntityID    string     `gorm:"column:entity_id;index;not null"`
	Status      string     `gorm:"column:status;index;not null"`
	Confidence  int        `gorm:"column:confidence;not null"`
	SourceID    string     `gorm:"column:source_id;not null"`
	ValidFrom   time.Time  `gorm:"column:valid_from;not null"`
	ValidTo     *time.Time `gorm:"column:valid_to"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (ProductResponsibility) TableName() string { return "product_responsibilities" }

// EntityRole is a market-scoped role grant to an entity, independent of any
// single product (e.g. an authorized representative for a whole market).
type EntityRole struct {
	ID          string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	EntityID    string     `gorm:"column:entity_id;index;not null"`
	Role        string     `gorm:"column:role;not null"`
	CountryCode string     `gorm:"column:country_code"`
	SourceID    string     `gorm:"column:source_id;not null"`
	ValidFrom   time.Time  `gorm:"column:valid_from;not null"`
	ValidTo     *time.Time `gorm:"column:valid_to"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (EntityRole) TableName() string { return "entity_roles" }

// ResolutionMode distinguishes live resolution from point-in-time replay.
type ResolutionMode string

const (
	ModeCurrent    ResolutionMode = "CURRENT"
	ModeHistorical ResolutionMode = "HISTORICAL"
)

// ResolvedRole is the best known answer for one role.
type ResolvedRole struct {
	Role              Role                  `json:"role"`
	Winner            ProductResponsibility `json:"winner"`
	CandidateCount    int                   `json:"candidateCount"`
	HasConflicts      bool                  `json:"hasConflicts"`
	DataFreshnessDays int                   `json:"dataFreshnessDays"`
}

// ResolvedView answers "who is responsible for product X in country Y",
// one winner per role ranked by confidence.
type ResolvedView struct {
	ProductID      string         `json:"productId"`
	CountryCode    string         `json:"countryCode"`
	ResolutionMode ResolutionMode `json:"resolutionMode"`
	ResolvedAt     time.Time      `json:"resolvedAt"`
	TargetDate     time.Time      `json:"targetDate"`
	Roles          []ResolvedRole `json:"roles"`
	ConflictCount  int            `json:"conflictCount"`
}
