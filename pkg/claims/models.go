package claims

import (
	"time"
)

// SubjectKind tags the entity kind a claim asserts something about. The
// ledger serves every registry kind through one table; referential integrity
// is enforced at write time by the per-kind existence checkers, not by
// database foreign keys.
type SubjectKind string

const (
	SubjectEntity         SubjectKind = "ENTITY"
	SubjectBrand          SubjectKind = "BRAND"
	SubjectProduct        SubjectKind = "PRODUCT"
	SubjectResponsibility SubjectKind = "RESPONSIBILITY"
	SubjectContact        SubjectKind = "CONTACT"
	SubjectAddress        SubjectKind = "ADDRESS"
)

// Status is the claim lifecycle state.
type Status string

const (
	StatusProposed   Status = "PROPOSED"
	StatusAccepted   Status = "ACCEPTED"
	StatusRejected   Status = "REJECTED"
	StatusDisputed   Status = "DISPUTED"
	StatusSuperseded Status = "SUPERSEDED"
)

// EvidenceType classifies an attached evidence record.
type EvidenceType string

const (
	EvidenceURL             EvidenceType = "URL"
	EvidenceFile            EvidenceType = "FILE"
	EvidenceImage           EvidenceType = "IMAGE"
	EvidencePDF             EvidenceType = "PDF"
	EvidenceTextSnapshot    EvidenceType = "TEXT_SNAPSHOT"
	EvidenceLabelPhoto      EvidenceType = "LABEL_PHOTO"
	EvidenceRegistryExtract EvidenceType = "REGISTRY_EXTRACT"
)

// Claim is a disputable attribute-level assertion of fact.
type Claim struct {
	ID             string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	SubjectKind    string    `gorm:"column:subject_kind;index:idx_claim_subject,priority:1;not null"`
	SubjectID      string    `gorm:"column:subject_id;index:idx_claim_subject,priority:2;not null"`
	Attribute      string    `gorm:"column:attribute;index:idx_claim_subject,priority:3;not null"`
	Value          string    `gorm:"column:value;type:text;not null"`
	SourceID       string    `gorm:"column:source_id;not null"`
	Confidence     int       `gorm:"column:confidence;not null"`
	Status         string    `gorm:"column:status;index;not null"`
	SupersededByID string    `gorm:"column:superseded_by_id"`
	ReviewNote     string    `gorm:"column:review_note"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Claim) TableName() string { return "claims" }

// Evidence is an immutable record attached to a claim at submission.
type Evidence struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	ClaimID      string    `gorm:"column:claim_id;index;not null"`
	EvidenceType string    `gorm:"column:evidence_type;not null"`
	URL          string    `gorm:"column:url"`
	Content      string    `gorm:"column:content;type:text"`
	ContentHash  string    `gorm:"column:content_hash"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (Evidence) TableName() string { return "claim_evidence" }
