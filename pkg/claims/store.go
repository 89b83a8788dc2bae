// Package claims implements the attribute-level claim/evidence ledger.
// Competing assertions about the same subject attribute coexist as separate
// claims; conflicts surface to a reviewer ranked by confidence and are never
// auto-merged.
package claims

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// ExistenceChecker reports whether a claim subject exists and is active.
type ExistenceChecker func(id string) (bool, error)

// Store provides the claim ledger operations.
type Store struct {
	db       *gorm.DB
	sources  *source.Store
	audit    *audit.Store
	checkers map[SubjectKind]ExistenceChecker
}

// NewStore creates a claim Store. Subject kinds become submittable once a
// checker is registered for them via RegisterChecker.
func NewStore(db *gorm.DB, sources *source.Store, auditStore *audit.Store) *Store {
	return &Store{
		db:       db,
		sources:  sources,
		audit:    auditStore,
		checkers: map[SubjectKind]ExistenceChecker{},
	}
}

// RegisterChecker installs the existence check dispatched for a subject kind.
func (s *Store) RegisterChecker(kind SubjectKind, checker ExistenceChecker) {
	s.checkers[kind] = checker
}

// AutoMigrate creates or updates the claim tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Claim{}, &Evidence{}); err != nil {
		return fmt.Errorf("auto-migrate claims: %w", err)
	}
	return nil
}

// EvidenceInput describes one evidence record attached at submission.
type EvidenceInput struct {
	Type        EvidenceType
	URL         string
	Content     string
	ContentHash string
}

// SubmitInput describes a new claim.
type SubmitInput struct {
	SubjectKind SubjectKind
	SubjectID   string
	Attribute   string
	Value       string
	SourceID    string
	Confidence  int
	Evidence    []EvidenceInput
}

// Submit records a new PROPOSED claim with its evidence. Any non-terminal
// claim for the same (subject, subject_id, attribute) is marked SUPERSEDED
// and linked to the new claim inside the same transaction, so the triple
// never shows two live latest assertions.
func (s *Store) Submit(input SubmitInput) (*Claim, error) {
	if _, err := s.sources.Get(input.SourceID); err != nil {
		return nil, err
	}

	checker, ok := s.checkers[input.SubjectKind]
	if !ok {
		return nil, regerrors.Validation("no existence check registered for subject kind %s", input.SubjectKind)
	}
	exists, err := checker(input.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("check claim subject: %w", err)
	}
	if !exists {
		return nil, regerrors.NotFound("%s %s not found", input.SubjectKind, input.SubjectID)
	}

	claim := &Claim{
		ID:          uuid.New().String(),
		SubjectKind: string(input.SubjectKind),
		SubjectID:   input.SubjectID,
		Attribute:   input.Attribute,
		Value:       input.Value,
		SourceID:    input.SourceID,
		Confidence:  input.Confidence,
		Status:      string(StatusProposed),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Claim{}).
			Where("subject_kind = ? AND subject_id = ? AND attribute = ?",
				claim.SubjectKind, claim.SubjectID, claim.Attribute).
			Where("status IN ?", statusStrings(nonTerminal)).
			Updates(map[string]any{
				"status":           string(StatusSuperseded),
				"superseded_by_id": claim.ID,
			}).Error; err != nil {
			return fmt.Errorf("supersede prior claims: %w", err)
		}

		if err := tx.Create(claim).Error; err != nil {
			return fmt.Errorf("create claim: %w", err)
		}

		for _, ev := range input.Evidence {
			row := &Evidence{
				ID:           uuid.New().String(),
				ClaimID:      claim.ID,
				EvidenceType: string(ev.Type),
				URL:          ev.URL,
				Content:      ev.Content,
				ContentHash:  ev.ContentHash,
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("create claim evidence: %w", err)
			}
		}

		return s.audit.WithTx(tx).Append("claim.submit", "claim", claim.ID, nil, claimSnapshot(claim))
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// Review moves a claim to ACCEPTED, REJECTED or DISPUTED. Illegal moves are
// Validation errors; the claim is untouched.
func (s *Store) Review(claimID string, to Status, note string) (*Claim, error) {
	var reviewed *Claim
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var claim Claim
		if err := tx.First(&claim, "id = ?", claimID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return regerrors.NotFound("claim %s not found", claimID)
			}
			return fmt.Errorf("load claim: %w", err)
		}

		if err := validateReviewTransition(Status(claim.Status), to); err != nil {
			return err
		}

		previous := claimSnapshot(&claim)
		claim.Status = string(to)
		claim.ReviewNote = note
		if err := tx.Save(&claim).Error; err != nil {
			return fmt.Errorf("update claim status: %w", err)
		}

		if err := s.audit.WithTx(tx).Append("claim.review", "claim", claim.ID, previous, claimSnapshot(&claim)); err != nil {
			return err
		}
		reviewed = &claim
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

// GetPending returns PROPOSED claims for review, highest confidence first;
// claims of equal confidence come back oldest first. kind narrows to one
// subject kind when non-empty.
func (s *Store) GetPending(kind SubjectKind, limit int) ([]Claim, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.Where("status = ?", string(StatusProposed)).
		Order("confidence DESC").Order("created_at ASC").Limit(limit)
	if kind != "" {
		query = query.Where("subject_kind = ?", string(kind))
	}
	var rows []Claim
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list pending claims: %w", err)
	}
	return rows, nil
}

// Get retrieves a claim with its evidence.
func (s *Store) Get(claimID string) (*Claim, []Evidence, error) {
	var claim Claim
	if err := s.db.First(&claim, "id = ?", claimID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, regerrors.NotFound("claim %s not found", claimID)
		}
		return nil, nil, fmt.Errorf("get claim: %w", err)
	}
	var evidence []Evidence
	if err := s.db.Where("claim_id = ?", claimID).Order("created_at ASC").Find(&evidence).Error; err != nil {
		return nil, nil, fmt.Errorf("get claim evidence: %w", err)
	}
	return &claim, evidence, nil
}

// ListBySubject returns every claim ever made about a subject attribute
// surface, newest first.
func (s *Store) ListBySubject(kind SubjectKind, subjectID string) ([]Claim, error) {
	var rows []Claim
	if err := s.db.Where("subject_kind = ? AND subject_id = ?", string(kind), subjectID).
		Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list claims by subject: %w", err)
	}
	return rows, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func claimSnapshot(c *Claim) datastore.JSONAny {
	return datastore.JSONAny{
		"id":          c.ID,
		"subjectKind": c.SubjectKind,
		"subjectId":   c.SubjectID,
		"attribute":   c.Attribute,
		"value":       c.Value,
		"confidence":  c.Confidence,
		"status":      c.Status,
	}
}
