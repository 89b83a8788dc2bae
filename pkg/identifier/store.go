// Package identifier maintains the globally unique business-identifier index
// used to detect duplicate entities. An identifier value belongs to exactly
// one entity; adding it to a second entity is a validation failure, never a
// silent merge.
package identifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// defaultSuffixLength is how many trailing characters two identifier values
// must share to count as a fuzzy duplicate. Tolerates country-code prefixes
// like PL1234567890 vs 1234567890.
const defaultSuffixLength = 8

// ExistenceChecker reports whether an entity exists and is active.
type ExistenceChecker func(id string) (bool, error)

// Store provides the identifier dedup index.
type Store struct {
	db           *gorm.DB
	sources      *source.Store
	audit        *audit.Store
	entityExists ExistenceChecker
	suffixLength int
}

// Option configures a Store.
type Option func(*Store)

// WithSuffixLength overrides the fuzzy-match suffix length used by
// FindDuplicateCandidates.
func WithSuffixLength(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.suffixLength = n
		}
	}
}

// NewStore creates an identifier Store.
func NewStore(db *gorm.DB, sources *source.Store, auditStore *audit.Store, entityExists ExistenceChecker, opts ...Option) *Store {
	s := &Store{
		db:           db,
		sources:      sources,
		audit:        auditStore,
		entityExists: entityExists,
		suffixLength: defaultSuffixLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoMigrate creates or updates the entity_identifiers table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&EntityIdentifier{}); err != nil {
		return fmt.Errorf("auto-migrate entity_identifiers: %w", err)
	}
	return nil
}

// Normalize canonicalizes an identifier value for the unique index.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// Add attaches an identifier to an entity. If the normalized (type, value)
// pair already belongs to the same entity the row is updated in place; if it
// belongs to a different entity the call fails with a Validation error naming
// the conflicting entity. Setting isPrimary demotes the entity's other
// primary identifier of the same type in the same transaction.
func (s *Store) Add(entityID string, idType Type, value string, src source.Info, isPrimary bool) (*EntityIdentifier, error) {
	ok, err := s.entityExists(entityID)
	if err != nil {
		return nil, fmt.Errorf("check entity: %w", err)
	}
	if !ok {
		return nil, regerrors.NotFound("entity %s not found", entityID)
	}

	resolved, err := s.sources.FindOrCreate(src)
	if err != nil {
		return nil, err
	}

	normalized := Normalize(value)
	if normalized == "" {
		return nil, regerrors.ValidationField("value", "identifier value must not be empty")
	}

	var record *EntityIdentifier
	err = datastore.WithConflictRetry(func(attempt int) error {
		var existing EntityIdentifier
		err := s.db.Where("identifier_type = ? AND value = ?", string(idType), normalized).
			First(&existing).Error
		switch {
		case err == nil:
			if existing.EntityID != entityID {
				return regerrors.ValidationField("value",
					"identifier %s %s already belongs to entity %s", idType, normalized, existing.EntityID)
			}
			updated, err := s.updateInPlace(&existing, resolved.ID, isPrimary)
			if err != nil {
				return err
			}
			record = updated
			return nil
		case err != gorm.ErrRecordNotFound:
			return fmt.Errorf("lookup identifier: %w", err)
		}

		created := &EntityIdentifier{
			ID:             uuid.New().String(),
			EntityID:       entityID,
			IdentifierType: string(idType),
			Value:          normalized,
			IsPrimary:      isPrimary,
			SourceID:       resolved.ID,
		}
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if isPrimary {
				if err := demotePrimary(tx, entityID, idType, created.ID); err != nil {
					return err
				}
			}
			if err := tx.Create(created).Error; err != nil {
				// Unique violation means a concurrent caller claimed the
				// value; the next attempt re-queries to see who owns it.
				return err
			}
			return s.audit.WithTx(tx).Append("identifier.add", "identifier", created.ID, nil, identifierSnapshot(created))
		})
		if err != nil {
			return err
		}
		record = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// updateInPlace refreshes an identifier row the entity already owns.
func (s *Store) updateInPlace(existing *EntityIdentifier, sourceID string, isPrimary bool) (*EntityIdentifier, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		previous := identifierSnapshot(existing)
		if isPrimary && !existing.IsPrimary {
			if err := demotePrimary(tx, existing.EntityID, Type(existing.IdentifierType), existing.ID); err != nil {
				return err
			}
		}
		existing.SourceID = sourceID
		if isPrimary {
			existing.IsPrimary = true
		}
		if err := tx.Save(existing).Error; err != nil {
			return fmt.Errorf("update identifier: %w", err)
		}
		return s.audit.WithTx(tx).Append("identifier.update", "identifier", existing.ID, previous, identifierSnapshot(existing))
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// demotePrimary clears the primary flag on the entity's other identifiers of
// the same type, so at most one primary exists per (entity, type).
func demotePrimary(tx *gorm.DB, entityID string, idType Type, keepID string) error {
	if err := tx.Model(&EntityIdentifier{}).
		Where("entity_id = ? AND identifier_type = ? AND id <> ? AND is_primary = ?",
			entityID, string(idType), keepID, true).
		Update("is_primary", false).Error; err != nil {
		return fmt.Errorf("demote primary identifier: %w", err)
	}
	return nil
}

// Remove physically deletes an identifier row, leaving an audit entry behind.
func (s *Store) Remove(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var record EntityIdentifier
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return regerrors.NotFound("identifier %s not found", id)
			}
			return fmt.Errorf("load identifier: %w", err)
		}
		if err := tx.Delete(&record).Error; err != nil {
			return fmt.Errorf("delete identifier: %w", err)
		}
		return s.audit.WithTx(tx).Append("identifier.remove", "identifier", record.ID, identifierSnapshot(&record), nil)
	})
}

// ListByEntity returns an entity's identifiers, primary first.
func (s *Store) ListByEntity(entityID string) ([]EntityIdentifier, error) {
	var rows []EntityIdentifier
	if err := s.db.Where("entity_id = ?", entityID).
		Order("is_primary DESC").Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	return rows, nil
}

// FindDuplicateCandidates searches other entities whose identifiers share a
// value suffix with any of the probed entity's identifiers of the same type.
// Suffix matching tolerates country-code prefixes; results are approximate
// and meant for reviewer triage, not automatic merging.
func (s *Store) FindDuplicateCandidates(entityID string) ([]DuplicateCandidate, error) {
	own, err := s.ListByEntity(entityID)
	if err != nil {
		return nil, err
	}

	byEntity := map[string][]IdentifierMatch{}
	var order []string
	for _, mine := range own {
		suffix := mine.Value
		if len(suffix) > s.suffixLength {
			suffix = suffix[len(suffix)-s.suffixLength:]
		}

		var matches []EntityIdentifier
		if err := s.db.Where("identifier_type = ? AND entity_id <> ? AND value LIKE ?",
			mine.IdentifierType, entityID, "%"+suffix).
			Find(&matches).Error; err != nil {
			return nil, fmt.Errorf("search duplicate identifiers: %w", err)
		}

		for _, other := range matches {
			if _, seen := byEntity[other.EntityID]; !seen {
				order = append(order, other.EntityID)
			}
			byEntity[other.EntityID] = append(byEntity[other.EntityID], IdentifierMatch{
				IdentifierType: Type(mine.IdentifierType),
				OwnValue:       mine.Value,
				OtherValue:     other.Value,
			})
		}
	}

	candidates := make([]DuplicateCandidate, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, DuplicateCandidate{EntityID: id, Matches: byEntity[id]})
	}
	return candidates, nil
}

func identifierSnapshot(r *EntityIdentifier) datastore.JSONAny {
	return datastore.JSONAny{
		"id":             r.ID,
		"entityId":       r.EntityID,
		"identifierType": r.IdentifierType,
		"value":          r.Value,
		"isPrimary":      r.IsPrimary,
		"createdAt":      r.CreatedAt.Format(time.RFC3339Nano),
	}
}
