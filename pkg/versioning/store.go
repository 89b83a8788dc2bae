// Package versioning implements the append-only version chains behind the
// registry's mutable aggregates. Every update creates an immutable version
// row and repoints the parent's current-version reference in the same
// transaction; version numbers are assigned under optimistic concurrency
// control with a bounded retry on the (parent, version_number) unique index.
package versioning

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// Aggregate is implemented by versioned parent rows (Entity, Brand).
type Aggregate interface {
	GetID() string
	GetCurrentVersionID() string
	SetCurrentVersionID(string)
	SetActive(bool)
	Active() bool
	Snapshot() datastore.JSONAny
}

// Config wires a Store to a concrete aggregate/version model pair.
// The mapping funcs keep the store free of per-aggregate knowledge.
type Config[A Aggregate, V any] struct {
	DB      *gorm.DB
	Sources *source.Store
	Audit   *audit.Store

	// Kind is the audit entity_type and error noun, e.g. "entity".
	Kind string
	// ParentColumn is the version table's parent foreign key column.
	ParentColumn string

	Blank        func() A
	NewAggregate func(original, normalized datastore.JSONAny) A
	// ApplyPatch updates the aggregate's mutable columns from the merged data.
	ApplyPatch  func(agg A, merged, normalized datastore.JSONAny)
	NewVersion  func(parentID string, number int, sourceID string, original, normalized datastore.JSONAny, changeNote string) V
	VersionIDOf func(V) string
	// Normalize derives the searchable snapshot from raw input. Defaults to
	// an identity copy when nil; production wiring injects the external
	// normalization collaborator here.
	Normalize func(datastore.JSONAny) datastore.JSONAny
}

// Store provides version-chain operations for one aggregate kind.
type Store[A Aggregate, V any] struct {
	cfg Config[A, V]
}

// NewStore creates a Store from its wiring config.
func NewStore[A Aggregate, V any](cfg Config[A, V]) *Store[A, V] {
	return &Store[A, V]{cfg: cfg}
}

// WriteInput carries the raw data and provenance of a create or update.
type WriteInput struct {
	Data       datastore.JSONAny
	Source     source.Info
	ChangeNote string
}

func (s *Store[A, V]) normalize(data datastore.JSONAny) datastore.JSONAny {
	if s.cfg.Normalize != nil {
		return s.cfg.Normalize(data)
	}
	normalized := datastore.JSONAny{}
	for k, v := range data {
		normalized[k] = v
	}
	return normalized
}

// CreateWithVersion creates the aggregate row, version #1 and the current
// pointer in one transaction, attributed to the resolved source.
func (s *Store[A, V]) CreateWithVersion(input WriteInput) (A, error) {
	var zero A

	src, err := s.cfg.Sources.FindOrCreate(input.Source)
	if err != nil {
		return zero, fmt.Errorf("resolve source: %w", err)
	}

	normalized := s.normalize(input.Data)
	agg := s.cfg.NewAggregate(input.Data, normalized)

	err = s.cfg.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(agg).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.cfg.Kind, err)
		}

		ver := s.cfg.NewVersion(agg.GetID(), 1, src.ID, input.Data, normalized, input.ChangeNote)
		if err := tx.Create(&ver).Error; err != nil {
			return fmt.Errorf("create %s version: %w", s.cfg.Kind, err)
		}

		agg.SetCurrentVersionID(s.cfg.VersionIDOf(ver))
		if err := tx.Save(agg).Error; err != nil {
			return fmt.Errorf("set current version: %w", err)
		}

		return s.cfg.Audit.WithTx(tx).Append(s.cfg.Kind+".create", s.cfg.Kind, agg.GetID(), nil, agg.Snapshot())
	})
	if err != nil {
		return zero, err
	}
	return agg, nil
}

// UpdateWithNewVersion merges patch over the current version's raw data,
// creates the next version and repoints the aggregate, all inside a
// conflict-retried transaction. The next version number is re-derived fresh
// on every attempt; only a (parent, version_number) unique violation is
// retried. A nil value in patch removes that field.
func (s *Store[A, V]) UpdateWithNewVersion(id string, patch datastore.JSONAny, src source.Info, changeNote string) (A, error) {
	var zero A

	// Existence is checked up front so a missing aggregate is NotFound
	// before any source row gets created.
	if _, err := s.Get(id); err != nil {
		return zero, err
	}

	srcRow, err := s.cfg.Sources.FindOrCreate(src)
	if err != nil {
		return zero, fmt.Errorf("resolve source: %w", err)
	}

	var result A
	err = datastore.WithConflictRetry(func(attempt int) error {
		return s.cfg.DB.Transaction(func(tx *gorm.DB) error {
			agg := s.cfg.Blank()
			if err := tx.First(agg, "id = ?", id).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return regerrors.NotFound("%s %s not found", s.cfg.Kind, id)
				}
				return fmt.Errorf("load %s: %w", s.cfg.Kind, err)
			}
			previous := agg.Snapshot()

			var maxNumber int
			if err := tx.Model(new(V)).
				Select("COALESCE(MAX(version_number), 0)").
				Where(s.cfg.ParentColumn+" = ?", id).
				Scan(&maxNumber).Error; err != nil {
				return fmt.Errorf("derive next version number: %w", err)
			}

			var current struct {
				OriginalData datastore.JSONAny `gorm:"column:original_data;type:text"`
			}
			if err := tx.Model(new(V)).
				Select("original_data").
				Where("id = ?", agg.GetCurrentVersionID()).
				Scan(&current).Error; err != nil {
				return fmt.Errorf("load current version data: %w", err)
			}

			merged := mergeData(current.OriginalData, patch)
			normalized := s.normalize(merged)

			ver := s.cfg.NewVersion(id, maxNumber+1, srcRow.ID, merged, normalized, changeNote)
			if err := tx.Create(&ver).Error; err != nil {
				// A unique violation here means a concurrent update claimed
				// the same number; the wrapper re-runs the whole transaction.
				return err
			}

			s.cfg.ApplyPatch(agg, merged, normalized)
			agg.SetCurrentVersionID(s.cfg.VersionIDOf(ver))
			if err := tx.Save(agg).Error; err != nil {
				return fmt.Errorf("repoint current version: %w", err)
			}

			if err := s.cfg.Audit.WithTx(tx).Append(s.cfg.Kind+".update", s.cfg.Kind, id, previous, agg.Snapshot()); err != nil {
				return err
			}

			result = agg
			return nil
		})
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}

// Get retrieves an aggregate by id.
func (s *Store[A, V]) Get(id string) (A, error) {
	agg := s.cfg.Blank()
	if err := s.cfg.DB.First(agg, "id = ?", id).Error; err != nil {
		var zero A
		if err == gorm.ErrRecordNotFound {
			return zero, regerrors.NotFound("%s %s not found", s.cfg.Kind, id)
		}
		return zero, fmt.Errorf("get %s: %w", s.cfg.Kind, err)
	}
	return agg, nil
}

// Exists reports whether the aggregate exists and is active.
func (s *Store[A, V]) Exists(id string) (bool, error) {
	agg, err := s.Get(id)
	if err != nil {
		if regerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return agg.Active(), nil
}

// GetVersion retrieves a single immutable version by its id.
func (s *Store[A, V]) GetVersion(versionID string) (V, error) {
	var zero V
	var out []V
	if err := s.cfg.DB.Where("id = ?", versionID).Limit(1).Find(&out).Error; err != nil {
		return zero, fmt.Errorf("get %s version: %w", s.cfg.Kind, err)
	}
	if len(out) == 0 {
		return zero, regerrors.NotFound("%s version %s not found", s.cfg.Kind, versionID)
	}
	return out[0], nil
}

// ListVersions returns the aggregate's full history ordered by version
// number ascending. NotFound when the aggregate itself is missing.
func (s *Store[A, V]) ListVersions(id string) ([]V, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	var out []V
	if err := s.cfg.DB.Where(s.cfg.ParentColumn+" = ?", id).
		Order("version_number ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list %s versions: %w", s.cfg.Kind, err)
	}
	return out, nil
}

// Deactivate soft-deletes the aggregate. History stays intact and fetchable;
// the row is only flagged inactive, with an audit trail entry.
func (s *Store[A, V]) Deactivate(id string) error {
	return s.cfg.DB.Transaction(func(tx *gorm.DB) error {
		agg := s.cfg.Blank()
		if err := tx.First(agg, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return regerrors.NotFound("%s %s not found", s.cfg.Kind, id)
			}
			return fmt.Errorf("load %s: %w", s.cfg.Kind, err)
		}
		if !agg.Active() {
			return nil
		}
		previous := agg.Snapshot()
		agg.SetActive(false)
		if err := tx.Save(agg).Error; err != nil {
			return fmt.Errorf("deactivate %s: %w", s.cfg.Kind, err)
		}
		return s.cfg.Audit.WithTx(tx).Append(s.cfg.Kind+".deactivate", s.cfg.Kind, id, previous, agg.Snapshot())
	})
}

// mergeData overlays patch onto base without mutating either. A nil patch
// value removes the field.
func mergeData(base, patch datastore.JSONAny) datastore.JSONAny {
	merged := datastore.JSONAny{}
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}
