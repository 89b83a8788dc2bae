// Package responsibility tracks which entity holds which regulatory role for
// a product in a market, and resolves the best answer per role by confidence.
package responsibility

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// ExistenceChecker reports whether a referenced aggregate exists and is active.
type ExistenceChecker func(id string) (bool, error)

// Store provides responsibility assignment and resolution.
type Store struct {
	db            *gorm.DB
	sources       *source.Store
	audit         *audit.Store
	productExists ExistenceChecker
	entityExists  ExistenceChecker
}

// NewStore creates a responsibility Store. productExists and entityExists are
// consulted before every assignment; referential integrity is application
// level, not enforced by foreign keys.
func NewStore(db *gorm.DB, sources *source.Store, auditStore *audit.Store, productExists, entityExists ExistenceChecker) *Store {
	return &Store{
		db:            db,
		sources:       sources,
		audit:         auditStore,
		productExists: productExists,
		entityExists:  entityExists,
	}
}

// AutoMigrate creates or updates the responsibility tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ProductResponsibility{}, &EntityRole{}); err != nil {
		return fmt.Errorf("auto-migrate responsibilities: %w", err)
	}
	return nil
}

// AssignInput describes a new responsibility assignment.
type AssignInput struct {
	ProductID   string
	CountryCode string
	Role        Role
	EntityID    string
	Confidence  int
	Source      source.Info
}

// Assign makes an entity the ACTIVE holder of a role for (product, country).
// Any existing ACTIVE row for the key is demoted to HISTORICAL with
// valid_to=now before the new row is created. Demotion and creation run as
// two sequenced writes: if creation fails after demotion the key is left with
// zero ACTIVE rows, which is preferable to a window with two.
func (s *Store) Assign(input AssignInput) (*ProductResponsibility, error) {
	ok, err := s.productExists(input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return nil, regerrors.NotFound("product %s not found", input.ProductID)
	}
	ok, err = s.entityExists(input.EntityID)
	if err != nil {
		return nil, fmt.Errorf("check entity: %w", err)
	}
	if !ok {
		return nil, regerrors.NotFound("entity %s not found", input.EntityID)
	}

	src, err := s.sources.FindOrCreate(input.Source)
	if err != nil {
		return nil, err
	}

	country := strings.ToUpper(strings.TrimSpace(input.CountryCode))
	now := time.Now().UTC()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var active []ProductResponsibility
		if err := tx.Where("product_id = ? AND country_code = ? AND role = ? AND status = ?",
			input.ProductID, country, string(input.Role), string(StatusActive)).
			Find(&active).Error; err != nil {
			return fmt.Errorf("find active responsibility: %w", err)
		}
		for i := range active {
			previous := respSnapshot(&active[i])
			active[i].Status = string(StatusHistorical)
			active[i].ValidTo = &now
			if err := tx.Save(&active[i]).Error; err != nil {
				return fmt.Errorf("demote responsibility: %w", err)
			}
			if err := s.audit.WithTx(tx).Append("responsibility.demote", "responsibility",
				active[i].ID, previous, respSnapshot(&active[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	record := &ProductResponsibility{
		ID:          uuid.New().String(),
		ProductID:   input.ProductID,
		CountryCode: country,
		Role:        string(input.Role),
		EntityID:    input.EntityID,
		Status:      string(StatusActive),
		Confidence:  input.Confidence,
		SourceID:    src.ID,
		ValidFrom:   now,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("create responsibility: %w", err)
		}
		return s.audit.WithTx(tx).Append("responsibility.assign", "responsibility",
			record.ID, nil, respSnapshot(record))
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Dispute flags an ACTIVE responsibility as DISPUTED. Disputed rows drop out
// of CURRENT resolution but remain visible to point-in-time queries.
func (s *Store) Dispute(id string) (*ProductResponsibility, error) {
	var disputed *ProductResponsibility
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var record ProductResponsibility
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return regerrors.NotFound("responsibility %s not found", id)
			}
			return fmt.Errorf("load responsibility: %w", err)
		}
		if record.Status != string(StatusActive) {
			return regerrors.Validation("responsibility %s is %s, only ACTIVE rows can be disputed", id, record.Status)
		}
		previous := respSnapshot(&record)
		record.Status = string(StatusDisputed)
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("dispute responsibility: %w", err)
		}
		if err := s.audit.WithTx(tx).Append("responsibility.dispute", "responsibility",
			record.ID, previous, respSnapshot(&record)); err != nil {
			return err
		}
		disputed = &record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return disputed, nil
}

// GetResolved answers "who holds each role for this product in this country".
// With validOn nil it resolves from the ACTIVE rows; with validOn set it
// replays point-in-time, considering every row whose [valid_from, valid_to)
// window contains the date regardless of status. Within each role the highest
// confidence wins, ties broken by the most recent valid_from.
func (s *Store) GetResolved(productID, countryCode string, validOn *time.Time) (*ResolvedView, error) {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	now := time.Now().UTC()

	view := &ResolvedView{
		ProductID:   productID,
		CountryCode: country,
		ResolvedAt:  now,
		TargetDate:  now,
	}

	query := s.db.Where("product_id = ? AND country_code = ?", productID, country)
	if validOn == nil {
		view.ResolutionMode = ModeCurrent
		query = query.Where("status = ?", string(StatusActive))
	} else {
		view.ResolutionMode = ModeHistorical
		view.TargetDate = validOn.UTC()
		query = query.Where("valid_from <= ?", view.TargetDate).
			Where("(valid_to IS NULL OR valid_to > ?)", view.TargetDate)
	}

	var rows []ProductResponsibility
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load responsibilities: %w", err)
	}

	byRole := map[string][]ProductResponsibility{}
	for _, row := range rows {
		byRole[row.Role] = append(byRole[row.Role], row)
	}

	roles := make([]string, 0, len(byRole))
	for role := range byRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	for _, role := range roles {
		candidates := byRole[role]
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Confidence != candidates[j].Confidence {
				return candidates[i].Confidence > candidates[j].Confidence
			}
			return candidates[i].ValidFrom.After(candidates[j].ValidFrom)
		})

		winner := candidates[0]
		resolved := ResolvedRole{
			Role:              Role(role),
			Winner:            winner,
			CandidateCount:    len(candidates),
			HasConflicts:      len(candidates) > 1,
			DataFreshnessDays: int(view.TargetDate.Sub(winner.ValidFrom).Hours() / 24),
		}
		if resolved.HasConflicts {
			view.ConflictCount++
		}
		view.Roles = append(view.Roles, resolved)
	}

	return view, nil
}

// GetHistory returns every responsibility ever recorded for (product,
// country), any status, newest assignment first.
func (s *Store) GetHistory(productID, countryCode string) ([]ProductResponsibility, error) {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	var rows []ProductResponsibility
	if err := s.db.Where("product_id = ? AND country_code = ?", productID, country).
		Order("valid_from DESC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list responsibility history: %w", err)
	}
	return rows, nil
}

// Exists reports whether a responsibility row exists. Used as the existence
// check for RESPONSIBILITY claim subjects.
func (s *Store) Exists(id string) (bool, error) {
	var count int64
	if err := s.db.Model(&ProductResponsibility{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check responsibility: %w", err)
	}
	return count > 0, nil
}

func respSnapshot(r *ProductResponsibility) datastore.JSONAny {
	snap := datastore.JSONAny{
		"id":          r.ID,
		"productId":   r.ProductID,
		"countryCode": r.CountryCode,
		"role":        r.Role,
		"entityId":    r.EntityID,
		"status":      r.Status,
		"confidence":  r.Confidence,
		"validFrom":   r.ValidFrom.Format(time.RFC3339Nano),
	}
	if r.ValidTo != nil {
		snap["validTo"] = r.ValidTo.Format(time.RFC3339Nano)
	}
	return snap
}
