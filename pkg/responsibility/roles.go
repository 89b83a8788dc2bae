package responsibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// GrantRole records a market-scoped role for an entity, independent of any
// product. countryCode may be empty for EU-wide grants.
func (s *Store) GrantRole(entityID string, role Role, countryCode string, src source.Info) (*EntityRole, error) {
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

	grant := &EntityRole{
		ID:          uuid.New().String(),
		EntityID:    entityID,
		Role:        string(role),
		CountryCode: strings.ToUpper(strings.TrimSpace(countryCode)),
		SourceID:    resolved.ID,
		ValidFrom:   time.Now().UTC(),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(grant).Error; err != nil {
			return fmt.Errorf("create entity role: %w", err)
		}
		return s.audit.WithTx(tx).Append("entity_role.grant", "entity_role", grant.ID, nil, roleSnapshot(grant))
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// RevokeRole closes a role grant's validity window. Revoking an already
// closed grant is a Validation error.
func (s *Store) RevokeRole(roleID string) (*EntityRole, error) {
	var revoked *EntityRole
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var grant EntityRole
		if err := tx.First(&grant, "id = ?", roleID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return regerrors.NotFound("entity role %s not found", roleID)
			}
			return fmt.Errorf("load entity role: %w", err)
		}
		if grant.ValidTo != nil {
			return regerrors.Validation("entity role %s is already revoked", roleID)
		}
		previous := roleSnapshot(&grant)
		now := time.Now().UTC()
		grant.ValidTo = &now
		if err := tx.Save(&grant).Error; err != nil {
			return fmt.Errorf("revoke entity role: %w", err)
		}
		if err := s.audit.WithTx(tx).Append("entity_role.revoke", "entity_role", grant.ID, previous, roleSnapshot(&grant)); err != nil {
			return err
		}
		revoked = &grant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}

// ListRoles returns an entity's role grants, open windows first, then by
// grant recency.
func (s *Store) ListRoles(entityID string) ([]EntityRole, error) {
	var rows []EntityRole
	if err := s.db.Where("entity_id = ?", entityID).
		Order("valid_to IS NOT NULL").Order("valid_from DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list entity roles: %w", err)
	}
	return rows, nil
}

func roleSnapshot(r *EntityRole) datastore.JSONAny {
	snap := datastore.JSONAny{
		"id":          r.ID,
		"entityId":    r.EntityID,
		"role":        r.Role,
		"countryCode": r.CountryCode,
		"validFrom":   r.ValidFrom.Format(time.RFC3339Nano),
	}
	if r.ValidTo != nil {
		snap["validTo"] = r.ValidTo.Format(time.RFC3339Nano)
	}
	return snap
}
