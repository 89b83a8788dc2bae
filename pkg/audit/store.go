// Package audit records before/after snapshots of every mutating registry
// operation. The log is append-only: entries are never updated and only
// removed by the administrative retention trim.
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/datastore"
)

// Entry is an immutable audit log record keyed by (entity_type, entity_id).
type Entry struct {
	ID           string            `gorm:"primaryKey;column:id;type:varchar(36)"`
	Action       string            `gorm:"column:action;not null"`
	EntityType   string            `gorm:"column:entity_type;index:idx_audit_entity,priority:1;not null"`
	EntityID     string            `gorm:"column:entity_id;index:idx_audit_entity,priority:2;not null"`
	PreviousData datastore.JSONAny `gorm:"column:previous_data;type:text"`
	NewData      datastore.JSONAny `gorm:"column:new_data;type:text"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (Entry) TableName() string { return "audit_entries" }

// Store provides append-only operations on the audit log.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new audit Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to the given transaction, so mutating
// operations can append their audit entry atomically with their writes.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// AutoMigrate creates or updates the audit_entries table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("auto-migrate audit_entries: %w", err)
	}
	return nil
}

// Append writes a new audit entry. previous and next may be nil for creates
// and deletes respectively.
func (s *Store) Append(action, entityType, entityID string, previous, next datastore.JSONAny) error {
	entry := &Entry{
		ID:           uuid.New().String(),
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		PreviousData: previous,
		NewData:      next,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns paginated audit entries for an entity, newest first.
// pageToken is an RFC3339Nano timestamp; pass "" for the first page.
func (s *Store) ListByEntity(entityType, entityID string, pageSize int, pageToken string) ([]Entry, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := s.db.Model(&Entry{}).Where("entity_type = ? AND entity_id = ?", entityType, entityID).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := s.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var entries []Entry
	if err := query.Find(&entries).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list audit entries: %w", err)
	}

	var nextToken string
	if len(entries) > pageSize {
		nextToken = entries[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		entries = entries[:pageSize]
	}

	return entries, nextToken, int(totalSize), nil
}

// DeleteOlderThan removes entries created before the cutoff. Administrative
// retention trim; returns the number of deleted rows.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&Entry{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old audit entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
