// Package source maintains the registry of provenance records. Every version
// and claim is attributed to a Source; records with an identifier are
// deduplicated on (source_type, source_identifier).
package source

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
)

// Store provides find-or-create access to provenance records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new source Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the sources table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Source{}); err != nil {
		return fmt.Errorf("auto-migrate sources: %w", err)
	}
	return nil
}

// FindOrCreate resolves info to a Source row. With an identifier it returns
// the existing (source_type, source_identifier) row or creates it, retrying
// the create on a concurrent-insert race by re-querying first. Without an
// identifier it always creates a fresh row.
func (s *Store) FindOrCreate(info Info) (*Source, error) {
	if info.Identifier == "" {
		record := &Source{
			ID:         uuid.New().String(),
			SourceType: string(info.Type),
			SourceURL:  info.URL,
			TrustNote:  info.TrustNote,
		}
		if err := s.db.Create(record).Error; err != nil {
			return nil, fmt.Errorf("create source: %w", err)
		}
		return record, nil
	}

	var found *Source
	err := datastore.WithConflictRetry(func(attempt int) error {
		var existing Source
		err := s.db.Where("source_type = ? AND source_identifier = ?",
			string(info.Type), info.Identifier).First(&existing).Error
		if err == nil {
			found = &existing
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("lookup source: %w", err)
		}

		identifier := info.Identifier
		record := &Source{
			ID:               uuid.New().String(),
			SourceType:       string(info.Type),
			SourceIdentifier: &identifier,
			SourceURL:        info.URL,
			TrustNote:        info.TrustNote,
		}
		if err := s.db.Create(record).Error; err != nil {
			// Unique violation means a concurrent caller created the same
			// source; the next attempt re-queries and returns it.
			return err
		}
		found = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Get retrieves a source by id.
func (s *Store) Get(id string) (*Source, error) {
	var record Source
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, regerrors.NotFound("source %s not found", id)
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &record, nil
}

// List returns paginated sources ordered by created_at DESC.
// pageToken is an RFC3339Nano timestamp; pass "" for the first page.
func (s *Store) List(pageSize int, pageToken string) ([]Source, string, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := s.db.Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []Source
	if err := query.Find(&records).Error; err != nil {
		return nil, "", fmt.Errorf("list sources: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, nil
}
