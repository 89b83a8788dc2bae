package versioning

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// SafetyStore versions product safety content. SafetyInfo keeps the legacy
// is_current flag variant: publishing a revision flips the old row's flag and
// links it forward in the same transaction that inserts the new row, so the
// key never shows zero or two current rows.
type SafetyStore struct {
	db      *gorm.DB
	sources *source.Store
	audit   *audit.Store
}

// NewSafetyStore creates a new SafetyStore.
func NewSafetyStore(db *gorm.DB, sources *source.Store, auditStore *audit.Store) *SafetyStore {
	return &SafetyStore{db: db, sources: sources, audit: auditStore}
}

// AutoMigrate creates or updates the safety_info table.
func (s *SafetyStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&SafetyInfo{}); err != nil {
		return fmt.Errorf("auto-migrate safety_info: %w", err)
	}
	return nil
}

// SafetyInput describes a safety content revision for one
// product × country × language key.
type SafetyInput struct {
	ProductID    string
	CountryCode  string
	LanguageCode string
	Content      datastore.JSONAny
	Warnings     []string
	Source       source.Info
	ChangeNote   string
}

// Publish inserts the next revision for the key and demotes the previous
// current row, atomically. Version numbers per key are gap-free; the
// (product, country, language, version_number) unique index arbitrates
// concurrent publishes and the losing writer retries with a fresh number.
func (s *SafetyStore) Publish(input SafetyInput) (*SafetyInfo, error) {
	src, err := s.sources.FindOrCreate(input.Source)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}

	productID := input.ProductID
	country := strings.ToUpper(strings.TrimSpace(input.CountryCode))
	language := strings.ToLower(strings.TrimSpace(input.LanguageCode))

	var created *SafetyInfo
	err = datastore.WithConflictRetry(func(attempt int) error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var old *SafetyInfo
			var existing SafetyInfo
			err := tx.Where("product_id = ? AND country_code = ? AND language_code = ? AND is_current = ?",
				productID, country, language, true).First(&existing).Error
			if err == nil {
				old = &existing
			} else if err != gorm.ErrRecordNotFound {
				return fmt.Errorf("load current safety info: %w", err)
			}

			var maxNumber int
			if err := tx.Model(&SafetyInfo{}).
				Select("COALESCE(MAX(version_number), 0)").
				Where("product_id = ? AND country_code = ? AND language_code = ?", productID, country, language).
				Scan(&maxNumber).Error; err != nil {
				return fmt.Errorf("derive next safety version number: %w", err)
			}

			row := &SafetyInfo{
				ID:            uuid.New().String(),
				ProductID:     productID,
				CountryCode:   country,
				LanguageCode:  language,
				VersionNumber: maxNumber + 1,
				SourceID:      src.ID,
				Content:       input.Content,
				Warnings:      input.Warnings,
				IsCurrent:     true,
				ChangeNote:    input.ChangeNote,
			}
			if err := tx.Create(row).Error; err != nil {
				// Unique violation on the version index; retried by the wrapper.
				return err
			}

			var previous datastore.JSONAny
			if old != nil {
				previous = safetySnapshot(old)
				if err := tx.Model(&SafetyInfo{}).
					Where("id = ?", old.ID).
					Updates(map[string]any{
						"is_current":       false,
						"superseded_by_id": row.ID,
					}).Error; err != nil {
					return fmt.Errorf("demote superseded safety info: %w", err)
				}
			}

			if err := s.audit.WithTx(tx).Append("safety_info.publish", "safety_info", row.ID, previous, safetySnapshot(row)); err != nil {
				return err
			}

			created = row
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Current returns the live revision for the key.
func (s *SafetyStore) Current(productID, countryCode, languageCode string) (*SafetyInfo, error) {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	language := strings.ToLower(strings.TrimSpace(languageCode))

	var row SafetyInfo
	err := s.db.Where("product_id = ? AND country_code = ? AND language_code = ? AND is_current = ?",
		productID, country, language, true).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, regerrors.NotFound("no current safety info for product %s in %s/%s", productID, country, language)
		}
		return nil, fmt.Errorf("get current safety info: %w", err)
	}
	return &row, nil
}

// History returns every revision for the key ordered by version number.
func (s *SafetyStore) History(productID, countryCode, languageCode string) ([]SafetyInfo, error) {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	language := strings.ToLower(strings.TrimSpace(languageCode))

	var rows []SafetyInfo
	if err := s.db.Where("product_id = ? AND country_code = ? AND language_code = ?",
		productID, country, language).Order("version_number ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list safety info history: %w", err)
	}
	return rows, nil
}

func safetySnapshot(row *SafetyInfo) datastore.JSONAny {
	return datastore.JSONAny{
		"id":             row.ID,
		"productId":      row.ProductID,
		"countryCode":    row.CountryCode,
		"languageCode":   row.LanguageCode,
		"versionNumber":  row.VersionNumber,
		"isCurrent":      row.IsCurrent,
		"supersededById": row.SupersededByID,
	}
}
