// Package product keeps the product records that safety info, claims and
// responsibilities hang off. Products are registry leaves here: they carry
// identity and a soft-delete flag, not a version chain.
package product

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

// Product is a consumer product under GPSR scope.
type Product struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	BrandID   string    `gorm:"column:brand_id;index"`
	Name      string    `gorm:"column:name;not null"`
	GTIN      string    `gorm:"column:gtin;index"`
	Category  string    `gorm:"column:category"`
	SourceID  string    `gorm:"column:source_id;not null"`
	IsActive  bool      `gorm:"column:is_active;default:true;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Product) TableName() string { return "products" }

func (p *Product) snapshot() datastore.JSONAny {
	return datastore.JSONAny{
		"id":       p.ID,
		"brandId":  p.BrandID,
		"name":     p.Name,
		"gtin":     p.GTIN,
		"category": p.Category,
		"isActive": p.IsActive,
	}
}

// Input describes a product to register.
type Input struct {
	BrandID  string
	Name     string
	GTIN     string
	Category string
	Source   source.Info
}

// Store provides CRUD operations on products.
type Store struct {
	db      *gorm.DB
	sources *source.Store
	audit   *audit.Store
}

// NewStore creates a new product Store.
func NewStore(db *gorm.DB, sources *source.Store, auditStore *audit.Store) *Store {
	return &Store{db: db, sources: sources, audit: auditStore}
}

// AutoMigrate creates or updates the products table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Product{}); err != nil {
		return fmt.Errorf("auto-migrate products: %w", err)
	}
	return nil
}

// Create registers a product attributed to the resolved source.
func (s *Store) Create(input Input) (*Product, error) {
	src, err := s.sources.FindOrCreate(input.Source)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}

	row := &Product{
		ID:       uuid.New().String(),
		BrandID:  input.BrandID,
		Name:     input.Name,
		GTIN:     input.GTIN,
		Category: input.Category,
		SourceID: src.ID,
		IsActive: true,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return s.audit.WithTx(tx).Append("product.create", "product", row.ID, nil, row.snapshot())
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Get retrieves a product by id.
func (s *Store) Get(id string) (*Product, error) {
	var row Product
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, regerrors.NotFound("product %s not found", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &row, nil
}

// Exists reports whether the product exists and is active.
func (s *Store) Exists(id string) (bool, error) {
	row, err := s.Get(id)
	if err != nil {
		if regerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return row.IsActive, nil
}

// Deactivate soft-deletes a product with an audit trail entry.
func (s *Store) Deactivate(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row Product
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return regerrors.NotFound("product %s not found", id)
			}
			return fmt.Errorf("load product: %w", err)
		}
		if !row.IsActive {
			return nil
		}
		previous := row.snapshot()
		row.IsActive = false
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("deactivate product: %w", err)
		}
		return s.audit.WithTx(tx).Append("product.deactivate", "product", id, previous, row.snapshot())
	})
}
