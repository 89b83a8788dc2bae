package product

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/regerrors"
	"github.com/complidesk/gpsr-registry/pkg/source"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sources := source.NewStore(db)
	require.NoError(t, sources.AutoMigrate())
	auditStore := audit.NewStore(db)
	require.NoError(t, auditStore.AutoMigrate())

	store := NewStore(db, sources, auditStore)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create(Input{
		BrandID: "b1",
		Name:    "Wooden Train Set",
		GTIN:    "4006381333931",
		Source:  source.Info{Type: source.TypeAPIImport, Identifier: "feed-1"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.SourceID)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wooden Train Set", got.Name)
	assert.True(t, got.IsActive)
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get("missing")
	assert.True(t, regerrors.IsNotFound(err))
}

func TestExists(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create(Input{
		Name:   "Plush Bear",
		Source: source.Info{Type: source.TypeManualEntry},
	})
	require.NoError(t, err)

	ok, err := store.Exists(created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Deactivate(created.ID))
	ok, err = store.Exists(created.ID)
	require.NoError(t, err)
	assert.False(t, ok, "deactivated products no longer exist for referential checks")
}

func TestDeactivate_Audited(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create(Input{
		Name:   "Plush Bear",
		Source: source.Info{Type: source.TypeManualEntry},
	})
	require.NoError(t, err)
	require.NoError(t, store.Deactivate(created.ID))

	entries, _, total, err := store.audit.ListByEntity("product", created.ID, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "product.deactivate", entries[0].Action)
	assert.Equal(t, true, entries[0].PreviousData["isActive"])
	assert.Equal(t, false, entries[0].NewData["isActive"])
}
