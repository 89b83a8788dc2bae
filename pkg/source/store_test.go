package source

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/complidesk/gpsr-registry/pkg/regerrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	store := NewStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestFindOrCreate_Dedup(t *testing.T) {
	store := newTestStore(t)

	first, err := store.FindOrCreate(Info{
		Type:       TypeOfficialRegistry,
		Identifier: "KRS",
		URL:        "https://krs.example.gov.pl",
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := store.FindOrCreate(Info{
		Type:       TypeOfficialRegistry,
		Identifier: "KRS",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same (type, identifier) must resolve to one row")

	var count int64
	store.db.Model(&Source{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestFindOrCreate_SameIdentifierDifferentType(t *testing.T) {
	store := newTestStore(t)

	krs, err := store.FindOrCreate(Info{Type: TypeOfficialRegistry, Identifier: "shared-id"})
	require.NoError(t, err)

	site, err := store.FindOrCreate(Info{Type: TypeWebsite, Identifier: "shared-id"})
	require.NoError(t, err)

	assert.NotEqual(t, krs.ID, site.ID, "dedup key includes the source type")
}

func TestFindOrCreate_WithoutIdentifierAlwaysCreates(t *testing.T) {
	store := newTestStore(t)

	a, err := store.FindOrCreate(Info{Type: TypeCommunity, TrustNote: "forum post"})
	require.NoError(t, err)
	b, err := store.FindOrCreate(Info{Type: TypeCommunity, TrustNote: "forum post"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID, "identifier-less sources are never deduplicated")
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("missing")
	require.Error(t, err)
	assert.True(t, regerrors.IsNotFound(err))
}

func TestGet_ReturnsCreated(t *testing.T) {
	store := newTestStore(t)

	created, err := store.FindOrCreate(Info{Type: TypeSafetyGate, Identifier: "alert-7"})
	require.NoError(t, err)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(TypeSafetyGate), got.SourceType)
	require.NotNil(t, got.SourceIdentifier)
	assert.Equal(t, "alert-7", *got.SourceIdentifier)
}

func TestList_Pagination(t *testing.T) {
	store := newTestStore(t)

	baseTime := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		identifier := fmt.Sprintf("import-%d", i)
		require.NoError(t, store.db.Create(&Source{
			ID:               fmt.Sprintf("src-%d", i),
			SourceType:       string(TypeAPIImport),
			SourceIdentifier: &identifier,
			CreatedAt:        baseTime.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	page1, token, err := store.List(3, "")
	require.NoError(t, err)
	assert.Len(t, page1, 3)
	require.NotEmpty(t, token)

	page2, token2, err := store.List(3, token)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.Empty(t, token2)
}
