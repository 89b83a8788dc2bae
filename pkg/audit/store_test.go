package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/complidesk/gpsr-registry/pkg/datastore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestAppendAndList(t *testing.T) {
	store := newTestStore(t)

	err := store.Append("entity.create", "entity", "e1", nil, datastore.JSONAny{"name": "Acme"})
	require.NoError(t, err)
	err = store.Append("entity.update", "entity", "e1",
		datastore.JSONAny{"name": "Acme"}, datastore.JSONAny{"name": "Acme GmbH"})
	require.NoError(t, err)
	err = store.Append("brand.create", "brand", "b1", nil, datastore.JSONAny{"name": "Blitz"})
	require.NoError(t, err)

	entries, _, total, err := store.ListByEntity("entity", "e1", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "entity.update", entries[0].Action)
	assert.Equal(t, "entity.create", entries[1].Action)
	assert.Equal(t, "Acme GmbH", entries[0].NewData["name"])
	assert.Equal(t, "Acme", entries[0].PreviousData["name"])
}

func TestListByEntity_Pagination(t *testing.T) {
	store := newTestStore(t)

	baseTime := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.db.Create(&Entry{
			ID:         fmt.Sprintf("a-%d", i),
			Action:     "entity.update",
			EntityType: "entity",
			EntityID:   "e1",
			CreatedAt:  baseTime.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	page1, token, total, err := store.ListByEntity("entity", "e1", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page1, 2)
	require.NotEmpty(t, token)

	page2, token2, _, err := store.ListByEntity("entity", "e1", 2, token)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	require.NotEmpty(t, token2)

	page3, token3, _, err := store.ListByEntity("entity", "e1", 2, token2)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.Empty(t, token3)
}

func TestWithTx_RollsBackWithTransaction(t *testing.T) {
	store := newTestStore(t)

	err := store.db.Transaction(func(tx *gorm.DB) error {
		if err := store.WithTx(tx).Append("entity.create", "entity", "e1", nil, nil); err != nil {
			return err
		}
		return fmt.Errorf("force rollback")
	})
	require.Error(t, err)

	_, _, total, err := store.ListByEntity("entity", "e1", 10, "")
	require.NoError(t, err)
	assert.Zero(t, total, "audit entry must roll back with the failed transaction")
}

func TestDeleteOlderThan(t *testing.T) {
	store := newTestStore(t)

	old := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Now()
	require.NoError(t, store.db.Create(&Entry{ID: "old", Action: "x", EntityType: "entity", EntityID: "e1", CreatedAt: old}).Error)
	require.NoError(t, store.db.Create(&Entry{ID: "new", Action: "x", EntityType: "entity", EntityID: "e1", CreatedAt: recent}).Error)

	deleted, err := store.DeleteOlderThan(recent.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, _, total, err := store.ListByEntity("entity", "e1", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
