package datastore

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(TypeSQLite, ":memory:")
	require.NoError(t, err)
	require.NotNil(t, db)
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: sources.source_type")))
	assert.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "idx_source_identity"`)))
	assert.True(t, IsUniqueViolation(errors.New("Error 1062: Duplicate entry")))
}

func TestIsUniqueViolation_LiveConstraint(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&migrationLockRecord{}))

	row := migrationLockRecord{ID: "migration", LockedBy: "a"}
	require.NoError(t, db.Create(&row).Error)

	dup := migrationLockRecord{ID: "migration", LockedBy: "b"}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestMigrationLocker_NilDB(t *testing.T) {
	locker := NewMigrationLocker(nil)
	called := false
	err := locker.WithLock(context.Background(), func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestFallbackMigrationLock_ReleasesLock(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	locker := NewMigrationLocker(db)

	err = locker.WithLock(context.Background(), func() error { return nil })
	require.NoError(t, err)

	var count int64
	db.Model(&migrationLockRecord{}).Count(&count)
	assert.Zero(t, count, "lock table should be empty after WithLock")
}

func TestFallbackMigrationLock_ReleasesOnError(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	locker := NewMigrationLocker(db)

	wantErr := errors.New("migration failed")
	err = locker.WithLock(context.Background(), func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)

	var count int64
	db.Model(&migrationLockRecord{}).Count(&count)
	assert.Zero(t, count, "lock must be released even when fn fails")
}
