package source

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockStore wires the store to a sqlmock-backed MySQL dialector, so driver
// errors can be scripted without a live server.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewStore(db), mock
}

// Scripts the losing side of the find-or-create race: the lookup misses, the
// insert hits the unique index because a concurrent caller got there first,
// and the retry lookup returns the winner's row.
func TestFindOrCreate_RetriesAfterLostInsertRace(t *testing.T) {
	store, mock := newMockStore(t)

	columns := []string{"id", "source_type", "source_identifier", "source_url", "trust_note", "created_at"}
	identifier := "vies"

	mock.ExpectQuery("SELECT (.+) FROM `sources`").
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectExec("INSERT INTO `sources`").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'OFFICIAL_REGISTRY-vies' for key 'idx_source_identity'"))
	mock.ExpectQuery("SELECT (.+) FROM `sources`").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("winner-id", "OFFICIAL_REGISTRY", identifier, "", "", time.Now()))

	record, err := store.FindOrCreate(Info{Type: TypeOfficialRegistry, Identifier: identifier})
	require.NoError(t, err)
	assert.Equal(t, "winner-id", record.ID, "loser of the race adopts the winner's row")
	require.NoError(t, mock.ExpectationsWereMet())
}

// A non-uniqueness driver error aborts immediately instead of retrying.
func TestFindOrCreate_DoesNotRetryOtherDriverErrors(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM `sources`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO `sources`").
		WillReturnError(errors.New("Error 1205 (HY000): Lock wait timeout exceeded"))

	_, err := store.FindOrCreate(Info{Type: TypeOfficialRegistry, Identifier: "vies"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1205")
	require.NoError(t, mock.ExpectationsWereMet())
}
