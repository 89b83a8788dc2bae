package identifier

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

type testIndex struct {
	store *Store
	audit *audit.Store
	src   source.Info
}

func newTestIndex(t *testing.T, opts ...Option) *testIndex {
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

	// Entities a, b and c exist; everything else does not.
	store := NewStore(db, sources, auditStore, func(id string) (bool, error) {
		return id == "a" || id == "b" || id == "c", nil
	}, opts...)
	require.NoError(t, store.AutoMigrate())

	return &testIndex{
		store: store,
		audit: auditStore,
		src:   source.Info{Type: source.TypeOfficialRegistry, Identifier: "vies"},
	}
}

func TestAdd_NormalizesValue(t *testing.T) {
	idx := newTestIndex(t)

	record, err := idx.store.Add("a", TypeVATEU, "  pl1234567890 ", idx.src, false)
	require.NoError(t, err)
	assert.Equal(t, "PL1234567890", record.Value)

	_, err = idx.store.Add("a", TypeVATEU, "   ", idx.src, false)
	assert.True(t, regerrors.IsValidation(err))

	_, err = idx.store.Add("ghost", TypeVATEU, "PL99", idx.src, false)
	assert.True(t, regerrors.IsNotFound(err))
}

func TestAdd_DuplicateOnOtherEntityIsValidation(t *testing.T) {
	idx := newTestIndex(t)

	original, err := idx.store.Add("a", TypeVATEU, "PL1234567890", idx.src, true)
	require.NoError(t, err)

	_, err = idx.store.Add("b", TypeVATEU, "pl1234567890", idx.src, false)
	require.Error(t, err)
	assert.True(t, regerrors.IsValidation(err))

	var regErr *regerrors.Error
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "value", regErr.Field)
	assert.Contains(t, regErr.Message, "entity a", "conflict names the owning entity")

	// The original row is untouched by the failed add.
	rows, err := idx.store.ListByEntity("a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, original.ID, rows[0].ID)
	assert.True(t, rows[0].IsPrimary)

	rows, err = idx.store.ListByEntity("b")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAdd_SameEntityUpdatesInPlace(t *testing.T) {
	idx := newTestIndex(t)

	first, err := idx.store.Add("a", TypeVATEU, "PL1234567890", idx.src, false)
	require.NoError(t, err)

	second, err := idx.store.Add("a", TypeVATEU, "PL1234567890", source.Info{Type: source.TypeManualEntry}, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-adding the same pair never creates a second row")
	assert.True(t, second.IsPrimary)
	assert.NotEqual(t, first.SourceID, second.SourceID, "provenance follows the latest write")

	rows, err := idx.store.ListByEntity("a")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAdd_PrimaryDemotesSameTypeOnly(t *testing.T) {
	idx := newTestIndex(t)

	vat, err := idx.store.Add("a", TypeVATEU, "PL111", idx.src, true)
	require.NoError(t, err)
	lei, err := idx.store.Add("a", TypeLEI, "LEI111", idx.src, true)
	require.NoError(t, err)
	vat2, err := idx.store.Add("a", TypeVATEU, "PL222", idx.src, true)
	require.NoError(t, err)

	rows, err := idx.store.ListByEntity("a")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	primary := map[string]bool{}
	for _, row := range rows {
		primary[row.ID] = row.IsPrimary
	}
	assert.False(t, primary[vat.ID], "previous VAT primary was demoted")
	assert.True(t, primary[vat2.ID])
	assert.True(t, primary[lei.ID], "other identifier types keep their primary")
}

func TestRemove_DeletesPhysicallyWithAudit(t *testing.T) {
	idx := newTestIndex(t)

	record, err := idx.store.Add("a", TypeVATEU, "PL111", idx.src, false)
	require.NoError(t, err)

	require.NoError(t, idx.store.Remove(record.ID))
	assert.True(t, regerrors.IsNotFound(idx.store.Remove(record.ID)))

	rows, err := idx.store.ListByEntity("a")
	require.NoError(t, err)
	assert.Empty(t, rows)

	entries, _, total, err := idx.audit.ListByEntity("identifier", record.ID, 10, "")
	require.NoError(t, err)
	require.Equal(t, 2, total, "add and remove are both audited")
	assert.Equal(t, "identifier.remove", entries[0].Action)
	assert.Nil(t, entries[0].NewData)
	assert.Equal(t, "PL111", entries[0].PreviousData["value"])

	// The value is free for another entity once removed.
	_, err = idx.store.Add("b", TypeVATEU, "PL111", idx.src, false)
	require.NoError(t, err)
}

func TestFindDuplicateCandidates_SuffixHeuristic(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.store.Add("a", TypeVATEU, "PL1234567890", idx.src, true)
	require.NoError(t, err)
	_, err = idx.store.Add("a", TypeLEI, "LEIAAAA0001", idx.src, false)
	require.NoError(t, err)

	// b carries the same VAT digits under a different country prefix.
	_, err = idx.store.Add("b", TypeVATEU, "DE1234567890", idx.src, false)
	require.NoError(t, err)
	// c matches on type but not on the value suffix.
	_, err = idx.store.Add("c", TypeVATEU, "PL9999999999", idx.src, false)
	require.NoError(t, err)

	candidates, err := idx.store.FindDuplicateCandidates("a")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "b", candidates[0].EntityID)
	require.Len(t, candidates[0].Matches, 1)
	assert.Equal(t, TypeVATEU, candidates[0].Matches[0].IdentifierType)
	assert.Equal(t, "PL1234567890", candidates[0].Matches[0].OwnValue)
	assert.Equal(t, "DE1234567890", candidates[0].Matches[0].OtherValue)
}

func TestFindDuplicateCandidates_TypeScopedAndConfigurable(t *testing.T) {
	idx := newTestIndex(t, WithSuffixLength(4))

	_, err := idx.store.Add("a", TypeVATEU, "PL000067890", idx.src, false)
	require.NoError(t, err)
	// Same trailing four characters, different type: never a candidate.
	_, err = idx.store.Add("b", TypeLEI, "XX7890", idx.src, false)
	require.NoError(t, err)
	// Same trailing four characters, same type: matches at suffix length 4.
	_, err = idx.store.Add("c", TypeVATEU, "CZ557890", idx.src, false)
	require.NoError(t, err)

	candidates, err := idx.store.FindDuplicateCandidates("a")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "c", candidates[0].EntityID)
}

func TestFindDuplicateCandidates_NoIdentifiers(t *testing.T) {
	idx := newTestIndex(t)
	candidates, err := idx.store.FindDuplicateCandidates("a")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
