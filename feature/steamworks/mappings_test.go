package steamworks

import (
	"testing"

	"game-sync/core/database"
	"game-sync/feature/steamworks/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMappingDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.LeaderboardMapping{}, &models.LeaderboardEntryLink{}, &models.StatLink{},
	))
	return db
}

func TestUpsertMappingIsIdempotent(t *testing.T) {
	db := newMappingDB(t)

	first, created, err := upsertMapping(db, 7, 3)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := upsertMapping(db, 7, 3)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.LeaderboardMapping{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFindMappingReturnsNilWhenAbsent(t *testing.T) {
	db := newMappingDB(t)

	mapping, err := findMappingByLeaderboardID(db, 99)
	require.NoError(t, err)
	assert.Nil(t, mapping)

	mapping, err = findMappingByRemoteID(db, 99)
	require.NoError(t, err)
	assert.Nil(t, mapping)
}

func TestUpsertEntryLinkRepoints(t *testing.T) {
	db := newMappingDB(t)
	mapping, _, err := upsertMapping(db, 7, 3)
	require.NoError(t, err)

	entryA := uint(10)
	require.NoError(t, upsertEntryLink(db, mapping.ID, "76561198000000001", &entryA))

	// The same (mapping, user) pair keeps one row that follows the entry.
	entryB := uint(11)
	require.NoError(t, upsertEntryLink(db, mapping.ID, "76561198000000001", &entryB))

	var links []models.LeaderboardEntryLink
	require.NoError(t, db.Find(&links).Error)
	require.Len(t, links, 1)
	require.NotNil(t, links[0].EntryID)
	assert.Equal(t, entryB, *links[0].EntryID)
}

func TestNullEntryLinks(t *testing.T) {
	db := newMappingDB(t)
	mapping, _, err := upsertMapping(db, 7, 3)
	require.NoError(t, err)

	entryID := uint(10)
	require.NoError(t, upsertEntryLink(db, mapping.ID, "76561198000000001", &entryID))
	require.NoError(t, nullEntryLinks(db, entryID))

	var link models.LeaderboardEntryLink
	require.NoError(t, db.First(&link).Error)
	assert.Nil(t, link.EntryID)
}

func TestUpsertStatLink(t *testing.T) {
	db := newMappingDB(t)

	require.NoError(t, upsertStatLink(db, 5, "76561198000000001"))
	require.NoError(t, upsertStatLink(db, 5, "76561198000000001"))

	var count int64
	require.NoError(t, db.Model(&models.StatLink{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
