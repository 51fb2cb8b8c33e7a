package visits_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mizan/internal/testsupport"
	"mizan/internal/visits"
)

func TestRecordVisit(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	t.Run("records a valid visit", func(t *testing.T) {
		id, err := visits.RecordVisit(db, logger, visits.RecordVisitInput{
			SessionID: "s-valid",
			Path:      "/chat",
			Country:   "SA",
		})

		require.NoError(t, err)
		assert.NotZero(t, id)

		var visit visits.Visit
		require.NoError(t, db.First(&visit, id).Error)
		assert.Equal(t, "s-valid", visit.SessionID)
		assert.Equal(t, "/chat", visit.Path)
		assert.Equal(t, "SA", visit.Country)
		assert.Nil(t, visit.UserID)
	})

	t.Run("defaults country to unknown", func(t *testing.T) {
		id, err := visits.RecordVisit(db, logger, visits.RecordVisitInput{
			SessionID: "s-nocountry",
			Path:      "/",
		})
		require.NoError(t, err)

		var visit visits.Visit
		require.NoError(t, db.First(&visit, id).Error)
		assert.Equal(t, visits.UnknownCountry, visit.Country)
	})

	t.Run("rejects missing session id without persisting", func(t *testing.T) {
		before, err := visits.CountAll(db)
		require.NoError(t, err)

		_, err = visits.RecordVisit(db, logger, visits.RecordVisitInput{Path: "/"})
		assert.Error(t, err)

		after, err := visits.CountAll(db)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("rejects missing path without persisting", func(t *testing.T) {
		before, err := visits.CountAll(db)
		require.NoError(t, err)

		_, err = visits.RecordVisit(db, logger, visits.RecordVisitInput{SessionID: "s"})
		assert.Error(t, err)

		after, err := visits.CountAll(db)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestCountDistinctSessions(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	now := time.Now().UTC()

	testsupport.CreateTestVisit(t, db, "s1", "/", now)
	testsupport.CreateTestVisit(t, db, "s1", "/chat", now)
	testsupport.CreateTestVisit(t, db, "s2", "/", now)

	total, err := visits.CountAll(db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	distinct, err := visits.CountDistinctSessions(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), distinct, "repeat visits from the same session count once")
}

func TestCountByCountry(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	for i, country := range []string{"SA", "SA", "SA", "AE", "AE", "EG"} {
		_, err := visits.RecordVisit(db, logger, visits.RecordVisitInput{
			SessionID: "s-country",
			Path:      "/",
			Country:   country,
		})
		require.NoError(t, err, "visit %d", i)
	}

	counts, err := visits.CountByCountry(db, 2)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "SA", counts[0].Country)
	assert.Equal(t, int64(3), counts[0].Count)
	assert.Equal(t, "AE", counts[1].Country)
	assert.Equal(t, int64(2), counts[1].Count)
}

func TestDeleteOlderThan(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	now := time.Now().UTC()

	testsupport.CreateTestVisit(t, db, "old", "/", now.AddDate(0, 0, -400))
	testsupport.CreateTestVisit(t, db, "old", "/about", now.AddDate(0, 0, -380))
	testsupport.CreateTestVisit(t, db, "fresh", "/", now)

	deleted, err := visits.DeleteOlderThan(db, now.AddDate(0, 0, -365), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := visits.CountAll(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}
