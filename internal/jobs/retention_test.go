package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mizan/internal/config"
	"mizan/internal/interactions"
	"mizan/internal/jobs"
	"mizan/internal/testsupport"
	"mizan/internal/visits"
)

func TestRetentionJob(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	dbManager := testsupport.NewTestDBManager(db)
	logger := testsupport.GetLogger()
	now := time.Now().UTC()

	t.Run("removes rows past the retention window", func(t *testing.T) {
		testsupport.CreateTestVisit(t, db, "old", "/", now.AddDate(0, 0, -40))
		testsupport.CreateTestVisit(t, db, "fresh", "/", now)
		testsupport.CreateTestInteraction(t, db, "old", "stale question", now.AddDate(0, 0, -40))
		testsupport.CreateTestInteraction(t, db, "fresh", "fresh question", now)

		job := jobs.NewRetentionJob(dbManager, logger, &config.Config{RetentionDays: 30})
		require.NoError(t, job.Run())

		visitCount, err := visits.CountAll(db)
		require.NoError(t, err)
		assert.Equal(t, int64(1), visitCount)

		interactionCount, err := interactions.CountAll(db)
		require.NoError(t, err)
		assert.Equal(t, int64(1), interactionCount)
	})

	t.Run("zero retention disables cleanup", func(t *testing.T) {
		testsupport.CreateTestVisit(t, db, "ancient", "/", now.AddDate(-2, 0, 0))

		before, err := visits.CountAll(db)
		require.NoError(t, err)

		job := jobs.NewRetentionJob(dbManager, logger, &config.Config{RetentionDays: 0})
		require.NoError(t, job.Run())

		after, err := visits.CountAll(db)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}
