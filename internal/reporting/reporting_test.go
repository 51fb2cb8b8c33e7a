package reporting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mizan/internal/interactions"
	"mizan/internal/reporting"
	"mizan/internal/testsupport"
	"mizan/internal/visits"
)

func TestGetSummary(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	t.Run("empty storage yields a zero-valued summary", func(t *testing.T) {
		summary, err := reporting.GetSummary(db)
		require.NoError(t, err)
		assert.Equal(t, reporting.Summary{}, summary)
	})

	t.Run("one visit and one interaction in the same session", func(t *testing.T) {
		_, err := visits.RecordVisit(db, logger, visits.RecordVisitInput{
			SessionID: "s1",
			Path:      "/chat",
		})
		require.NoError(t, err)

		_, err = interactions.RecordInteraction(db, logger, interactions.RecordInteractionInput{
			SessionID:    "s1",
			QuestionText: "Hi",
			SourcePage:   interactions.SourceChat,
		})
		require.NoError(t, err)

		summary, err := reporting.GetSummary(db)
		require.NoError(t, err)

		assert.Equal(t, int64(1), summary.TotalVisits)
		assert.Equal(t, int64(1), summary.TotalVisitors)
		assert.Equal(t, int64(1), summary.TotalInteractions)
		assert.Equal(t, int64(1), summary.InteractionsToday)
		assert.Equal(t, int64(1), summary.Last24HoursInteractions)
	})

	t.Run("repeat session grows visits but not visitors", func(t *testing.T) {
		before, err := reporting.GetSummary(db)
		require.NoError(t, err)

		_, err = visits.RecordVisit(db, logger, visits.RecordVisitInput{
			SessionID: "s1",
			Path:      "/services",
		})
		require.NoError(t, err)

		after, err := reporting.GetSummary(db)
		require.NoError(t, err)

		assert.Equal(t, before.TotalVisits+1, after.TotalVisits)
		assert.Equal(t, before.TotalVisitors, after.TotalVisitors)
	})

	t.Run("new session grows both", func(t *testing.T) {
		before, err := reporting.GetSummary(db)
		require.NoError(t, err)

		_, err = visits.RecordVisit(db, logger, visits.RecordVisitInput{
			SessionID: "s2",
			Path:      "/",
		})
		require.NoError(t, err)

		after, err := reporting.GetSummary(db)
		require.NoError(t, err)

		assert.Equal(t, before.TotalVisits+1, after.TotalVisits)
		assert.Equal(t, before.TotalVisitors+1, after.TotalVisitors)
	})
}

func TestGetCountryBreakdown(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	now := time.Now().UTC()

	for _, country := range []string{"SA", "SA", "AE"} {
		visit := testsupport.CreateTestVisit(t, db, "s-geo", "/", now)
		require.NoError(t, db.Model(visit).Update("country", country).Error)
	}
	testsupport.CreateTestVisit(t, db, "s-geo", "/", now) // stays unknown

	stats, err := reporting.GetCountryBreakdown(db, 10)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.Equal(t, "SA", stats[0].Code)
	assert.Equal(t, "Saudi Arabia", stats[0].Name)
	assert.Equal(t, int64(2), stats[0].Count)

	names := map[string]string{}
	for _, s := range stats {
		names[s.Code] = s.Name
	}
	assert.Equal(t, "United Arab Emirates", names["AE"])
	assert.Equal(t, "Unknown", names["unknown"])
}
