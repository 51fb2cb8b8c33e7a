package interactions_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mizan/internal/interactions"
	"mizan/internal/testsupport"
	"mizan/internal/users"
)

func TestRecordInteraction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	t.Run("records a valid interaction", func(t *testing.T) {
		answer := "You will need your contract and identification."
		id, err := interactions.RecordInteraction(db, logger, interactions.RecordInteractionInput{
			SessionID:    "s1",
			QuestionText: "What documents do I need?",
			AnswerText:   &answer,
			SourcePage:   interactions.SourceChat,
		})

		require.NoError(t, err)
		assert.NotZero(t, id)

		var row interactions.Interaction
		require.NoError(t, db.First(&row, id).Error)
		assert.Equal(t, "s1", row.SessionID)
		assert.Equal(t, "What documents do I need?", row.QuestionText)
		require.NotNil(t, row.AnswerText)
		assert.Equal(t, answer, *row.AnswerText)
		assert.Equal(t, interactions.SourceChat, row.SourcePage)
	})

	t.Run("advances the user's last seen timestamp", func(t *testing.T) {
		user := testsupport.CreateTestUser(t, db, "seen@example.com", false)
		before := user.LastSeenAt

		_, err := interactions.RecordInteraction(db, logger, interactions.RecordInteractionInput{
			SessionID:    "s2",
			UserID:       &user.ID,
			QuestionText: "Hello?",
			SourcePage:   interactions.SourceChat,
		})
		require.NoError(t, err)

		updated, err := users.FindByID(db, user.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, updated.LastSeenAt.UnixNano(), before.UnixNano())
	})

	t.Run("rejects missing fields without persisting", func(t *testing.T) {
		cases := []interactions.RecordInteractionInput{
			{QuestionText: "q", SourcePage: "chat"},
			{SessionID: "s", SourcePage: "chat"},
			{SessionID: "s", QuestionText: "q"},
		}

		for i, input := range cases {
			before, err := interactions.CountAll(db)
			require.NoError(t, err)

			_, err = interactions.RecordInteraction(db, logger, input)
			assert.Error(t, err, "case %d", i)

			after, err := interactions.CountAll(db)
			require.NoError(t, err)
			assert.Equal(t, before, after, "case %d must not persist a row", i)
		}
	})
}

func TestCapAnswer(t *testing.T) {
	assert.Equal(t, "short", interactions.CapAnswer("short"))

	long := strings.Repeat("x", interactions.MaxAnswerLength+100)
	capped := interactions.CapAnswer(long)
	assert.Len(t, capped, interactions.MaxAnswerLength)
}

func TestGetPage(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	base := time.Now().UTC().Add(-time.Hour)

	// 15 interactions, one minute apart
	for i := 0; i < 15; i++ {
		testsupport.CreateTestInteraction(t, db, "s-page",
			fmt.Sprintf("question %d", i), base.Add(time.Duration(i)*time.Minute))
	}

	t.Run("newest row comes first", func(t *testing.T) {
		result, err := interactions.GetPage(db, 1, 20)
		require.NoError(t, err)
		require.NotEmpty(t, result.Interactions)
		assert.Equal(t, "question 14", result.Interactions[0].QuestionText)
	})

	t.Run("second page holds the remainder", func(t *testing.T) {
		result, err := interactions.GetPage(db, 2, 10)
		require.NoError(t, err)

		assert.Len(t, result.Interactions, 5)
		assert.Equal(t, int64(15), result.Total)
		assert.Equal(t, 2, result.TotalPages)
		assert.Equal(t, 2, result.Page)
		assert.Equal(t, 10, result.PageSize)
	})

	t.Run("totalPages is the ceiling of total over pageSize", func(t *testing.T) {
		result, err := interactions.GetPage(db, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, result.TotalPages) // ceil(15/4)
	})

	t.Run("page beyond the last returns an empty list", func(t *testing.T) {
		result, err := interactions.GetPage(db, 99, 10)
		require.NoError(t, err)
		assert.Empty(t, result.Interactions)
		assert.Equal(t, int64(15), result.Total)
	})

	t.Run("non-positive parameters fall back to defaults", func(t *testing.T) {
		result, err := interactions.GetPage(db, -3, 0)
		require.NoError(t, err)
		assert.Equal(t, interactions.DefaultPage, result.Page)
		assert.Equal(t, interactions.DefaultPageSize, result.PageSize)
	})
}

func TestDayCounts(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	now := time.Now().UTC()

	testsupport.CreateTestInteraction(t, db, "s-day", "today", now.Add(-time.Minute))
	testsupport.CreateTestInteraction(t, db, "s-day", "two days ago", now.AddDate(0, 0, -2))

	today, err := interactions.CountToday(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), today)

	last24, err := interactions.CountLast24Hours(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), last24)

	total, err := interactions.CountAll(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
