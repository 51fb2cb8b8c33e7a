package http_test

import (
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mizan/internal/testsupport"
)

func getJSON(t *testing.T, app *fiber.App, path string) map[string]interface{} {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded), "body: %s", string(body))
	return decoded
}

func TestSummaryIndexAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	now := time.Now().UTC()

	t.Run("empty storage yields zero counts", func(t *testing.T) {
		body := getJSON(t, app, "/admin/api/summary")

		assert.Equal(t, float64(0), body["totalUsers"])
		assert.Equal(t, float64(0), body["totalVisits"])
		assert.Equal(t, float64(0), body["totalInteractions"])
	})

	t.Run("counts reflect stored rows", func(t *testing.T) {
		testsupport.CreateTestUser(t, db, "reg@example.com", true)
		testsupport.CreateTestUser(t, db, "guest@example.com", false)
		testsupport.CreateTestVisit(t, db, "s1", "/chat", now)
		testsupport.CreateTestVisit(t, db, "s1", "/", now)
		testsupport.CreateTestVisit(t, db, "s2", "/", now)
		testsupport.CreateTestInteraction(t, db, "s1", "Hi", now)

		body := getJSON(t, app, "/admin/api/summary")

		assert.Equal(t, float64(2), body["totalUsers"])
		assert.Equal(t, float64(1), body["totalRegisteredUsers"])
		assert.Equal(t, float64(2), body["totalVisitors"])
		assert.Equal(t, float64(3), body["totalVisits"])
		assert.Equal(t, float64(1), body["totalInteractions"])
		assert.Equal(t, float64(1), body["interactionsToday"])
		assert.Equal(t, float64(1), body["last24HoursInteractions"])
	})
}

func TestInteractionsIndexAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 15; i++ {
		testsupport.CreateTestInteraction(t, db, "s-admin",
			fmt.Sprintf("question %d", i), base.Add(time.Duration(i)*time.Minute))
	}

	t.Run("defaults to page 1 with 20 rows", func(t *testing.T) {
		body := getJSON(t, app, "/admin/api/interactions")

		assert.Equal(t, float64(15), body["total"])
		assert.Equal(t, float64(1), body["page"])
		assert.Equal(t, float64(20), body["pageSize"])
		assert.Equal(t, float64(1), body["totalPages"])

		rows, ok := body["interactions"].([]interface{})
		require.True(t, ok)
		assert.Len(t, rows, 15)

		newest, ok := rows[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "question 14", newest["question_text"])
	})

	t.Run("page 2 of 10 returns the remaining 5", func(t *testing.T) {
		body := getJSON(t, app, "/admin/api/interactions?page=2&pageSize=10")

		rows, ok := body["interactions"].([]interface{})
		require.True(t, ok)
		assert.Len(t, rows, 5)
		assert.Equal(t, float64(15), body["total"])
		assert.Equal(t, float64(2), body["totalPages"])
	})

	t.Run("page beyond the last is empty, not an error", func(t *testing.T) {
		body := getJSON(t, app, "/admin/api/interactions?page=9&pageSize=10")

		rows, ok := body["interactions"].([]interface{})
		require.True(t, ok)
		assert.Empty(t, rows)
	})

	t.Run("non-numeric parameters fall back to defaults", func(t *testing.T) {
		body := getJSON(t, app, "/admin/api/interactions?page=abc&pageSize=xyz")

		assert.Equal(t, float64(1), body["page"])
		assert.Equal(t, float64(20), body["pageSize"])
	})
}

func TestCountriesIndexAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	now := time.Now().UTC()

	for _, country := range []string{"SA", "SA", "EG"} {
		visit := testsupport.CreateTestVisit(t, db, "s-countries", "/", now)
		require.NoError(t, db.Model(visit).Update("country", country).Error)
	}

	body := getJSON(t, app, "/admin/api/countries")

	countries, ok := body["countries"].([]interface{})
	require.True(t, ok)
	require.Len(t, countries, 2)

	first, ok := countries[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "SA", first["code"])
	assert.Equal(t, "Saudi Arabia", first["name"])
	assert.Equal(t, float64(2), first["count"])
}
