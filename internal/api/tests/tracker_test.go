package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drupchen/dupr-server/internal/api/testutils"
	"github.com/drupchen/dupr-server/internal/models"
)

func intp(v int) *int { return &v }

func TestTrackPractice(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Staff defines a practice
	defReq := models.CreateDefinitionRequest{
		Slug: "chenrezig-mantra",
		Name: "Chenrezig Mantra",
		Kind: models.KindCollectiveAccumulation,
	}
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/tracker/definitions",
		defReq,
		testutils.AuthHeaders(testCtx.StaffUserJWT),
	)
	assert.Equal(t, http.StatusCreated, w.Code)

	var def models.PracticeDefinition
	err := json.Unmarshal(w.Body.Bytes(), &def)
	assert.NoError(t, err)
	assert.NotEmpty(t, def.ID)

	t.Run("non-staff cannot define practices", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/tracker/definitions",
			models.CreateDefinitionRequest{Slug: "rogue", Name: "Rogue", Kind: models.KindPractice},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("definition listed until tracked, then excluded", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/tracker/definitions",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var listResp models.DefinitionListResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
		assert.Len(t, listResp.Definitions, 1)

		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/tracker/practices",
			models.StartTrackingRequest{DefinitionID: def.ID},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/tracker/definitions",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
		assert.Len(t, listResp.Definitions, 0)
	})

	t.Run("tracking the same definition twice conflicts", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/tracker/practices",
			models.StartTrackingRequest{DefinitionID: def.ID},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusConflict, w.Code)

		var errResp models.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "ALREADY_TRACKED", errResp.Code)

		// Exactly one row exists afterward
		tracked, err := testCtx.Repository.ListTrackedPractices(context.Background(), testCtx.TestUserID)
		assert.NoError(t, err)
		assert.Len(t, tracked, 1)
	})
}

func TestLogEntries(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	def := testutils.CreateDefinition(t, testCtx.Repository,
		"vajrasattva", "Vajrasattva Practice", models.KindPractice)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/tracker/practices",
		models.StartTrackingRequest{DefinitionID: def.ID},
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusCreated, w.Code)

	var trackedResp models.TrackedPracticeResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &trackedResp))
	trackedID := trackedResp.Tracked.ID

	postEntry := func(req models.CreateLogEntryRequest) *models.LogEntryResponse {
		req.TrackedPracticeID = trackedID
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/tracker/entries",
			req,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		if w.Code != http.StatusCreated {
			return nil
		}
		var resp models.LogEntryResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return &resp
	}

	t.Run("mantras derived from malas", func(t *testing.T) {
		resp := postEntry(models.CreateLogEntryRequest{Malas: intp(2), EntryDate: "2026-08-01"})
		assert.NotNil(t, resp)
		assert.Equal(t, 2, resp.Entry.Malas)
		assert.Equal(t, 216, resp.Entry.Mantras)
		assert.Equal(t, testCtx.TestUserID, resp.Entry.UserID)
	})

	t.Run("time-only entries default the other components", func(t *testing.T) {
		resp := postEntry(models.CreateLogEntryRequest{Hours: intp(1), Minutes: intp(45), EntryDate: "2026-08-02"})
		assert.NotNil(t, resp)
		assert.Equal(t, 0, resp.Entry.Malas)
		assert.Equal(t, 0, resp.Entry.Mantras)
		assert.Equal(t, 1, resp.Entry.Hours)
		assert.Equal(t, 45, resp.Entry.Minutes)
	})

	t.Run("empty submissions rejected", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/tracker/entries",
			models.CreateLogEntryRequest{TrackedPracticeID: trackedID},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp models.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "NO_ACTIVITY_RECORDED", errResp.Code)
	})

	t.Run("all-zero submissions rejected", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/tracker/entries",
			models.CreateLogEntryRequest{
				TrackedPracticeID: trackedID,
				Malas:             intp(0),
				Hours:             intp(0),
				Minutes:           intp(0),
			},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp models.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "NO_ACTIVITY_RECORDED", errResp.Code)
	})

	t.Run("out-of-range minutes rejected at the input layer", func(t *testing.T) {
		// The binding tag constrains minutes before the entry rules
		// run; the range rule itself is covered alongside them
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/tracker/entries",
			models.CreateLogEntryRequest{TrackedPracticeID: trackedID, Minutes: intp(75)},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp models.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "INVALID_REQUEST", errResp.Code)
	})

	t.Run("dashboard aggregates per practice", func(t *testing.T) {
		resp := postEntry(models.CreateLogEntryRequest{
			Malas:     intp(3),
			Hours:     intp(0),
			Minutes:   intp(20),
			EntryDate: "2026-08-03",
		})
		assert.NotNil(t, resp)

		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/tracker/dashboard",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var dash models.DashboardResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
		assert.Len(t, dash.Practices, 1)

		summary := dash.Practices[0]
		assert.Equal(t, "Vajrasattva Practice", summary.DefinitionName)
		assert.Equal(t, 5, summary.TotalMalas)
		assert.Equal(t, 540, summary.TotalMantras)
		assert.Equal(t, 2, summary.TotalHours) // 105+20=125 minutes
		assert.Equal(t, 5, summary.TotalMinutes)
		assert.True(t, summary.HasEntries)
		assert.Len(t, dash.RecentEntries, 3)

		// Identical result with no intervening writes
		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/tracker/dashboard",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var again models.DashboardResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
		assert.Equal(t, dash.Practices, again.Practices)
	})

	t.Run("history pages entries", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/tracker/history?page=1",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var hist models.HistoryResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
		assert.Equal(t, 1, hist.Page)
		assert.Len(t, hist.Entries, 3)
	})

	t.Run("update re-derives mantras", func(t *testing.T) {
		resp := postEntry(models.CreateLogEntryRequest{Malas: intp(1), EntryDate: "2026-08-04"})
		assert.NotNil(t, resp)

		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPut,
			fmt.Sprintf("/api/tracker/entries/%s", resp.Entry.ID),
			models.UpdateLogEntryRequest{Malas: intp(4), EntryDate: "2026-08-04"},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var updated models.LogEntryResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		assert.Equal(t, 4, updated.Entry.Malas)
		assert.Equal(t, 432, updated.Entry.Mantras)
	})

	t.Run("only the owner may delete an entry", func(t *testing.T) {
		resp := postEntry(models.CreateLogEntryRequest{Malas: intp(1), EntryDate: "2026-08-05"})
		assert.NotNil(t, resp)

		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodDelete,
			fmt.Sprintf("/api/tracker/entries/%s", resp.Entry.ID),
			nil,
			testutils.AuthHeaders(testCtx.StaffUserJWT),
		)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodDelete,
			fmt.Sprintf("/api/tracker/entries/%s", resp.Entry.ID),
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("archived practice rejects new entries but keeps totals", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPatch,
			fmt.Sprintf("/api/tracker/practices/%s", trackedID),
			models.SetTrackedActiveRequest{IsActive: boolp(false)},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/tracker/entries",
			models.CreateLogEntryRequest{TrackedPracticeID: trackedID, Malas: intp(1)},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusConflict, w.Code)

		var errResp models.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "PRACTICE_ARCHIVED", errResp.Code)

		// Totals remain visible for the archived practice
		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/tracker/dashboard",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var dash models.DashboardResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
		assert.Len(t, dash.Practices, 1)
		assert.False(t, dash.Practices[0].Tracked.IsActive)
		assert.True(t, dash.Practices[0].HasEntries)

		// Restoring allows new entries again
		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodPatch,
			fmt.Sprintf("/api/tracker/practices/%s", trackedID),
			models.SetTrackedActiveRequest{IsActive: boolp(true)},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		resp := postEntry(models.CreateLogEntryRequest{Malas: intp(1), EntryDate: "2026-08-06"})
		assert.NotNil(t, resp)
	})

	t.Run("deleting the definition cascades", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodDelete,
			fmt.Sprintf("/api/tracker/definitions/%s", def.ID),
			nil,
			testutils.AuthHeaders(testCtx.StaffUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		tracked, err := testCtx.Repository.ListTrackedPractices(context.Background(), testCtx.TestUserID)
		assert.NoError(t, err)
		assert.Len(t, tracked, 0)

		entries, err := testCtx.Repository.ListEntriesForUser(context.Background(), testCtx.TestUserID, 50, 0)
		assert.NoError(t, err)
		assert.Len(t, entries, 0)
	})
}

func boolp(v bool) *bool { return &v }
