package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drupchen/dupr-server/internal/api/testutils"
	"github.com/drupchen/dupr-server/internal/models"
)

func TestTeachingAccessControl(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	testutils.CreateCategory(t, testCtx.Repository, "ngondro", "Ngondro Students")

	// Staff publishes one public and one gated teaching
	publicReq := models.CreateTeachingRequest{
		Slug:  "welcome-talk",
		Title: "Welcome Talk",
		Body:  "An open introduction.",
	}
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/teachings",
		publicReq,
		testutils.AuthHeaders(testCtx.StaffUserJWT),
	)
	assert.Equal(t, http.StatusCreated, w.Code)

	gatedReq := models.CreateTeachingRequest{
		Slug:       "ngondro-commentary",
		Title:      "Ngondro Commentary",
		Body:       "Restricted commentary.",
		Categories: []string{"ngondro"},
	}
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/teachings",
		gatedReq,
		testutils.AuthHeaders(testCtx.StaffUserJWT),
	)
	assert.Equal(t, http.StatusCreated, w.Code)

	t.Run("non-staff cannot publish teachings", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/api/teachings",
			models.CreateTeachingRequest{Slug: "rogue", Title: "Rogue"},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("public teaching visible to anonymous viewers", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/teachings/welcome-talk",
			nil,
			nil,
		)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("gated teaching denied to anonymous viewers", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/teachings/ngondro-commentary",
			nil,
			nil,
		)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("gated teaching denied without category overlap", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/teachings/ngondro-commentary",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("staff bypasses category gating", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/teachings/ngondro-commentary",
			nil,
			testutils.AuthHeaders(testCtx.StaffUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("assigned category grants access", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPut,
			fmt.Sprintf("/api/users/%s/categories", testCtx.TestUserID),
			models.SetUserCategoriesRequest{Categories: []string{"ngondro"}},
			testutils.AuthHeaders(testCtx.StaffUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/teachings/ngondro-commentary",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-staff cannot assign categories", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPut,
			fmt.Sprintf("/api/users/%s/categories", testCtx.TestUserID),
			models.SetUserCategoriesRequest{Categories: []string{"ngondro"}},
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("listing filters to viewable teachings", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/teachings",
			nil,
			nil,
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var listResp models.TeachingListResponse
		err := json.Unmarshal(w.Body.Bytes(), &listResp)
		assert.NoError(t, err)
		assert.Len(t, listResp.Teachings, 1)
		assert.Equal(t, "welcome-talk", listResp.Teachings[0].Slug)

		// The member assigned above sees both
		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/teachings",
			nil,
			testutils.AuthHeaders(testCtx.TestUserJWT),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		err = json.Unmarshal(w.Body.Bytes(), &listResp)
		assert.NoError(t, err)
		assert.Len(t, listResp.Teachings, 2)
	})

	t.Run("unknown teaching returns 404", func(t *testing.T) {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/teachings/no-such-talk",
			nil,
			nil,
		)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
