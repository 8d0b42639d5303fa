package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotlinehq/relay-api/internal/models"
)

const testSecret = "test-secret"

func newEventTest() (*EventHandler, *fakeEventRepo, *fakeBroadcaster) {
	repo := &fakeEventRepo{}
	broadcaster := &fakeBroadcaster{}
	handler := NewEventHandler(repo, broadcaster, testSecret, zerolog.Nop())
	return handler, repo, broadcaster
}

func postEvent(handler *EventHandler, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/event", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	handler.Ingest(rec, req)
	return rec
}

func TestIngestRejectsMissingSecret(t *testing.T) {
	handler, repo, broadcaster := newEventTest()

	rec := postEvent(handler, "", `{"type":"call"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, repo.events, "no event should be persisted")
	assert.Empty(t, broadcaster.calls, "no broadcast should occur")
}

func TestIngestRejectsWrongSecret(t *testing.T) {
	handler, repo, broadcaster := newEventTest()

	rec := postEvent(handler, "wrong", `{"type":"call"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, repo.events)
	assert.Empty(t, broadcaster.calls)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "Unauthorized", resp["error"])
}

func TestIngestAppliesDefaults(t *testing.T) {
	handler, repo, _ := newEventTest()

	rec := postEvent(handler, testSecret, `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.events, 1)
	assert.Equal(t, models.DefaultEventType, repo.events[0].Type)
	assert.Equal(t, models.DefaultEventWho, repo.events[0].Who)
	assert.NotEmpty(t, repo.events[0].ID)
}

func TestIngestEmptyBody(t *testing.T) {
	handler, repo, _ := newEventTest()

	rec := postEvent(handler, testSecret, "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.events, 1)
	assert.Equal(t, models.DefaultEventType, repo.events[0].Type)
}

func TestIngestKeepsSuppliedFields(t *testing.T) {
	handler, repo, _ := newEventTest()

	rec := postEvent(handler, testSecret, `{"type":"call-click","who":"landing-page","meta":{"tel":"+15550001","page":"/pricing"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.events, 1)
	event := repo.events[0]
	assert.Equal(t, "call-click", event.Type)
	assert.Equal(t, "landing-page", event.Who)
	assert.Equal(t, "+15550001", event.Meta.Tel)
	assert.Equal(t, "/pricing", event.Meta.Page)

	var resp struct {
		OK   bool             `json:"ok"`
		Data models.SiteEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, event.ID, resp.Data.ID)
}

func TestIngestDropsUnknownMetaKeys(t *testing.T) {
	handler, repo, _ := newEventTest()

	rec := postEvent(handler, testSecret, `{"meta":{"tel":"+15550001","referrer":"ads"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.events, 1)
	assert.Equal(t, "+15550001", repo.events[0].Meta.Tel)
	assert.Empty(t, repo.events[0].Meta.Page)
}

func TestIngestRejectsNonObjectMeta(t *testing.T) {
	handler, repo, broadcaster := newEventTest()

	rec := postEvent(handler, testSecret, `{"meta":"not-an-object"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.events)
	assert.Empty(t, broadcaster.calls)
}

func TestIngestBroadcastOmitsID(t *testing.T) {
	handler, _, broadcaster := newEventTest()

	rec := postEvent(handler, testSecret, `{"type":"call-click","meta":{"tel":"+15550001"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, broadcaster.calls, 1)
	assert.Equal(t, "site:event", broadcaster.calls[0].topic)

	payload, ok := broadcaster.calls[0].payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "call-click", payload["type"])
	assert.NotEmpty(t, payload["at"])
	assert.NotContains(t, payload, "id")
}

func TestIngestStorageError(t *testing.T) {
	handler, repo, broadcaster := newEventTest()
	repo.createErr = fmt.Errorf("connection refused")

	rec := postEvent(handler, testSecret, `{"type":"call"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// persistence and broadcast are independent: live subscribers are
	// still notified when the store is down
	assert.Len(t, broadcaster.calls, 1)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
}

func TestListReturnsNewestFirst(t *testing.T) {
	handler, _, _ := newEventTest()

	for i := 0; i < 5; i++ {
		rec := postEvent(handler, testSecret, fmt.Sprintf(`{"type":"event-%d"}`, i))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool               `json:"success"`
		Data    []models.SiteEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 5)
	for i := 0; i < len(resp.Data)-1; i++ {
		assert.False(t, resp.Data[i].CreatedAt.Before(resp.Data[i+1].CreatedAt), "events must be newest first")
	}
	assert.Equal(t, "event-4", resp.Data[0].Type)
}

func TestListEmptyStoreIsSuccess(t *testing.T) {
	handler, _, _ := newEventTest()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool               `json:"success"`
		Data    []models.SiteEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestListStorageError(t *testing.T) {
	handler, repo, _ := newEventTest()
	repo.listErr = fmt.Errorf("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
