package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"autoreply/models"
	"autoreply/services/dedup"
	"autoreply/services/events"
)

func adminRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAdminAuthorization(t *testing.T) {
	dedupService := &dedup.MockDedupService{}
	eventsService := &events.MockEventsService{}
	handler := NewAdminHandler("admin_token", dedupService, eventsService)

	t.Run("MissingTokenIsUnauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleDedupStats(rec, adminRequest("GET", "/admin/dedup", ""))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		dedupService.AssertNotCalled(t, "Stats", mock.Anything)
	})

	t.Run("WrongTokenIsUnauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleDedupClear(rec, adminRequest("POST", "/admin/dedup/clear", "not_the_token"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		dedupService.AssertNotCalled(t, "Clear", mock.Anything)
	})

	t.Run("EmptyConfiguredTokenRejectsEverything", func(t *testing.T) {
		unconfigured := NewAdminHandler("", dedupService, eventsService)

		rec := httptest.NewRecorder()
		unconfigured.HandleDedupStats(rec, adminRequest("GET", "/admin/dedup", ""))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminDedupEndpoints(t *testing.T) {
	t.Run("StatsReturnsLedgerState", func(t *testing.T) {
		dedupService := &dedup.MockDedupService{}
		handler := NewAdminHandler("admin_token", dedupService, &events.MockEventsService{})

		dedupService.On("Stats", mock.Anything).Return(&models.DedupStats{
			Size:           7,
			ShortCooldown:  60 * time.Second,
			GlobalCooldown: 30 * time.Second,
		}, nil)

		rec := httptest.NewRecorder()
		handler.HandleDedupStats(rec, adminRequest("GET", "/admin/dedup", "admin_token"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"size":7`)
		dedupService.AssertExpectations(t)
	})

	t.Run("ClearReportsRemovedCount", func(t *testing.T) {
		dedupService := &dedup.MockDedupService{}
		handler := NewAdminHandler("admin_token", dedupService, &events.MockEventsService{})

		dedupService.On("Clear", mock.Anything).Return(3, nil)

		rec := httptest.NewRecorder()
		handler.HandleDedupClear(rec, adminRequest("POST", "/admin/dedup/clear", "admin_token"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"cleared":3`)
		dedupService.AssertExpectations(t)
	})
}

func TestAdminQueueEndpoints(t *testing.T) {
	t.Run("StatsReturnsQueueDepths", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewAdminHandler("admin_token", &dedup.MockDedupService{}, eventsService)

		eventsService.On("QueueStats", mock.Anything).Return(&models.QueueStats{Queued: 4, Failed: 2}, nil)

		rec := httptest.NewRecorder()
		handler.HandleQueueStats(rec, adminRequest("GET", "/admin/queue", "admin_token"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"queued":4`)
		assert.Contains(t, rec.Body.String(), `"failed":2`)
	})

	t.Run("QueueClearReportsRemovedCount", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewAdminHandler("admin_token", &dedup.MockDedupService{}, eventsService)

		eventsService.On("ClearQueued", mock.Anything).Return(4, nil)

		rec := httptest.NewRecorder()
		handler.HandleQueueClear(rec, adminRequest("POST", "/admin/queue/clear", "admin_token"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"cleared":4`)
	})

	t.Run("FailedClearReportsRemovedCount", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewAdminHandler("admin_token", &dedup.MockDedupService{}, eventsService)

		eventsService.On("ClearFailed", mock.Anything).Return(2, nil)

		rec := httptest.NewRecorder()
		handler.HandleFailedClear(rec, adminRequest("POST", "/admin/queue/failed/clear", "admin_token"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"cleared":2`)
	})
}
