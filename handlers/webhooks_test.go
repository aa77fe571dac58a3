package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autoreply/models"
	"autoreply/services/events"
)

func signBody(appSecret, body string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	appSecret := "test_app_secret"
	handler := &WebhooksHandler{
		appSecret: appSecret,
	}

	body := `{"object":"instagram","entry":[]}`

	// Test valid signature
	req, _ := http.NewRequest("POST", "/webhooks/instagram", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(appSecret, body))
	err := handler.verifySignature(req, []byte(body))
	if err != nil {
		t.Errorf("Expected valid signature to pass, got error: %v", err)
	}

	// Test invalid signature
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	err = handler.verifySignature(req, []byte(body))
	if err == nil {
		t.Error("Expected invalid signature to fail")
	}

	// Test missing header
	req.Header.Del("X-Hub-Signature-256")
	err = handler.verifySignature(req, []byte(body))
	if err == nil {
		t.Error("Expected missing header to fail")
	}

	// Test signature over different body
	req.Header.Set("X-Hub-Signature-256", signBody(appSecret, `{"tampered":true}`))
	err = handler.verifySignature(req, []byte(body))
	if err == nil {
		t.Error("Expected signature over different body to fail")
	}

	// Test unconfigured secret rejects even an empty-key signature
	unconfigured := &WebhooksHandler{appSecret: ""}
	req.Header.Set("X-Hub-Signature-256", signBody("", body))
	err = unconfigured.verifySignature(req, []byte(body))
	if err == nil {
		t.Error("Expected unconfigured secret to reject everything")
	}
}

func TestHandleVerification(t *testing.T) {
	handler := NewWebhooksHandler("verify_me", "secret", nil)

	t.Run("MatchingTokenEchoesChallenge", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/webhooks/instagram?hub.mode=subscribe&hub.verify_token=verify_me&hub.challenge=12345", nil)
		rec := httptest.NewRecorder()

		handler.HandleVerification(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "12345", rec.Body.String())
	})

	t.Run("WrongTokenIsForbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/webhooks/instagram?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
		rec := httptest.NewRecorder()

		handler.HandleVerification(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NotContains(t, rec.Body.String(), "12345")
	})

	t.Run("WrongModeIsForbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/webhooks/instagram?hub.mode=unsubscribe&hub.verify_token=verify_me&hub.challenge=12345", nil)
		rec := httptest.NewRecorder()

		handler.HandleVerification(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func postWebhook(handler *WebhooksHandler, appSecret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhooks/instagram", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(appSecret, body))
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)
	return rec
}

func TestHandleEvent(t *testing.T) {
	appSecret := "test_app_secret"

	t.Run("UnsignedDeliveryIsRejected", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewWebhooksHandler("verify_me", appSecret, eventsService)

		req := httptest.NewRequest("POST", "/webhooks/instagram", strings.NewReader(`{"object":"instagram"}`))
		rec := httptest.NewRecorder()

		handler.HandleEvent(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		eventsService.AssertNotCalled(t, "EnqueueEvent", mock.Anything, mock.Anything)
	})

	t.Run("CommentChangeIsQueued", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewWebhooksHandler("verify_me", appSecret, eventsService)

		body := `{
			"object": "instagram",
			"entry": [{
				"id": "acct_1",
				"time": 1700000000,
				"changes": [{
					"field": "comments",
					"value": {
						"id": "comment_1",
						"text": "hello there",
						"from": {"id": "U1", "username": "someone"},
						"media": {"id": "media_1"}
					}
				}]
			}]
		}`

		eventsService.On("EnqueueEvent", mock.Anything, mock.MatchedBy(func(event *models.InboundEvent) bool {
			return event.TriggerType == models.TriggerTypeComment &&
				event.SourceAccountID == "acct_1" &&
				event.TriggerID == "comment_1" &&
				event.TriggerText == "hello there" &&
				event.ActorID == "U1" &&
				event.TargetResourceID == "media_1"
		})).Return("evt_1", nil).Once()

		rec := postWebhook(handler, appSecret, body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"queuedForProcessing":1`)
		assert.Contains(t, rec.Body.String(), `"requestId":"req_`)
		eventsService.AssertExpectations(t)
	})

	t.Run("UnconfiguredSecretRejectsEmptyKeySignature", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewWebhooksHandler("verify_me", "", eventsService)

		body := `{"object":"instagram","entry":[]}`
		req := httptest.NewRequest("POST", "/webhooks/instagram", strings.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", signBody("", body))
		rec := httptest.NewRecorder()

		handler.HandleEvent(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		eventsService.AssertNotCalled(t, "EnqueueEvent", mock.Anything, mock.Anything)
	})

	t.Run("DirectMessageIsQueued", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewWebhooksHandler("verify_me", appSecret, eventsService)

		body := `{
			"object": "instagram",
			"entry": [{
				"id": "acct_1",
				"messaging": [{
					"sender": {"id": "U2"},
					"recipient": {"id": "acct_1"},
					"message": {"mid": "mid_1", "text": "price?"}
				}]
			}]
		}`

		eventsService.On("EnqueueEvent", mock.Anything, mock.MatchedBy(func(event *models.InboundEvent) bool {
			return event.TriggerType == models.TriggerTypeDM &&
				event.TriggerID == "mid_1" &&
				event.ActorID == "U2"
		})).Return("evt_2", nil).Once()

		rec := postWebhook(handler, appSecret, body)

		require.Equal(t, http.StatusOK, rec.Code)
		eventsService.AssertExpectations(t)
	})

	t.Run("SelfCommentAndEchoAreDropped", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewWebhooksHandler("verify_me", appSecret, eventsService)

		body := `{
			"object": "instagram",
			"entry": [{
				"id": "acct_1",
				"changes": [{
					"field": "comments",
					"value": {"id": "comment_2", "text": "thanks!", "from": {"id": "acct_1", "username": "shop"}}
				}],
				"messaging": [{
					"sender": {"id": "acct_1"},
					"message": {"mid": "mid_2", "text": "our reply", "is_echo": true}
				}]
			}]
		}`

		rec := postWebhook(handler, appSecret, body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"queuedForProcessing":0`)
		eventsService.AssertNotCalled(t, "EnqueueEvent", mock.Anything, mock.Anything)
	})

	t.Run("MalformedAuthenticPayloadGetsOK", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewWebhooksHandler("verify_me", appSecret, eventsService)

		rec := postWebhook(handler, appSecret, `not json at all`)

		assert.Equal(t, http.StatusOK, rec.Code)
		eventsService.AssertNotCalled(t, "EnqueueEvent", mock.Anything, mock.Anything)
	})

	t.Run("FollowChangeIsQueuedWithoutText", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewWebhooksHandler("verify_me", appSecret, eventsService)

		body := `{
			"object": "instagram",
			"entry": [{
				"id": "acct_1",
				"changes": [{
					"field": "follows",
					"value": {"from": {"id": "U3"}}
				}]
			}]
		}`

		eventsService.On("EnqueueEvent", mock.Anything, mock.MatchedBy(func(event *models.InboundEvent) bool {
			return event.TriggerType == models.TriggerTypeFollow &&
				event.ActorID == "U3" &&
				event.TriggerText == ""
		})).Return("evt_3", nil).Once()

		rec := postWebhook(handler, appSecret, body)

		require.Equal(t, http.StatusOK, rec.Code)
		eventsService.AssertExpectations(t)
	})

	t.Run("EnqueueFailureStillAcknowledges", func(t *testing.T) {
		eventsService := &events.MockEventsService{}
		handler := NewWebhooksHandler("verify_me", appSecret, eventsService)

		body := `{
			"object": "instagram",
			"entry": [{
				"id": "acct_1",
				"changes": [{
					"field": "comments",
					"value": {"id": "comment_3", "text": "hi", "from": {"id": "U4", "username": "x"}}
				}]
			}]
		}`

		eventsService.On("EnqueueEvent", mock.Anything, mock.Anything).
			Return("", fmt.Errorf("queue backend unavailable"))

		rec := postWebhook(handler, appSecret, body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"queuedForProcessing":0`)
	})
}
