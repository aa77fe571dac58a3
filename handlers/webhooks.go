package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"autoreply/core"
	"autoreply/models"
	"autoreply/services"
)

type WebhooksHandler struct {
	verifyToken   string
	appSecret     string
	eventsService services.EventsService
}

func NewWebhooksHandler(verifyToken, appSecret string, eventsService services.EventsService) *WebhooksHandler {
	return &WebhooksHandler{
		verifyToken:   verifyToken,
		appSecret:     appSecret,
		eventsService: eventsService,
	}
}

// webhookPayload mirrors the platform's delivery envelope. Comment and
// follow notifications arrive under changes, direct messages under messaging.
type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID        string             `json:"id"`
	Time      int64              `json:"time"`
	Changes   []webhookChange    `json:"changes"`
	Messaging []webhookMessaging `json:"messaging"`
}

type webhookChange struct {
	Field string             `json:"field"`
	Value webhookChangeValue `json:"value"`
}

type webhookChangeValue struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	From     *webhookActor `json:"from"`
	Media    *webhookMedia `json:"media"`
	ParentID string        `json:"parent_id"`
}

type webhookActor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type webhookMedia struct {
	ID string `json:"id"`
}

type webhookMessaging struct {
	Sender    *webhookActor   `json:"sender"`
	Recipient *webhookActor   `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *webhookMessage `json:"message"`
}

type webhookMessage struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}

// HandleVerification answers the platform's subscription handshake: echo the
// challenge back only when the verify token matches.
func (h *WebhooksHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	log.Printf("🔐 Webhook verification request received from %s", r.RemoteAddr)

	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || token != h.verifyToken {
		log.Printf("❌ Webhook verification failed (mode: %s)", mode)
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}

	log.Printf("✅ Webhook verification successful, echoing challenge")
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte(challenge)); err != nil {
		log.Printf("❌ Failed to write challenge response: %v", err)
	}
}

// verifySignature verifies the authenticity of a webhook delivery against
// the app secret. The signature covers the raw body bytes. An unconfigured
// secret rejects everything rather than letting empty-key signatures through.
func (h *WebhooksHandler) verifySignature(r *http.Request, body []byte) error {
	if h.appSecret == "" {
		return fmt.Errorf("app secret is not configured")
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if signature == "" {
		return fmt.Errorf("missing signature header")
	}
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("unexpected signature format")
	}

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	expectedSignature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

func (h *WebhooksHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	log.Printf("📨 Webhook delivery received from %s", r.RemoteAddr)

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("❌ Failed to read request body: %v", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.verifySignature(r, bodyBytes); err != nil {
		log.Printf("❌ Webhook signature verification failed: %v", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	log.Printf("✅ Webhook signature verified successfully")

	// One delivery gets one request ID, echoed back so platform-side
	// delivery logs can be correlated with ours
	deliveryID := core.NewID("req")

	// An authentic delivery always gets a 200 from here on. The platform
	// redelivers non-2xx responses, and redelivering a payload we cannot
	// parse would never succeed.
	var payload webhookPayload
	if err := json.Unmarshal(bodyBytes, &payload); err != nil {
		log.Printf("⚠️ Dropping malformed webhook payload %s: %v", deliveryID, err)
		h.writeAccepted(w, deliveryID, 0)
		return
	}

	events := h.extractEvents(&payload)
	queued := 0
	for _, event := range events {
		requestID, err := h.eventsService.EnqueueEvent(r.Context(), event)
		if err != nil {
			log.Printf("❌ Failed to enqueue event for trigger %s: %v", event.TriggerID, err)
			continue
		}
		log.Printf("📬 Queued %s event %s (trigger %s, actor %s, delivery %s)", event.TriggerType, requestID, event.TriggerID, event.ActorID, deliveryID)
		queued++
	}

	h.writeAccepted(w, deliveryID, queued)
}

// extractEvents flattens the delivery envelope into inbound events. Entries
// we do not recognize are skipped, not rejected.
func (h *WebhooksHandler) extractEvents(payload *webhookPayload) []*models.InboundEvent {
	var events []*models.InboundEvent

	for _, entry := range payload.Entry {
		receivedAt := time.Unix(entry.Time, 0)
		if entry.Time == 0 {
			receivedAt = time.Now()
		}

		for _, change := range entry.Changes {
			switch change.Field {
			case "comments":
				if change.Value.From == nil || change.Value.ID == "" {
					log.Printf("⚠️ Skipping comment change without actor or id")
					continue
				}
				if change.Value.From.ID == entry.ID {
					// The account's own comments must never trigger a reply
					log.Printf("📋 Skipping self-comment %s on account %s", change.Value.ID, entry.ID)
					continue
				}
				event := &models.InboundEvent{
					ReceivedAt:      receivedAt,
					SourceAccountID: entry.ID,
					TriggerType:     models.TriggerTypeComment,
					TriggerID:       change.Value.ID,
					TriggerText:     change.Value.Text,
					ActorID:         change.Value.From.ID,
					ActorUsername:   change.Value.From.Username,
					ParentID:        change.Value.ParentID,
				}
				if change.Value.Media != nil {
					event.TargetResourceID = change.Value.Media.ID
				}
				events = append(events, event)

			case "follows":
				actorID := change.Value.ID
				if change.Value.From != nil {
					actorID = change.Value.From.ID
				}
				if actorID == "" {
					log.Printf("⚠️ Skipping follow change without actor")
					continue
				}
				events = append(events, &models.InboundEvent{
					ReceivedAt:      receivedAt,
					SourceAccountID: entry.ID,
					TriggerType:     models.TriggerTypeFollow,
					TriggerID:       fmt.Sprintf("follow-%s-%s", entry.ID, actorID),
					ActorID:         actorID,
				})

			default:
				log.Printf("📋 Skipping unsupported change field: %s", change.Field)
			}
		}

		for _, messaging := range entry.Messaging {
			if messaging.Sender == nil || messaging.Message == nil || messaging.Message.MID == "" {
				log.Printf("⚠️ Skipping messaging entry without sender or message")
				continue
			}
			if messaging.Message.IsEcho || messaging.Sender.ID == entry.ID {
				// Echoes of our own outbound messages come back through the
				// same webhook; replying to them would loop forever
				log.Printf("📋 Skipping echo message %s", messaging.Message.MID)
				continue
			}
			events = append(events, &models.InboundEvent{
				ReceivedAt:      receivedAt,
				SourceAccountID: entry.ID,
				TriggerType:     models.TriggerTypeDM,
				TriggerID:       messaging.Message.MID,
				TriggerText:     messaging.Message.Text,
				ActorID:         messaging.Sender.ID,
			})
		}
	}

	return events
}

func (h *WebhooksHandler) writeAccepted(w http.ResponseWriter, deliveryID string, queued int) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success":             true,
		"requestId":           deliveryID,
		"queuedForProcessing": queued,
	})
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("❌ Failed to encode JSON response: %v", err)
	}
}
