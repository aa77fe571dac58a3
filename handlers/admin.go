package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"autoreply/services"
)

// AdminHandler exposes the operational surface: ledger and queue
// inspection plus the manual clear controls.
type AdminHandler struct {
	adminToken    string
	dedupService  services.DedupService
	eventsService services.EventsService
}

func NewAdminHandler(adminToken string, dedupService services.DedupService, eventsService services.EventsService) *AdminHandler {
	return &AdminHandler{
		adminToken:    adminToken,
		dedupService:  dedupService,
		eventsService: eventsService,
	}
}

func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		log.Printf("❌ Admin request without bearer token from %s", r.RemoteAddr)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if h.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
		log.Printf("❌ Admin request with invalid token from %s", r.RemoteAddr)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return false
	}

	return true
}

func (h *AdminHandler) HandleDedupStats(w http.ResponseWriter, r *http.Request) {
	log.Printf("📋 Dedup stats request received from %s", r.RemoteAddr)
	if !h.authorize(w, r) {
		return
	}

	stats, err := h.dedupService.Stats(r.Context())
	if err != nil {
		log.Printf("❌ Failed to collect dedup stats: %v", err)
		http.Error(w, "failed to collect stats", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}

func (h *AdminHandler) HandleDedupClear(w http.ResponseWriter, r *http.Request) {
	log.Printf("🧹 Dedup clear request received from %s", r.RemoteAddr)
	if !h.authorize(w, r) {
		return
	}

	cleared, err := h.dedupService.Clear(r.Context())
	if err != nil {
		log.Printf("❌ Failed to clear dedup ledger: %v", err)
		http.Error(w, "failed to clear ledger", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Cleared %d dedup ledger entries", cleared)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"cleared": cleared,
	})
}

func (h *AdminHandler) HandleQueueStats(w http.ResponseWriter, r *http.Request) {
	log.Printf("📋 Queue stats request received from %s", r.RemoteAddr)
	if !h.authorize(w, r) {
		return
	}

	stats, err := h.eventsService.QueueStats(r.Context())
	if err != nil {
		log.Printf("❌ Failed to collect queue stats: %v", err)
		http.Error(w, "failed to collect stats", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}

func (h *AdminHandler) HandleQueueClear(w http.ResponseWriter, r *http.Request) {
	log.Printf("🧹 Queue clear request received from %s", r.RemoteAddr)
	if !h.authorize(w, r) {
		return
	}

	cleared, err := h.eventsService.ClearQueued(r.Context())
	if err != nil {
		log.Printf("❌ Failed to clear queued events: %v", err)
		http.Error(w, "failed to clear queue", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Cleared %d queued events", cleared)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"cleared": cleared,
	})
}

func (h *AdminHandler) HandleFailedClear(w http.ResponseWriter, r *http.Request) {
	log.Printf("🧹 Failed list clear request received from %s", r.RemoteAddr)
	if !h.authorize(w, r) {
		return
	}

	cleared, err := h.eventsService.ClearFailed(r.Context())
	if err != nil {
		log.Printf("❌ Failed to clear failed events: %v", err)
		http.Error(w, "failed to clear failed list", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Cleared %d failed events", cleared)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"cleared": cleared,
	})
}
