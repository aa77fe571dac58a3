package conversations

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/samber/mo"

	"autoreply/config"
	"autoreply/kvstore"
	"autoreply/models"
)

const keyPrefix = "conv:"

// ConversationsService tracks short-lived multi-turn sessions for AI-mode
// automations. Sessions live in the TTL key-value store; the TTL doubles as
// the inactivity threshold, so an idle session ends on its own even between
// sweeps.
type ConversationsService struct {
	store kvstore.Store
	cfg   config.ConversationConfig
	now   func() time.Time
}

func NewConversationsService(store kvstore.Store, cfg config.ConversationConfig) *ConversationsService {
	return NewConversationsServiceWithClock(store, cfg, time.Now)
}

func NewConversationsServiceWithClock(store kvstore.Store, cfg config.ConversationConfig, now func() time.Time) *ConversationsService {
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = 30 * time.Minute
	}
	return &ConversationsService{store: store, cfg: cfg, now: now}
}

func sessionKey(ownerID, actorID, ruleID string) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, ownerID, actorID, ruleID)
}

// StartConversation creates an active session if absent. Calling it again
// while a session is active is a no-op returning the existing session.
func (s *ConversationsService) StartConversation(ctx context.Context, ownerID, actorID, ruleID string) (*models.ConversationSession, error) {
	if ownerID == "" || actorID == "" || ruleID == "" {
		return nil, fmt.Errorf("owner_id, actor_id and rule_id cannot be empty")
	}

	maybeSession, err := s.getSession(ctx, ownerID, actorID, ruleID)
	if err != nil {
		return nil, err
	}
	if maybeSession.IsPresent() {
		return maybeSession.MustGet(), nil
	}

	session := &models.ConversationSession{
		OwnerID:        ownerID,
		ActorID:        actorID,
		RuleID:         ruleID,
		IsActive:       true,
		Turns:          []models.ConversationTurn{},
		StartedAt:      s.now(),
		LastActivityAt: s.now(),
	}

	if err := s.putSession(ctx, session); err != nil {
		return nil, err
	}

	log.Printf("💬 Started conversation for owner %s with actor %s (rule %s)", ownerID, actorID, ruleID)
	return session, nil
}

// AddMessage appends a turn to an active session. If the session is absent
// this is a deliberate no-op: callers must start the conversation first, and
// silently creating sessions from arbitrary call sites would mask logic bugs.
func (s *ConversationsService) AddMessage(ctx context.Context, ownerID, actorID, ruleID string, role models.ConversationRole, text string) error {
	maybeSession, err := s.getSession(ctx, ownerID, actorID, ruleID)
	if err != nil {
		return err
	}
	if !maybeSession.IsPresent() {
		log.Printf("⚠️ AddMessage called without an active session for owner %s, actor %s - dropping turn", ownerID, actorID)
		return nil
	}

	session := maybeSession.MustGet()
	session.Turns = append(session.Turns, models.ConversationTurn{
		Role: role,
		Text: text,
		At:   s.now(),
	})
	session.LastActivityAt = s.now()

	return s.putSession(ctx, session)
}

// EndConversation removes the session from active storage
func (s *ConversationsService) EndConversation(ctx context.Context, ownerID, actorID, ruleID string) error {
	if err := s.store.Delete(ctx, sessionKey(ownerID, actorID, ruleID)); err != nil {
		return fmt.Errorf("failed to end conversation: %w", err)
	}

	log.Printf("💬 Ended conversation for owner %s with actor %s (rule %s)", ownerID, actorID, ruleID)
	return nil
}

func (s *ConversationsService) IsInActiveConversation(ctx context.Context, ownerID, actorID, ruleID string) (bool, error) {
	maybeSession, err := s.getSession(ctx, ownerID, actorID, ruleID)
	if err != nil {
		return false, err
	}
	return maybeSession.IsPresent() && maybeSession.MustGet().IsActive, nil
}

func (s *ConversationsService) GetSession(ctx context.Context, ownerID, actorID, ruleID string) (mo.Option[*models.ConversationSession], error) {
	return s.getSession(ctx, ownerID, actorID, ruleID)
}

// SweepInactive removes sessions idle past the inactivity threshold. The
// store's TTL already expires them lazily; the sweep keeps storage bounded
// when nobody reads the stale keys.
func (s *ConversationsService) SweepInactive(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep conversations: %w", err)
	}

	if removed > 0 {
		log.Printf("🧹 Conversation sweep ended %d inactive sessions", removed)
	}
	return removed, nil
}

func (s *ConversationsService) getSession(ctx context.Context, ownerID, actorID, ruleID string) (mo.Option[*models.ConversationSession], error) {
	maybeValue, err := s.store.Get(ctx, sessionKey(ownerID, actorID, ruleID))
	if err != nil {
		return mo.None[*models.ConversationSession](), fmt.Errorf("failed to read conversation session: %w", err)
	}
	if !maybeValue.IsPresent() {
		return mo.None[*models.ConversationSession](), nil
	}

	session := &models.ConversationSession{}
	if err := json.Unmarshal([]byte(maybeValue.MustGet()), session); err != nil {
		return mo.None[*models.ConversationSession](), fmt.Errorf("failed to unmarshal conversation session: %w", err)
	}

	return mo.Some(session), nil
}

// putSession writes the session back with a fresh inactivity TTL
func (s *ConversationsService) putSession(ctx context.Context, session *models.ConversationSession) error {
	value, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation session: %w", err)
	}

	key := sessionKey(session.OwnerID, session.ActorID, session.RuleID)
	if err := s.store.Set(ctx, key, string(value), s.cfg.InactivityTimeout); err != nil {
		return fmt.Errorf("failed to store conversation session: %w", err)
	}

	return nil
}
