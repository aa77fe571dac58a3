package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoreply/config"
	"autoreply/kvstore"
	"autoreply/models"
)

func setupConversationsService(timeout time.Duration) (*ConversationsService, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := kvstore.NewMemoryStoreWithClock(clock)
	service := NewConversationsServiceWithClock(store, config.ConversationConfig{
		InactivityTimeout: timeout,
		ContextWindow:     10,
	}, clock)
	return service, &now
}

func TestConversationLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("StartCreatesActiveSession", func(t *testing.T) {
		service, _ := setupConversationsService(30 * time.Minute)

		session, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		assert.True(t, session.IsActive)
		assert.Empty(t, session.Turns)

		active, err := service.IsInActiveConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("StartIsIdempotent", func(t *testing.T) {
		service, _ := setupConversationsService(30 * time.Minute)

		_, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)

		err = service.AddMessage(ctx, "own_1", "U1", "ar_1", models.ConversationRoleUser, "hello")
		require.NoError(t, err)

		// Starting again must not wipe the existing session
		session, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		assert.Len(t, session.Turns, 1)
	})

	t.Run("AddMessageAppendsTurns", func(t *testing.T) {
		service, _ := setupConversationsService(30 * time.Minute)

		_, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)

		require.NoError(t, service.AddMessage(ctx, "own_1", "U1", "ar_1", models.ConversationRoleUser, "hi"))
		require.NoError(t, service.AddMessage(ctx, "own_1", "U1", "ar_1", models.ConversationRoleAssistant, "hello!"))

		maybeSession, err := service.GetSession(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		require.True(t, maybeSession.IsPresent())

		turns := maybeSession.MustGet().Turns
		require.Len(t, turns, 2)
		assert.Equal(t, models.ConversationRoleUser, turns[0].Role)
		assert.Equal(t, "hi", turns[0].Text)
		assert.Equal(t, models.ConversationRoleAssistant, turns[1].Role)
	})

	t.Run("AddMessageWithoutSessionIsNoOp", func(t *testing.T) {
		service, _ := setupConversationsService(30 * time.Minute)

		err := service.AddMessage(ctx, "own_1", "U1", "ar_1", models.ConversationRoleUser, "hi")
		require.NoError(t, err)

		maybeSession, err := service.GetSession(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		assert.False(t, maybeSession.IsPresent())
	})

	t.Run("EndRemovesSession", func(t *testing.T) {
		service, _ := setupConversationsService(30 * time.Minute)

		_, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)

		require.NoError(t, service.EndConversation(ctx, "own_1", "U1", "ar_1"))

		active, err := service.IsInActiveConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("SessionsAreKeyedPerOwnerActorRule", func(t *testing.T) {
		service, _ := setupConversationsService(30 * time.Minute)

		_, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)

		active, err := service.IsInActiveConversation(ctx, "own_1", "U2", "ar_1")
		require.NoError(t, err)
		assert.False(t, active)

		active, err = service.IsInActiveConversation(ctx, "own_1", "U1", "ar_2")
		require.NoError(t, err)
		assert.False(t, active)
	})
}

func TestInactivityExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("IdleSessionExpires", func(t *testing.T) {
		service, now := setupConversationsService(30 * time.Minute)

		_, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)

		*now = now.Add(31 * time.Minute)

		active, err := service.IsInActiveConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("ActivityRefreshesTheWindow", func(t *testing.T) {
		service, now := setupConversationsService(30 * time.Minute)

		_, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)

		*now = now.Add(20 * time.Minute)
		require.NoError(t, service.AddMessage(ctx, "own_1", "U1", "ar_1", models.ConversationRoleUser, "still here"))

		// 25 minutes after the last activity, still inside the window
		*now = now.Add(25 * time.Minute)
		active, err := service.IsInActiveConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("SweepEndsIdleSessions", func(t *testing.T) {
		service, now := setupConversationsService(30 * time.Minute)

		_, err := service.StartConversation(ctx, "own_1", "U1", "ar_1")
		require.NoError(t, err)
		_, err = service.StartConversation(ctx, "own_1", "U2", "ar_1")
		require.NoError(t, err)

		*now = now.Add(31 * time.Minute)

		removed, err := service.SweepInactive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
	})
}

func TestRecentTurns(t *testing.T) {
	session := &models.ConversationSession{}
	for i := 0; i < 15; i++ {
		role := models.ConversationRoleUser
		if i%2 == 1 {
			role = models.ConversationRoleAssistant
		}
		session.Turns = append(session.Turns, models.ConversationTurn{Role: role, Text: "t"})
	}

	recent := session.RecentTurns(10)
	assert.Len(t, recent, 10)
	assert.Equal(t, session.Turns[5], recent[0])

	assert.Len(t, session.RecentTurns(0), 15)
	assert.Len(t, session.RecentTurns(20), 15)
}
