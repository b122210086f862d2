package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	"github.com/yungbote/observer-backend/internal/narrative"
	"github.com/yungbote/observer-backend/internal/realtime"
)

func newChatHarness(t *testing.T, delay int) (*harness, ChatService) {
	t.Helper()
	h := newHarness(t)
	matcher, err := NewNpcMatcher([]narrative.Persona{{
		Username:        "handler",
		Priority:        1,
		ColorTheme:      "teal",
		TriggerKeywords: []string{"help"},
		ResponseDelayMs: narrative.DelayRange{Min: delay, Max: delay},
		Responses:       []string{"Status nominal."},
	}}, rand.NewSource(3))
	require.NoError(t, err)
	chat := NewChatService(testutil.Logger(t), h.chats, h.events, matcher, h.emit)
	t.Cleanup(chat.Close)
	return h, chat
}

func TestPostMessageGrantsXPAndSchedulesReply(t *testing.T) {
	h, chat := newChatHarness(t, 10)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "poster", "ops")

	res, err := chat.PostMessage(ctx, "lobby", u.Username, u.ID, "  can someone help?  ")
	require.NoError(t, err)
	require.Equal(t, "can someone help?", res.Message.Content)
	require.NotNil(t, res.XP)
	require.Equal(t, int64(2), res.XP.TotalXP)
	require.True(t, res.Npc.Responded)
	require.Equal(t, "handler", res.Npc.Npc)
	require.Equal(t, 10, res.Npc.DelayMs)

	require.Eventually(t, func() bool {
		msgs, err := chat.ListMessages(ctx, "lobby", 10)
		return err == nil && len(msgs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	msgs, err := chat.ListMessages(ctx, "lobby", 10)
	require.NoError(t, err)
	require.False(t, msgs[0].IsNPC)
	require.True(t, msgs[1].IsNPC)
	require.Equal(t, "handler", msgs[1].Sender)
	require.Equal(t, "Status nominal.", msgs[1].Content)
	require.Equal(t, 2, h.emit.count(realtime.SSEEventChatMessage))
}

func TestPostMessageWithoutTrigger(t *testing.T) {
	h, chat := newChatHarness(t, 10)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "quiet", "ops")

	res, err := chat.PostMessage(ctx, "lobby", u.Username, u.ID, "just passing through")
	require.NoError(t, err)
	require.False(t, res.Npc.Responded)

	// a sender posing as the persona never triggers it
	res, err = chat.PostMessage(ctx, "lobby", "Handler", "", "help")
	require.NoError(t, err)
	require.False(t, res.Npc.Responded)
	require.Nil(t, res.XP)
}

func TestCloseCancelsPendingReplies(t *testing.T) {
	h, chat := newChatHarness(t, 60_000)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "impatient", "ops")

	res, err := chat.PostMessage(ctx, "lobby", u.Username, u.ID, "help")
	require.NoError(t, err)
	require.True(t, res.Npc.Responded)

	chat.Close()
	require.False(t, chat.OnMessage(ctx, "lobby", u.Username, "help", false).Responded)

	msgs, err := chat.ListMessages(ctx, "lobby", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestPostMessageValidation(t *testing.T) {
	_, chat := newChatHarness(t, 10)
	ctx := context.Background()

	_, err := chat.PostMessage(ctx, "Bad Channel", "p", "", "hi")
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = chat.PostMessage(ctx, "lobby", "p", "", "   ")
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = chat.PostMessage(ctx, "lobby", "", "", "hi")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
