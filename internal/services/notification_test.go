package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/realtime"
)

func TestSendLevelTargetReachesOnlyQualifiedUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	levels := map[string]int{"l0": 0, "l2": 2, "l3": 3, "l5": 5}
	ids := map[string]string{}
	for name, lvl := range levels {
		u := testutil.SeedUser(t, ctx, h.db, name, "ops")
		ids[name] = u.ID
		if lvl > 0 {
			testutil.SeedProgress(t, ctx, h.db, u.ID, DefaultLevelTable().Threshold(lvl), lvl)
		}
	}
	inactive := testutil.SeedInactiveUser(t, ctx, h.db, "gone", "ops")
	testutil.SeedProgress(t, ctx, h.db, inactive.ID, 5000, 5)

	res, err := h.notify.Send(ctx, SendNotificationRequest{
		Target: "level:3",
		Type:   "alert",
		Title:  "Clearance review",
		Body:   "Report to the lower stacks.",
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.ResolvedCount)
	require.Equal(t, 2, res.SentCount)
	require.Zero(t, res.FailedCount)

	var got []string
	for name, id := range ids {
		n, err := h.notify.UnreadCount(ctx, id)
		require.NoError(t, err)
		if n > 0 {
			got = append(got, name)
		}
	}
	sort.Strings(got)
	require.Equal(t, []string{"l3", "l5"}, got)

	batch, err := h.notes.CountByBatch(dbctx.From(ctx), res.BatchID)
	require.NoError(t, err)
	require.Equal(t, int64(2), batch)
	require.Equal(t, 2, h.emit.count(realtime.SSEEventNotification))
}

func TestSendUnknownUserIsNotAnError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.notify.Send(ctx, SendNotificationRequest{
		Target: "user:U1",
		Type:   "story",
		Title:  "Hello",
		Body:   "Anyone there?",
	})
	require.NoError(t, err)
	require.Zero(t, res.SentCount)
	require.Zero(t, res.ResolvedCount)

	n, err := h.notes.CountByBatch(dbctx.From(ctx), res.BatchID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSendDivisionAndAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedUser(t, ctx, h.db, "a", "research")
	testutil.SeedUser(t, ctx, h.db, "b", "research")
	testutil.SeedUser(t, ctx, h.db, "c", "security")
	testutil.SeedInactiveUser(t, ctx, h.db, "d", "research")

	res, err := h.notify.Send(ctx, SendNotificationRequest{Target: "division:research", Type: "memo", Title: "Memo", Body: "b"})
	require.NoError(t, err)
	require.Equal(t, 2, res.SentCount)

	res, err = h.notify.Send(ctx, SendNotificationRequest{Target: "all", Type: "memo", Title: "Memo", Body: "b"})
	require.NoError(t, err)
	require.Equal(t, 3, res.SentCount)
}

func TestSendRejectsMalformedInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, target := range []string{"", "level:x", "division:", "team:red", "user:"} {
		_, err := h.notify.Send(ctx, SendNotificationRequest{Target: target, Type: "t", Title: "x", Body: "y"})
		require.ErrorIs(t, err, ErrInvalidTarget, "target %q", target)
	}
	_, err := h.notify.Send(ctx, SendNotificationRequest{Target: "all", Type: "t", Title: "", Body: "y"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNotificationReadAndExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "reader", "ops")
	other := testutil.SeedUser(t, ctx, h.db, "other", "ops")

	_, err := h.notify.Send(ctx, SendNotificationRequest{Target: "user:" + u.ID, Type: "t", Title: "keep", Body: "b"})
	require.NoError(t, err)
	_, err = h.notify.Send(ctx, SendNotificationRequest{Target: "user:" + u.ID, Type: "t", Title: "fleeting", Body: "b", TTL: time.Millisecond})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	list, err := h.notify.ListForUser(ctx, u.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "keep", list[0].Title)

	// another user cannot mark it read
	n, err := h.notify.MarkRead(ctx, other.ID, []string{list[0].ID})
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = h.notify.MarkRead(ctx, u.ID, []string{list[0].ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	unread, err := h.notify.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, unread)
}
