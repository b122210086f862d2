package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	"github.com/yungbote/observer-backend/internal/narrative"
)

func TestNpcResponderDeliversAndStopCancelsRest(t *testing.T) {
	var delivered atomic.Int32
	r := NewNpcResponder(testutil.Logger(t), func(ctx context.Context, chatID string, p narrative.Persona, m NpcMatchResult) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return errors.New("delivery context has no deadline")
		}
		delivered.Add(1)
		return nil
	}, time.Second)

	persona := narrative.Persona{Username: "archivist"}
	require.True(t, r.Schedule("lobby", persona, NpcMatchResult{Responded: true, DelayMs: 1}))
	require.Eventually(t, func() bool { return delivered.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.True(t, r.Schedule("lobby", persona, NpcMatchResult{Responded: true, DelayMs: 60_000}))
	require.True(t, r.Schedule("ops", persona, NpcMatchResult{Responded: true, DelayMs: 60_000}))
	require.Equal(t, 2, r.Stop())
	require.Equal(t, 0, r.Stop())

	require.False(t, r.Schedule("lobby", persona, NpcMatchResult{Responded: true, DelayMs: 1}))
	require.Equal(t, int32(1), delivered.Load())
}
