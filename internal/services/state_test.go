package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	types "github.com/yungbote/observer-backend/internal/domain"
)

func TestStateRejectsEngineOwnedVariables(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "kim", "ops")

	for _, key := range []string{types.VarTotalXP, types.VarAnomalyScore, types.VarObserverLoad} {
		_, err := h.state.IncrementVariable(ctx, u.ID, key, 1)
		require.ErrorIs(t, err, ErrInvalidArgument, key)
		require.ErrorIs(t, h.state.SetVariable(ctx, u.ID, key, 5), ErrInvalidArgument, key)
	}
	_, err := h.state.IncrementVariable(ctx, u.ID, "Bad Key", 1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStateConcurrentIncrements(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "lee", "ops")
	require.NoError(t, h.state.SetVariable(ctx, u.ID, "terminals_opened", 3))

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(d int64) {
			defer wg.Done()
			if _, err := h.state.IncrementVariable(ctx, u.ID, "terminals_opened", d); err != nil {
				t.Errorf("increment: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	vars, err := h.state.GetVariables(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3+55), vars["terminals_opened"])
}

func TestStateConcurrentXPKeepsProjectionInStep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "max", "ops")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		levelUps int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			change, err := h.state.AddXP(ctx, u.ID, 25)
			if err != nil {
				t.Errorf("add xp: %v", err)
				return
			}
			if change.LeveledUp {
				mu.Lock()
				levelUps++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	snap, err := h.state.Snapshot(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300), snap.TotalXP)
	require.Equal(t, 2, snap.Level)
	// 0->1 at 100 and 1->2 at 300, each observed by exactly one grant
	require.Equal(t, 2, levelUps)
	require.NotNil(t, snap.NextLevelXP)
	require.Equal(t, int64(600), *snap.NextLevelXP)
}

func TestStateFlagsLastWriteWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "ned", "ops")

	_, ok, err := h.state.GetFlag(ctx, u.ID, "door_open")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, h.state.SetFlag(ctx, u.ID, "door_open", "false", ""))
	require.NoError(t, h.state.SetFlag(ctx, u.ID, "door_open", "true", "admin"))

	v, ok, err := h.state.GetFlag(ctx, u.ID, "door_open")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "true", v)
}

func TestStateIncrementVariableClamped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, h.db, "ngo", "ops")

	v, err := h.state.IncrementVariableClamped(ctx, u.ID, "signal_strength", 8, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(8), v)

	v, err = h.state.IncrementVariableClamped(ctx, u.ID, "signal_strength", 8, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), v)

	v, err = h.state.IncrementVariableClamped(ctx, u.ID, "signal_strength", -25, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(0), v)

	_, err = h.state.IncrementVariableClamped(ctx, u.ID, "signal_strength", 1, 5, 1)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = h.state.IncrementVariableClamped(ctx, u.ID, types.VarAnomalyScore, 1, 0, 100)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
