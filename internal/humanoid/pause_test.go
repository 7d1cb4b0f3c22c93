package humanoid

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPauseGateWaitBlocksUntilClear(t *testing.T) {
	gate := NewPauseGate()
	require.NoError(t, gate.Wait(context.Background()), "running gate must not block")

	gate.Request()
	require.True(t, gate.Requested())

	done := make(chan error, 1)
	go func() {
		done <- gate.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while gate was paused")
	case <-time.After(50 * time.Millisecond):
	}

	gate.Clear()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Clear")
	}
}

func TestPauseGateWaitHonorsContext(t *testing.T) {
	gate := NewPauseGate()
	gate.Request()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, gate.Wait(ctx), context.DeadlineExceeded)
}

func TestPauseGateIdempotent(t *testing.T) {
	gate := NewPauseGate()
	gate.Request()
	gate.Request()
	gate.Clear()
	gate.Clear()
	require.False(t, gate.Requested())
}

func TestWatchPauseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pause")
	gate := NewPauseGate()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, WatchPauseFile(ctx, path, gate, zap.NewNop()))

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.Eventually(t, gate.Requested, 2*time.Second, 10*time.Millisecond,
		"creating the pause file should pause the gate")

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return !gate.Requested() }, 2*time.Second, 10*time.Millisecond,
		"removing the pause file should resume the gate")
}

func TestWatchPauseFilePreexisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pause")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	gate := NewPauseGate()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, WatchPauseFile(ctx, path, gate, zap.NewNop()))
	require.True(t, gate.Requested(), "pause file present at startup must pause immediately")
}
