package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/emnt/spacesync/internal/settings"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_SingleActiveDirection(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	h.putRemote("wp-content/uploads/b.jpg", "b")

	assertOne := func() {
		t.Helper()
		fwd, err := h.orch.state.snapshot(h.ctx, DirectionForward)
		require.NoError(t, err)
		rev, err := h.orch.state.snapshot(h.ctx, DirectionReverse)
		require.NoError(t, err)
		assert.False(t, fwd.InProgress && rev.InProgress)
		assert.False(t, h.sched.IsArmed(EventForward) && h.sched.IsArmed(EventReverse))
		assert.Equal(t, fwd.InProgress, h.sched.IsArmed(EventForward))
		assert.Equal(t, rev.InProgress, h.sched.IsArmed(EventReverse))
	}

	steps := []func() error{
		func() error { return h.orch.StartForward(h.ctx) },
		func() error { return h.orch.StartReverse(h.ctx) },
		func() error { return h.orch.StartReverse(h.ctx) },
		func() error { return h.orch.StartForward(h.ctx) },
		func() error { return h.orch.Cancel(h.ctx) },
		func() error { return h.orch.StartReverse(h.ctx) },
		func() error { return h.orch.Cancel(h.ctx) },
		func() error { return h.orch.Cancel(h.ctx) },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assertOne()
	}
}

func TestOrchestrator_StartForwardRestartsPass(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	for i := range 15 {
		h.addLocalAsset(fmt.Sprintf("f-%02d.jpg", i))
	}

	require.NoError(t, h.orch.StartForward(h.ctx))
	first := h.progress().Pass
	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))
	assert.Equal(t, 10, h.progress().Progress)

	require.NoError(t, h.orch.StartForward(h.ctx))
	p := h.progress()
	assert.NotEqual(t, first, p.Pass)
	assert.Equal(t, 0, p.Progress)
	_, ok, err := h.store.GetTransient(h.ctx, "sync_offset")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrchestrator_CancelIsIdempotent(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	require.NoError(t, h.orch.Cancel(h.ctx))

	h.addLocalAsset("a.jpg")
	require.NoError(t, h.orch.StartForward(h.ctx))
	require.NoError(t, h.orch.CancelSync(h.ctx))
	require.NoError(t, h.orch.CancelSync(h.ctx))

	p := h.progress()
	assert.True(t, p.Complete)
	assert.Equal(t, DirectionNone, p.Direction)
	assert.False(t, h.enabled())
	assert.False(t, h.sched.IsArmed(EventForward))
	assert.False(t, h.sched.IsArmed(EventReverse))
}

func TestOrchestrator_DisableWithEverythingLocal(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	require.NoError(t, h.store.SetOption(h.ctx, KeyEnabled, []byte("true")))

	ok, err := h.orch.CanDisableForward(h.ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	mode, err := h.orch.DisableSync(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, DisableModeDisabled, mode)
	assert.False(t, h.enabled())
	assert.True(t, h.progress().Complete)
}

func TestOrchestrator_DisableWithMissingFileStartsReverse(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	h.offloaded("b.jpg")
	require.NoError(t, h.orch.EnableSync(h.ctx))

	ok, err := h.orch.CanDisableForward(h.ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	mode, err := h.orch.DisableSync(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, DisableModeReverse, mode)

	// the flag only drops once the reverse pass drains
	assert.True(t, h.enabled())
	assert.Equal(t, DirectionReverse, h.progress().Direction)

	ok, err = h.orch.CanDisableForward(h.ctx)
	require.NoError(t, err)
	assert.False(t, ok, "reverse in progress")

	require.NoError(t, h.orch.Reverse().ProcessBatch(h.ctx))
	require.NoError(t, h.orch.Reverse().ProcessBatch(h.ctx))
	assert.False(t, h.enabled())
	assert.True(t, h.files.Exists("b.jpg"))
}

func TestOrchestrator_StartForwardFailsWhenCountFails(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.putRemote("wp-content/uploads/a.jpg", "a")
	require.NoError(t, h.orch.StartReverse(h.ctx))

	h.orch.deps.Catalog = failingCatalog{h.catalog}
	assert.Error(t, h.orch.StartForward(h.ctx))

	// nothing changed
	assert.Equal(t, DirectionReverse, h.progress().Direction)
	assert.True(t, h.sched.IsArmed(EventReverse))
}

func TestOrchestrator_StartReverseAbortsWhenCountFails(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	require.NoError(t, h.orch.StartForward(h.ctx))

	h.remote.FailOn("list", "wp-content/uploads/", errors.New("denied"))
	assert.Error(t, h.orch.StartReverse(h.ctx))
	assert.Equal(t, DirectionForward, h.progress().Direction)
	assert.True(t, h.sched.IsArmed(EventForward))

	h.resolver.err = storage.ErrNotConfigured
	assert.ErrorIs(t, h.orch.StartReverse(h.ctx), storage.ErrNotConfigured)
}

func TestOrchestrator_GetProgressIdle(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	p := h.progress()
	assert.Equal(t, &Progress{Direction: DirectionNone, Complete: true}, p)
}

func TestOrchestrator_TicksDriveBatches(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	require.NoError(t, h.orch.StartForward(h.ctx))

	// handlers registered on the trigger run one batch each
	h.orch.tick(DirectionForward, h.orch.Forward().ProcessBatch)(context.Background())
	assert.Equal(t, 1, h.progress().Progress)
	h.orch.tick(DirectionForward, h.orch.Forward().ProcessBatch)(context.Background())
	assert.True(t, h.progress().Complete)
}
