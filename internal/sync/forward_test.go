package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/settings"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForward_TwentyFiveAssetsInThreeBatches(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	for i := range 25 {
		h.addLocalAsset(fmt.Sprintf("2024/01/img-%02d.jpg", i))
	}

	require.NoError(t, h.orch.StartForward(h.ctx))
	assert.True(t, h.enabled())
	assert.True(t, h.sched.IsArmed(EventForward))

	p := h.progress()
	assert.Equal(t, DirectionForward, p.Direction)
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 0, p.Progress)
	assert.False(t, p.Complete)

	var seen []int
	for range 3 {
		require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))
		seen = append(seen, h.progress().Progress)
	}
	assert.Equal(t, []int{10, 20, 25}, seen)

	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))
	p = h.progress()
	assert.True(t, p.Complete)
	assert.Equal(t, DirectionNone, p.Direction)
	assert.False(t, h.sched.IsArmed(EventForward))
	// forward completion is the steady state, sync stays on
	assert.True(t, h.enabled())

	assert.Len(t, h.remote.Keys(), 25)
	for i := range 25 {
		assert.False(t, h.files.Exists(fmt.Sprintf("2024/01/img-%02d.jpg", i)))
	}

	assets, err := h.catalog.List(h.ctx, 0, 100)
	require.NoError(t, err)
	for _, a := range assets {
		assert.Equal(t, catalog.LocationRemote, a.Location)
	}
}

func TestForward_UploadsSizesWithContentTypeAndACL(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("2024/01/photo.jpg", "photo-150x150.jpg", "photo-300x200.png")

	require.NoError(t, h.orch.StartForward(h.ctx))
	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))

	assert.Equal(t, []string{
		"wp-content/uploads/2024/01/photo-150x150.jpg",
		"wp-content/uploads/2024/01/photo-300x200.png",
		"wp-content/uploads/2024/01/photo.jpg",
	}, h.remote.Keys())

	data, contentType, acl, ok := h.remote.Object("wp-content/uploads/2024/01/photo-300x200.png")
	require.True(t, ok)
	assert.Equal(t, "data:2024/01/photo-300x200.png", string(data))
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, storage.ACLPublicRead, acl)
}

func TestForward_SubfolderPrefix(t *testing.T) {
	h := newHarness(t, settings.Settings{
		Driver: settings.DriverMemory, SpaceName: "media", UseSubfolder: true, SubfolderName: "example.com",
	})
	h.addLocalAsset("2024/01/photo.jpg")

	require.NoError(t, h.orch.StartForward(h.ctx))
	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))

	assert.Equal(t, []string{"example.com/wp-content/uploads/2024/01/photo.jpg"}, h.remote.Keys())
}

func TestForward_FailedUploadKeepsLocalFileAndAdvances(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	h.addLocalAsset("b.jpg")
	h.remote.FailOn("put", "wp-content/uploads/a.jpg", errors.New("503 slow down"))

	require.NoError(t, h.orch.StartForward(h.ctx))
	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))

	assert.True(t, h.files.Exists("a.jpg"))
	assert.False(t, h.files.Exists("b.jpg"))
	assert.Equal(t, []string{"wp-content/uploads/b.jpg"}, h.remote.Keys())
	// progress counts assets, not successful files
	assert.Equal(t, 2, h.progress().Progress)

	a, err := h.catalog.FindByFile(h.ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, catalog.LocationLocal, a.Location)
}

func TestForward_FailedVerificationKeepsLocalFile(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	h.remote.FailOn("head", "", errors.New("timeout"))

	require.NoError(t, h.orch.StartForward(h.ctx))
	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))

	assert.True(t, h.files.Exists("a.jpg"))
	assert.Equal(t, 1, h.progress().Progress)
}

func TestForward_SkipsMissingFiles(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	a := h.addLocalAsset("a.jpg", "a-small.jpg")
	require.NoError(t, h.files.Delete("a.jpg"))

	require.NoError(t, h.orch.StartForward(h.ctx))
	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))

	assert.Equal(t, []string{"wp-content/uploads/a-small.jpg"}, h.remote.Keys())
	got, err := h.catalog.Get(h.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.LocationRemote, got.Location)
}

func TestForward_NotConfiguredLeavesStateAlone(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	require.NoError(t, h.orch.StartForward(h.ctx))

	h.resolver.err = storage.ErrNotConfigured
	err := h.orch.Forward().ProcessBatch(h.ctx)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)

	p := h.progress()
	assert.Equal(t, DirectionForward, p.Direction)
	assert.Equal(t, 0, p.Progress)
	assert.True(t, h.files.Exists("a.jpg"))
	assert.True(t, h.sched.IsArmed(EventForward))
}

func TestForward_ExpiredPassIsAbandoned(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	require.NoError(t, h.orch.StartForward(h.ctx))

	require.NoError(t, h.store.DeleteTransient(h.ctx, "sync_in_progress"))
	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))

	assert.True(t, h.progress().Complete)
	assert.False(t, h.sched.IsArmed(EventForward))
	assert.True(t, h.files.Exists("a.jpg"))
	_, ok, err := h.store.GetOption(h.ctx, "sync_total")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForward_CancelDuringBatchDiscardsResult(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	h.addLocalAsset("b.jpg")
	require.NoError(t, h.orch.StartForward(h.ctx))

	cancelled := false
	h.resolver.store = &callbackStore{ObjectStore: h.remote, beforePut: func() {
		if !cancelled {
			cancelled = true
			require.NoError(t, h.orch.Cancel(h.ctx))
		}
	}}

	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))

	p := h.progress()
	assert.True(t, p.Complete)
	assert.Equal(t, DirectionNone, p.Direction)
	assert.False(t, h.enabled())
	_, ok, err := h.store.GetTransient(h.ctx, "sync_offset")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForward_ConcurrentBatchIsRejected(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.addLocalAsset("a.jpg")
	require.NoError(t, h.orch.StartForward(h.ctx))

	var inner error
	h.resolver.store = &callbackStore{ObjectStore: h.remote, beforePut: func() {
		inner = h.orch.Forward().ProcessBatch(h.ctx)
	}}

	require.NoError(t, h.orch.Forward().ProcessBatch(h.ctx))
	assert.ErrorIs(t, inner, ErrBatchInProgress)
	assert.Equal(t, 1, h.progress().Progress)
}
