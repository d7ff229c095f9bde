package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/storage"
)

// ForwardEngine moves media files from the uploads directory to the Space,
// one batch of assets per tick, tracked by an offset into the catalog.
type ForwardEngine struct {
	state *syncState
	deps  Deps
	opts  Options
	guard *batchGuard
}

func newForwardEngine(state *syncState, deps Deps, opts Options) (*ForwardEngine, error) {
	guard, err := newBatchGuard(opts.LockDir, DirectionForward)
	if err != nil {
		return nil, err
	}
	return &ForwardEngine{state: state, deps: deps, opts: opts, guard: guard}, nil
}

// ProcessBatch migrates the next batch of assets. An empty batch completes the pass.
func (e *ForwardEngine) ProcessBatch(ctx context.Context) error {
	release, err := e.guard.acquire()
	if err != nil {
		return err
	}
	defer release()

	snap, err := e.state.snapshot(ctx, DirectionForward)
	if err != nil {
		return fmt.Errorf("load forward state: %w", err)
	}
	if !snap.InProgress {
		slog.Info("forward sync not in progress, stopping")
		return e.stop(ctx)
	}

	t, err := resolveTarget(ctx, e.deps.Storage, e.deps.Files.Root())
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			slog.Warn("forward sync skipped, storage not configured")
		}
		return err
	}

	offset, err := getCursor[int](ctx, e.state, DirectionForward)
	if err != nil {
		return fmt.Errorf("load offset: %w", err)
	}

	assets, err := e.deps.Catalog.List(ctx, offset, e.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("list assets: %w", err)
	}

	if len(assets) == 0 {
		done, err := e.state.finish(ctx, DirectionForward, snap.Pass, false)
		if err != nil {
			return fmt.Errorf("finish forward sync: %w", err)
		}
		if done {
			slog.Info("forward sync complete", "total", snap.Total)
			return e.deps.Trigger.Disarm(ctx, EventForward)
		}
		return nil
	}

	tStart := time.Now()
	uploaded := 0
	for _, asset := range assets {
		uploaded += e.migrateAsset(ctx, t, asset)
	}

	next, ok, err := e.state.commit(ctx, DirectionForward, snap.Pass, len(assets), offset+len(assets))
	if err != nil {
		return fmt.Errorf("commit forward batch: %w", err)
	}
	if !ok {
		slog.Info("forward sync pass changed during batch, discarding progress", "offset", offset)
		return nil
	}

	slog.Info("forward sync batch",
		"offset", offset,
		"assets", len(assets),
		"files", uploaded,
		"progress", next.Progress,
		"total", next.Total,
		"took", time.Since(tStart),
	)
	return nil
}

// migrateAsset pushes every local file of asset and returns how many were moved.
func (e *ForwardEngine) migrateAsset(ctx context.Context, t *target, asset *catalog.MediaAsset) int {
	moved := 0
	for _, rel := range asset.Files() {
		if e.migrateFile(ctx, t, rel) {
			moved++
		}
	}

	for _, rel := range asset.Files() {
		if e.deps.Files.Exists(rel) {
			return moved
		}
	}
	if asset.Location != catalog.LocationRemote {
		if err := e.deps.Catalog.SetLocation(ctx, asset.ID, catalog.LocationRemote); err != nil {
			slog.Warn("tag asset remote", "asset", asset.ID, "error", err)
		}
	}
	return moved
}

func (e *ForwardEngine) migrateFile(ctx context.Context, t *target, rel string) bool {
	if !e.deps.Files.Exists(rel) {
		return false
	}

	key := t.mapper.StorageKey(rel)
	if err := PushFile(ctx, t.store, e.deps.Files, rel, key); err != nil {
		slog.Error("upload failed", "file", rel, "key", key, "error", err)
		return false
	}

	if err := verifyRemote(ctx, t.store, key); err != nil {
		slog.Error("upload not verified, keeping local file", "file", rel, "key", key, "error", err)
		return false
	}

	if err := e.deps.Files.Delete(rel); err != nil {
		slog.Error("delete local file", "file", rel, "error", err)
		return false
	}
	slog.Debug("uploaded", "file", rel, "key", key)
	return true
}

func (e *ForwardEngine) stop(ctx context.Context) error {
	if err := e.state.clear(ctx, DirectionForward); err != nil {
		return err
	}
	return e.deps.Trigger.Disarm(ctx, EventForward)
}
