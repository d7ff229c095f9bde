package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/storage"
)

const partialSuffix = ".spacesync-part"

// ReverseEngine moves objects from the Space back into the uploads directory,
// one listing page per tick, tracked by the last listed key.
type ReverseEngine struct {
	state *syncState
	deps  Deps
	opts  Options
	guard *batchGuard
}

func newReverseEngine(state *syncState, deps Deps, opts Options) (*ReverseEngine, error) {
	guard, err := newBatchGuard(opts.LockDir, DirectionReverse)
	if err != nil {
		return nil, err
	}
	return &ReverseEngine{state: state, deps: deps, opts: opts, guard: guard}, nil
}

// ProcessBatch restores the next page of objects. An empty page completes the
// pass and turns sync off.
func (e *ReverseEngine) ProcessBatch(ctx context.Context) error {
	release, err := e.guard.acquire()
	if err != nil {
		return err
	}
	defer release()

	snap, err := e.state.snapshot(ctx, DirectionReverse)
	if err != nil {
		return fmt.Errorf("load reverse state: %w", err)
	}
	if !snap.InProgress {
		slog.Info("reverse sync not in progress, stopping")
		return e.stop(ctx)
	}

	t, err := resolveTarget(ctx, e.deps.Storage, e.deps.Files.Root())
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			slog.Warn("reverse sync skipped, storage not configured")
		}
		return err
	}

	marker, err := getCursor[string](ctx, e.state, DirectionReverse)
	if err != nil {
		return fmt.Errorf("load marker: %w", err)
	}

	prefix := t.mapper.Prefix()
	listing, err := t.store.List(ctx, prefix, marker, int32(e.opts.BatchSize))
	if err != nil {
		slog.Error("reverse sync list failed", "prefix", prefix, "marker", marker, "error", err)
		return err
	}

	if len(listing.Keys) == 0 {
		done, err := e.state.finish(ctx, DirectionReverse, snap.Pass, true)
		if err != nil {
			return fmt.Errorf("finish reverse sync: %w", err)
		}
		if done {
			slog.Info("reverse sync complete, sync disabled", "total", snap.Total)
			return e.deps.Trigger.Disarm(ctx, EventReverse)
		}
		return nil
	}

	tStart := time.Now()
	restored := 0
	for _, key := range listing.Keys {
		if isDirectoryKey(key) {
			continue
		}
		if e.restoreObject(ctx, t, key) {
			restored++
		}
	}

	last := listing.Keys[len(listing.Keys)-1]
	next, ok, err := e.state.commit(ctx, DirectionReverse, snap.Pass, restored, last)
	if err != nil {
		return fmt.Errorf("commit reverse batch: %w", err)
	}
	if !ok {
		slog.Info("reverse sync pass changed during batch, discarding progress", "marker", marker)
		return nil
	}

	slog.Info("reverse sync batch",
		"listed", len(listing.Keys),
		"restored", restored,
		"marker", last,
		"progress", next.Progress,
		"total", next.Total,
		"took", time.Since(tStart),
	)
	return nil
}

func (e *ReverseEngine) restoreObject(ctx context.Context, t *target, key string) bool {
	rel, err := t.mapper.RelativePath(key)
	if err != nil {
		slog.Warn("skipping foreign key", "key", key, "error", err)
		return false
	}
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")

	part := rel + partialSuffix
	if err := e.download(ctx, t, key, part); err != nil {
		slog.Error("download failed", "key", key, "file", rel, "error", err)
		return false
	}

	// verify before replacing so an empty object never clobbers a local copy
	if err := verifyLocal(e.deps.Files, part); err != nil {
		_ = e.deps.Files.Delete(part)
		slog.Error("download not verified, keeping remote object", "key", key, "file", rel, "error", err)
		return false
	}
	if err := e.deps.Files.Rename(part, rel); err != nil {
		_ = e.deps.Files.Delete(part)
		slog.Error("move download into place", "key", key, "file", rel, "error", err)
		return false
	}
	if err := verifyLocal(e.deps.Files, rel); err != nil {
		slog.Error("download not verified, keeping remote object", "key", key, "file", rel, "error", err)
		return false
	}

	if err := t.store.Delete(ctx, key); err != nil {
		slog.Error("delete remote object", "key", key, "error", err)
		return false
	}

	asset, err := e.deps.Catalog.FindByFile(ctx, rel)
	switch {
	case errors.Is(err, catalog.ErrAssetNotFound):
	case err != nil:
		slog.Warn("find asset", "file", rel, "error", err)
	case asset.Location != catalog.LocationLocal:
		if err := e.deps.Catalog.SetLocation(ctx, asset.ID, catalog.LocationLocal); err != nil {
			slog.Warn("tag asset local", "asset", asset.ID, "error", err)
		}
	}

	slog.Debug("restored", "key", key, "file", rel)
	return true
}

// download writes key to the local file dest, removing it again on failure.
func (e *ReverseEngine) download(ctx context.Context, t *target, key, dest string) error {
	files := e.deps.Files
	if err := files.EnsureDir(path.Dir(dest)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}

	f, err := files.Create(dest)
	if err != nil {
		return err
	}

	_, err = t.store.Get(ctx, key, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = files.Delete(dest)
		return err
	}
	return nil
}

func (e *ReverseEngine) stop(ctx context.Context) error {
	if err := e.state.clear(ctx, DirectionReverse); err != nil {
		return err
	}
	return e.deps.Trigger.Disarm(ctx, EventReverse)
}

// isDirectoryKey matches folder placeholder objects such as the bare prefix.
func isDirectoryKey(key string) bool {
	return strings.HasSuffix(key, "/")
}
