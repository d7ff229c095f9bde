// Package media hooks the sync state into how new uploads are stored and how
// asset URLs are rendered.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/localfs"
	"github.com/emnt/spacesync/internal/pathmap"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/emnt/spacesync/internal/sync"
	"github.com/emnt/spacesync/internal/utils"
)

// SyncStatus reports the operator-facing sync state.
type SyncStatus interface {
	Enabled(ctx context.Context) (bool, error)
	ReverseRunning(ctx context.Context) (bool, error)
}

// Uploader pushes newly stored assets straight to the Space while sync is enabled.
type Uploader struct {
	status  SyncStatus
	storage sync.StorageResolver
	catalog catalog.Catalog
	files   *localfs.FS
}

func NewUploader(status SyncStatus, resolver sync.StorageResolver, cat catalog.Catalog, files *localfs.FS) *Uploader {
	return &Uploader{status: status, storage: resolver, catalog: cat, files: files}
}

// OnAssetStored uploads every file of asset, removes the local copies and tags it remote.
// It does nothing when sync is off or no client is available.
func (u *Uploader) OnAssetStored(ctx context.Context, asset *catalog.MediaAsset) error {
	enabled, err := u.status.Enabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	store, s, err := u.storage.Resolve(ctx)
	if errors.Is(err, storage.ErrNotConfigured) {
		slog.Warn("upload offload skipped, storage not configured", "asset", asset.ID)
		return nil
	}
	if err != nil {
		return err
	}
	mapper, err := pathmap.New(u.files.Root(), s.UseSubfolder, s.SubfolderName)
	if err != nil {
		slog.Warn("upload offload skipped", "asset", asset.ID, "error", err)
		return nil
	}

	files := asset.Files()
	for _, rel := range files {
		if !u.files.Exists(rel) {
			continue
		}
		key := mapper.StorageKey(rel)
		if err := sync.PushFile(ctx, store, u.files, rel, key); err != nil {
			return fmt.Errorf("offload %s: %w", rel, err)
		}
		if err := u.files.Delete(rel); err != nil {
			slog.Warn("delete local copy", "file", rel, "error", err)
		}
	}

	if err := u.catalog.SetLocation(ctx, asset.ID, catalog.LocationRemote); err != nil {
		return fmt.Errorf("tag asset remote: %w", err)
	}
	asset.Location = catalog.LocationRemote
	slog.Info("asset offloaded", "asset", asset.ID, "files", len(files))
	return nil
}

// URLResolver renders the public URL of an asset's primary file.
type URLResolver struct {
	status     SyncStatus
	storage    sync.StorageResolver
	files      *localfs.FS
	uploadsURL string
}

func NewURLResolver(status SyncStatus, resolver sync.StorageResolver, files *localfs.FS, uploadsURL string) *URLResolver {
	return &URLResolver{status: status, storage: resolver, files: files, uploadsURL: uploadsURL}
}

// ResolveAssetURL points at the Space while sync is on, or while a reverse pass
// has not yet brought the file back. Otherwise it points at the local uploads URL.
func (r *URLResolver) ResolveAssetURL(ctx context.Context, asset *catalog.MediaAsset) (string, error) {
	remote, err := r.useRemote(ctx, asset)
	if err != nil {
		return "", err
	}
	if remote {
		_, s, err := r.storage.Resolve(ctx)
		switch {
		case errors.Is(err, storage.ErrNotConfigured):
		case err != nil:
			return "", err
		default:
			mapper, err := pathmap.New(r.files.Root(), s.UseSubfolder, s.SubfolderName)
			if err == nil {
				return s.PublicBaseURL() + mapper.StorageKey(asset.File), nil
			}
		}
	}
	return r.localURL(asset.File), nil
}

func (r *URLResolver) useRemote(ctx context.Context, asset *catalog.MediaAsset) (bool, error) {
	enabled, err := r.status.Enabled(ctx)
	if err != nil || enabled {
		return enabled, err
	}
	running, err := r.status.ReverseRunning(ctx)
	if err != nil || !running {
		return false, err
	}
	return !r.files.Exists(asset.File), nil
}

func (r *URLResolver) localURL(file string) string {
	return utils.JoinURL(r.uploadsURL, file)
}
