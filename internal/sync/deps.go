package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/localfs"
	"github.com/emnt/spacesync/internal/pathmap"
	"github.com/emnt/spacesync/internal/scheduler"
	"github.com/emnt/spacesync/internal/settings"
	"github.com/emnt/spacesync/internal/statestore"
	"github.com/emnt/spacesync/internal/storage"
)

// StorageResolver hands out the current object store and the settings it was built from.
type StorageResolver interface {
	Resolve(ctx context.Context) (storage.ObjectStore, settings.Settings, error)
}

// Trigger is the periodic tick source that drives batches.
type Trigger interface {
	Handle(event string, h scheduler.Handler)
	Arm(ctx context.Context, event string, interval time.Duration) error
	Disarm(ctx context.Context, event string) error
	IsArmed(event string) bool
}

type Deps struct {
	Store   statestore.Store
	Catalog catalog.Catalog
	Storage StorageResolver
	Files   *localfs.FS
	Trigger Trigger
}

type Options struct {
	BatchSize    int
	Interval     time.Duration
	TransientTTL time.Duration
	CountTimeout time.Duration
	// LockDir holds the cross-process batch lock files. Empty disables them.
	LockDir string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.BatchSize <= 0 {
		out.BatchSize = 10
	}
	if out.Interval <= 0 {
		out.Interval = 5 * time.Second
	}
	if out.TransientTTL <= 0 {
		out.TransientTTL = time.Hour
	}
	if out.CountTimeout <= 0 {
		out.CountTimeout = 2 * time.Minute
	}
	return out
}

// target bundles what a batch needs from the current settings.
type target struct {
	store    storage.ObjectStore
	settings settings.Settings
	mapper   *pathmap.Mapper
}

func resolveTarget(ctx context.Context, r StorageResolver, uploadsDir string) (*target, error) {
	store, s, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	mapper, err := pathmap.New(uploadsDir, s.UseSubfolder, s.SubfolderName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrNotConfigured, err)
	}
	return &target{store: store, settings: s, mapper: mapper}, nil
}
