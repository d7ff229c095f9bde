// Package daemon wires the sync engine, its stores and the control plane together.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/config"
	"github.com/emnt/spacesync/internal/db"
	"github.com/emnt/spacesync/internal/localfs"
	"github.com/emnt/spacesync/internal/media"
	"github.com/emnt/spacesync/internal/scheduler"
	"github.com/emnt/spacesync/internal/server"
	"github.com/emnt/spacesync/internal/settings"
	"github.com/emnt/spacesync/internal/statestore"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/emnt/spacesync/internal/sync"
	"github.com/emnt/spacesync/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

type Daemon struct {
	config *config.Config

	db        *sqlx.DB
	store     statestore.Store
	settings  *settings.Manager
	provider  *storage.Provider
	catalog   *catalog.SqliteCatalog
	files     *localfs.FS
	scheduler *scheduler.Scheduler
	sync      *sync.Orchestrator
	server    *server.Server

	stopTicks context.CancelFunc
}

func New(cfg *config.Config) (*Daemon, error) {
	if err := utils.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if !utils.DirExists(cfg.UploadsDir) {
		slog.Warn("uploads dir missing, creating", "path", cfg.UploadsDir)
		if err := utils.EnsureDir(cfg.UploadsDir); err != nil {
			return nil, fmt.Errorf("uploads dir: %w", err)
		}
	}

	database, err := db.NewSqliteDB(db.WithPath(cfg.StateDBPath()))
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	d := &Daemon{config: cfg, db: database}
	if err := d.init(context.Background()); err != nil {
		d.close()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) init(ctx context.Context) error {
	cfg := d.config

	store, err := openStateStore(ctx, cfg, d.db)
	if err != nil {
		return err
	}
	d.store = store

	d.catalog, err = catalog.NewSqliteCatalog(ctx, d.db)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	d.settings = settings.NewManager(d.store, cfg.Spaces)
	d.provider = storage.NewProvider(d.settings)
	d.settings.SetProber(d.provider)

	d.files = localfs.New(afero.NewOsFs(), cfg.UploadsDir)
	d.scheduler = scheduler.New(d.store)

	d.sync, err = sync.NewOrchestrator(sync.Deps{
		Store:   d.store,
		Catalog: d.catalog,
		Storage: d.provider,
		Files:   d.files,
		Trigger: d.scheduler,
	}, sync.Options{
		BatchSize:    cfg.Sync.BatchSize,
		Interval:     cfg.Sync.Interval,
		TransientTTL: cfg.State.TransientTTL,
		CountTimeout: cfg.Sync.CountTimeout,
		LockDir:      cfg.LockDir(),
	})
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	d.server = server.New(cfg.HTTP, &server.Services{
		Sync:       d.sync,
		Settings:   d.settings,
		Storage:    d.provider,
		Catalog:    d.catalog,
		Uploader:   media.NewUploader(d.sync, d.provider, d.catalog, d.files),
		URLs:       media.NewURLResolver(d.sync, d.provider, d.files, cfg.UploadsURL),
		UploadsDir: cfg.UploadsDir,
	})
	return nil
}

func openStateStore(ctx context.Context, cfg *config.Config, database *sqlx.DB) (statestore.Store, error) {
	switch cfg.State.Driver {
	case config.DriverBadger:
		store, err := statestore.NewBadgerStore(cfg.BadgerDir())
		if err != nil {
			return nil, fmt.Errorf("open badger state store: %w", err)
		}
		return store, nil
	default:
		store, err := statestore.NewSqliteStore(ctx, database)
		if err != nil {
			return nil, fmt.Errorf("open sqlite state store: %w", err)
		}
		return store, nil
	}
}

// Orchestrator exposes the sync orchestrator for in-process callers.
func (d *Daemon) Orchestrator() *sync.Orchestrator {
	return d.sync
}

func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("spacesync daemon start", "uploads", d.config.UploadsDir, "data", d.config.DataDir, "state", d.config.State.Driver)

	tickCtx, cancel := context.WithCancel(ctx)
	d.stopTicks = cancel
	if err := d.scheduler.Start(tickCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := d.server.Start(egCtx); err != nil {
			return fmt.Errorf("failed to start control plane: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("received interrupt signal, stopping daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return d.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("spacesync daemon failure", "error", err)
		return err
	}

	slog.Info("spacesync daemon stopped")
	return nil
}

// Stop shuts the control plane down, waits for running batches and closes the stores.
func (d *Daemon) Stop(ctx context.Context) error {
	err := d.server.Stop(ctx)
	if d.stopTicks != nil {
		d.stopTicks()
	}
	d.scheduler.Stop()
	if cerr := d.close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	return nil
}

func (d *Daemon) close() error {
	var errs []error
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	return errors.Join(errs...)
}
