package sync

import (
	"context"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/db"
	"github.com/emnt/spacesync/internal/localfs"
	"github.com/emnt/spacesync/internal/scheduler"
	"github.com/emnt/spacesync/internal/settings"
	"github.com/emnt/spacesync/internal/statestore"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const uploadsRoot = "/srv/uploads"

type staticResolver struct {
	store    storage.ObjectStore
	settings settings.Settings
	err      error
}

func (r *staticResolver) Resolve(context.Context) (storage.ObjectStore, settings.Settings, error) {
	return r.store, r.settings, r.err
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	store    *statestore.MemoryStore
	catalog  *catalog.SqliteCatalog
	remote   *storage.MemoryBackend
	resolver *staticResolver
	fs       afero.Fs
	files    *localfs.FS
	sched    *scheduler.Scheduler
	orch     *Orchestrator
}

func newHarness(t *testing.T, s settings.Settings) *harness {
	t.Helper()
	ctx := context.Background()

	database, err := db.NewSqliteDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	cat, err := catalog.NewSqliteCatalog(ctx, database)
	require.NoError(t, err)

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll(uploadsRoot, 0o755))

	if s.SpaceName == "" {
		s = settings.Settings{Driver: settings.DriverMemory, SpaceName: "media", Region: "ams3"}
	}

	h := &harness{
		t:       t,
		ctx:     ctx,
		store:   statestore.NewMemoryStore(),
		catalog: cat,
		remote:  storage.NewMemoryBackend(s.SpaceName),
		fs:      base,
		files:   localfs.New(base, uploadsRoot),
	}
	h.resolver = &staticResolver{store: h.remote, settings: s}
	h.sched = scheduler.New(h.store)

	h.orch, err = NewOrchestrator(Deps{
		Store:   h.store,
		Catalog: h.catalog,
		Storage: h.resolver,
		Files:   h.files,
		Trigger: h.sched,
	}, Options{
		BatchSize:    10,
		Interval:     time.Hour,
		TransientTTL: time.Hour,
		CountTimeout: 5 * time.Second,
		LockDir:      t.TempDir(),
	})
	require.NoError(t, err)
	return h
}

// addLocalAsset writes the primary file and sizes under the uploads dir and registers the asset.
func (h *harness) addLocalAsset(file string, sizes ...string) *catalog.MediaAsset {
	h.t.Helper()
	a := &catalog.MediaAsset{File: file, Sizes: sizes}
	for _, rel := range a.Files() {
		h.writeLocal(rel, "data:"+rel)
	}
	require.NoError(h.t, h.catalog.Add(h.ctx, a))
	return a
}

func (h *harness) writeLocal(rel, content string) {
	h.t.Helper()
	p := path.Join(uploadsRoot, rel)
	require.NoError(h.t, h.fs.MkdirAll(path.Dir(p), 0o755))
	require.NoError(h.t, afero.WriteFile(h.fs, p, []byte(content), 0o644))
}

func (h *harness) putRemote(key, content string) {
	h.t.Helper()
	require.NoError(h.t, h.remote.Put(h.ctx, &storage.PutObjectParams{Key: key, Body: strings.NewReader(content), Size: int64(len(content))}))
}

func (h *harness) progress() *Progress {
	h.t.Helper()
	p, err := h.orch.GetProgress(h.ctx)
	require.NoError(h.t, err)
	return p
}

func (h *harness) enabled() bool {
	h.t.Helper()
	v, err := h.orch.Enabled(h.ctx)
	require.NoError(h.t, err)
	return v
}

// callbackStore runs a hook before delegating Put, used to interleave operator actions with a batch.
type callbackStore struct {
	storage.ObjectStore
	beforePut func()
}

func (c *callbackStore) Put(ctx context.Context, p *storage.PutObjectParams) error {
	if c.beforePut != nil {
		c.beforePut()
	}
	return c.ObjectStore.Put(ctx, p)
}
