package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	storage.ObjectStore
	listFailures int
	listCalls    int
}

func (f *flakyStore) List(ctx context.Context, prefix, marker string, maxKeys int32) (*storage.ListResult, error) {
	f.listCalls++
	if f.listFailures > 0 {
		f.listFailures--
		return nil, errors.New("temporary failure")
	}
	return f.ObjectStore.List(ctx, prefix, marker, maxKeys)
}

type failingCatalog struct {
	catalog.Catalog
}

func (failingCatalog) Count(context.Context) (int, error) {
	return 0, errors.New("database is locked")
}

func TestCountRemote_Paginates(t *testing.T) {
	ctx := context.Background()
	b := storage.NewMemoryBackend("media")
	require.NoError(t, b.Put(ctx, &storage.PutObjectParams{Key: "p/", Body: strings.NewReader("")}))
	for i := range 2345 {
		require.NoError(t, b.Put(ctx, &storage.PutObjectParams{Key: fmt.Sprintf("p/%05d", i), Body: strings.NewReader("x")}))
	}
	require.NoError(t, b.Put(ctx, &storage.PutObjectParams{Key: "q/other", Body: strings.NewReader("x")}))

	flaky := &flakyStore{ObjectStore: b}
	n, err := countRemote(ctx, flaky, "p/", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2345, n)
	assert.Equal(t, 3, flaky.listCalls)
}

func TestCountRemote_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	b := storage.NewMemoryBackend("media")
	require.NoError(t, b.Put(ctx, &storage.PutObjectParams{Key: "p/a", Body: strings.NewReader("x")}))

	flaky := &flakyStore{ObjectStore: b, listFailures: 2}
	n, err := countRemote(ctx, flaky, "p/", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, flaky.listCalls)
}

func TestCountRemote_GivesUp(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{ObjectStore: storage.NewMemoryBackend("media"), listFailures: 100}

	_, err := countRemote(ctx, flaky, "p/", 10*time.Second)
	assert.Error(t, err)
	assert.Equal(t, countMaxRetries+1, flaky.listCalls)
}

type stallingStore struct {
	storage.ObjectStore
}

func (stallingStore) List(ctx context.Context, prefix, marker string, maxKeys int32) (*storage.ListResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCountRemote_StopsAtTimeout(t *testing.T) {
	start := time.Now()
	_, err := countRemote(context.Background(), stallingStore{}, "p/", 100*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
