package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, b ObjectStore, key, body string) {
	t.Helper()
	require.NoError(t, b.Put(context.Background(), &PutObjectParams{Key: key, Body: strings.NewReader(body), Size: int64(len(body))}))
}

func TestMemoryBackend_Roundtrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("media")

	put(t, b, "wp-content/uploads/a.jpg", "aaa")

	ok, err := b.Head(ctx, "wp-content/uploads/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	var buf bytes.Buffer
	n, err := b.Get(ctx, "wp-content/uploads/a.jpg", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	require.NoError(t, b.Delete(ctx, "wp-content/uploads/a.jpg"))
	ok, err = b.Head(ctx, "wp-content/uploads/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Get(ctx, "wp-content/uploads/a.jpg", &buf)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryBackend_ListPagesAfterMarker(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("media")
	for _, k := range []string{"p/c", "p/a", "p/b", "q/a", "p/d"} {
		put(t, b, k, "x")
	}

	res, err := b.List(ctx, "p/", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p/a", "p/b"}, res.Keys)
	assert.True(t, res.Truncated)

	res, err = b.List(ctx, "p/", "p/b", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p/c", "p/d"}, res.Keys)
	assert.False(t, res.Truncated)

	res, err = b.List(ctx, "p/", "p/d", 2)
	require.NoError(t, err)
	assert.Empty(t, res.Keys)
}

func TestMemoryBackend_FailOn(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("media")
	b.FailOn("put", "bad", errors.New("denied"))

	err := b.Put(ctx, &PutObjectParams{Key: "bad", Body: strings.NewReader("x")})
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "bad", serr.Key)

	put(t, b, "good", "x")

	b.FailOn("put", "bad", nil)
	put(t, b, "bad", "x")
	assert.Equal(t, []string{"bad", "good"}, b.Keys())
}
