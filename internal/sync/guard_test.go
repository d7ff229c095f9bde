package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchGuard_InProcess(t *testing.T) {
	g, err := newBatchGuard("", DirectionForward)
	require.NoError(t, err)

	release, err := g.acquire()
	require.NoError(t, err)

	_, err = g.acquire()
	assert.ErrorIs(t, err, ErrBatchInProgress)

	release()
	release, err = g.acquire()
	require.NoError(t, err)
	release()
}

func TestBatchGuard_LockFile(t *testing.T) {
	dir := t.TempDir()
	a, err := newBatchGuard(dir, DirectionReverse)
	require.NoError(t, err)
	b, err := newBatchGuard(dir, DirectionReverse)
	require.NoError(t, err)
	other, err := newBatchGuard(dir, DirectionForward)
	require.NoError(t, err)

	release, err := a.acquire()
	require.NoError(t, err)

	// a second guard on the same lock file stands in for another process
	_, err = b.acquire()
	assert.ErrorIs(t, err, ErrBatchInProgress)

	// directions are independent
	releaseOther, err := other.acquire()
	require.NoError(t, err)
	releaseOther()

	release()
	release, err = b.acquire()
	require.NoError(t, err)
	release()
}
