package sync

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/emnt/spacesync/internal/utils"
	"github.com/gofrs/flock"
)

// batchGuard allows one batch per direction at a time, within the process
// through a mutex and across processes through a lock file.
type batchGuard struct {
	mu   sync.Mutex
	lock *flock.Flock
}

// newBatchGuard uses <lockDir>/<dir>.lock. An empty lockDir keeps the guard in-process.
func newBatchGuard(lockDir string, dir Direction) (*batchGuard, error) {
	g := &batchGuard{}
	if lockDir == "" {
		return g, nil
	}
	if err := utils.EnsureDir(lockDir); err != nil {
		return nil, fmt.Errorf("lock dir: %w", err)
	}
	g.lock = flock.New(filepath.Join(lockDir, string(dir)+".lock"))
	return g, nil
}

// acquire returns ErrBatchInProgress when another batch holds the guard.
func (g *batchGuard) acquire() (func(), error) {
	if !g.mu.TryLock() {
		return nil, ErrBatchInProgress
	}
	if g.lock != nil {
		locked, err := g.lock.TryLock()
		if err != nil {
			g.mu.Unlock()
			return nil, fmt.Errorf("acquire batch lock: %w", err)
		}
		if !locked {
			g.mu.Unlock()
			return nil, ErrBatchInProgress
		}
	}

	return func() {
		if g.lock != nil {
			_ = g.lock.Unlock()
		}
		g.mu.Unlock()
	}, nil
}
