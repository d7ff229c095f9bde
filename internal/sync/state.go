package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emnt/spacesync/internal/statestore"
	"github.com/google/uuid"
)

type Direction string

const (
	DirectionNone    Direction = "none"
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

const (
	EventForward = "spacesync_sync_event"
	EventReverse = "spacesync_reverse_sync_event"

	KeyEnabled = "sync_enabled"
)

var (
	ErrBatchInProgress    = errors.New("sync batch already in progress")
	ErrVerificationFailed = errors.New("transfer verification failed")
)

type stateKeys struct {
	total      string
	progress   string
	pass       string
	cursor     string
	inProgress string
	event      string
}

func (d Direction) keys() stateKeys {
	if d == DirectionReverse {
		return stateKeys{
			total:      "reverse_sync_total",
			progress:   "reverse_sync_progress",
			pass:       "reverse_sync_pass",
			cursor:     "reverse_sync_marker",
			inProgress: "reverse_sync_in_progress",
			event:      EventReverse,
		}
	}
	return stateKeys{
		total:      "sync_total",
		progress:   "sync_progress",
		pass:       "sync_pass",
		cursor:     "sync_offset",
		inProgress: "sync_in_progress",
		event:      EventForward,
	}
}

// Snapshot is the persisted state of one direction's pass.
type Snapshot struct {
	Direction  Direction
	Total      int
	Progress   int
	Pass       string
	InProgress bool
}

// syncState owns every sync key in the state store. Its mutex serializes
// pass transitions (begin, clear, commit) within the process.
type syncState struct {
	store statestore.Store
	ttl   time.Duration
	mu    sync.Mutex
}

func newSyncState(store statestore.Store, ttl time.Duration) *syncState {
	return &syncState{store: store, ttl: ttl}
}

func (s *syncState) enabled(ctx context.Context) (bool, error) {
	return statestore.GetOption(ctx, s.store, KeyEnabled, false)
}

func (s *syncState) setEnabled(ctx context.Context, enabled bool) error {
	return statestore.SetOption(ctx, s.store, KeyEnabled, enabled)
}

func (s *syncState) snapshot(ctx context.Context, dir Direction) (Snapshot, error) {
	k := dir.keys()
	snap := Snapshot{Direction: dir}

	_, inProgress, err := s.store.GetTransient(ctx, k.inProgress)
	if err != nil {
		return snap, err
	}
	snap.InProgress = inProgress

	if snap.Total, err = statestore.GetOption(ctx, s.store, k.total, 0); err != nil {
		return snap, err
	}
	if snap.Progress, err = statestore.GetOption(ctx, s.store, k.progress, 0); err != nil {
		return snap, err
	}
	if snap.Pass, err = statestore.GetOption(ctx, s.store, k.pass, ""); err != nil {
		return snap, err
	}
	return snap, nil
}

// begin starts a fresh pass and returns its id.
func (s *syncState) begin(ctx context.Context, dir Direction, total int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := dir.keys()
	pass := uuid.NewString()

	if err := s.store.DeleteTransient(ctx, k.cursor); err != nil {
		return "", err
	}
	if err := statestore.SetOption(ctx, s.store, k.total, total); err != nil {
		return "", err
	}
	if err := statestore.SetOption(ctx, s.store, k.progress, 0); err != nil {
		return "", err
	}
	if err := statestore.SetOption(ctx, s.store, k.pass, pass); err != nil {
		return "", err
	}
	if err := statestore.SetTransient(ctx, s.store, k.inProgress, true, s.ttl); err != nil {
		return "", err
	}
	return pass, nil
}

func (s *syncState) clear(ctx context.Context, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx, dir)
}

func (s *syncState) clearLocked(ctx context.Context, dir Direction) error {
	k := dir.keys()
	var errs []error
	for _, key := range []string{k.total, k.progress, k.pass} {
		errs = append(errs, s.store.DeleteOption(ctx, key))
	}
	for _, key := range []string{k.cursor, k.inProgress} {
		errs = append(errs, s.store.DeleteTransient(ctx, key))
	}
	return errors.Join(errs...)
}

// commit records a processed batch. It reports false, writing nothing, when
// the pass was cancelled or replaced while the batch ran.
func (s *syncState) commit(ctx context.Context, dir Direction, pass string, processed int, cursor any) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.snapshot(ctx, dir)
	if err != nil {
		return current, false, err
	}
	if !current.InProgress || current.Pass != pass {
		return current, false, nil
	}

	k := dir.keys()
	current.Progress = min(current.Progress+processed, current.Total)
	if err := statestore.SetOption(ctx, s.store, k.progress, current.Progress); err != nil {
		return current, false, fmt.Errorf("save progress: %w", err)
	}
	if err := statestore.SetTransient(ctx, s.store, k.cursor, cursor, s.ttl); err != nil {
		return current, false, fmt.Errorf("save cursor: %w", err)
	}
	if err := statestore.SetTransient(ctx, s.store, k.inProgress, true, s.ttl); err != nil {
		return current, false, fmt.Errorf("refresh in progress: %w", err)
	}
	return current, true, nil
}

// finish clears a completed pass. It reports false when pass is no longer current.
func (s *syncState) finish(ctx context.Context, dir Direction, pass string, disable bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := statestore.GetOption(ctx, s.store, dir.keys().pass, "")
	if err != nil {
		return false, err
	}
	if current != pass {
		return false, nil
	}
	if err := s.clearLocked(ctx, dir); err != nil {
		return false, err
	}
	if disable {
		if err := s.setEnabled(ctx, false); err != nil {
			return false, err
		}
	}
	return true, nil
}

func getCursor[T any](ctx context.Context, s *syncState, dir Direction) (T, error) {
	v, _, err := statestore.GetTransient[T](ctx, s.store, dir.keys().cursor)
	return v, err
}
