package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/emnt/spacesync/internal/utils"
)

const (
	optionPrefix    = "opt:"
	transientPrefix = "tmp:"
	badgerGCEvery   = 5 * time.Minute
)

// BadgerStore keeps state in a badger database. Transients use badger's native TTL.
type BadgerStore struct {
	db   *badger.DB
	stop chan struct{}
	done chan struct{}
}

// NewBadgerStore opens a store under dir. An empty dir keeps everything in memory.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := utils.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &BadgerStore{db: db, stop: make(chan struct{}), done: make(chan struct{})}
	go s.gcLoop()
	return s, nil
}

func (s *BadgerStore) gcLoop() {
	defer close(s.done)
	ticker := time.NewTicker(badgerGCEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.db.RunValueLogGC(0.5)
		}
	}
}

func (s *BadgerStore) GetOption(_ context.Context, key string) ([]byte, bool, error) {
	return s.get(optionPrefix + key)
}

func (s *BadgerStore) SetOption(_ context.Context, key string, value []byte) error {
	return s.set(optionPrefix+key, value, 0)
}

func (s *BadgerStore) DeleteOption(_ context.Context, key string) error {
	return s.delete(optionPrefix + key)
}

func (s *BadgerStore) GetTransient(_ context.Context, key string) ([]byte, bool, error) {
	return s.get(transientPrefix + key)
}

func (s *BadgerStore) SetTransient(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.delete(transientPrefix + key)
	}
	return s.set(transientPrefix+key, value, ttl)
}

func (s *BadgerStore) DeleteTransient(_ context.Context, key string) error {
	return s.delete(transientPrefix + key)
}

func (s *BadgerStore) Close() error {
	close(s.stop)
	<-s.done
	return s.db.Close()
}

func (s *BadgerStore) get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *BadgerStore) set(key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

var _ Store = (*BadgerStore)(nil)
