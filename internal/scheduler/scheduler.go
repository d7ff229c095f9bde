// Package scheduler runs named periodic events that survive restarts.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emnt/spacesync/internal/statestore"
)

const optionScheduledEvents = "scheduled_events"

var ErrUnknownEvent = errors.New("no handler for event")

// Handler runs once per tick. Ticks of the same event never overlap.
type Handler func(ctx context.Context)

type armedEvent struct {
	interval time.Duration
	stop     chan struct{}
	running  bool
}

type Scheduler struct {
	store statestore.Store

	mu       sync.Mutex
	handlers map[string]Handler
	armed    map[string]*armedEvent
	loops    map[string]chan struct{}
	ctx      context.Context
	wg       sync.WaitGroup
}

func New(store statestore.Store) *Scheduler {
	return &Scheduler{
		store:    store,
		handlers: make(map[string]Handler),
		armed:    make(map[string]*armedEvent),
		loops:    make(map[string]chan struct{}),
	}
}

// Handle registers the handler for event. Must be called before Start.
func (s *Scheduler) Handle(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = h
}

// Arm schedules event every interval. Arming an armed event is a no-op.
func (s *Scheduler) Arm(ctx context.Context, event string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("arm %s: interval must be positive", event)
	}

	s.mu.Lock()
	if _, ok := s.handlers[event]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
	if _, ok := s.armed[event]; ok {
		s.mu.Unlock()
		return nil
	}
	ev := &armedEvent{interval: interval, stop: make(chan struct{})}
	s.armed[event] = ev
	if s.ctx != nil {
		s.launch(event, ev)
	}
	snapshot := s.snapshot()
	s.mu.Unlock()

	slog.Debug("scheduler arm", "event", event, "interval", interval)
	return s.persist(ctx, snapshot)
}

// Disarm unschedules event. A tick already running finishes but no new tick starts.
func (s *Scheduler) Disarm(ctx context.Context, event string) error {
	s.mu.Lock()
	ev, ok := s.armed[event]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.armed, event)
	close(ev.stop)
	snapshot := s.snapshot()
	s.mu.Unlock()

	slog.Debug("scheduler disarm", "event", event)
	return s.persist(ctx, snapshot)
}

func (s *Scheduler) IsArmed(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[event]
	return ok
}

// Start re-arms persisted events and launches every armed event. Ticks run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	persisted, err := statestore.GetOption(ctx, s.store, optionScheduledEvents, map[string]int64{})
	if err != nil {
		return fmt.Errorf("load scheduled events: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return errors.New("scheduler already started")
	}
	s.ctx = ctx

	for event, ms := range persisted {
		if _, ok := s.handlers[event]; !ok {
			slog.Warn("scheduler dropping unknown event", "event", event)
			continue
		}
		if _, ok := s.armed[event]; !ok && ms > 0 {
			s.armed[event] = &armedEvent{interval: time.Duration(ms) * time.Millisecond, stop: make(chan struct{})}
		}
	}
	for event, ev := range s.armed {
		s.launch(event, ev)
	}

	slog.Info("scheduler start", "armed", len(s.armed))
	return nil
}

// Stop waits for running ticks to return. Ticks stop when the Start context is cancelled.
func (s *Scheduler) Stop() {
	s.wg.Wait()
	slog.Info("scheduler stop")
}

// launch must be called with s.mu held. A loop started after a re-arm waits for
// the previous loop of the same event to return before its first tick.
func (s *Scheduler) launch(event string, ev *armedEvent) {
	if ev.running {
		return
	}
	ev.running = true
	handler := s.handlers[event]
	ctx := s.ctx
	prev := s.loops[event]
	done := make(chan struct{})
	s.loops[event] = done

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)

		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
				return
			}
		}

		// a timer, not a ticker, so a slow tick never queues another
		timer := time.NewTimer(ev.interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ev.stop:
				return
			case <-timer.C:
				handler(ctx)
				timer.Reset(ev.interval)
			}
		}
	}()
}

// snapshot must be called with s.mu held.
func (s *Scheduler) snapshot() map[string]int64 {
	out := make(map[string]int64, len(s.armed))
	for event, ev := range s.armed {
		out[event] = ev.interval.Milliseconds()
	}
	return out
}

func (s *Scheduler) persist(ctx context.Context, events map[string]int64) error {
	if err := statestore.SetOption(ctx, s.store, optionScheduledEvents, events); err != nil {
		return fmt.Errorf("persist scheduled events: %w", err)
	}
	return nil
}
