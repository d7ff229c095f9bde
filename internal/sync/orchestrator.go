package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const canDisablePageSize = 200

// DisableMode tells the caller what a disable request turned into.
type DisableMode string

const (
	DisableModeDisabled DisableMode = "disabled"
	DisableModeReverse  DisableMode = "reverse"
)

// Progress is what operators see. Complete is true when no pass is running.
type Progress struct {
	Total     int       `json:"total"`
	Progress  int       `json:"progress"`
	Direction Direction `json:"direction"`
	Pass      string    `json:"pass,omitempty"`
	Complete  bool      `json:"complete"`
	Enabled   bool      `json:"enabled"`
}

// Orchestrator starts, stops and cancels the two engines so that at most one
// direction is running at any time.
type Orchestrator struct {
	state   *syncState
	deps    Deps
	opts    Options
	forward *ForwardEngine
	reverse *ReverseEngine
}

// NewOrchestrator builds both engines and registers their tick handlers on deps.Trigger.
func NewOrchestrator(deps Deps, opts Options) (*Orchestrator, error) {
	opts = opts.withDefaults()
	state := newSyncState(deps.Store, opts.TransientTTL)

	forward, err := newForwardEngine(state, deps, opts)
	if err != nil {
		return nil, err
	}
	reverse, err := newReverseEngine(state, deps, opts)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{state: state, deps: deps, opts: opts, forward: forward, reverse: reverse}
	deps.Trigger.Handle(EventForward, o.tick(DirectionForward, forward.ProcessBatch))
	deps.Trigger.Handle(EventReverse, o.tick(DirectionReverse, reverse.ProcessBatch))
	return o, nil
}

func (o *Orchestrator) Forward() *ForwardEngine {
	return o.forward
}

func (o *Orchestrator) Reverse() *ReverseEngine {
	return o.reverse
}

func (o *Orchestrator) tick(dir Direction, process func(context.Context) error) func(context.Context) {
	return func(ctx context.Context) {
		err := process(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrBatchInProgress):
			slog.Debug("sync batch skipped, previous batch still running", "direction", dir)
		case errors.Is(err, context.Canceled):
		default:
			slog.Error("sync batch", "direction", dir, "error", err)
		}
	}
}

// StartForward turns sync on and begins a forward pass over every asset.
// A running reverse pass is stopped first.
func (o *Orchestrator) StartForward(ctx context.Context) error {
	total, err := o.deps.Catalog.Count(ctx)
	if err != nil {
		slog.Error("forward sync not started, cannot count assets", "error", err)
		return fmt.Errorf("count assets: %w", err)
	}

	if err := o.stopDirection(ctx, DirectionReverse); err != nil {
		return err
	}
	if err := o.state.setEnabled(ctx, true); err != nil {
		return err
	}
	pass, err := o.state.begin(ctx, DirectionForward, total)
	if err != nil {
		return fmt.Errorf("begin forward sync: %w", err)
	}
	if err := o.deps.Trigger.Arm(ctx, EventForward, o.opts.Interval); err != nil {
		return err
	}

	slog.Info("forward sync started", "total", total, "pass", pass)
	return nil
}

// StartReverse begins moving every object under the prefix back to local disk.
// The enabled flag stays on until the pass drains. A running forward pass is stopped first.
func (o *Orchestrator) StartReverse(ctx context.Context) error {
	t, err := resolveTarget(ctx, o.deps.Storage, o.deps.Files.Root())
	if err != nil {
		slog.Error("reverse sync not started", "error", err)
		return err
	}

	prefix := t.mapper.Prefix()
	total, err := countRemote(ctx, t.store, prefix, o.opts.CountTimeout)
	if err != nil {
		slog.Error("reverse sync not started, cannot count remote objects", "prefix", prefix, "error", err)
		return err
	}

	if err := o.stopDirection(ctx, DirectionForward); err != nil {
		return err
	}
	pass, err := o.state.begin(ctx, DirectionReverse, total)
	if err != nil {
		return fmt.Errorf("begin reverse sync: %w", err)
	}
	if err := o.deps.Trigger.Arm(ctx, EventReverse, o.opts.Interval); err != nil {
		return err
	}

	slog.Info("reverse sync started", "total", total, "prefix", prefix, "pass", pass)
	return nil
}

// Cancel stops both directions and turns sync off. Safe to call when idle.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	err := errors.Join(
		o.stopDirection(ctx, DirectionForward),
		o.stopDirection(ctx, DirectionReverse),
		o.state.setEnabled(ctx, false),
	)
	if err != nil {
		return fmt.Errorf("cancel sync: %w", err)
	}
	slog.Info("sync cancelled")
	return nil
}

// CanDisableForward reports whether sync can be switched off without first
// pulling files back: no reverse pass runs and every asset's primary file is local.
func (o *Orchestrator) CanDisableForward(ctx context.Context) (bool, error) {
	rev, err := o.state.snapshot(ctx, DirectionReverse)
	if err != nil {
		return false, err
	}
	if rev.InProgress {
		return false, nil
	}

	for offset := 0; ; offset += canDisablePageSize {
		assets, err := o.deps.Catalog.List(ctx, offset, canDisablePageSize)
		if err != nil {
			return false, fmt.Errorf("list assets: %w", err)
		}
		for _, asset := range assets {
			if !o.deps.Files.Exists(asset.File) {
				slog.Debug("asset not local", "asset", asset.ID, "file", asset.File)
				return false, nil
			}
		}
		if len(assets) < canDisablePageSize {
			return true, nil
		}
	}
}

func (o *Orchestrator) EnableSync(ctx context.Context) error {
	return o.StartForward(ctx)
}

// DisableSync turns sync off right away when everything is local, otherwise it
// starts a reverse pass that turns sync off once it drains.
func (o *Orchestrator) DisableSync(ctx context.Context) (DisableMode, error) {
	ok, err := o.CanDisableForward(ctx)
	if err != nil {
		return "", err
	}

	if ok {
		if err := o.stopDirection(ctx, DirectionForward); err != nil {
			return "", err
		}
		if err := o.state.setEnabled(ctx, false); err != nil {
			return "", err
		}
		slog.Info("sync disabled")
		return DisableModeDisabled, nil
	}

	if err := o.StartReverse(ctx); err != nil {
		return "", err
	}
	return DisableModeReverse, nil
}

func (o *Orchestrator) CancelSync(ctx context.Context) error {
	return o.Cancel(ctx)
}

func (o *Orchestrator) GetProgress(ctx context.Context) (*Progress, error) {
	enabled, err := o.state.enabled(ctx)
	if err != nil {
		return nil, err
	}

	for _, dir := range []Direction{DirectionForward, DirectionReverse} {
		snap, err := o.state.snapshot(ctx, dir)
		if err != nil {
			return nil, err
		}
		if snap.InProgress {
			return &Progress{
				Total:     snap.Total,
				Progress:  snap.Progress,
				Direction: dir,
				Pass:      snap.Pass,
				Enabled:   enabled,
			}, nil
		}
	}

	return &Progress{Direction: DirectionNone, Complete: true, Enabled: enabled}, nil
}

func (o *Orchestrator) Enabled(ctx context.Context) (bool, error) {
	return o.state.enabled(ctx)
}

// ReverseRunning reports whether a reverse pass is in progress.
func (o *Orchestrator) ReverseRunning(ctx context.Context) (bool, error) {
	snap, err := o.state.snapshot(ctx, DirectionReverse)
	return snap.InProgress, err
}

func (o *Orchestrator) stopDirection(ctx context.Context, dir Direction) error {
	if err := o.state.clear(ctx, dir); err != nil {
		return fmt.Errorf("clear %s state: %w", dir, err)
	}
	if err := o.deps.Trigger.Disarm(ctx, dir.keys().event); err != nil {
		return fmt.Errorf("disarm %s: %w", dir, err)
	}
	return nil
}
