package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/emnt/spacesync/internal/settings"
)

// SettingsSource yields the current Spaces settings.
type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Provider lazily builds an ObjectStore from the current settings and
// rebuilds it only when connection-relevant settings change.
type Provider struct {
	source SettingsSource

	mu          sync.Mutex
	store       ObjectStore
	fingerprint string
}

func NewProvider(source SettingsSource) *Provider {
	return &Provider{source: source}
}

// Client returns the store for the current settings, or ErrNotConfigured.
func (p *Provider) Client(ctx context.Context) (ObjectStore, error) {
	store, _, err := p.Resolve(ctx)
	return store, err
}

// Resolve returns the store along with the settings it was built from.
func (p *Provider) Resolve(ctx context.Context) (ObjectStore, settings.Settings, error) {
	s, err := p.source.Load(ctx)
	if err != nil {
		return nil, s, fmt.Errorf("load settings: %w", err)
	}
	if !s.Complete() {
		return nil, s, ErrNotConfigured
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fp := s.Fingerprint()
	if p.store != nil && p.fingerprint == fp {
		return p.store, s, nil
	}

	store, err := New(ctx, s)
	if err != nil {
		return nil, s, err
	}
	slog.Info("storage client ready", "driver", s.Driver, "bucket", s.SpaceName, "endpoint", s.EndpointURL())
	p.store, p.fingerprint = store, fp
	return store, s, nil
}

// Set replaces the cached store, used to plug a prebuilt backend.
func (p *Provider) Set(store ObjectStore, s settings.Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store, p.fingerprint = store, s.Fingerprint()
}

// ProbeSubfolderAccess checks the subfolder of s using the cached store when it matches, a fresh one otherwise.
func (p *Provider) ProbeSubfolderAccess(ctx context.Context, s settings.Settings) error {
	p.mu.Lock()
	store := p.store
	if p.fingerprint != s.Fingerprint() {
		store = nil
	}
	p.mu.Unlock()

	if store == nil {
		var err error
		if store, err = New(ctx, s); err != nil {
			return err
		}
	}
	return ProbeSubfolderAccess(ctx, store, s.SubfolderName)
}

// New builds a store for the driver named in s.
func New(ctx context.Context, s settings.Settings) (ObjectStore, error) {
	switch s.Driver {
	case "", settings.DriverS3:
		return NewS3BackendFromSettings(ctx, s)
	case settings.DriverMinio:
		return NewMinioBackendFromSettings(s)
	case settings.DriverMemory:
		return NewMemoryBackend(s.SpaceName), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, s.Driver)
	}
}

// ProbeSubfolderAccess lists at most one key under `<subfolder>/` to confirm the credentials can read it.
func ProbeSubfolderAccess(ctx context.Context, store ObjectStore, subfolder string) error {
	prefix := strings.Trim(subfolder, "/") + "/"
	if _, err := store.List(ctx, prefix, "", 1); err != nil {
		return fmt.Errorf("probe %s: %w", prefix, err)
	}
	return nil
}

var _ settings.Prober = (*Provider)(nil)
