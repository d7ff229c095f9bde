package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/emnt/spacesync/internal/config"
	"github.com/emnt/spacesync/internal/statestore"
)

const optionKey = "settings"

// Prober checks that settings can actually reach their subfolder.
type Prober interface {
	ProbeSubfolderAccess(ctx context.Context, s Settings) error
}

// Manager loads and saves Settings in the state store.
// Credentials from the daemon config override whatever is stored.
type Manager struct {
	store     statestore.Store
	bootstrap config.SpacesConfig

	mu     sync.Mutex
	prober Prober
}

func NewManager(store statestore.Store, bootstrap config.SpacesConfig) *Manager {
	return &Manager{store: store, bootstrap: bootstrap}
}

func (m *Manager) SetProber(p Prober) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prober = p
}

// Load returns the effective settings: stored, or seeded from config when nothing is stored.
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	s, err := statestore.GetOption(ctx, m.store, optionKey, FromConfig(m.bootstrap))
	if err != nil {
		return Settings{}, err
	}
	return m.applyOverrides(s).Normalize(), nil
}

// Save validates s, probes subfolder access when possible and persists it.
// The previously stored settings stay in force on any error.
func (m *Manager) Save(ctx context.Context, s Settings) error {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	prober := m.prober
	m.mu.Unlock()

	effective := m.applyOverrides(s)
	if prober != nil && effective.UseSubfolder && effective.Complete() {
		if err := prober.ProbeSubfolderAccess(ctx, effective); err != nil {
			slog.Warn("settings subfolder probe failed", "subfolder", effective.SubfolderName, "error", err)
			var verr *ValidationError
			if errors.As(err, &verr) {
				return verr
			}
			return &ValidationError{Field: "subfolder_name", Reason: fmt.Sprintf("cannot access subfolder: %v", err)}
		}
	}

	if err := statestore.SetOption(ctx, m.store, optionKey, s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	slog.Info("settings saved", "space", s.SpaceName, "region", s.Region, "subfolder", s.Subfolder())
	return nil
}

func (m *Manager) applyOverrides(s Settings) Settings {
	if m.bootstrap.AccessKey != "" {
		s.AccessKey = m.bootstrap.AccessKey
	}
	if m.bootstrap.SecretKey != "" {
		s.SecretKey = m.bootstrap.SecretKey
	}
	return s
}
