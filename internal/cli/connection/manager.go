package connection

import (
	"context"
	"sync"

	"github.com/yndnr/notekeep-go/internal/cli/config"
)

// Manager opens the client stack on first use and keeps it for the rest
// of the process.
type Manager struct {
	cfg  *config.Config
	opts Options

	mu    sync.Mutex
	stack *Stack
}

// NewManager creates a manager for cfg. Nothing is opened yet.
func NewManager(cfg *config.Config, opts Options) *Manager {
	return &Manager{cfg: cfg, opts: opts}
}

// Config returns the configuration the manager opens the stack with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Stack returns the open stack, opening it if needed.
func (m *Manager) Stack(ctx context.Context) (*Stack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stack != nil {
		return m.stack, nil
	}
	st, err := Open(ctx, m.cfg, m.opts)
	if err != nil {
		return nil, err
	}
	m.stack = st
	return st, nil
}

// IsOpen reports whether the stack has been opened.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stack != nil
}

// Close closes the stack if it was opened.
func (m *Manager) Close() error {
	m.mu.Lock()
	st := m.stack
	m.stack = nil
	m.mu.Unlock()

	if st == nil {
		return nil
	}
	return st.Close()
}
