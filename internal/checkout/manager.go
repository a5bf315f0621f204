package checkout

import (
	"context"
	"sync"
	"time"

	"stayhold/internal/domain"
	"stayhold/internal/timer"

	"github.com/rs/zerolog"
)

// ManagerOptions carries the collaborators shared by every wizard.
type ManagerOptions struct {
	Backend      domain.LockBackend
	Profiles     domain.ProfileService
	Store        domain.ResumeStore
	Bus          domain.EventPublisher
	Logger       *zerolog.Logger
	HoldDuration time.Duration
	TickInterval time.Duration
}

// Manager hands out one wizard per user, resuming a persisted checkout
// on first access. Wizards own their countdown; the manager owns their
// lifetime.
type Manager struct {
	mu      sync.Mutex
	opts    ManagerOptions
	wizards map[int64]*Wizard
}

func NewManager(opts ManagerOptions) *Manager {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &Manager{opts: opts, wizards: make(map[int64]*Wizard)}
}

// Wizard returns the user's active wizard, rebuilding it from the
// resume store when there is none in memory.
func (m *Manager) Wizard(ctx context.Context, userID int64) *Wizard {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.wizards[userID]; ok {
		return w
	}

	countdown := timer.New(time.Now, m.opts.TickInterval, m.opts.Logger)
	opts := Options{
		UserID:       userID,
		Backend:      m.opts.Backend,
		Profiles:     m.opts.Profiles,
		Store:        m.opts.Store,
		Bus:          m.opts.Bus,
		Timer:        countdown,
		Logger:       m.opts.Logger,
		HoldDuration: m.opts.HoldDuration,
	}

	var w *Wizard
	if m.opts.Store != nil {
		resume, err := m.opts.Store.Get(ctx, userID)
		if err != nil {
			m.opts.Logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to load resume snapshot")
		}
		w = NewFromResume(opts, resume)
	} else {
		w = New(opts)
	}

	go w.WatchTimer(ctx, countdown.Events())
	m.wizards[userID] = w
	return w
}

// Release drops the user's wizard, stopping its countdown. Call it
// after a terminal phase or an explicit cancel.
func (m *Manager) Release(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.wizards[userID]; ok {
		if w.timer != nil {
			w.timer.Stop()
		}
		delete(m.wizards, userID)
	}
}

// Active returns the number of in-memory wizards.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.wizards)
}
