package parkour

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrManagerClosed is returned by Play after Shutdown.
var ErrManagerClosed = errors.New("manager is shut down")

// Manager owns every session, the scheduler that drives them and the cache of levels
// they play. Multiple Manager instances can coexist in the same process.
type Manager struct {
	conf      Config
	log       *slog.Logger
	levels    LevelProvider
	assets    AssetProvider
	presenter Presenter
	handler   RunHandler

	// sessions holds all active sessions by player UUID
	sessions   map[uuid.UUID]*Session
	sessionsMu sync.RWMutex

	// scheduler runs session tasks
	scheduler *Scheduler

	// cache shares levels between sessions
	cache *levelCache

	closed atomic.Bool
}

// newManager creates a new manager. The scheduler is not started.
func newManager(conf Config, log *slog.Logger, levels LevelProvider, options ProviderOptions) *Manager {
	m := &Manager{
		conf:      conf,
		log:       log,
		levels:    levels,
		assets:    NopAssets{},
		presenter: NopPresenter{},
		handler:   NopRunHandler{},
		sessions:  make(map[uuid.UUID]*Session),
	}
	m.scheduler = newScheduler(conf.TickRate, log)
	m.cache = newLevelCache(levels, options, log)
	return m
}

// Config returns the configuration of the manager.
func (m *Manager) Config() Config {
	return m.conf
}

// Scheduler returns the scheduler driving the sessions.
func (m *Manager) Scheduler() *Scheduler {
	return m.scheduler
}

// Start starts the scheduler and the cache cleanup.
func (m *Manager) Start() {
	m.scheduler.Start()
	m.cache.start()
	m.log.Debug("parkour: manager started", "tick_rate", m.scheduler.TickRate())
}

// Play starts a new session for the player on the level with the given id. The player is
// sent to the level's spawn and the asset gate is run. A session the player already had
// is closed first. Play must be called from the player's transaction.
func (m *Manager) Play(ctx context.Context, ref PlayerRef, b Body, levelID uuid.UUID) (*Session, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	lvl, err := m.cache.acquire(ctx, levelID)
	if err != nil {
		return nil, fmt.Errorf("play: %w", err)
	}

	s := newSession(m, ref, b, lvl)

	m.sessionsMu.Lock()
	prev := m.sessions[s.player]
	m.sessions[s.player] = s
	m.sessionsMu.Unlock()

	if prev != nil {
		m.closeSession(prev, b)
	}

	b.Teleport(lvl.Spawn)
	s.Prepare(b)
	s.log.Info("parkour: session started")
	return s, nil
}

// PlayNamed looks the level up by name or id through the provider's LevelLister and
// starts it with Play.
func (m *Manager) PlayNamed(ctx context.Context, ref PlayerRef, b Body, name string) (*Session, error) {
	lvl, ok := m.FindLevel(name)
	if !ok {
		if id, err := uuid.Parse(name); err == nil {
			return m.Play(ctx, ref, b, id)
		}
		return nil, fmt.Errorf("play %q: %w", name, ErrLevelNotFound)
	}
	return m.Play(ctx, ref, b, lvl.ID)
}

// Levels returns the levels of the provider, if it can list them.
func (m *Manager) Levels() []*Level {
	if l, ok := m.levels.(LevelLister); ok {
		return l.Levels()
	}
	return nil
}

// FindLevel looks a level up by name, ignoring case, or by id.
func (m *Manager) FindLevel(name string) (*Level, bool) {
	return findLevel(m.Levels(), name)
}

// Session returns the session of the player, or nil if the player is not playing.
func (m *Manager) Session(player uuid.UUID) *Session {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	return m.sessions[player]
}

// Sessions returns all active sessions.
func (m *Manager) Sessions() []*Session {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// SessionCount returns the number of active sessions.
func (m *Manager) SessionCount() int {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	return len(m.sessions)
}

// Close closes the player's session. b may be nil if the player cannot be presented to.
// It reports whether the player had a session.
func (m *Manager) Close(player uuid.UUID, b Body) bool {
	m.sessionsMu.Lock()
	s, ok := m.sessions[player]
	if ok {
		delete(m.sessions, player)
	}
	m.sessionsMu.Unlock()

	if !ok {
		return false
	}
	m.closeSession(s, b)
	return true
}

// closeSession closes s and releases its level.
func (m *Manager) closeSession(s *Session, b Body) {
	if s.closed.Load() {
		return
	}
	s.close(b)
	m.cache.release(s.level.ID)
}

// RemoveLevel closes every session playing the level, drops it from the cache and, if the
// provider supports it, from the provider. Affected sessions are closed and their players
// told asynchronously in the players' transactions, so RemoveLevel may be called from any
// goroutine. It returns the number of affected sessions.
func (m *Manager) RemoveLevel(id uuid.UUID) int {
	m.sessionsMu.Lock()
	var affected []*Session
	for p, s := range m.sessions {
		if s.level.ID == id {
			affected = append(affected, s)
			delete(m.sessions, p)
		}
	}
	m.sessionsMu.Unlock()

	name := id.String()
	if len(affected) > 0 {
		name = affected[0].level.Name
	}
	m.cache.invalidate(id)
	if r, ok := m.levels.(LevelRemover); ok {
		r.RemoveLevel(id)
	}

	if len(affected) > 0 {
		msg := fmt.Sprintf(m.conf.Messages.LevelRemoved, name)
		// The caller may be inside a player's transaction, which Exec must not be.
		go func() {
			for _, s := range affected {
				m.closeInTx(s, func(b Body) {
					m.presenter.Message(b, msg)
				})
			}
		}()
	}
	m.log.Info("parkour: level removed", "level", name, "sessions", len(affected))
	return len(affected)
}

// closeInTx closes s inside its player's transaction and then calls after, if not nil,
// with the player's body. Sessions of players that cannot be reached are closed directly.
// It must not be called from inside a transaction.
func (m *Manager) closeInTx(s *Session, after func(b Body)) {
	reached := s.ref.Exec(func(b Body) {
		m.closeSession(s, b)
		if after != nil {
			after(b)
		}
	})
	if !reached {
		m.closeSession(s, nil)
	}
}

// Shutdown stops the scheduler and closes every session. Further calls to Play fail
// with ErrManagerClosed. Shutdown must not be called from inside a player's transaction.
func (m *Manager) Shutdown() {
	if m.closed.Swap(true) {
		return
	}
	m.scheduler.Stop()

	// Close all sessions
	m.sessionsMu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	clear(m.sessions)
	m.sessionsMu.Unlock()

	for _, s := range sessions {
		m.closeInTx(s, nil)
	}
	tasks := m.scheduler.queue.Len()
	m.scheduler.queue.Clear()
	m.cache.stop()
	m.log.Info("parkour: manager shut down", "sessions", len(sessions), "tasks", tasks)
}
