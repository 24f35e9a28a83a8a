// Package timer runs one actor per room. An actor serializes every transition
// on its room and owns at most one pending deadline timer.
package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/mcoot/openface/internal/dependencies/clock"
	"github.com/mcoot/openface/internal/model"
)

// ErrStopped is returned by Do once the manager has been stopped
var ErrStopped = errors.New("timer manager stopped")

// Fire is called when a scheduled deadline is reached
type Fire func(ctx context.Context, code model.RoomCode)

type actor struct {
	// runMu serializes transitions on the room
	runMu sync.Mutex

	timerMu  sync.Mutex
	pending  bool
	timer    *quartz.Timer
	deadline time.Time
	gen      uint64
}

// Manager owns the room actors
type Manager struct {
	clock  clock.Clock
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	actors  map[model.RoomCode]*actor
	stopped bool
}

// New creates a Manager. Timer callbacks receive a context cancelled by Stop.
func New(clock clock.Clock, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		clock:  clock,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		actors: make(map[model.RoomCode]*actor),
	}
}

func (m *Manager) actor(code model.RoomCode) (*actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil, false
	}
	a, ok := m.actors[code]
	if !ok {
		a = &actor{}
		m.actors[code] = a
	}
	return a, true
}

// Do runs fn on the room's actor. Calls for the same room never overlap,
// including with deadline callbacks.
func (m *Manager) Do(code model.RoomCode, fn func() error) error {
	a, ok := m.actor(code)
	if !ok {
		return ErrStopped
	}
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return fn()
}

// Schedule arms the room's timer for at, replacing any pending one. A deadline
// already in the past fires immediately. fire runs on the room's actor.
func (m *Manager) Schedule(code model.RoomCode, at time.Time, fire Fire) {
	a, ok := m.actor(code)
	if !ok {
		return
	}

	a.timerMu.Lock()
	defer a.timerMu.Unlock()
	if a.pending && a.deadline.Equal(at) {
		return
	}
	a.stopLocked(&m.wg)
	a.gen++
	gen := a.gen
	a.pending = true
	a.deadline = at

	m.wg.Add(1)
	run := func() {
		defer m.wg.Done()
		m.fire(code, a, gen, fire)
	}
	if d := m.clock.Until(at); d > 0 {
		a.timer = m.clock.AfterFunc(d, run, "timer", "schedule")
	} else {
		go run()
	}
}

func (m *Manager) fire(code model.RoomCode, a *actor, gen uint64, fire Fire) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.timerMu.Lock()
	if a.gen != gen {
		// replaced or cancelled after the timer went off
		a.timerMu.Unlock()
		return
	}
	a.pending = false
	a.timer = nil
	a.deadline = time.Time{}
	a.timerMu.Unlock()

	if m.ctx.Err() != nil {
		return
	}
	m.logger.Debug("deadline fired", slog.String("room", string(code)))
	fire(m.ctx, code)
}

// Cancel drops the room's pending timer, if any
func (m *Manager) Cancel(code model.RoomCode) {
	m.mu.Lock()
	a, ok := m.actors[code]
	m.mu.Unlock()
	if !ok {
		return
	}
	a.cancel(&m.wg)
}

func (a *actor) cancel(wg *sync.WaitGroup) {
	a.timerMu.Lock()
	defer a.timerMu.Unlock()
	if !a.pending {
		return
	}
	a.stopLocked(wg)
	a.pending = false
	a.deadline = time.Time{}
	a.gen++
}

// stopLocked stops the underlying timer. A callback that already started
// finds its generation stale and returns.
func (a *actor) stopLocked(wg *sync.WaitGroup) {
	if a.timer != nil && a.timer.Stop() {
		wg.Done()
	}
	a.timer = nil
}

// Remove cancels the room's timer and forgets its actor
func (m *Manager) Remove(code model.RoomCode) {
	m.mu.Lock()
	a, ok := m.actors[code]
	delete(m.actors, code)
	m.mu.Unlock()
	if ok {
		a.cancel(&m.wg)
	}
}

// Deadline returns the time the room's pending timer is armed for
func (m *Manager) Deadline(code model.RoomCode) (time.Time, bool) {
	m.mu.Lock()
	a, ok := m.actors[code]
	m.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	a.timerMu.Lock()
	defer a.timerMu.Unlock()
	if !a.pending {
		return time.Time{}, false
	}
	return a.deadline, true
}

// Rooms returns the codes of every room with an actor
func (m *Manager) Rooms() []model.RoomCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]model.RoomCode, 0, len(m.actors))
	for code := range m.actors {
		codes = append(codes, code)
	}
	return codes
}

// Stop cancels every timer and waits for running callbacks to return
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	actors := m.actors
	m.actors = make(map[model.RoomCode]*actor)
	m.mu.Unlock()

	m.cancel()
	for _, a := range actors {
		a.cancel(&m.wg)
	}
	m.wg.Wait()
}
