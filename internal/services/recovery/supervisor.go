// Package recovery keeps every room's deadline timer in step with the store.
// Nothing it holds is authoritative: a fresh process rebuilds the same timers
// from the persisted rooms.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/openface/internal/dependencies/clock"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/game"
	"github.com/mcoot/openface/internal/services/timer"
	"github.com/mcoot/openface/internal/storage"
)

// Config holds supervisor tuning
type Config struct {
	// RetryDelay is how long to wait before retrying a failed transition
	RetryDelay time.Duration
	// ResyncInterval is how often every room is re-read from the store
	ResyncInterval time.Duration
}

// DefaultConfig returns the default supervisor configuration
func DefaultConfig() Config {
	return Config{
		RetryDelay:     2 * time.Second,
		ResyncInterval: time.Minute,
	}
}

// Supervisor drives room transitions from persisted deadlines
type Supervisor struct {
	storage storage.Storage
	games   *game.Controller
	timers  *timer.Manager
	clock   clock.Clock
	logger  *slog.Logger
	config  Config
}

// NewSupervisor creates a Supervisor
func NewSupervisor(
	storage storage.Storage,
	games *game.Controller,
	timers *timer.Manager,
	clock clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Supervisor {
	defaults := DefaultConfig()
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = defaults.ResyncInterval
	}
	return &Supervisor{
		storage: storage,
		games:   games,
		timers:  timers,
		clock:   clock,
		logger:  logger.With(slog.String("component", "recovery")),
		config:  cfg,
	}
}

// Run resyncs every room, then follows store changes until ctx is cancelled
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	changes, err := s.storage.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to room changes: %w", err)
	}
	if err := s.SyncAll(ctx); err != nil {
		s.logger.Error("initial resync failed", slog.String("error", err.Error()))
	}

	g.Go(func() error {
		for change := range changes {
			if change.Deleted {
				s.timers.Remove(change.Room)
				continue
			}
			if err := s.Sync(ctx, change.Room); err != nil {
				s.logger.Warn("sync failed",
					slog.String("room", string(change.Room)),
					slog.String("error", err.Error()),
				)
			}
		}
		return nil
	})
	g.Go(func() error {
		w := s.clock.TickerFunc(ctx, s.config.ResyncInterval, func() error {
			if err := s.SyncAll(ctx); err != nil {
				s.logger.Error("periodic resync failed", slog.String("error", err.Error()))
			}
			return nil
		}, "recovery", "resync")
		if err := w.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}

// SyncAll reconciles every stored room and drops actors for rooms that are gone
func (s *Supervisor) SyncAll(ctx context.Context) error {
	codes, err := s.storage.ListRooms(ctx)
	if err != nil {
		return err
	}
	live := make(map[model.RoomCode]bool, len(codes))
	var errs []error
	for _, code := range codes {
		live[code] = true
		if err := s.Sync(ctx, code); err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", code, err))
		}
	}
	for _, code := range s.timers.Rooms() {
		if !live[code] {
			s.timers.Remove(code)
		}
	}
	return errors.Join(errs...)
}

// Sync re-reads one room and arms its timer on the room's actor
func (s *Supervisor) Sync(ctx context.Context, code model.RoomCode) error {
	err := s.timers.Do(code, func() error {
		room, err := s.storage.GetRoom(ctx, code)
		if errors.Is(err, model.ErrRoomNotFound) {
			s.timers.Cancel(code)
			return nil
		}
		if err != nil {
			return err
		}
		s.Apply(room)
		return nil
	})
	if errors.Is(err, timer.ErrStopped) {
		return nil
	}
	return err
}

// Apply arms the room's timer for its next action. Callers must be running on
// the room's actor.
func (s *Supervisor) Apply(room *model.Room) {
	action := Reconcile(room, s.clock.Now())
	if action.Kind == KindNone {
		s.timers.Cancel(room.Code)
		return
	}
	s.timers.Schedule(room.Code, action.At, s.fire(action.Kind))
}

func (s *Supervisor) fire(kind Kind) timer.Fire {
	return func(ctx context.Context, code model.RoomCode) {
		room, err := s.run(ctx, kind, code)
		switch {
		case errors.Is(err, model.ErrRoomNotFound):
			s.timers.Cancel(code)
		case err != nil:
			s.logger.Error("transition failed",
				slog.String("room", string(code)),
				slog.String("action", string(kind)),
				slog.String("error", err.Error()),
			)
			s.timers.Schedule(code, s.clock.Now().Add(s.config.RetryDelay), s.fire(kind))
		default:
			s.Apply(room)
		}
	}
}

func (s *Supervisor) run(ctx context.Context, kind Kind, code model.RoomCode) (*model.Room, error) {
	switch kind {
	case KindStartRound:
		return s.games.MaybeStartRound(ctx, code)
	case KindAdvance:
		return s.games.CheckAndAdvance(ctx, code)
	case KindPhaseTimeout:
		return s.games.HandlePhaseTimeout(ctx, code)
	case KindNextRound:
		return s.games.ResetForNextRound(ctx, code)
	}
	return nil, fmt.Errorf("unknown action %q", kind)
}
