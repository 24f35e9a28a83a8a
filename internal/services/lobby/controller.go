package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/openface/internal/dependencies/clock"
	"github.com/mcoot/openface/internal/dependencies/random"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/game"
	"github.com/mcoot/openface/internal/services/recovery"
	"github.com/mcoot/openface/internal/services/timer"
	"github.com/mcoot/openface/internal/storage"
)

// MaxCodeAttempts bounds how many room codes are tried before giving up
const MaxCodeAttempts = 20

var errCodeTaken = errors.New("room code taken")

// Controller applies player commands to rooms. Every command runs on the
// room's actor so it never interleaves with a deadline firing.
type Controller struct {
	storage    storage.Storage
	games      *game.Controller
	timers     *timer.Manager
	supervisor *recovery.Supervisor
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger
}

// NewController creates a new lobby Controller
func NewController(
	storage storage.Storage,
	games *game.Controller,
	timers *timer.Manager,
	supervisor *recovery.Supervisor,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:    storage,
		games:      games,
		timers:     timers,
		supervisor: supervisor,
		clock:      clock,
		random:     random,
		logger:     logger.With(slog.String("component", "lobby")),
	}
}

// command runs fn against a full snapshot of the room on its actor, then
// re-arms the room's timer from the committed state
func (c *Controller) command(ctx context.Context, code model.RoomCode, fn func(snap *game.Snapshot, now time.Time) error) (*model.Room, error) {
	var room *model.Room
	err := c.timers.Do(code, func() error {
		var deleted bool
		r, err := c.games.Update(ctx, code, func(snap *game.Snapshot, now time.Time) error {
			if err := fn(snap, now); err != nil {
				return err
			}
			deleted = snap.Deleted()
			return nil
		})
		if err != nil {
			return err
		}
		if deleted {
			c.timers.Remove(code)
			return nil
		}
		c.supervisor.Apply(r)
		room = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// CreateRoom allocates a fresh room code and creates a room with host as its
// only member
func (c *Controller) CreateRoom(ctx context.Context, host *model.Player, displayName string) (*model.Room, error) {
	for range MaxCodeAttempts {
		code := model.RoomCode(c.random.String(model.RoomCodeLength, model.RoomCodeAlphabet))
		exists, err := c.storage.RoomExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		room := model.NewRoom(code, host, displayName, model.DefaultSettings(), c.clock.Now())
		err = c.storage.RunTransaction(ctx, code, func(tx storage.Transaction) error {
			_, err := tx.GetRoom()
			switch {
			case err == nil:
				return errCodeTaken
			case !errors.Is(err, model.ErrRoomNotFound):
				return err
			}
			return tx.SaveRoom(room)
		})
		if errors.Is(err, errCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info("room created",
			slog.String("room", string(code)),
			slog.String("host", string(host.ID)),
		)
		return room, nil
	}
	return nil, model.ErrRoomCodeExhausted
}

// JoinRoom adds a player to a room. Players joining once a match is under way
// observe until the next round.
func (c *Controller) JoinRoom(ctx context.Context, code model.RoomCode, player *model.Player, displayName string) (*model.Room, error) {
	return c.command(ctx, code, func(snap *game.Snapshot, now time.Time) error {
		room := snap.Room
		if room.IsMember(player.ID) {
			return model.ErrAlreadyInRoom
		}
		if len(room.Players) >= model.MaxPlayers {
			return model.ErrRoomFull
		}
		room.AddPlayer(player, displayName, now)
		snap.Touch()

		c.logger.Info("player joined",
			slog.String("room", string(code)),
			slog.String("player_id", string(player.ID)),
			slog.Bool("observer", room.IsObserver(player.ID)),
		)
		return nil
	})
}

// Join joins an existing room, or creates one when create is set and no code
// is given
func (c *Controller) Join(ctx context.Context, code model.RoomCode, player *model.Player, displayName string, create bool) (*model.Room, error) {
	if create && code == "" {
		return c.CreateRoom(ctx, player, displayName)
	}
	return c.JoinRoom(ctx, code, player, displayName)
}

// LeaveRoom removes a member. The last member out deletes the room. A player
// leaving mid-round no longer holds up the phase.
func (c *Controller) LeaveRoom(ctx context.Context, code model.RoomCode, uid model.PlayerID) (*model.Room, error) {
	return c.command(ctx, code, func(snap *game.Snapshot, now time.Time) error {
		room := snap.Room
		if !room.IsMember(uid) {
			return model.ErrNotInRoom
		}
		room.RemovePlayer(uid)
		snap.Drop(uid)

		c.logger.Info("player left",
			slog.String("room", string(code)),
			slog.String("player_id", string(uid)),
		)

		if len(room.Players) == 0 {
			snap.DeleteRoom()
			c.logger.Info("room closed", slog.String("room", string(code)))
			return nil
		}
		if room.MatchStarted() && len(room.Participants()) == 0 {
			abandonMatch(snap)
			return nil
		}
		_, err := c.games.Advance(snap, now)
		return err
	})
}

// abandonMatch returns a room whose players have all gone to the lobby, with
// the remaining observers seated for the next match
func abandonMatch(snap *game.Snapshot) {
	room := snap.Room
	room.PromoteObservers()
	for uid, p := range room.Players {
		p.ResetForRound()
		p.Score = 0
		snap.Drop(uid)
	}
	room.Phase = model.PhaseLobby
	room.Street = 0
	room.Round = 0
	room.MatchID = ""
	room.MatchStartedAt = nil
	room.RoundResults = make(map[model.PlayerID]model.RoundResult)
	room.ClearDeadline()
}

// StartMatch begins a match with the given settings. Zero fields take the
// room's current settings.
func (c *Controller) StartMatch(ctx context.Context, code model.RoomCode, uid model.PlayerID, settings model.Settings) (*model.Room, error) {
	return c.command(ctx, code, func(snap *game.Snapshot, now time.Time) error {
		room := snap.Room
		if !room.IsMember(uid) {
			return model.ErrNotInRoom
		}
		if room.HostUID != uid {
			return model.ErrNotHost
		}
		if room.Phase != model.PhaseLobby || room.MatchStarted() {
			return model.ErrMatchInProgress
		}
		settings = settings.WithDefaults(room.Settings)
		if err := settings.Validate(); err != nil {
			return fmt.Errorf("%w: %+v", err, settings)
		}
		if len(room.Participants()) < model.MinPlayers {
			return model.ErrInsufficientPlayers
		}

		room.Settings = settings
		room.Round = 1
		room.MatchID = uuid.NewString()
		started := now
		room.MatchStartedAt = &started
		for _, p := range room.Players {
			p.Score = 0
		}
		snap.Touch()

		c.logger.Info("match started",
			slog.String("room", string(code)),
			slog.String("match_id", room.MatchID),
			slog.Int("total_rounds", settings.TotalRounds),
		)
		c.games.StartRound(snap, now)
		return nil
	})
}

// PlaceCards applies a placement command from uid
func (c *Controller) PlaceCards(
	ctx context.Context,
	code model.RoomCode,
	uid model.PlayerID,
	placements []model.Placement,
	discard *model.Card,
) (*model.Room, error) {
	return c.command(ctx, code, func(snap *game.Snapshot, now time.Time) error {
		_, err := c.games.Place(snap, uid, placements, discard, now)
		return err
	})
}

// PlayAgain returns a finished match to the lobby
func (c *Controller) PlayAgain(ctx context.Context, code model.RoomCode, uid model.PlayerID) (*model.Room, error) {
	return c.command(ctx, code, func(snap *game.Snapshot, now time.Time) error {
		if !snap.Room.IsMember(uid) {
			return model.ErrNotInRoom
		}
		return c.games.RestartMatch(snap, now)
	})
}

// SetSittingOut toggles whether a player is dealt into upcoming rounds. It can
// only change between rounds.
func (c *Controller) SetSittingOut(ctx context.Context, code model.RoomCode, uid model.PlayerID, sittingOut bool) (*model.Room, error) {
	return c.command(ctx, code, func(snap *game.Snapshot, now time.Time) error {
		room := snap.Room
		p, ok := room.Players[uid]
		if !ok {
			return model.ErrNotInRoom
		}
		if room.Phase.IsDealPhase() || room.Phase == model.PhaseScoring {
			return model.ErrWrongPhase
		}
		if p.SittingOut == sittingOut {
			return nil
		}
		p.SittingOut = sittingOut
		snap.Touch()
		return nil
	})
}

// SetConnected records a member's presence
func (c *Controller) SetConnected(ctx context.Context, code model.RoomCode, uid model.PlayerID, connected bool) (*model.Room, error) {
	return c.command(ctx, code, func(snap *game.Snapshot, now time.Time) error {
		p, ok := snap.Room.Players[uid]
		if !ok {
			return model.ErrNotInRoom
		}
		if p.Disconnected == !connected {
			return nil
		}
		p.Disconnected = !connected
		snap.Touch()
		return nil
	})
}

// GetRoom retrieves a room by code
func (c *Controller) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.storage.GetRoom(ctx, code)
}

// GetHand returns uid's private hand. Members without dealt cards get an empty hand.
func (c *Controller) GetHand(ctx context.Context, code model.RoomCode, uid model.PlayerID) (*model.Hand, error) {
	room, err := c.storage.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(uid) {
		return nil, model.ErrNotInRoom
	}
	hand, err := c.storage.GetHand(ctx, code, uid)
	if errors.Is(err, model.ErrHandNotFound) {
		return model.NewHand(code, uid), nil
	}
	return hand, err
}

// ListRooms returns the codes of every open room
func (c *Controller) ListRooms(ctx context.Context) ([]model.RoomCode, error) {
	return c.storage.ListRooms(ctx)
}
