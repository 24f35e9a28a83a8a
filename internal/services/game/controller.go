package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/openface/internal/dependencies/clock"
	"github.com/mcoot/openface/internal/dependencies/random"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/board"
	"github.com/mcoot/openface/internal/services/history"
	"github.com/mcoot/openface/internal/services/scoring"
	"github.com/mcoot/openface/internal/storage"
)

// Controller owns the round state machine. Every transition is an idempotent
// guard: when its precondition does not hold it changes nothing.
type Controller struct {
	storage        storage.Storage
	boardService   *board.Service
	scoringService *scoring.Service
	history        history.Recorder
	clock          clock.Clock
	random         random.Random
	logger         *slog.Logger
}

// NewController creates a new GameController
func NewController(
	storage storage.Storage,
	boardService *board.Service,
	scoringService *scoring.Service,
	history history.Recorder,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:        storage,
		boardService:   boardService,
		scoringService: scoringService,
		history:        history,
		clock:          clock,
		random:         random,
		logger:         logger,
	}
}

// Update loads a full snapshot of the room in a transaction, applies fn and
// commits whatever it changed. fn may run more than once if the commit
// conflicts with another writer.
func (c *Controller) Update(ctx context.Context, code model.RoomCode, fn func(snap *Snapshot, now time.Time) error) (*model.Room, error) {
	var room *model.Room
	err := c.storage.RunTransaction(ctx, code, func(tx storage.Transaction) error {
		snap, err := Load(tx)
		if err != nil {
			return err
		}
		now := c.clock.Now()
		if err := fn(snap, now); err != nil {
			return err
		}
		if err := snap.Commit(now); err != nil {
			return err
		}
		room = snap.Room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// MaybeStartRound deals a new round if the room is waiting in the lobby of a
// started match with enough players
func (c *Controller) MaybeStartRound(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.Update(ctx, code, func(snap *Snapshot, now time.Time) error {
		c.StartRound(snap, now)
		return nil
	})
}

// CheckAndAdvance moves the room past every phase nobody still needs to act in
func (c *Controller) CheckAndAdvance(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.Update(ctx, code, func(snap *Snapshot, now time.Time) error {
		_, err := c.Advance(snap, now)
		return err
	})
}

// HandlePhaseTimeout fouls everyone still holding cards once the phase
// deadline has passed, then advances
func (c *Controller) HandlePhaseTimeout(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.Update(ctx, code, func(snap *Snapshot, now time.Time) error {
		_, err := c.ExpirePhase(snap, now)
		return err
	})
}

// ResetForNextRound leaves the Complete phase once the inter-round delay is
// over, either dealing the next round or ending the match
func (c *Controller) ResetForNextRound(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	var completed bool
	room, err := c.Update(ctx, code, func(snap *Snapshot, now time.Time) error {
		completed = c.NextRound(snap, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if completed {
		c.recordMatch(ctx, room)
	}
	return room, nil
}

// Restart returns a finished match to the lobby with scores cleared
func (c *Controller) Restart(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.Update(ctx, code, func(snap *Snapshot, now time.Time) error {
		return c.RestartMatch(snap, now)
	})
}

// PlaceCards applies a player's placement command. When it empties the
// player's hand the room advances in the same transaction.
func (c *Controller) PlaceCards(
	ctx context.Context,
	code model.RoomCode,
	uid model.PlayerID,
	placements []model.Placement,
	discard *model.Card,
) (*model.Room, error) {
	return c.Update(ctx, code, func(snap *Snapshot, now time.Time) error {
		_, err := c.Place(snap, uid, placements, discard, now)
		return err
	})
}

// Snapshot transitions

// StartRound deals the initial five cards. Reports whether a round was started.
func (c *Controller) StartRound(snap *Snapshot, now time.Time) bool {
	room := snap.Room
	if room.Phase != model.PhaseLobby || !room.MatchStarted() {
		return false
	}
	participants := room.Participants()
	if len(participants) < model.MinPlayers {
		return false
	}

	for uid, p := range room.Players {
		p.ResetForRound()
		if !room.IsActive(uid) || p.SittingOut {
			snap.Drop(uid)
		}
	}
	for _, uid := range participants {
		cards := model.FullDeck()
		c.random.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
		snap.SetDeck(uid, cards)
		dealt := snap.Deck(uid).Draw(model.InitialDealSize)
		snap.SetHand(uid, dealt)
		room.Players[uid].CurrentHandSize = len(dealt)
	}

	room.Phase = model.PhaseInitialDeal
	room.Street = model.PhaseInitialDeal.Street()
	room.RoundResults = make(map[model.PlayerID]model.RoundResult)
	room.SetDeadline(now, room.Settings.TurnTimeout())
	snap.Touch()

	c.logger.Info("round started",
		slog.String("room", string(room.Code)),
		slog.Int("round", room.Round),
		slog.Int("players", len(participants)),
	)
	return true
}

// Advance runs the phase loop: while every participant has acted, deal the
// next street or score the round. Each iteration moves the phase strictly
// forward, so the loop ends at a phase with pending action or at Complete.
func (c *Controller) Advance(snap *Snapshot, now time.Time) (bool, error) {
	room := snap.Room
	advanced := false
	for {
		switch {
		case room.Phase == model.PhaseScoring:
			if err := c.scoreRound(snap, now); err != nil {
				return advanced, err
			}
			return true, nil
		case room.Phase.IsDealPhase() && room.AllActed():
			c.dealNext(snap, now)
			advanced = true
		default:
			return advanced, nil
		}
	}
}

// dealNext moves to the next phase, dealing a street to each participant who
// is still in the round
func (c *Controller) dealNext(snap *Snapshot, now time.Time) {
	room := snap.Room
	next := room.Phase.Next()
	room.Phase = next
	snap.Touch()

	if !next.IsDealPhase() {
		room.ClearDeadline()
		return
	}

	room.Street = next.Street()
	for _, uid := range room.Participants() {
		p := room.Players[uid]
		p.PlacedThisPhase = 0
		p.DiscardedThisPhase = 0
		if p.Fouled {
			continue
		}
		deck := snap.Deck(uid)
		dealt := deck.Draw(next.DealSize())
		snap.MarkDeck(uid)
		snap.SetHand(uid, dealt)
		p.CurrentHandSize = len(dealt)
	}
	room.SetDeadline(now, room.Settings.TurnTimeout())

	c.logger.Debug("street dealt",
		slog.String("room", string(room.Code)),
		slog.String("phase", string(next)),
	)
}

// ExpirePhase fouls every participant who has not finished the phase, discards
// their remaining cards and advances. The fouls are applied before the advance
// check so it sees them.
func (c *Controller) ExpirePhase(snap *Snapshot, now time.Time) (bool, error) {
	room := snap.Room
	if !room.Phase.IsDealPhase() || !room.DeadlinePassed(now) {
		return false, nil
	}

	for _, uid := range room.Pending() {
		p := room.Players[uid]
		p.Fouled = true
		p.CurrentHandSize = 0
		snap.SetHand(uid, nil)
		c.logger.Info("player timed out",
			slog.String("room", string(room.Code)),
			slog.String("player_id", string(uid)),
			slog.String("phase", string(room.Phase)),
		)
	}
	snap.Touch()

	if _, err := c.Advance(snap, now); err != nil {
		return true, err
	}
	return true, nil
}

// scoreRound scores every participant's board and opens the inter-round pause
func (c *Controller) scoreRound(snap *Snapshot, now time.Time) error {
	room := snap.Room
	participants := room.Participants()

	contenders := make([]scoring.Contender, 0, len(participants))
	for _, uid := range participants {
		p := room.Players[uid]
		p.Fouled = p.Fouled || c.boardService.Assess(&p.Board)
		contenders = append(contenders, scoring.Contender{UID: uid, Board: &p.Board, Fouled: p.Fouled})
	}

	net, err := c.scoringService.ScoreRound(contenders)
	if err != nil {
		return fmt.Errorf("score round %d: %w", room.Round, err)
	}

	room.RoundResults = make(map[model.PlayerID]model.RoundResult, len(participants))
	for _, uid := range participants {
		p := room.Players[uid]
		room.RoundResults[uid] = model.RoundResult{
			NetScore: net[uid],
			Fouled:   p.Fouled,
			Rows:     c.boardService.Labels(&p.Board),
		}
		p.Score += net[uid]
	}

	room.Phase = model.PhaseComplete
	room.SetDeadline(now, room.Settings.InterRoundDelay())
	snap.Touch()

	c.logger.Info("round scored",
		slog.String("room", string(room.Code)),
		slog.Int("round", room.Round),
		slog.Any("net_scores", net),
	)
	return nil
}

// NextRound leaves the Complete phase once its deadline has passed. Observers
// join the player order. The match ends after its last round, or as soon as
// fewer than two players remain to deal in. Reports whether the match is now
// complete.
func (c *Controller) NextRound(snap *Snapshot, now time.Time) bool {
	room := snap.Room
	if room.Phase != model.PhaseComplete || !room.DeadlinePassed(now) {
		return false
	}

	if promoted := room.PromoteObservers(); len(promoted) > 0 {
		c.logger.Info("observers promoted",
			slog.String("room", string(room.Code)),
			slog.Int("count", len(promoted)),
		)
	}
	room.ClearDeadline()
	snap.Touch()

	// too few players left to deal another round ends the match early
	if room.Round >= room.Settings.TotalRounds || len(room.Participants()) < model.MinPlayers {
		// boards stay in place for the final summary
		room.Phase = model.PhaseMatchComplete
		c.logger.Info("match complete",
			slog.String("room", string(room.Code)),
			slog.String("match_id", room.MatchID),
			slog.Int("rounds_played", room.Round),
		)
		return true
	}

	room.Round++
	room.RoundResults = make(map[model.PlayerID]model.RoundResult)
	room.Phase = model.PhaseLobby
	room.Street = 0
	c.StartRound(snap, now)
	return false
}

// RestartMatch returns a finished match to the lobby. The host starts the next
// match with new settings.
func (c *Controller) RestartMatch(snap *Snapshot, now time.Time) error {
	room := snap.Room
	if room.Phase != model.PhaseMatchComplete {
		return model.ErrMatchNotComplete
	}

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
	snap.Touch()

	c.logger.Info("match restarted", slog.String("room", string(room.Code)))
	return nil
}

// Place validates and applies a placement command from uid
func (c *Controller) Place(
	snap *Snapshot,
	uid model.PlayerID,
	placements []model.Placement,
	discard *model.Card,
	now time.Time,
) (*board.PlacementResult, error) {
	room := snap.Room
	if !room.Phase.IsDealPhase() {
		return nil, model.ErrWrongPhase
	}
	p, ok := room.Players[uid]
	switch {
	case !ok:
		return nil, model.ErrNotInRoom
	case !room.IsActive(uid):
		return nil, model.ErrNotActivePlayer
	case p.SittingOut:
		return nil, model.ErrSittingOut
	case p.Fouled:
		return nil, model.ErrPlayerFouled
	case p.CurrentHandSize == 0:
		return nil, model.ErrAlreadyActed
	}

	hand := snap.Hand(uid)
	result, err := c.boardService.ApplyPlacements(p, hand, room.Phase, placements, discard)
	if err != nil {
		return nil, err
	}
	snap.MarkHand(uid)

	if result.Done {
		if _, err := c.Advance(snap, now); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// recordMatch stores the finished match. Failures are logged; the match
// itself is already complete.
func (c *Controller) recordMatch(ctx context.Context, room *model.Room) {
	if c.history == nil || room.MatchID == "" {
		return
	}
	summary := model.NewMatchSummary(room, c.clock.Now())
	if err := c.history.Record(ctx, summary); err != nil {
		c.logger.Error("failed to record match history",
			slog.String("room", string(room.Code)),
			slog.String("match_id", room.MatchID),
			slog.String("error", err.Error()),
		)
	}
}
