package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/openface/internal/dependencies/clock"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/lobby"
	"github.com/mcoot/openface/internal/storage"
)

// MaxBotIterations is a safety limit for the Act loop
const MaxBotIterations = 16

// Service manages bot players and plays their turns
type Service struct {
	storage    storage.Storage
	lobby      *lobby.Controller
	strategies map[string]Strategy
	clock      clock.Clock
	logger     *slog.Logger
}

// NewService creates a new bot Service
func NewService(
	store storage.Storage,
	lobbyController *lobby.Controller,
	strategies map[string]Strategy,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:    store,
		lobby:      lobbyController,
		strategies: strategies,
		clock:      clk,
		logger:     logger.With(slog.String("component", "bot-service")),
	}
}

// CreateBotPlayer creates a new bot player and saves it to storage
func (s *Service) CreateBotPlayer(ctx context.Context, displayName string, strategy string) (*model.Player, error) {
	player := &model.Player{
		ID:          model.PlayerID("bot-" + uuid.NewString()),
		DisplayName: displayName,
		IsGuest:     true,
		IsBot:       true,
		BotStrategy: strategy,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	return player, nil
}

// AddBot creates a bot player and seats it in the room.
// Only the host can add bots, and only before a match starts.
func (s *Service) AddBot(ctx context.Context, code model.RoomCode, requester model.PlayerID, strategy string) (*model.Player, error) {
	if _, ok := s.strategies[strategy]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownStrategy, strategy)
	}

	room, err := s.lobby.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.HostUID != requester {
		return nil, model.ErrNotHost
	}
	if room.Phase != model.PhaseLobby || room.MatchStarted() {
		return nil, model.ErrMatchInProgress
	}

	botCount := 0
	for _, p := range room.Players {
		if p.IsBot {
			botCount++
		}
	}

	displayName := fmt.Sprintf("%s Bot %d", model.BotStrategyDisplayName(strategy), botCount+1)
	bot, err := s.CreateBotPlayer(ctx, displayName, strategy)
	if err != nil {
		return nil, err
	}

	if _, err := s.lobby.JoinRoom(ctx, code, bot, ""); err != nil {
		return nil, err
	}

	s.logger.Info("bot added to room",
		slog.String("room", string(code)),
		slog.String("bot_id", string(bot.ID)),
		slog.String("strategy", strategy),
	)

	return bot, nil
}

// RemoveBot removes a bot from the room. Only the host can remove bots.
func (s *Service) RemoveBot(ctx context.Context, code model.RoomCode, requester model.PlayerID, botID model.PlayerID) (*model.Room, error) {
	room, err := s.lobby.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.HostUID != requester {
		return nil, model.ErrNotHost
	}

	p, ok := room.Players[botID]
	if !ok {
		return nil, model.ErrNotInRoom
	}
	if !p.IsBot {
		return nil, model.ErrNotBot
	}

	return s.lobby.LeaveRoom(ctx, code, botID)
}

// Act places cards for every bot in the room still holding some. Dealing the
// next street can hand the bots new cards, so it repeats until no bot moves.
// Returns the number of placement commands made.
func (s *Service) Act(ctx context.Context, code model.RoomCode) (int, error) {
	moves := 0
	for range MaxBotIterations {
		room, err := s.lobby.GetRoom(ctx, code)
		if err != nil {
			return moves, err
		}
		if !room.Phase.IsDealPhase() {
			return moves, nil
		}

		acted := false
		for _, uid := range room.Pending() {
			p := room.Players[uid]
			if !p.IsBot {
				continue
			}
			if err := s.play(ctx, room, p); err != nil {
				return moves, fmt.Errorf("bot %s: %w", uid, err)
			}
			moves++
			acted = true
		}
		if !acted {
			return moves, nil
		}
	}
	return moves, nil
}

func (s *Service) play(ctx context.Context, room *model.Room, p *model.PlayerState) error {
	hand, err := s.storage.GetHand(ctx, room.Code, p.UID)
	if err != nil {
		return err
	}
	placements, discard := s.strategyFor(p).Choose(room.Phase, &p.Board, hand.Cards)

	_, err = s.lobby.PlaceCards(ctx, room.Code, p.UID, placements, discard)
	switch {
	case errors.Is(err, model.ErrWrongPhase), errors.Is(err, model.ErrAlreadyActed), errors.Is(err, model.ErrPlayerFouled):
		// the room moved on between the read and the command
		return nil
	case err != nil:
		return err
	}

	s.logger.Debug("bot placed cards",
		slog.String("room", string(room.Code)),
		slog.String("bot_id", string(p.UID)),
		slog.String("phase", string(room.Phase)),
	)
	return nil
}

// Run plays bot turns whenever a room changes, until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	changes, err := s.storage.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to room changes: %w", err)
	}
	for change := range changes {
		if change.Deleted {
			continue
		}
		if _, err := s.Act(ctx, change.Room); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
			s.logger.Warn("bot turn failed",
				slog.String("room", string(change.Room)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// strategyFor returns the bot's strategy, falling back to random
func (s *Service) strategyFor(p *model.PlayerState) Strategy {
	if st, ok := s.strategies[p.BotStrategy]; ok {
		return st
	}
	if st, ok := s.strategies[model.BotStrategyRandom]; ok {
		return st
	}
	for _, st := range s.strategies {
		return st
	}
	return NewStackedStrategy()
}
