package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/openface/internal/config"
	"github.com/mcoot/openface/internal/dependencies/clock"
	"github.com/mcoot/openface/internal/dependencies/random"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/auth"
	"github.com/mcoot/openface/internal/services/board"
	"github.com/mcoot/openface/internal/services/bot"
	"github.com/mcoot/openface/internal/services/game"
	"github.com/mcoot/openface/internal/services/history"
	"github.com/mcoot/openface/internal/services/lobby"
	"github.com/mcoot/openface/internal/services/recovery"
	"github.com/mcoot/openface/internal/services/scoring"
	"github.com/mcoot/openface/internal/services/timer"
	"github.com/mcoot/openface/internal/sse"
	"github.com/mcoot/openface/internal/storage"
	"github.com/mcoot/openface/internal/storage/memory"
	redisstorage "github.com/mcoot/openface/internal/storage/redis"
)

// presenceTimeout bounds the command recording a stream opening or closing
const presenceTimeout = 5 * time.Second

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage
	History history.Recorder

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	BoardService    *board.Service
	ScoringService  *scoring.Service
	GameController  *game.Controller
	Timers          *timer.Manager
	Supervisor      *recovery.Supervisor
	LobbyController *lobby.Controller
	BotService      *bot.Service
	AuthService     *auth.Service
	HubManager      *sse.HubManager
	Broadcaster     *sse.Broadcaster
	BotsEnabled     bool
	Logger          *slog.Logger
	closers         []func() error
}

// Config holds configuration for the application factory
type Config struct {
	config.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var (
		store   storage.Storage
		closers []func() error
	)
	switch cfg.StorageType {
	case "", config.StorageMemory:
		store = memory.New()
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		if cfg.PoolSize > 0 {
			redisCfg.PoolSize = cfg.PoolSize
		}
		if cfg.RoomTTL > 0 {
			redisCfg.RoomTTL = cfg.RoomTTL
		}
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore.Close)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	var recorder history.Recorder = history.NewMemory()
	if cfg.DatabaseURL != "" {
		pg, err := history.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = closeAll(closers)
			return nil, err
		}
		recorder = pg
		closers = append(closers, func() error {
			pg.Close()
			return nil
		})
	}

	authCfg := auth.DefaultConfig()
	if cfg.SessionDuration > 0 {
		authCfg.SessionDuration = cfg.SessionDuration
	}
	if cfg.CleanupInterval > 0 {
		authCfg.CleanupInterval = cfg.CleanupInterval
	}

	app := newWithDependencies(store, recorder, clock.New(), random.New(), dependencyConfig{
		auth:     authCfg,
		recovery: recovery.Config{RetryDelay: cfg.RetryDelay, ResyncInterval: cfg.ResyncPeriod},
		bots:     cfg.BotsEnabled,
	}, logger)
	app.closers = closers
	return app, nil
}

type dependencyConfig struct {
	auth     auth.Config
	recovery recovery.Config
	bots     bool
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	recorder history.Recorder,
	clk clock.Clock,
	rnd random.Random,
	cfg dependencyConfig,
	logger *slog.Logger,
) *App {
	boardService := board.New()
	scoringService := scoring.New()
	gameController := game.NewController(store, boardService, scoringService, recorder, clk, rnd, logger)
	timers := timer.New(clk, logger)
	supervisor := recovery.NewSupervisor(store, gameController, timers, clk, logger, cfg.recovery)
	lobbyController := lobby.NewController(store, gameController, timers, supervisor, clk, rnd, logger)
	strategies := map[string]bot.Strategy{
		model.BotStrategyRandom:  bot.NewRandomStrategy(rnd),
		model.BotStrategyStacked: bot.NewStackedStrategy(),
	}
	botService := bot.NewService(store, lobbyController, strategies, clk, logger)
	authService := auth.New(store, clk, logger, cfg.auth)
	hubManager := sse.NewHubManager(clk, presenceRecorder(lobbyController, logger), logger)
	broadcaster := sse.NewBroadcaster(store, hubManager, clk, logger)

	return &App{
		Storage:         store,
		History:         recorder,
		Clock:           clk,
		Random:          rnd,
		BoardService:    boardService,
		ScoringService:  scoringService,
		GameController:  gameController,
		Timers:          timers,
		Supervisor:      supervisor,
		LobbyController: lobbyController,
		BotService:      botService,
		AuthService:     authService,
		HubManager:      hubManager,
		Broadcaster:     broadcaster,
		BotsEnabled:     cfg.bots,
		Logger:          logger,
	}
}

// presenceRecorder marks a member connected while they hold at least one
// event stream
func presenceRecorder(lobbyController *lobby.Controller, logger *slog.Logger) sse.PresenceFunc {
	return func(code model.RoomCode, uid model.PlayerID, connected bool) {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		_, err := lobbyController.SetConnected(ctx, code, uid, connected)
		if err == nil || errors.Is(err, model.ErrNotInRoom) || errors.Is(err, model.ErrRoomNotFound) {
			return
		}
		logger.Warn("failed to record presence",
			slog.String("room", string(code)),
			slog.String("player_id", string(uid)),
			slog.Bool("connected", connected),
			slog.String("error", err.Error()),
		)
	}
}

// Run drives the background workers until ctx is cancelled or one fails
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Supervisor.Run(ctx) })
	g.Go(func() error { return a.Broadcaster.Run(ctx) })
	g.Go(func() error { return a.AuthService.RunCleanup(ctx) })
	if a.BotsEnabled {
		g.Go(func() error { return a.BotService.Run(ctx) })
	}
	return g.Wait()
}

// Close stops room timers and releases external connections
func (a *App) Close() error {
	a.Timers.Stop()
	return closeAll(a.closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
