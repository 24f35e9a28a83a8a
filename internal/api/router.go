package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/openface/internal/api/handler"
	"github.com/mcoot/openface/internal/api/middleware"
	"github.com/mcoot/openface/internal/api/response"
	httpmw "github.com/mcoot/openface/internal/middleware"
	"github.com/mcoot/openface/internal/services/auth"
	"github.com/mcoot/openface/internal/services/bot"
	"github.com/mcoot/openface/internal/services/history"
	"github.com/mcoot/openface/internal/services/lobby"
	"github.com/mcoot/openface/internal/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	LobbyController *lobby.Controller
	BotService      *bot.Service
	History         history.Recorder
	HubManager      *sse.HubManager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	roomHandler := handler.NewRoomHandler(cfg.LobbyController, cfg.BotService, cfg.HubManager, cfg.Logger)
	authMiddleware := middleware.Auth(cfg.AuthService)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(httpmw.Logging(cfg.Logger))

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	// Room routes (all require auth)
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(authMiddleware)
	rooms.HandleFunc("", roomHandler.Create).Methods(http.MethodPost)
	rooms.HandleFunc("", roomHandler.List).Methods(http.MethodGet)
	rooms.HandleFunc("/join", roomHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}/join", roomHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/leave", roomHandler.Leave).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/start", roomHandler.Start).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/place", roomHandler.Place).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/play-again", roomHandler.PlayAgain).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/sit-out", roomHandler.SitOut).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/hand", roomHandler.Hand).Methods(http.MethodGet)
	if cfg.BotService != nil {
		rooms.HandleFunc("/{code}/bots", roomHandler.AddBot).Methods(http.MethodPost)
		rooms.HandleFunc("/{code}/bots/{player_id}", roomHandler.RemoveBot).Methods(http.MethodDelete)
	}
	if cfg.HubManager != nil {
		rooms.HandleFunc("/{code}/events", roomHandler.Events).Methods(http.MethodGet)
	}

	if cfg.History != nil {
		historyHandler := handler.NewHistoryHandler(cfg.History)
		matches := api.PathPrefix("/history").Subrouter()
		matches.Use(authMiddleware)
		matches.HandleFunc("", historyHandler.List).Methods(http.MethodGet)
		matches.HandleFunc("/{match_id}", historyHandler.Get).Methods(http.MethodGet)
	}

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.LobbyController, cfg.Logger)).Methods(http.MethodGet)

	return r
}

// healthHandler lists rooms to check the store is reachable
func healthHandler(rooms *lobby.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := rooms.ListRooms(r.Context())
		if err != nil {
			logger.Warn("health check failed", slog.String("error", err.Error()))
			response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "unavailable"})
			return
		}
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", Rooms: len(codes)})
	}
}
