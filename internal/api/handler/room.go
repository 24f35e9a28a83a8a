package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/openface/internal/api/middleware"
	"github.com/mcoot/openface/internal/api/request"
	"github.com/mcoot/openface/internal/api/response"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/bot"
	"github.com/mcoot/openface/internal/services/lobby"
	"github.com/mcoot/openface/internal/sse"
)

// RoomHandler handles room commands, hands and the room event stream
type RoomHandler struct {
	lobbyController *lobby.Controller
	botService      *bot.Service
	hubManager      *sse.HubManager
	logger          *slog.Logger
}

// NewRoomHandler creates a new room handler. botService and hubManager may be
// nil, which disables the bot and event routes.
func NewRoomHandler(lobbyController *lobby.Controller, botService *bot.Service, hubManager *sse.HubManager, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		lobbyController: lobbyController,
		botService:      botService,
		hubManager:      hubManager,
		logger:          logger.With(slog.String("component", "room-handler")),
	}
}

func roomCode(r *http.Request) model.RoomCode {
	return model.RoomCode(mux.Vars(r)["code"])
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.CreateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	room, err := h.lobbyController.CreateRoom(r.Context(), player, req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomFromModel(room))
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.lobbyController.ListRooms(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomListFromModel(codes))
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.lobbyController.GetRoom(r.Context(), roomCode(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Join handles POST /api/v1/rooms/{code}/join and POST /api/v1/rooms/join,
// where create allocates a new room
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.JoinRoomRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	room, err := h.lobbyController.Join(r.Context(), roomCode(r), player, req.DisplayName, req.Create)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Leave handles POST /api/v1/rooms/{code}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	if _, err := h.lobbyController.LeaveRoom(r.Context(), roomCode(r), player.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Start handles POST /api/v1/rooms/{code}/start
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.StartMatchRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	settings := model.Settings{
		TurnTimeoutMs:     req.TurnTimeoutMs,
		InterRoundDelayMs: req.InterRoundDelayMs,
		TotalRounds:       req.TotalRounds,
	}
	room, err := h.lobbyController.StartMatch(r.Context(), roomCode(r), player.ID, settings)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Place handles POST /api/v1/rooms/{code}/place
func (h *RoomHandler) Place(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.PlaceCardsRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	placements := make([]model.Placement, 0, len(req.Placements))
	for _, p := range req.Placements {
		card, err := model.ParseCard(p.Card)
		if err != nil {
			WriteError(w, err)
			return
		}
		row, err := model.ParseRow(p.Row)
		if err != nil {
			WriteError(w, err)
			return
		}
		placements = append(placements, model.Placement{Card: card, Row: row})
	}

	var discard *model.Card
	if req.Discard != "" {
		card, err := model.ParseCard(req.Discard)
		if err != nil {
			WriteError(w, err)
			return
		}
		discard = &card
	}

	room, err := h.lobbyController.PlaceCards(r.Context(), roomCode(r), player.ID, placements, discard)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// PlayAgain handles POST /api/v1/rooms/{code}/play-again
func (h *RoomHandler) PlayAgain(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	room, err := h.lobbyController.PlayAgain(r.Context(), roomCode(r), player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// SitOut handles POST /api/v1/rooms/{code}/sit-out
func (h *RoomHandler) SitOut(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.SitOutRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	room, err := h.lobbyController.SetSittingOut(r.Context(), roomCode(r), player.ID, req.SittingOut)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Hand handles GET /api/v1/rooms/{code}/hand
func (h *RoomHandler) Hand(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := roomCode(r)

	hand, err := h.lobbyController.GetHand(r.Context(), code, player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	room, err := h.lobbyController.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.HandFromModel(hand, room.Phase))
}

// AddBot handles POST /api/v1/rooms/{code}/bots
func (h *RoomHandler) AddBot(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := roomCode(r)

	var req request.AddBotRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = model.BotStrategyRandom
	}

	if _, err := h.botService.AddBot(r.Context(), code, player.ID, strategy); err != nil {
		WriteError(w, err)
		return
	}

	room, err := h.lobbyController.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomFromModel(room))
}

// RemoveBot handles DELETE /api/v1/rooms/{code}/bots/{player_id}
func (h *RoomHandler) RemoveBot(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	botID := model.PlayerID(mux.Vars(r)["player_id"])

	room, err := h.botService.RemoveBot(r.Context(), roomCode(r), player.ID, botID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Events handles GET /api/v1/rooms/{code}/events. Members receive a
// room-update event for every committed change until they disconnect.
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := roomCode(r)

	room, err := h.lobbyController.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !room.IsMember(player.ID) {
		WriteError(w, model.ErrNotInRoom)
		return
	}

	client := h.hubManager.Attach(code, player.ID)

	// reload so nothing committed before the attach is missed
	if latest, err := h.lobbyController.GetRoom(r.Context(), code); err == nil {
		room = latest
	}
	initial, err := sse.RoomEvent(room)
	if err != nil {
		h.logger.Error("failed to render room", slog.String("room", string(code)), slog.Any("error", err))
	}

	sse.ServeSSE(w, r, client, initial)
}
