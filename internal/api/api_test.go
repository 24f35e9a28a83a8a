package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/openface/internal/api"
	"github.com/mcoot/openface/internal/api/apierr"
	"github.com/mcoot/openface/internal/api/request"
	"github.com/mcoot/openface/internal/api/response"
	"github.com/mcoot/openface/internal/factory"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/testutil"
)

// testServer wires the router to a test app with a mock clock
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp(t)
	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		AuthService:     app.AuthService,
		LobbyController: app.LobbyController,
		BotService:      app.BotService,
		History:         app.History,
		HubManager:      app.HubManager,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

// guest creates a guest player and returns its session token and id
func (ts *testServer) guest(t *testing.T, name string) (string, string) {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players/guest", request.CreateGuestRequest{DisplayName: name}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[response.AuthResponse](t, rr)
	return resp.SessionToken, resp.Player.ID
}

// createRoom makes a room with the given code hosted by token
func (ts *testServer) createRoom(t *testing.T, code, token string) response.Room {
	t.Helper()
	ts.app.MockRandom.QueueString(code)
	rr := ts.request(http.MethodPost, "/api/v1/rooms", request.CreateRoomRequest{}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Room](t, rr)
}

func (ts *testServer) hand(t *testing.T, code, token string) response.Hand {
	t.Helper()
	rr := ts.request(http.MethodGet, "/api/v1/rooms/"+code+"/hand", nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[response.Hand](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	health := decode[response.Health](t, rr)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.Rooms)

	token, _ := ts.guest(t, "Alice")
	ts.createRoom(t, "KQXWPZ", token)

	health = decode[response.Health](t, ts.request(http.MethodGet, "/api/v1/health", nil, ""))
	assert.Equal(t, 1, health.Rooms)
}

func TestRequestIDEchoed(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", rr.Header().Get("X-Request-ID"))

	rr = ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestCreateGuestPlayer(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", request.CreateGuestRequest{DisplayName: "Alice"}, "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	resp := decode[response.AuthResponse](t, rr)
	assert.Equal(t, "Alice", resp.Player.DisplayName)
	assert.True(t, resp.Player.IsGuest)
	assert.NotEmpty(t, resp.SessionToken)

	rr = ts.request(http.MethodPost, "/api/v1/players/guest", request.CreateGuestRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/players/guest", "not an object", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	register := request.RegisterRequest{Username: "alice", Password: "secret123", DisplayName: "Alice"}
	rr := ts.request(http.MethodPost, "/api/v1/players/register", register, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.False(t, decode[response.AuthResponse](t, rr).Player.IsGuest)

	rr = ts.request(http.MethodPost, "/api/v1/players/register", register, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeUsernameExists, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/players/login", request.LoginRequest{Username: "alice", Password: "secret123"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	login := decode[response.AuthResponse](t, rr)
	assert.Equal(t, "Alice", login.Player.DisplayName)

	rr = ts.request(http.MethodPost, "/api/v1/players/login", request.LoginRequest{Username: "alice", Password: "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestGetMeAndLogout(t *testing.T) {
	ts := newTestServer(t)
	token, id := ts.guest(t, "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, decode[response.Player](t, rr).ID)

	rr = ts.request(http.MethodPost, "/api/v1/players/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/players/me", "/api/v1/rooms", "/api/v1/history"} {
		rr := ts.request(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.Equal(t, apierr.CodeUnauthorized, errorCode(t, rr), path)
	}
}

func TestCreateAndJoinRoom(t *testing.T) {
	ts := newTestServer(t)
	aliceToken, aliceID := ts.guest(t, "Alice")
	bobToken, bobID := ts.guest(t, "Bob")

	room := ts.createRoom(t, "KQXWPZ", aliceToken)
	assert.Equal(t, "KQXWPZ", room.Code)
	assert.Equal(t, string(model.PhaseLobby), room.Phase)
	assert.Equal(t, aliceID, room.HostID)

	rr := ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/join", request.JoinRoomRequest{DisplayName: "Bobby"}, bobToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	room = decode[response.Room](t, rr)
	require.Len(t, room.Players, 2)
	assert.Equal(t, bobID, room.Players[1].ID)
	assert.Equal(t, "Bobby", room.Players[1].DisplayName)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/join", nil, bobToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeAlreadyInRoom, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rooms/NOROOM/join", nil, bobToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotFound, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/rooms", nil, bobToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"KQXWPZ"}, decode[response.RoomList](t, rr).Rooms)
}

func TestJoinWithCreate(t *testing.T) {
	ts := newTestServer(t)
	token, id := ts.guest(t, "Alice")

	ts.app.MockRandom.QueueString("FRESH1")
	rr := ts.request(http.MethodPost, "/api/v1/rooms/join", request.JoinRoomRequest{Create: true}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	room := decode[response.Room](t, rr)
	assert.Equal(t, "FRESH1", room.Code)
	assert.Equal(t, id, room.HostID)
}

func TestLeaveRoom(t *testing.T) {
	ts := newTestServer(t)
	aliceToken, _ := ts.guest(t, "Alice")
	bobToken, bobID := ts.guest(t, "Bob")
	ts.createRoom(t, "KQXWPZ", aliceToken)
	ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/join", nil, bobToken)

	rr := ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/leave", nil, aliceToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/KQXWPZ", nil, bobToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, bobID, decode[response.Room](t, rr).HostID)

	// the last member out deletes the room
	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/leave", nil, bobToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/rooms/KQXWPZ", nil, bobToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStartAndPlace(t *testing.T) {
	ts := newTestServer(t)
	aliceToken, aliceID := ts.guest(t, "Alice")
	bobToken, bobID := ts.guest(t, "Bob")
	ts.createRoom(t, "KQXWPZ", aliceToken)
	ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/join", nil, bobToken)

	rr := ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/start", nil, bobToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotHost, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/start", request.StartMatchRequest{TurnTimeoutMs: 1}, aliceToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidSettings, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/start", request.StartMatchRequest{TotalRounds: 2}, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	room := decode[response.Room](t, rr)
	assert.Equal(t, string(model.PhaseInitialDeal), room.Phase)
	assert.Equal(t, 1, room.Round)
	assert.Equal(t, 2, room.Settings.TotalRounds)
	assert.ElementsMatch(t, []string{aliceID, bobID}, room.Pending)
	assert.NotNil(t, room.PhaseDeadline)

	hand := ts.hand(t, "KQXWPZ", aliceToken)
	require.Len(t, hand.Cards, 5)
	assert.Equal(t, string(model.PhaseInitialDeal), hand.Phase)

	// a card that is not in the hand is rejected with its name
	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/place", request.PlaceCardsRequest{
		Placements: []request.Placement{{Card: "Zz", Row: "bottom"}},
	}, aliceToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidPlacement, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/place", request.PlaceCardsRequest{
		Placements: []request.Placement{{Card: hand.Cards[0], Row: "sideways"}},
	}, aliceToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidPlacement, errorCode(t, rr))

	placements := make([]request.Placement, 0, len(hand.Cards))
	for _, c := range hand.Cards {
		placements = append(placements, request.Placement{Card: c, Row: string(model.RowBottom)})
	}
	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/place", request.PlaceCardsRequest{Placements: placements}, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	room = decode[response.Room](t, rr)
	assert.Equal(t, []string{bobID}, room.Pending)
	assert.Len(t, room.Players[0].Board.Bottom, 5)
	assert.Empty(t, ts.hand(t, "KQXWPZ", aliceToken).Cards)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/place", request.PlaceCardsRequest{Placements: placements}, aliceToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeAlreadyActed, errorCode(t, rr))

	// joining mid-match observes
	carolToken, _ := ts.guest(t, "Carol")
	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/join", nil, carolToken)
	require.Equal(t, http.StatusOK, rr.Code)
	room = decode[response.Room](t, rr)
	assert.True(t, room.Players[len(room.Players)-1].Observer)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/sit-out", request.SitOutRequest{SittingOut: true}, bobToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeWrongPhase, errorCode(t, rr))
}

func TestHandRequiresMembership(t *testing.T) {
	ts := newTestServer(t)
	aliceToken, _ := ts.guest(t, "Alice")
	bobToken, _ := ts.guest(t, "Bob")
	ts.createRoom(t, "KQXWPZ", aliceToken)

	assert.Empty(t, ts.hand(t, "KQXWPZ", aliceToken).Cards)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/KQXWPZ/hand", nil, bobToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotInRoom, errorCode(t, rr))
}

func TestBotsAndHistory(t *testing.T) {
	ts := newTestServer(t)
	token, id := ts.guest(t, "Alice")
	ts.createRoom(t, "KQXWPZ", token)

	rr := ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/bots", request.AddBotRequest{Strategy: "genius"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeUnknownStrategy, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/bots", request.AddBotRequest{Strategy: model.BotStrategyStacked}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	room := decode[response.Room](t, rr)
	require.Len(t, room.Players, 2)
	bot := room.Players[1]
	assert.True(t, bot.IsBot)
	assert.Equal(t, model.BotStrategyStacked, bot.BotStrategy)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/start", request.StartMatchRequest{TotalRounds: 1}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// the host times out on the initial deal and fouls, then the bot plays
	// out the rest of the round alone
	_, err := ts.app.BotService.Act(t.Context(), "KQXWPZ")
	require.NoError(t, err)
	ts.app.MockClock.Advance(model.DefaultSettings().TurnTimeout()).MustWait(t.Context())
	_, err = ts.app.BotService.Act(t.Context(), "KQXWPZ")
	require.NoError(t, err)
	ts.app.MockClock.Advance(model.DefaultSettings().InterRoundDelay()).MustWait(t.Context())

	rr = ts.request(http.MethodGet, "/api/v1/rooms/KQXWPZ", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	room = decode[response.Room](t, rr)
	require.Equal(t, string(model.PhaseMatchComplete), room.Phase)

	rr = ts.request(http.MethodGet, "/api/v1/history", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decode[response.History](t, rr)
	require.Len(t, history.Matches, 1)
	match := history.Matches[0]
	assert.Equal(t, room.MatchID, match.ID)
	require.Len(t, match.Standings, 2)
	assert.Equal(t, bot.ID, match.Standings[0].PlayerID)
	assert.Equal(t, id, match.Standings[1].PlayerID)

	rr = ts.request(http.MethodGet, "/api/v1/history/"+match.ID, nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, match.ID, decode[response.Match](t, rr).ID)

	rr = ts.request(http.MethodGet, "/api/v1/history/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeMatchNotFound, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rooms/KQXWPZ/play-again", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(model.PhaseLobby), decode[response.Room](t, rr).Phase)

	rr = ts.request(http.MethodDelete, "/api/v1/rooms/KQXWPZ/bots/"+bot.ID, nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decode[response.Room](t, rr).Players, 1)
}

// readEvents collects event names from a stream until want have been seen
func readEvents(t *testing.T, scanner *bufio.Scanner, want ...string) []string {
	t.Helper()
	var seen []string
	for len(seen) < len(want) && scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			seen = append(seen, name)
		}
	}
	require.Equal(t, want, seen)
	return seen
}

func TestRoomEvents(t *testing.T) {
	ts := newTestServer(t)
	aliceToken, aliceID := ts.guest(t, "Alice")
	bobToken, _ := ts.guest(t, "Bob")
	ts.createRoom(t, "KQXWPZ", aliceToken)

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	// non-members are refused before the stream opens
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/rooms/KQXWPZ/events?token="+bobToken, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go func() { _ = ts.app.Broadcaster.Run(runCtx) }()

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/rooms/KQXWPZ/events?token="+aliceToken, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	readEvents(t, scanner, string(model.EventConnected), string(model.EventRoomUpdated))

	// the stream marks the player connected
	require.Eventually(t, func() bool {
		room, err := ts.app.LobbyController.GetRoom(ctx, "KQXWPZ")
		return err == nil && !room.Players[model.PlayerID(aliceID)].Disconnected
	}, 2*time.Second, 10*time.Millisecond)

	// keep changing the room until the broadcaster has subscribed and pushes one
	go func() {
		sittingOut := false
		for runCtx.Err() == nil {
			sittingOut = !sittingOut
			_, _ = ts.app.LobbyController.SetSittingOut(runCtx, "KQXWPZ", model.PlayerID(aliceID), sittingOut)
			time.Sleep(20 * time.Millisecond)
		}
	}()
	readEvents(t, scanner, string(model.EventRoomUpdated))
}
