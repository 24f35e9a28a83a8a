package response

import (
	"time"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
		IsBot:       p.IsBot,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Board is a player's public board. Cards are in "Ah" notation.
type Board struct {
	Top    []string `json:"top"`
	Middle []string `json:"middle"`
	Bottom []string `json:"bottom"`
}

// BoardFromModel converts model.Board to response Board
func BoardFromModel(b *model.Board) Board {
	return Board{
		Top:    Cards(b.Top),
		Middle: Cards(b.Middle),
		Bottom: Cards(b.Bottom),
	}
}

// Cards renders cards as strings, never returning nil
func Cards(cards []model.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

// RoomPlayer is the public view of one room member
type RoomPlayer struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display_name"`
	Board              Board  `json:"board"`
	HandSize           int    `json:"hand_size"`
	PlacedThisPhase    int    `json:"placed_this_phase"`
	DiscardedThisPhase int    `json:"discarded_this_phase"`
	Acted              bool   `json:"acted"`
	Fouled             bool   `json:"fouled"`
	SittingOut         bool   `json:"sitting_out"`
	Observer           bool   `json:"observer"`
	Connected          bool   `json:"connected"`
	IsHost             bool   `json:"is_host"`
	IsBot              bool   `json:"is_bot,omitempty"`
	BotStrategy        string `json:"bot_strategy,omitempty"`
	Score              int    `json:"score"`
}

// RoundResult is one player's outcome for the last scored round
type RoundResult struct {
	NetScore int             `json:"net_score"`
	Fouled   bool            `json:"fouled"`
	Rows     model.RowLabels `json:"rows"`
}

// Room is the public room document. It never carries hands or decks.
type Room struct {
	Code          string                 `json:"code"`
	MatchID       string                 `json:"match_id,omitempty"`
	Phase         string                 `json:"phase"`
	Street        int                    `json:"street"`
	Round         int                    `json:"round"`
	HostID        string                 `json:"host_id"`
	Players       []RoomPlayer           `json:"players"`
	Pending       []string               `json:"pending"`
	PhaseDeadline *time.Time             `json:"phase_deadline,omitempty"`
	Settings      model.Settings         `json:"settings"`
	RoundResults  map[string]RoundResult `json:"round_results,omitempty"`
	Version       int64                  `json:"version"`
}

// RoomFromModel converts model.Room. Players come in seat order, then observers.
func RoomFromModel(r *model.Room) Room {
	order := append(append([]model.PlayerID{}, r.PlayerOrder...), r.Observers()...)
	players := make([]RoomPlayer, 0, len(order))
	for _, uid := range order {
		p := r.Players[uid]
		if p == nil {
			continue
		}
		players = append(players, RoomPlayer{
			ID:                 string(uid),
			DisplayName:        p.DisplayName,
			Board:              BoardFromModel(&p.Board),
			HandSize:           p.CurrentHandSize,
			PlacedThisPhase:    p.PlacedThisPhase,
			DiscardedThisPhase: p.DiscardedThisPhase,
			Acted:              p.HasActed(),
			Fouled:             p.Fouled,
			SittingOut:         p.SittingOut,
			Observer:           r.IsObserver(uid),
			Connected:          !p.Disconnected,
			IsHost:             uid == r.HostUID,
			IsBot:              p.IsBot,
			BotStrategy:        p.BotStrategy,
			Score:              p.Score,
		})
	}

	pending := []string{}
	if r.Phase.IsDealPhase() {
		for _, uid := range r.Pending() {
			pending = append(pending, string(uid))
		}
	}

	var results map[string]RoundResult
	if len(r.RoundResults) > 0 {
		results = make(map[string]RoundResult, len(r.RoundResults))
		for uid, res := range r.RoundResults {
			results[string(uid)] = RoundResult(res)
		}
	}

	return Room{
		Code:          string(r.Code),
		MatchID:       r.MatchID,
		Phase:         string(r.Phase),
		Street:        r.Street,
		Round:         r.Round,
		HostID:        string(r.HostUID),
		Players:       players,
		Pending:       pending,
		PhaseDeadline: r.PhaseDeadline,
		Settings:      r.Settings,
		RoundResults:  results,
		Version:       r.Version,
	}
}

// Hand is the caller's private hand
type Hand struct {
	Room  string   `json:"room"`
	Phase string   `json:"phase"`
	Cards []string `json:"cards"`
}

// HandFromModel converts model.Hand
func HandFromModel(h *model.Hand, phase model.Phase) Hand {
	return Hand{
		Room:  string(h.Room),
		Phase: string(phase),
		Cards: Cards(h.Cards),
	}
}

// RoomList lists the codes of live rooms
type RoomList struct {
	Rooms []string `json:"rooms"`
}

// RoomListFromModel converts a slice of room codes
func RoomListFromModel(codes []model.RoomCode) RoomList {
	rooms := make([]string, len(codes))
	for i, c := range codes {
		rooms[i] = string(c)
	}
	return RoomList{Rooms: rooms}
}

// Standing is one player's final position in a match
type Standing struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Place       int    `json:"place"`
}

// Match summarizes a finished match
type Match struct {
	ID          string     `json:"id"`
	Room        string     `json:"room"`
	Rounds      int        `json:"rounds"`
	Standings   []Standing `json:"standings"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// MatchFromModel converts model.MatchSummary
func MatchFromModel(m *model.MatchSummary) Match {
	standings := make([]Standing, len(m.Standings))
	for i, s := range m.Standings {
		standings[i] = Standing{
			PlayerID:    string(s.UID),
			DisplayName: s.DisplayName,
			Score:       s.Score,
			Place:       s.Place,
		}
	}
	return Match{
		ID:          m.MatchID,
		Room:        string(m.Room),
		Rounds:      m.Rounds,
		Standings:   standings,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

// History lists finished matches, newest first
type History struct {
	Matches []Match `json:"matches"`
}

// HistoryFromModel converts a slice of summaries
func HistoryFromModel(summaries []*model.MatchSummary) History {
	matches := make([]Match, len(summaries))
	for i, m := range summaries {
		matches[i] = MatchFromModel(m)
	}
	return History{Matches: matches}
}

// RoomClosed is the payload sent when a room is deleted
type RoomClosed struct {
	Code string `json:"code"`
}

// Health reports whether the server can reach its room store
type Health struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}
