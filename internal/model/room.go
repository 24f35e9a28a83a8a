package model

import (
	"slices"
	"time"
)

// RoomCode is a 6-character room identifier (e.g., "ABC123")
type RoomCode string

const (
	// RoomCodeLength is the number of characters in a room code
	RoomCodeLength = 6
	// RoomCodeAlphabet excludes visually ambiguous characters (I, O, 0, 1)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// MaxPlayers caps room membership, observers included
	MaxPlayers = 4
	// MinPlayers is the number of active players needed to deal a round
	MinPlayers = 2
)

// Settings are chosen by the host when the match starts
type Settings struct {
	TurnTimeoutMs     int64 `json:"turn_timeout_ms"`
	InterRoundDelayMs int64 `json:"inter_round_delay_ms"`
	TotalRounds       int   `json:"total_rounds"`
}

// Settings bounds
const (
	MinTurnTimeoutMs     = 5_000
	MaxTurnTimeoutMs     = 10 * 60_000
	MaxInterRoundDelayMs = 5 * 60_000
	MaxTotalRounds       = 50
)

// DefaultSettings returns the settings used when the host leaves fields unset
func DefaultSettings() Settings {
	return Settings{
		TurnTimeoutMs:     60_000,
		InterRoundDelayMs: 8_000,
		TotalRounds:       5,
	}
}

// WithDefaults fills zero fields from defaults
func (s Settings) WithDefaults(defaults Settings) Settings {
	if s.TurnTimeoutMs == 0 {
		s.TurnTimeoutMs = defaults.TurnTimeoutMs
	}
	if s.InterRoundDelayMs == 0 {
		s.InterRoundDelayMs = defaults.InterRoundDelayMs
	}
	if s.TotalRounds == 0 {
		s.TotalRounds = defaults.TotalRounds
	}
	return s
}

// Validate checks the settings are within bounds
func (s Settings) Validate() error {
	if s.TurnTimeoutMs < MinTurnTimeoutMs || s.TurnTimeoutMs > MaxTurnTimeoutMs {
		return ErrInvalidSettings
	}
	if s.InterRoundDelayMs < 0 || s.InterRoundDelayMs > MaxInterRoundDelayMs {
		return ErrInvalidSettings
	}
	if s.TotalRounds < 1 || s.TotalRounds > MaxTotalRounds {
		return ErrInvalidSettings
	}
	return nil
}

// TurnTimeout returns the per-phase time limit
func (s Settings) TurnTimeout() time.Duration {
	return time.Duration(s.TurnTimeoutMs) * time.Millisecond
}

// InterRoundDelay returns the pause between a scored round and the next deal
func (s Settings) InterRoundDelay() time.Duration {
	return time.Duration(s.InterRoundDelayMs) * time.Millisecond
}

// RowLabels describes each row of a scored board
type RowLabels struct {
	Top    string `json:"top"`
	Middle string `json:"middle"`
	Bottom string `json:"bottom"`
}

// RoundResult is one player's outcome for a scored round
type RoundResult struct {
	NetScore int       `json:"net_score"`
	Fouled   bool      `json:"fouled"`
	Rows     RowLabels `json:"rows"`
}

// PlayerState is a room member's per-room state
type PlayerState struct {
	UID                PlayerID  `json:"uid"`
	DisplayName        string    `json:"display_name"`
	Board              Board     `json:"board"`
	CurrentHandSize    int       `json:"current_hand_size"`
	PlacedThisPhase    int       `json:"placed_this_phase"`
	DiscardedThisPhase int       `json:"discarded_this_phase"`
	Fouled             bool      `json:"fouled"`
	SittingOut         bool      `json:"sitting_out"`
	Disconnected       bool      `json:"disconnected"`
	IsBot              bool      `json:"is_bot,omitempty"`
	BotStrategy        string    `json:"bot_strategy,omitempty"`
	Score              int       `json:"score"`
	JoinedAt           time.Time `json:"joined_at"`
}

// ResetForRound clears the per-round fields
func (p *PlayerState) ResetForRound() {
	p.Board.Reset()
	p.Fouled = false
	p.CurrentHandSize = 0
	p.PlacedThisPhase = 0
	p.DiscardedThisPhase = 0
}

// HasActed reports whether the player has nothing left to do this phase
func (p *PlayerState) HasActed() bool {
	return p.Fouled || p.SittingOut || p.CurrentHandSize == 0
}

// Room is the authoritative state of one room
type Room struct {
	Code           RoomCode                  `json:"code"`
	MatchID        string                    `json:"match_id"`
	Phase          Phase                     `json:"phase"`
	Street         int                       `json:"street"`
	Round          int                       `json:"round"`
	PlayerOrder    []PlayerID                `json:"player_order"`
	Players        map[PlayerID]*PlayerState `json:"players"`
	PhaseDeadline  *time.Time                `json:"phase_deadline,omitempty"`
	HostUID        PlayerID                  `json:"host_uid"`
	Settings       Settings                  `json:"settings"`
	RoundResults   map[PlayerID]RoundResult  `json:"round_results"`
	Version        int64                     `json:"version"`
	MatchStartedAt *time.Time                `json:"match_started_at,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// NewRoom creates a room in the lobby with the host as its only member
func NewRoom(code RoomCode, host *Player, displayName string, settings Settings, now time.Time) *Room {
	room := &Room{
		Code:         code,
		Phase:        PhaseLobby,
		Players:      make(map[PlayerID]*PlayerState),
		HostUID:      host.ID,
		Settings:     settings,
		RoundResults: make(map[PlayerID]RoundResult),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	room.AddPlayer(host, displayName, now)
	return room
}

// MatchStarted reports whether the host has started the current match
func (r *Room) MatchStarted() bool {
	return r.Round > 0
}

// IsMember reports whether uid is in the room as player or observer
func (r *Room) IsMember(uid PlayerID) bool {
	_, ok := r.Players[uid]
	return ok
}

// IsActive reports whether uid is in the player order
func (r *Room) IsActive(uid PlayerID) bool {
	return slices.Contains(r.PlayerOrder, uid)
}

// IsObserver reports whether uid is a member outside the player order
func (r *Room) IsObserver(uid PlayerID) bool {
	return r.IsMember(uid) && !r.IsActive(uid)
}

// AddPlayer adds a member. Members joining in the lobby enter the player order
// directly; anyone joining mid-round observes until the next round starts.
func (r *Room) AddPlayer(p *Player, displayName string, now time.Time) *PlayerState {
	if displayName == "" {
		displayName = p.DisplayName
	}
	ps := &PlayerState{
		UID:         p.ID,
		DisplayName: displayName,
		IsBot:       p.IsBot,
		BotStrategy: p.BotStrategy,
		JoinedAt:    now,
	}
	r.Players[p.ID] = ps
	if r.Phase == PhaseLobby {
		r.PlayerOrder = append(r.PlayerOrder, p.ID)
	}
	return ps
}

// RemovePlayer removes a member entirely, reassigning the host if needed
func (r *Room) RemovePlayer(uid PlayerID) {
	delete(r.Players, uid)
	delete(r.RoundResults, uid)
	r.PlayerOrder = slices.DeleteFunc(r.PlayerOrder, func(id PlayerID) bool { return id == uid })
	if r.HostUID == uid {
		r.HostUID = r.nextHost()
	}
}

func (r *Room) nextHost() PlayerID {
	for _, id := range r.PlayerOrder {
		if p := r.Players[id]; p != nil && !p.IsBot {
			return id
		}
	}
	for _, id := range r.Observers() {
		if !r.Players[id].IsBot {
			return id
		}
	}
	if len(r.PlayerOrder) > 0 {
		return r.PlayerOrder[0]
	}
	return ""
}

// Participants returns the active players taking part in the current round
func (r *Room) Participants() []PlayerID {
	var out []PlayerID
	for _, uid := range r.PlayerOrder {
		if p := r.Players[uid]; p != nil && !p.SittingOut {
			out = append(out, uid)
		}
	}
	return out
}

// Pending returns the participants still required to act this phase
func (r *Room) Pending() []PlayerID {
	var out []PlayerID
	for _, uid := range r.Participants() {
		if !r.Players[uid].HasActed() {
			out = append(out, uid)
		}
	}
	return out
}

// AllActed reports whether every non-fouled, non-sitting-out active player has acted
func (r *Room) AllActed() bool {
	return len(r.Pending()) == 0
}

// Observers returns the members outside the player order, in join order
func (r *Room) Observers() []PlayerID {
	var out []PlayerID
	for uid := range r.Players {
		if !r.IsActive(uid) {
			out = append(out, uid)
		}
	}
	slices.SortFunc(out, func(a, b PlayerID) int {
		if c := r.Players[a].JoinedAt.Compare(r.Players[b].JoinedAt); c != 0 {
			return c
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return out
}

// PromoteObservers appends every observer to the player order
func (r *Room) PromoteObservers() []PlayerID {
	observers := r.Observers()
	r.PlayerOrder = append(r.PlayerOrder, observers...)
	return observers
}

// DeadlinePassed reports whether the phase deadline is set and has been reached
func (r *Room) DeadlinePassed(now time.Time) bool {
	return r.PhaseDeadline != nil && !now.Before(*r.PhaseDeadline)
}

// SetDeadline sets the phase deadline to now + d
func (r *Room) SetDeadline(now time.Time, d time.Duration) {
	deadline := now.Add(d)
	r.PhaseDeadline = &deadline
}

// ClearDeadline unsets the phase deadline
func (r *Room) ClearDeadline() {
	r.PhaseDeadline = nil
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	out := *r
	out.PlayerOrder = slices.Clone(r.PlayerOrder)
	out.Players = make(map[PlayerID]*PlayerState, len(r.Players))
	for uid, p := range r.Players {
		cp := *p
		cp.Board = p.Board.Clone()
		out.Players[uid] = &cp
	}
	out.RoundResults = make(map[PlayerID]RoundResult, len(r.RoundResults))
	for uid, res := range r.RoundResults {
		out.RoundResults[uid] = res
	}
	if r.PhaseDeadline != nil {
		d := *r.PhaseDeadline
		out.PhaseDeadline = &d
	}
	if r.MatchStartedAt != nil {
		t := *r.MatchStartedAt
		out.MatchStartedAt = &t
	}
	return &out
}
