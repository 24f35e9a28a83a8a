package request

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	DisplayName string `json:"display_name,omitempty"`
}

// JoinRoomRequest is the request body for joining a room. With Create set,
// a missing room is created with the caller as host.
type JoinRoomRequest struct {
	DisplayName string `json:"display_name,omitempty"`
	Create      bool   `json:"create,omitempty"`
}

// StartMatchRequest is the request body for starting a match. Zero fields
// take the room's current settings.
type StartMatchRequest struct {
	TurnTimeoutMs     int64 `json:"turn_timeout_ms,omitempty"`
	InterRoundDelayMs int64 `json:"inter_round_delay_ms,omitempty"`
	TotalRounds       int   `json:"total_rounds,omitempty"`
}

// Placement puts one card from the hand in a row
type Placement struct {
	Card string `json:"card"`
	Row  string `json:"row"`
}

// PlaceCardsRequest is the request body for placing cards
type PlaceCardsRequest struct {
	Placements []Placement `json:"placements"`
	Discard    string      `json:"discard,omitempty"`
}

// SitOutRequest is the request body for toggling sit-out
type SitOutRequest struct {
	SittingOut bool `json:"sitting_out"`
}

// AddBotRequest is the request body for adding a bot to a room
type AddBotRequest struct {
	Strategy string `json:"strategy,omitempty"`
}
