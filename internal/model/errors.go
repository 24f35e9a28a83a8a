package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Room errors
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrAlreadyInRoom       = errors.New("player is already in room")
	ErrNotInRoom           = errors.New("player is not in room")
	ErrNotHost             = errors.New("player is not the host")
	ErrMatchInProgress     = errors.New("match is in progress")
	ErrMatchNotComplete    = errors.New("match is not complete")
	ErrInsufficientPlayers = errors.New("insufficient players to start match")
	ErrInvalidSettings     = errors.New("invalid match settings")
	ErrRoomCodeExhausted   = errors.New("could not allocate a unique room code")
	ErrNotBot              = errors.New("player is not a bot")
	ErrUnknownStrategy     = errors.New("unknown bot strategy")

	// Round errors
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrNotActivePlayer   = errors.New("player is not dealt into this round")
	ErrPlayerFouled      = errors.New("player has fouled this round")
	ErrSittingOut        = errors.New("player is sitting out")
	ErrAlreadyActed      = errors.New("player has already acted this phase")
	ErrNoPlacements      = errors.New("no cards placed or discarded")
	ErrCardNotInHand     = errors.New("card is not in hand")
	ErrDuplicateCard     = errors.New("card used more than once")
	ErrInvalidCard       = errors.New("invalid card")
	ErrInvalidRow        = errors.New("invalid row")
	ErrRowFull           = errors.New("row is full")
	ErrTooManyPlacements = errors.New("too many cards placed this phase")
	ErrDiscardNotAllowed = errors.New("discard not allowed this phase")
	ErrIncompleteBoard   = errors.New("board is not complete")
	ErrInvalidHandSize   = errors.New("hand must contain exactly 3 or 5 cards")

	// Hand and deck errors
	ErrHandNotFound = errors.New("hand not found")
	ErrDeckNotFound = errors.New("deck not found")
)
