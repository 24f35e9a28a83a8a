package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/auth"
	"github.com/mcoot/openface/internal/services/history"
	"github.com/mcoot/openface/internal/storage"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidPlacement    = "INVALID_PLACEMENT"
	CodeInvalidSettings     = "INVALID_SETTINGS"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotHost             = "NOT_HOST"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeRoomFull            = "ROOM_FULL"
	CodeRoomCodeExhausted   = "ROOM_CODE_EXHAUSTED"
	CodeAlreadyInRoom       = "ALREADY_IN_ROOM"
	CodeNotInRoom           = "NOT_IN_ROOM"
	CodeMatchInProgress     = "MATCH_IN_PROGRESS"
	CodeMatchNotComplete    = "MATCH_NOT_COMPLETE"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeWrongPhase          = "WRONG_PHASE"
	CodeNotActivePlayer     = "NOT_ACTIVE_PLAYER"
	CodePlayerFouled        = "PLAYER_FOULED"
	CodeSittingOut          = "SITTING_OUT"
	CodeAlreadyActed        = "ALREADY_ACTED"
	CodeNotBot              = "NOT_BOT"
	CodeUnknownStrategy     = "UNKNOWN_STRATEGY"
	CodeConflict            = "CONFLICT"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// placementErrors are rejected moves; the message names the offending card or row
var placementErrors = []error{
	model.ErrNoPlacements,
	model.ErrCardNotInHand,
	model.ErrDuplicateCard,
	model.ErrInvalidCard,
	model.ErrInvalidRow,
	model.ErrRowFull,
	model.ErrTooManyPlacements,
	model.ErrDiscardNotAllowed,
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	for _, target := range placementErrors {
		if errors.Is(err, target) {
			return &httpError{http.StatusBadRequest, APIError{CodeInvalidPlacement, err.Error()}}
		}
	}

	switch {
	// Room errors
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, history.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrRoomFull):
		return &httpError{http.StatusConflict, APIError{CodeRoomFull, "Room is full"}}
	case errors.Is(err, model.ErrRoomCodeExhausted):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeRoomCodeExhausted, "No room code available, try again"}}
	case errors.Is(err, model.ErrAlreadyInRoom):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInRoom, "Already in this room"}}
	case errors.Is(err, model.ErrNotInRoom):
		return &httpError{http.StatusForbidden, APIError{CodeNotInRoom, "Not in this room"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrMatchInProgress):
		return &httpError{http.StatusConflict, APIError{CodeMatchInProgress, "Match is in progress"}}
	case errors.Is(err, model.ErrMatchNotComplete):
		return &httpError{http.StatusConflict, APIError{CodeMatchNotComplete, "Match is not complete"}}
	case errors.Is(err, model.ErrInsufficientPlayers):
		return &httpError{http.StatusConflict, APIError{CodeInsufficientPlayers, "Not enough players to start"}}
	case errors.Is(err, model.ErrInvalidSettings):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidSettings, err.Error()}}
	case errors.Is(err, model.ErrNotBot):
		return &httpError{http.StatusBadRequest, APIError{CodeNotBot, "Player is not a bot"}}
	case errors.Is(err, model.ErrUnknownStrategy):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownStrategy, err.Error()}}

	// Round errors
	case errors.Is(err, model.ErrWrongPhase):
		return &httpError{http.StatusConflict, APIError{CodeWrongPhase, "Not allowed in the current phase"}}
	case errors.Is(err, model.ErrNotActivePlayer):
		return &httpError{http.StatusForbidden, APIError{CodeNotActivePlayer, "Not dealt into this round"}}
	case errors.Is(err, model.ErrPlayerFouled):
		return &httpError{http.StatusConflict, APIError{CodePlayerFouled, "Fouled this round"}}
	case errors.Is(err, model.ErrSittingOut):
		return &httpError{http.StatusConflict, APIError{CodeSittingOut, "Sitting out"}}
	case errors.Is(err, model.ErrAlreadyActed):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyActed, "Already acted this phase"}}
	case errors.Is(err, storage.ErrTransactionConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Room is busy, try again"}}

	// Auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidDisplayName),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
