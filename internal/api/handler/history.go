package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/openface/internal/api/middleware"
	"github.com/mcoot/openface/internal/api/response"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/history"
)

// HistoryHandler serves finished match summaries
type HistoryHandler struct {
	recorder history.Recorder
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(recorder history.Recorder) *HistoryHandler {
	return &HistoryHandler{recorder: recorder}
}

// List handles GET /api/v1/history. Defaults to the caller's own matches;
// ?player= selects another player and ?limit= caps the result.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	query := r.URL.Query()

	uid := player.ID
	if p := query.Get("player"); p != "" {
		uid = model.PlayerID(p)
	}

	limit := 0
	if l := query.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			WriteError(w, NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	summaries, err := h.recorder.List(r.Context(), uid, limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.HistoryFromModel(summaries))
}

// Get handles GET /api/v1/history/{match_id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.recorder.Get(r.Context(), mux.Vars(r)["match_id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchFromModel(summary))
}
