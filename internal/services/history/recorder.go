package history

import (
	"context"
	"errors"

	"github.com/mcoot/openface/internal/model"
)

// DefaultListLimit caps List when the caller passes a non-positive limit
const DefaultListLimit = 20

// ErrMatchNotFound is returned when no summary exists for a match id
var ErrMatchNotFound = errors.New("match not found")

// Recorder persists summaries of completed matches
type Recorder interface {
	// Record stores a summary. Recording the same match again replaces it.
	Record(ctx context.Context, summary *model.MatchSummary) error
	// Get returns one match summary
	Get(ctx context.Context, matchID string) (*model.MatchSummary, error)
	// List returns the most recently completed matches first. A non-empty
	// player filters to matches that player finished.
	List(ctx context.Context, player model.PlayerID, limit int) ([]*model.MatchSummary, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
