package history

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/openface/internal/model"
)

// MemoryRecorder keeps match history in process memory
type MemoryRecorder struct {
	mu      sync.RWMutex
	matches map[string]*model.MatchSummary
}

// NewMemory creates an empty in-memory recorder
func NewMemory() *MemoryRecorder {
	return &MemoryRecorder{matches: make(map[string]*model.MatchSummary)}
}

var _ Recorder = (*MemoryRecorder)(nil)

func (r *MemoryRecorder) Record(ctx context.Context, summary *model.MatchSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[summary.MatchID] = cloneSummary(summary)
	return nil
}

func (r *MemoryRecorder) Get(ctx context.Context, matchID string) (*model.MatchSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summary, ok := r.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return cloneSummary(summary), nil
}

func (r *MemoryRecorder) List(ctx context.Context, player model.PlayerID, limit int) ([]*model.MatchSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.MatchSummary, 0, len(r.matches))
	for _, summary := range r.matches {
		if player != "" && !hasPlayer(summary, player) {
			continue
		}
		out = append(out, cloneSummary(summary))
	}
	slices.SortFunc(out, func(a, b *model.MatchSummary) int {
		return b.CompletedAt.Compare(a.CompletedAt)
	})
	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func hasPlayer(summary *model.MatchSummary, player model.PlayerID) bool {
	return slices.ContainsFunc(summary.Standings, func(s model.Standing) bool { return s.UID == player })
}

func cloneSummary(summary *model.MatchSummary) *model.MatchSummary {
	cp := *summary
	cp.Standings = slices.Clone(summary.Standings)
	return &cp
}
