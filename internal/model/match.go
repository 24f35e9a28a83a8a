package model

import (
	"slices"
	"time"
)

// Standing is one player's final position in a match
type Standing struct {
	UID         PlayerID `json:"uid"`
	DisplayName string   `json:"display_name"`
	Score       int      `json:"score"`
	Place       int      `json:"place"`
}

// MatchSummary is the record written when a match completes
type MatchSummary struct {
	MatchID     string     `json:"match_id"`
	Room        RoomCode   `json:"room"`
	Rounds      int        `json:"rounds"`
	Standings   []Standing `json:"standings"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// NewMatchSummary builds the summary of a room's finished match.
// Players sharing a score share a place.
func NewMatchSummary(room *Room, now time.Time) *MatchSummary {
	standings := make([]Standing, 0, len(room.PlayerOrder))
	for _, uid := range room.PlayerOrder {
		p := room.Players[uid]
		if p == nil {
			continue
		}
		standings = append(standings, Standing{UID: uid, DisplayName: p.DisplayName, Score: p.Score})
	}
	slices.SortStableFunc(standings, func(a, b Standing) int { return b.Score - a.Score })
	for i := range standings {
		if i > 0 && standings[i].Score == standings[i-1].Score {
			standings[i].Place = standings[i-1].Place
		} else {
			standings[i].Place = i + 1
		}
	}

	started := room.CreatedAt
	if room.MatchStartedAt != nil {
		started = *room.MatchStartedAt
	}
	return &MatchSummary{
		MatchID:     room.MatchID,
		Room:        room.Code,
		Rounds:      room.Round,
		Standings:   standings,
		StartedAt:   started,
		CompletedAt: now,
	}
}
