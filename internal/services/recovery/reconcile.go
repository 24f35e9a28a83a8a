package recovery

import (
	"time"

	"github.com/mcoot/openface/internal/model"
)

// Kind names the transition a room is waiting on
type Kind string

const (
	KindNone         Kind = "none"
	KindStartRound   Kind = "start_round"
	KindAdvance      Kind = "advance"
	KindPhaseTimeout Kind = "phase_timeout"
	KindNextRound    Kind = "next_round"
)

// Action is the next transition due on a room and when it is due
type Action struct {
	Kind Kind
	At   time.Time
}

// Reconcile derives the room's next action from its persisted state alone.
// Any action due at or before now should run immediately.
func Reconcile(room *model.Room, now time.Time) Action {
	switch {
	case room.Phase == model.PhaseLobby:
		if room.MatchStarted() && len(room.Participants()) >= model.MinPlayers {
			return Action{Kind: KindStartRound, At: now}
		}
	case room.Phase.IsDealPhase():
		if room.AllActed() {
			return Action{Kind: KindAdvance, At: now}
		}
		if room.PhaseDeadline != nil {
			return Action{Kind: KindPhaseTimeout, At: *room.PhaseDeadline}
		}
	case room.Phase == model.PhaseScoring:
		return Action{Kind: KindAdvance, At: now}
	case room.Phase == model.PhaseComplete:
		if room.PhaseDeadline != nil {
			return Action{Kind: KindNextRound, At: *room.PhaseDeadline}
		}
	}
	return Action{Kind: KindNone}
}
