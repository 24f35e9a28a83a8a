package model

// Phase is a step in the round state machine
type Phase string

const (
	PhaseLobby         Phase = "lobby"
	PhaseInitialDeal   Phase = "initial_deal"
	PhaseStreet2       Phase = "street_2"
	PhaseStreet3       Phase = "street_3"
	PhaseStreet4       Phase = "street_4"
	PhaseStreet5       Phase = "street_5"
	PhaseScoring       Phase = "scoring"
	PhaseComplete      Phase = "complete"
	PhaseMatchComplete Phase = "match_complete"
)

var phaseOrder = []Phase{
	PhaseLobby,
	PhaseInitialDeal,
	PhaseStreet2,
	PhaseStreet3,
	PhaseStreet4,
	PhaseStreet5,
	PhaseScoring,
	PhaseComplete,
	PhaseMatchComplete,
}

// Cards dealt per phase
const (
	InitialDealSize = 5
	StreetDealSize  = 3
	StreetKeep      = 2
	StreetDiscard   = 1
	FinalStreet     = 5
)

// Index returns the position of the phase in the round order, or -1
func (p Phase) Index() int {
	for i, phase := range phaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known phase
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// IsDealPhase reports whether players hold cards to place in this phase
func (p Phase) IsDealPhase() bool {
	i := p.Index()
	return i >= PhaseInitialDeal.Index() && i <= PhaseStreet5.Index()
}

// Street returns 1 for the initial deal, 2-5 for the streets, 0 otherwise
func (p Phase) Street() int {
	if !p.IsDealPhase() {
		return 0
	}
	return p.Index()
}

// Next returns the phase that follows a deal phase. Street5 is followed by Scoring.
func (p Phase) Next() Phase {
	i := p.Index()
	if i < 0 || i+1 >= len(phaseOrder) {
		return p
	}
	return phaseOrder[i+1]
}

// DealSize returns how many cards each player is dealt on entering the phase
func (p Phase) DealSize() int {
	switch {
	case p == PhaseInitialDeal:
		return InitialDealSize
	case p.IsDealPhase():
		return StreetDealSize
	}
	return 0
}

// PlacementsRequired returns how many cards must be placed on the board in the phase
func (p Phase) PlacementsRequired() int {
	switch {
	case p == PhaseInitialDeal:
		return InitialDealSize
	case p.IsDealPhase():
		return StreetKeep
	}
	return 0
}

// DiscardsAllowed returns how many cards may be discarded in the phase
func (p Phase) DiscardsAllowed() int {
	if p.IsDealPhase() && p != PhaseInitialDeal {
		return StreetDiscard
	}
	return 0
}
