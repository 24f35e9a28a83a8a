package bot

import (
	"slices"

	"github.com/mcoot/openface/internal/model"
)

// StackedStrategy keeps its strongest cards low: it discards the lowest card
// and fills the bottom row first, then the middle, then the top
type StackedStrategy struct{}

// NewStackedStrategy creates a new StackedStrategy
func NewStackedStrategy() *StackedStrategy {
	return &StackedStrategy{}
}

func (s *StackedStrategy) Choose(phase model.Phase, board *model.Board, hand []model.Card) ([]model.Placement, *model.Card) {
	cards := slices.Clone(hand)
	slices.SortStableFunc(cards, func(a, b model.Card) int { return int(b.Rank) - int(a.Rank) })

	var discard *model.Card
	if phase.DiscardsAllowed() > 0 && len(cards) > phase.PlacementsRequired() {
		d := cards[len(cards)-1]
		discard = &d
		cards = cards[:len(cards)-1]
	}

	slots := openSlots(board)
	placements := make([]model.Placement, 0, len(cards))
	for i, c := range cards {
		if i >= len(slots) {
			break
		}
		placements = append(placements, model.Placement{Card: c, Row: slots[i]})
	}
	return placements, discard
}
