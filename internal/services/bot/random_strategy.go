package bot

import (
	"github.com/mcoot/openface/internal/dependencies/random"
	"github.com/mcoot/openface/internal/model"
)

// RandomStrategy discards a random card and drops the rest into random open slots
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

func (s *RandomStrategy) Choose(phase model.Phase, board *model.Board, hand []model.Card) ([]model.Placement, *model.Card) {
	cards := append([]model.Card(nil), hand...)
	var discard *model.Card
	if phase.DiscardsAllowed() > 0 && len(cards) > phase.PlacementsRequired() {
		i := s.random.Intn(len(cards))
		d := cards[i]
		discard = &d
		cards = append(cards[:i], cards[i+1:]...)
	}

	slots := openSlots(board)
	placements := make([]model.Placement, 0, len(cards))
	for _, c := range cards {
		if len(slots) == 0 {
			break
		}
		i := s.random.Intn(len(slots))
		placements = append(placements, model.Placement{Card: c, Row: slots[i]})
		slots = append(slots[:i], slots[i+1:]...)
	}
	return placements, discard
}
