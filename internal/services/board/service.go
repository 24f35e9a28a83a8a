package board

import (
	"fmt"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/evaluator"
)

// Service validates placements and detects fouled boards
type Service struct{}

// New creates a new BoardService
func New() *Service {
	return &Service{}
}

// PlacementResult reports what a placement command did to a hand
type PlacementResult struct {
	Placed    []model.Placement
	Discarded []model.Card
	// Done is true when the player has nothing left to act on this phase
	Done bool
}

// ApplyPlacements validates a placement command against the player's hand,
// the phase quotas and the row capacities, then applies it. Nothing is
// mutated when validation fails.
//
// On a street, once both keeps are placed the last card in hand is discarded
// automatically.
func (s *Service) ApplyPlacements(
	player *model.PlayerState,
	hand *model.Hand,
	phase model.Phase,
	placements []model.Placement,
	discard *model.Card,
) (*PlacementResult, error) {
	if err := s.ValidatePlacements(player, hand, phase, placements, discard); err != nil {
		return nil, err
	}

	result := &PlacementResult{}
	for _, p := range placements {
		// capacity was checked above
		_ = player.Board.Place(p.Card, p.Row)
		hand.Remove(p.Card)
		result.Placed = append(result.Placed, p)
	}
	player.PlacedThisPhase += len(placements)

	if discard != nil {
		hand.Remove(*discard)
		player.DiscardedThisPhase++
		result.Discarded = append(result.Discarded, *discard)
	}

	if player.PlacedThisPhase == phase.PlacementsRequired() &&
		player.DiscardedThisPhase < phase.DiscardsAllowed() &&
		len(hand.Cards) == phase.DiscardsAllowed()-player.DiscardedThisPhase {
		result.Discarded = append(result.Discarded, hand.Cards...)
		player.DiscardedThisPhase += len(hand.Cards)
		hand.Clear()
	}

	player.CurrentHandSize = len(hand.Cards)
	result.Done = player.CurrentHandSize == 0
	return result, nil
}

// ValidatePlacements checks a placement command without applying it
func (s *Service) ValidatePlacements(
	player *model.PlayerState,
	hand *model.Hand,
	phase model.Phase,
	placements []model.Placement,
	discard *model.Card,
) error {
	if !phase.IsDealPhase() {
		return model.ErrWrongPhase
	}
	if len(placements) == 0 && discard == nil {
		return model.ErrNoPlacements
	}

	seen := make(map[model.Card]bool, len(placements)+1)
	use := func(c model.Card) error {
		if !c.Valid() {
			return fmt.Errorf("%w: %v", model.ErrInvalidCard, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: %s", model.ErrDuplicateCard, c)
		}
		seen[c] = true
		if !hand.Contains(c) {
			return fmt.Errorf("%w: %s", model.ErrCardNotInHand, c)
		}
		return nil
	}

	perRow := make(map[model.Row]int, len(model.Rows))
	for _, p := range placements {
		if err := use(p.Card); err != nil {
			return err
		}
		if !p.Row.Valid() {
			return fmt.Errorf("%w: %q", model.ErrInvalidRow, p.Row)
		}
		perRow[p.Row]++
	}
	for row, n := range perRow {
		if n > player.Board.Remaining(row) {
			return fmt.Errorf("%w: %s", model.ErrRowFull, row)
		}
	}

	if player.PlacedThisPhase+len(placements) > phase.PlacementsRequired() {
		return model.ErrTooManyPlacements
	}

	if discard != nil {
		if player.DiscardedThisPhase >= phase.DiscardsAllowed() {
			return model.ErrDiscardNotAllowed
		}
		if err := use(*discard); err != nil {
			return err
		}
	}
	return nil
}

// RowValues evaluates the three rows of a complete board
func (s *Service) RowValues(b *model.Board) (top, middle, bottom evaluator.HandValue, err error) {
	if !b.IsComplete() {
		return top, middle, bottom, model.ErrIncompleteBoard
	}
	if top, err = evaluator.Evaluate(b.Top); err != nil {
		return
	}
	if middle, err = evaluator.Evaluate(b.Middle); err != nil {
		return
	}
	bottom, err = evaluator.Evaluate(b.Bottom)
	return
}

// IsFouled reports whether a complete board breaks the row order. The bottom
// must be at least as strong as the middle, and the middle strictly stronger
// than the top.
func (s *Service) IsFouled(b *model.Board) (bool, error) {
	top, middle, bottom, err := s.RowValues(b)
	if err != nil {
		return false, err
	}
	if evaluator.Compare(bottom, middle) < 0 {
		return true, nil
	}
	return evaluator.Compare(middle, top) <= 0, nil
}

// Assess decides a board's foul status at scoring time. An incomplete board
// is always fouled.
func (s *Service) Assess(b *model.Board) bool {
	fouled, err := s.IsFouled(b)
	if err != nil {
		return true
	}
	return fouled
}

// Labels describes each row of a board. Rows that are not full are left blank.
func (s *Service) Labels(b *model.Board) model.RowLabels {
	label := func(row model.Row) string {
		cards := b.Cards(row)
		if len(cards) != row.Capacity() {
			return ""
		}
		return evaluator.Describe(cards)
	}
	return model.RowLabels{
		Top:    label(model.RowTop),
		Middle: label(model.RowMiddle),
		Bottom: label(model.RowBottom),
	}
}
