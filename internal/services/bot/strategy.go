package bot

import "github.com/mcoot/openface/internal/model"

// Strategy decides where a bot puts the cards it has been dealt
type Strategy interface {
	// Choose returns placements for the hand and, on a street, the card to
	// discard. The result must fit the board's remaining capacity.
	Choose(phase model.Phase, board *model.Board, hand []model.Card) ([]model.Placement, *model.Card)
}

// openSlots lists one entry per empty slot on the board, bottom row first
func openSlots(board *model.Board) []model.Row {
	var slots []model.Row
	for _, row := range []model.Row{model.RowBottom, model.RowMiddle, model.RowTop} {
		for range board.Remaining(row) {
			slots = append(slots, row)
		}
	}
	return slots
}
