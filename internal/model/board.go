package model

import "fmt"

// Row identifies one of the three rows on a board
type Row string

const (
	RowTop    Row = "top"
	RowMiddle Row = "middle"
	RowBottom Row = "bottom"
)

// Rows lists the rows from top to bottom
var Rows = []Row{RowTop, RowMiddle, RowBottom}

// Row capacities
const (
	TopRowSize    = 3
	MiddleRowSize = 5
	BottomRowSize = 5
	BoardSize     = TopRowSize + MiddleRowSize + BottomRowSize
)

// Capacity returns the number of cards the row holds when full
func (r Row) Capacity() int {
	switch r {
	case RowTop:
		return TopRowSize
	case RowMiddle:
		return MiddleRowSize
	case RowBottom:
		return BottomRowSize
	}
	return 0
}

// Valid reports whether r names a row
func (r Row) Valid() bool {
	return r.Capacity() > 0
}

// ParseRow converts a string to a Row
func ParseRow(s string) (Row, error) {
	r := Row(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRow, s)
	}
	return r, nil
}

// Board holds a player's three rows for the current round
type Board struct {
	Top    []Card `json:"top"`
	Middle []Card `json:"middle"`
	Bottom []Card `json:"bottom"`
}

// Cards returns the cards placed in a row
func (b *Board) Cards(row Row) []Card {
	switch row {
	case RowTop:
		return b.Top
	case RowMiddle:
		return b.Middle
	case RowBottom:
		return b.Bottom
	}
	return nil
}

// Remaining returns how many more cards fit in a row
func (b *Board) Remaining(row Row) int {
	return row.Capacity() - len(b.Cards(row))
}

// Place appends a card to a row
func (b *Board) Place(card Card, row Row) error {
	if !row.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRow, row)
	}
	if b.Remaining(row) <= 0 {
		return fmt.Errorf("%w: %s", ErrRowFull, row)
	}
	switch row {
	case RowTop:
		b.Top = append(b.Top, card)
	case RowMiddle:
		b.Middle = append(b.Middle, card)
	case RowBottom:
		b.Bottom = append(b.Bottom, card)
	}
	return nil
}

// Count returns the total number of placed cards
func (b *Board) Count() int {
	return len(b.Top) + len(b.Middle) + len(b.Bottom)
}

// IsComplete reports whether all thirteen slots are filled
func (b *Board) IsComplete() bool {
	return len(b.Top) == TopRowSize && len(b.Middle) == MiddleRowSize && len(b.Bottom) == BottomRowSize
}

// Contains reports whether a card is anywhere on the board
func (b *Board) Contains(card Card) bool {
	return ContainsCard(b.Top, card) || ContainsCard(b.Middle, card) || ContainsCard(b.Bottom, card)
}

// Reset empties every row
func (b *Board) Reset() {
	b.Top = nil
	b.Middle = nil
	b.Bottom = nil
}

// Clone returns a deep copy
func (b Board) Clone() Board {
	return Board{
		Top:    cloneCards(b.Top),
		Middle: cloneCards(b.Middle),
		Bottom: cloneCards(b.Bottom),
	}
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

// Placement assigns a card from the hand to a row
type Placement struct {
	Card Card `json:"card"`
	Row  Row  `json:"row"`
}
