package model

import (
	"fmt"
	"strings"
)

// Suit is one of the four card suits
type Suit byte

const (
	SuitClubs    Suit = 'c'
	SuitDiamonds Suit = 'd'
	SuitHearts   Suit = 'h'
	SuitSpades   Suit = 's'
)

// Suits lists every suit in deck order
var Suits = []Suit{SuitClubs, SuitDiamonds, SuitHearts, SuitSpades}

// Valid reports whether s is one of the four suits
func (s Suit) Valid() bool {
	switch s {
	case SuitClubs, SuitDiamonds, SuitHearts, SuitSpades:
		return true
	}
	return false
}

// Rank is a card rank from 2 through 14 (ace high)
type Rank int

const (
	RankTwo   Rank = 2
	RankThree Rank = 3
	RankFour  Rank = 4
	RankFive  Rank = 5
	RankSix   Rank = 6
	RankSeven Rank = 7
	RankEight Rank = 8
	RankNine  Rank = 9
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
)

const rankChars = "23456789TJQKA"

// Valid reports whether r is between two and ace
func (r Rank) Valid() bool {
	return r >= RankTwo && r <= RankAce
}

// String returns the single character form of the rank
func (r Rank) String() string {
	if !r.Valid() {
		return "?"
	}
	return string(rankChars[r-RankTwo])
}

// Card is an immutable playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a card from a rank and suit
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// Valid reports whether the card has a legal rank and suit
func (c Card) Valid() bool {
	return c.Rank.Valid() && c.Suit.Valid()
}

// String returns the two character form, e.g. "As" or "Td"
func (c Card) String() string {
	return c.Rank.String() + string(c.Suit)
}

// MarshalText encodes the card in its two character form
func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d%c", ErrInvalidCard, c.Rank, c.Suit)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes the two character form
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a card such as "As", "td" or "2C"
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	idx := strings.IndexByte(rankChars, strings.ToUpper(s[:1])[0])
	if idx < 0 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	suit := Suit(strings.ToLower(s[1:])[0])
	if !suit.Valid() {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	return Card{Rank: RankTwo + Rank(idx), Suit: suit}, nil
}

// MustParseCards parses a space separated list of cards and panics on error.
// Intended for tests and fixtures.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		cards = append(cards, c)
	}
	return cards
}

// FullDeck returns the 52 cards in a fixed order
func FullDeck() []Card {
	cards := make([]Card, 0, 52)
	for _, suit := range Suits {
		for rank := RankTwo; rank <= RankAce; rank++ {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	return cards
}

// ContainsCard reports whether cards contains c
func ContainsCard(cards []Card, c Card) bool {
	for _, card := range cards {
		if card == c {
			return true
		}
	}
	return false
}

// RemoveCard returns cards without the first occurrence of c
func RemoveCard(cards []Card, c Card) ([]Card, bool) {
	for i, card := range cards {
		if card == c {
			out := make([]Card, 0, len(cards)-1)
			out = append(out, cards[:i]...)
			return append(out, cards[i+1:]...), true
		}
	}
	return cards, false
}

// FormatCards joins cards with spaces
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
