package evaluator

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/paulhankin/poker"

	"github.com/mcoot/openface/internal/model"
)

// Category is a poker hand class. Three-card hands use HighCard, Pair and
// ThreeOfAKind on the same scale, so categories compare across hand sizes.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = map[Category]string{
	HighCard:      "High Card",
	Pair:          "Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
	RoyalFlush:    "Royal Flush",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// HandValue is the ranking of a 3 or 5 card hand
type HandValue struct {
	Size     int
	Category Category
	// Kickers are ranks in significance order: grouped ranks first (largest
	// group, then highest rank), then the remaining cards high to low.
	Kickers []model.Rank
	// Score is the hand's strength on a scale shared by 3 and 5 card hands
	Score int16
}

func (v HandValue) String() string {
	parts := make([]string, len(v.Kickers))
	for i, k := range v.Kickers {
		parts[i] = k.String()
	}
	return fmt.Sprintf("%s %v", v.Category, parts)
}

// Evaluate ranks exactly 3 or 5 distinct cards
func Evaluate(cards []model.Card) (HandValue, error) {
	if len(cards) != 3 && len(cards) != 5 {
		return HandValue{}, model.ErrInvalidHandSize
	}
	for i, c := range cards {
		if !c.Valid() {
			return HandValue{}, fmt.Errorf("%w: %v", model.ErrInvalidCard, c)
		}
		if slices.Contains(cards[:i], c) {
			return HandValue{}, fmt.Errorf("%w: %s", model.ErrDuplicateCard, c)
		}
	}
	score, err := strength(cards)
	if err != nil {
		return HandValue{}, err
	}

	var v HandValue
	if len(cards) == 3 {
		v = evaluate3(cards)
	} else {
		v = evaluate5(cards)
	}
	v.Score = score
	return v, nil
}

func strength(cards []model.Card) (int16, error) {
	converted, err := toPokerCards(cards)
	if err != nil {
		return 0, err
	}
	return poker.Eval(converted), nil
}

type rankGroup struct {
	rank  model.Rank
	count int
}

// groupRanks counts each rank and orders groups by size then rank, descending
func groupRanks(cards []model.Card) []rankGroup {
	counts := make(map[model.Rank]int, len(cards))
	for _, c := range cards {
		counts[c.Rank]++
	}
	groups := make([]rankGroup, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, rankGroup{rank: r, count: n})
	}
	slices.SortFunc(groups, func(a, b rankGroup) int {
		if a.count != b.count {
			return cmp.Compare(b.count, a.count)
		}
		return cmp.Compare(b.rank, a.rank)
	})
	return groups
}

func groupKickers(groups []rankGroup) []model.Rank {
	kickers := make([]model.Rank, len(groups))
	for i, g := range groups {
		kickers[i] = g.rank
	}
	return kickers
}

func evaluate3(cards []model.Card) HandValue {
	groups := groupRanks(cards)
	v := HandValue{Size: 3, Kickers: groupKickers(groups)}
	switch groups[0].count {
	case 3:
		v.Category = ThreeOfAKind
	case 2:
		v.Category = Pair
	default:
		v.Category = HighCard
	}
	return v
}

func evaluate5(cards []model.Card) HandValue {
	groups := groupRanks(cards)
	kickers := groupKickers(groups)
	flush := isFlush(cards)
	high, straight := straightHigh(groups)

	v := HandValue{Size: 5, Kickers: kickers}
	switch {
	case straight && flush && high == model.RankAce:
		v.Category = RoyalFlush
		v.Kickers = []model.Rank{high}
	case straight && flush:
		v.Category = StraightFlush
		v.Kickers = []model.Rank{high}
	case groups[0].count == 4:
		v.Category = FourOfAKind
	case groups[0].count == 3 && groups[1].count == 2:
		v.Category = FullHouse
	case flush:
		v.Category = Flush
	case straight:
		v.Category = Straight
		v.Kickers = []model.Rank{high}
	case groups[0].count == 3:
		v.Category = ThreeOfAKind
	case groups[0].count == 2 && groups[1].count == 2:
		v.Category = TwoPair
	case groups[0].count == 2:
		v.Category = Pair
	default:
		v.Category = HighCard
	}
	return v
}

func isFlush(cards []model.Card) bool {
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

// straightHigh reports whether five distinct ranks are consecutive and returns
// the top rank. The wheel (A-2-3-4-5) is five high.
func straightHigh(groups []rankGroup) (model.Rank, bool) {
	if len(groups) != 5 {
		return 0, false
	}
	// groups are single cards sorted high to low
	top, bottom := groups[0].rank, groups[4].rank
	if top-bottom == 4 {
		return top, true
	}
	if top == model.RankAce && groups[1].rank == model.RankFive && bottom == model.RankTwo {
		return model.RankFive, true
	}
	return 0, false
}

// Compare orders two hand values: negative if a is weaker, positive if a is
// stronger, zero on a tie.
//
// Three and five card hands share one scale. Category comes first, then the
// kickers both hands have; when those are equal the five-card hand is
// stronger, so a three-card hand never ties a five-card hand.
func Compare(a, b HandValue) int {
	return cmp.Compare(a.Score, b.Score)
}

// CompareCards evaluates and compares two hands
func CompareCards(a, b []model.Card) (int, error) {
	va, err := Evaluate(a)
	if err != nil {
		return 0, err
	}
	vb, err := Evaluate(b)
	if err != nil {
		return 0, err
	}
	return Compare(va, vb), nil
}

// Describe returns a human readable label such as "Flush, ace high". Falls back
// to the category name when the cards cannot be described.
func Describe(cards []model.Card) string {
	v, err := Evaluate(cards)
	if err != nil {
		return ""
	}
	converted, err := toPokerCards(cards)
	if err != nil {
		return v.Category.String()
	}
	desc, err := poker.Describe(converted)
	if err != nil || desc == "" {
		return v.Category.String()
	}
	return desc
}

var pokerSuits = map[model.Suit]poker.Suit{
	model.SuitClubs:    poker.Club,
	model.SuitDiamonds: poker.Diamond,
	model.SuitHearts:   poker.Heart,
	model.SuitSpades:   poker.Spade,
}

// toPokerCard converts to the evaluator library's card, which counts the ace as rank 1
func toPokerCard(c model.Card) (poker.Card, error) {
	rank := poker.Rank(c.Rank)
	if c.Rank == model.RankAce {
		rank = 1
	}
	return poker.MakeCard(pokerSuits[c.Suit], rank)
}

func toPokerCards(cards []model.Card) ([]poker.Card, error) {
	converted := make([]poker.Card, len(cards))
	for i, c := range cards {
		pc, err := toPokerCard(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidCard, c)
		}
		converted[i] = pc
	}
	return converted, nil
}
