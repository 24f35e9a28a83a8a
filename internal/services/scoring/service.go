package scoring

import (
	"fmt"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/services/evaluator"
)

// Point values
const (
	RowPoint    = 1
	ScoopBonus  = 3
	FoulPenalty = 6
)

// Contender is one active player's finished board going into scoring
type Contender struct {
	UID    model.PlayerID
	Board  *model.Board
	Fouled bool
}

// PairResult is the exchange between two players from the first player's side
type PairResult struct {
	// Rows holds +1, -1 or 0 for top, middle and bottom
	Rows  [3]int
	Scoop int
	Foul  int
	Total int
}

// Invert returns the same exchange from the other player's side
func (r PairResult) Invert() PairResult {
	return PairResult{
		Rows:  [3]int{-r.Rows[0], -r.Rows[1], -r.Rows[2]},
		Scoop: -r.Scoop,
		Foul:  -r.Foul,
		Total: -r.Total,
	}
}

// Service scores finished rounds
type Service struct{}

// New creates a new ScoringService
func New() *Service {
	return &Service{}
}

// ScorePairwise computes what a wins from b. Boards of non-fouled contenders
// must be complete.
func (s *Service) ScorePairwise(a, b Contender) (PairResult, error) {
	var result PairResult
	switch {
	case a.Fouled && b.Fouled:
		return result, nil
	case a.Fouled:
		result.Foul = -FoulPenalty
		result.Total = -FoulPenalty
		return result, nil
	case b.Fouled:
		result.Foul = FoulPenalty
		result.Total = FoulPenalty
		return result, nil
	}

	won := 0
	for i, row := range model.Rows {
		c, err := evaluator.CompareCards(a.Board.Cards(row), b.Board.Cards(row))
		if err != nil {
			return PairResult{}, fmt.Errorf("%s row: %w", row, err)
		}
		result.Rows[i] = c * RowPoint
		result.Total += result.Rows[i]
		won += c
	}
	switch won {
	case len(model.Rows):
		result.Scoop = ScoopBonus
	case -len(model.Rows):
		result.Scoop = -ScoopBonus
	}
	result.Total += result.Scoop
	return result, nil
}

// ScoreRound sums every contender's pairwise exchanges into a net score
func (s *Service) ScoreRound(contenders []Contender) (map[model.PlayerID]int, error) {
	net := make(map[model.PlayerID]int, len(contenders))
	for _, c := range contenders {
		net[c.UID] = 0
	}
	for i := 0; i < len(contenders); i++ {
		for j := i + 1; j < len(contenders); j++ {
			result, err := s.ScorePairwise(contenders[i], contenders[j])
			if err != nil {
				return nil, fmt.Errorf("scoring %s against %s: %w", contenders[i].UID, contenders[j].UID, err)
			}
			net[contenders[i].UID] += result.Total
			net[contenders[j].UID] -= result.Total
		}
	}
	return net, nil
}
