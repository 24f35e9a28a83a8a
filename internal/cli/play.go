package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/openface/internal/api/request"
	"github.com/mcoot/openface/internal/api/response"
)

func newHandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hand <code>",
		Short: "Show your dealt cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Hand

			if err := client.Get(roomPath(args[0], "hand"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

// splitCards accepts cards separated by commas or spaces
func splitCards(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

// buildPlacements turns per-row card lists into a place request
func buildPlacements(top, middle, bottom, discard string) (request.PlaceCardsRequest, error) {
	var req request.PlaceCardsRequest
	for _, row := range []struct {
		name  string
		cards string
	}{
		{"top", top},
		{"middle", middle},
		{"bottom", bottom},
	} {
		for _, c := range splitCards(row.cards) {
			req.Placements = append(req.Placements, request.Placement{Card: c, Row: row.name})
		}
	}
	if len(req.Placements) == 0 {
		return req, fmt.Errorf("at least one of --top, --middle or --bottom is required")
	}
	req.Discard = strings.TrimSpace(discard)
	return req, nil
}

func newPlaceCmd() *cobra.Command {
	var top, middle, bottom, discard string

	cmd := &cobra.Command{
		Use:   "place <code>",
		Short: "Place cards from your hand",
		Long: `Place cards from your hand onto your board.

Cards are written rank then suit, e.g. As, Td, 7h. Separate several cards
with commas. On streets 2 to 5 the card not placed is discarded; name it with
--discard or let the server discard it.

  ofc place ABCDEF --bottom As,Ad --middle 7h,7c --top 2s
  ofc place ABCDEF --middle Kd --top Qc --discard 3h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildPlacements(top, middle, bottom, discard)
			if err != nil {
				return err
			}
			return printRoom(func(result *response.Room) error {
				return client.Post(roomPath(args[0], "place"), req, result)
			})
		},
	}

	cmd.Flags().StringVar(&top, "top", "", "Cards for the top row")
	cmd.Flags().StringVar(&middle, "middle", "", "Cards for the middle row")
	cmd.Flags().StringVar(&bottom, "bottom", "", "Cards for the bottom row")
	cmd.Flags().StringVar(&discard, "discard", "", "Card to discard on a street")

	return cmd
}
