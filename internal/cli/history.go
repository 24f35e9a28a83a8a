package cli

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/openface/internal/api/response"
)

func newHistoryCmd() *cobra.Command {
	var (
		player string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history [match-id]",
		Short: "Show completed matches, or one match by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			if len(args) == 1 {
				var result response.Match
				if err := client.Get("/api/v1/history/"+url.PathEscape(args[0]), &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			query := url.Values{}
			if player != "" {
				query.Set("player", player)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/v1/history"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			var result response.History
			if err := client.Get(path, &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&player, "player", "", "Player id to list (default: you)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum matches to list")

	return cmd
}
