package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/openface/internal/api/request"
	"github.com/mcoot/openface/internal/api/response"
)

func roomPath(code string, parts ...string) string {
	path := "/api/v1/rooms/" + url.PathEscape(strings.ToUpper(code))
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room management commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomListCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomLeaveCmd())
	cmd.AddCommand(newRoomStartCmd())
	cmd.AddCommand(newRoomPlayAgainCmd())
	cmd.AddCommand(newRoomSitOutCmd())
	cmd.AddCommand(newRoomBotCmd())

	return cmd
}

// printRoom runs a room command and prints the room it returns
func printRoom(do func(result *response.Room) error) error {
	var result response.Room
	if err := do(&result); err != nil {
		return err
	}

	out := NewOutput(cfg.Output)
	out.Print(result)
	return nil
}

func newRoomCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new room and become its host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom(func(result *response.Room) error {
				return client.Post("/api/v1/rooms", request.CreateRoomRequest{DisplayName: name}, result)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name in this room (default: player name)")

	return cmd
}

func newRoomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomList

			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get room details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom(func(result *response.Room) error {
				return client.Get(roomPath(args[0]), result)
			})
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	var (
		name   string
		create bool
	)

	cmd := &cobra.Command{
		Use:   "join [code]",
		Short: "Join a room, or create one with --create",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.JoinRoomRequest{DisplayName: name, Create: create}
			path := "/api/v1/rooms/join"
			if len(args) == 1 {
				path = roomPath(args[0], "join")
			} else if !create {
				return fmt.Errorf("a room code is required unless --create is set")
			}

			return printRoom(func(result *response.Room) error {
				return client.Post(path, req, result)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name in this room (default: player name)")
	cmd.Flags().BoolVar(&create, "create", false, "Create a new room when no code is given")

	return cmd
}

func newRoomLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <code>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])

			if err := client.Post(roomPath(code, "leave"), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Left room %s", code))
			return nil
		},
	}
}

func newRoomStartCmd() *cobra.Command {
	var (
		rounds     int
		timeoutMs  int64
		intervalMs int64
	)

	cmd := &cobra.Command{
		Use:   "start <code>",
		Short: "Start a match (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.StartMatchRequest{
				TotalRounds:       rounds,
				TurnTimeoutMs:     timeoutMs,
				InterRoundDelayMs: intervalMs,
			}
			return printRoom(func(result *response.Room) error {
				return client.Post(roomPath(args[0], "start"), req, result)
			})
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 0, "Rounds in the match (default: room setting)")
	cmd.Flags().Int64Var(&timeoutMs, "turn-timeout-ms", 0, "Time allowed per deal phase (default: room setting)")
	cmd.Flags().Int64Var(&intervalMs, "inter-round-delay-ms", 0, "Pause between rounds (default: room setting)")

	return cmd
}

func newRoomPlayAgainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play-again <code>",
		Short: "Return a finished match to the lobby",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom(func(result *response.Room) error {
				return client.Post(roomPath(args[0], "play-again"), nil, result)
			})
		},
	}
}

func newRoomSitOutCmd() *cobra.Command {
	var back bool

	cmd := &cobra.Command{
		Use:   "sit-out <code>",
		Short: "Sit out of upcoming rounds, or rejoin them with --back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom(func(result *response.Room) error {
				return client.Post(roomPath(args[0], "sit-out"), request.SitOutRequest{SittingOut: !back}, result)
			})
		},
	}

	cmd.Flags().BoolVar(&back, "back", false, "Deal back in from the next round")

	return cmd
}

func newRoomBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Add or remove bot players (host only)",
	}

	var strategy string
	add := &cobra.Command{
		Use:   "add <code>",
		Short: "Seat a bot in the room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom(func(result *response.Room) error {
				return client.Post(roomPath(args[0], "bots"), request.AddBotRequest{Strategy: strategy}, result)
			})
		},
	}
	add.Flags().StringVar(&strategy, "strategy", "", "Bot strategy: random, stacked (default: random)")

	remove := &cobra.Command{
		Use:   "remove <code> <player-id>",
		Short: "Remove a bot from the room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom(func(result *response.Room) error {
				return client.Delete(roomPath(args[0], "bots", url.PathEscape(args[1])), result)
			})
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}
