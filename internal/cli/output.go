package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcoot/openface/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Player:
		o.printPlayer(v)
	case response.AuthResponse:
		o.printAuthResult(v)
	case response.Room:
		o.printRoom(v)
	case response.RoomList:
		o.printRoomList(v)
	case response.Hand:
		o.printHand(v)
	case response.Match:
		o.printMatch(v)
	case response.History:
		o.printHistory(v)
	case HealthReport:
		o.printHealth(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printPlayer(p response.Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a response.AuthResponse) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printRoom(r response.Room) {
	fmt.Printf("Room: %s\n", r.Code)
	fmt.Printf("Phase: %s\n", r.Phase)
	if r.Round > 0 {
		fmt.Printf("Round: %d of %d\n", r.Round, r.Settings.TotalRounds)
	}
	if r.PhaseDeadline != nil {
		fmt.Printf("Deadline: %s\n", r.PhaseDeadline.Local().Format(time.TimeOnly))
	}
	if len(r.Pending) > 0 {
		fmt.Printf("Waiting on: %s\n", strings.Join(r.Pending, ", "))
	}

	fmt.Printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		var tags []string
		if p.IsHost {
			tags = append(tags, "host")
		}
		if p.IsBot {
			tags = append(tags, "bot")
		}
		if p.Observer {
			tags = append(tags, "observing")
		}
		if p.SittingOut {
			tags = append(tags, "sitting out")
		}
		if p.Fouled {
			tags = append(tags, "fouled")
		}
		if !p.Connected && !p.IsBot {
			tags = append(tags, "away")
		}
		tagStr := ""
		if len(tags) > 0 {
			tagStr = " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Printf("  - %s (%s) score %d%s\n", p.DisplayName, p.ID, p.Score, tagStr)
		o.printBoard(p.Board)

		if result, ok := r.RoundResults[p.ID]; ok {
			fmt.Printf("      round: %+d\n", result.NetScore)
		}
	}
}

func (o *Output) printBoard(b response.Board) {
	if len(b.Top)+len(b.Middle)+len(b.Bottom) == 0 {
		return
	}
	fmt.Printf("      top:    %s\n", strings.Join(b.Top, " "))
	fmt.Printf("      middle: %s\n", strings.Join(b.Middle, " "))
	fmt.Printf("      bottom: %s\n", strings.Join(b.Bottom, " "))
}

func (o *Output) printRoomList(l response.RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Println("No open rooms")
		return
	}
	for _, code := range l.Rooms {
		fmt.Println(code)
	}
}

func (o *Output) printHand(h response.Hand) {
	if len(h.Cards) == 0 {
		fmt.Println("No cards in hand")
		return
	}
	fmt.Printf("Hand (%s): %s\n", h.Phase, strings.Join(h.Cards, " "))
}

func (o *Output) printMatch(m response.Match) {
	fmt.Printf("Match: %s (room %s, %d rounds)\n", m.ID, m.Room, m.Rounds)
	fmt.Printf("Completed: %s\n", m.CompletedAt.Local().Format(time.DateTime))
	for _, s := range m.Standings {
		fmt.Printf("  %d. %s (%s): %d\n", s.Place, s.DisplayName, s.PlayerID, s.Score)
	}
}

func (o *Output) printHistory(h response.History) {
	if len(h.Matches) == 0 {
		fmt.Println("No completed matches")
		return
	}
	for i, m := range h.Matches {
		if i > 0 {
			fmt.Println()
		}
		o.printMatch(m)
	}
}

func (o *Output) printHealth(h HealthReport) {
	fmt.Printf("Server: %s\n", h.Server)
	fmt.Printf("Status: %s (%dms)\n", h.Status, h.LatencyMs)
	fmt.Printf("Open rooms: %d\n", h.Rooms)
}
