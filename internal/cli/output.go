package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcoot/lobbyengine/internal/api/response"
	"github.com/mcoot/lobbyengine/internal/model"
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
		detail := map[string]string{"message": err.Error()}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			detail = map[string]string{"code": apiErr.Code, "message": apiErr.Message}
		}
		errData := map[string]any{"error": detail}
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
	case response.MatchResponse:
		o.printLobby(v.Lobby)
	case response.HistoryResponse:
		o.printHistory(v)
	case model.Match:
		o.printMatch(v)
	case response.HealthResponse:
		o.printHealthResult(v)
	case HashResult:
		fmt.Println(v.Hash)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HashResult is the output of hash-token
type HashResult struct {
	Hash string `json:"hash"`
}

func (o *Output) printLobby(l *model.Lobby) {
	if l == nil {
		return
	}
	fmt.Printf("Lobby: %s\n", l.ID)
	fmt.Printf("Status: %s\n", l.Status)
	fmt.Printf("Source: %s\n", l.Source)
	if l.CancelReason != "" {
		fmt.Printf("Reason: %s\n", l.CancelReason)
	}
	if len(l.Captains) == 2 {
		fmt.Printf("Captains: %s vs %s\n", l.Captains[0], l.Captains[1])
	}

	fmt.Printf("Players (%d/%d):\n", len(l.Players), model.Quorum)
	for _, p := range l.Players {
		var tags []string
		if p.Role == model.PlayerRoleCaptain {
			tags = append(tags, "captain")
		}
		if p.IsBot {
			tags = append(tags, "bot")
		}
		if p.Ready {
			tags = append(tags, "ready")
		}
		tagStr := ""
		if len(tags) > 0 {
			tagStr = " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Printf("  - %s (%s) %d %s%s\n", p.Username, p.UserID, p.EloRating, p.Team, tagStr)
	}

	if d := l.DraftState; d != nil && d.IsActive {
		fmt.Printf("Draft: %s to pick, %d in pool\n", d.CurrentCaptain(), len(d.Pool))
	}
	if m := l.MapBanState; m != nil {
		if m.MapBanPhase {
			fmt.Printf("Map ban: %s to ban, remaining %s\n", m.CurrentBanTeam, strings.Join(m.Remaining(), ", "))
		}
		if m.SelectedMap != "" {
			fmt.Printf("Map: %s\n", m.SelectedMap)
		}
	}
	if a := l.Allocation; a != nil {
		state := "pending"
		if !a.Pending {
			state = "idle"
		}
		fmt.Printf("Allocation: attempt %d, %s, request %s\n", a.Attempt, state, a.RequestID)
		if a.LastError != "" {
			fmt.Printf("Last error: %s\n", a.LastError)
		}
	}
	if l.ServerInfo != nil {
		fmt.Printf("Server: %s\n", l.ServerInfo.IP)
	}
}

func (o *Output) printHistory(h response.HistoryResponse) {
	if len(h.Matches) == 0 {
		fmt.Println("No matches recorded")
		return
	}
	for _, m := range h.Matches {
		fmt.Printf("%s  %s  %-10s %-21s %d players (%d bots)  %s\n",
			m.ArchivedAt.Format(time.DateTime), m.LobbyID, m.Map, m.ServerIP, m.Players, m.Bots, m.Source)
	}
}

func (o *Output) printMatch(m model.Match) {
	fmt.Printf("Match: %s\n", m.LobbyID)
	fmt.Printf("Archived: %s\n", m.ArchivedAt.Format(time.DateTime))
	fmt.Printf("Map: %s\n", m.Map)
	fmt.Printf("Server: %s\n", m.ServerInfo.IP)
	for _, team := range []model.Team{model.TeamAlpha, model.TeamBravo} {
		fmt.Printf("Team %s:\n", team)
		for _, p := range m.Lobby.Players {
			if p.Team == team {
				fmt.Printf("  - %s (%s) %d\n", p.Username, p.UserID, p.EloRating)
			}
		}
	}
}

func (o *Output) printHealthResult(h response.HealthResponse) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Active lobbies: %d\n", h.ActiveLobbies)
	fmt.Printf("Connections: %d\n", h.Connections)
	fmt.Printf("Queued: %d\n", h.Queued)
}
