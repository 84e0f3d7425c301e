package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/lobbyengine/internal/api/request"
	"github.com/mcoot/lobbyengine/internal/api/response"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Administrative lobby commands",
	}

	cmd.AddCommand(newMatchCreateCmd())
	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchActionCmd("fill-bots", "Top up a lobby with bots"))
	cmd.AddCommand(newMatchActionCmd("retry-allocation", "Request a new game server for a lobby"))
	cmd.AddCommand(newMatchActionCmd("complete", "Mark an in-progress match finished"))
	cmd.AddCommand(newMatchResetCmd())

	return cmd
}

func newMatchCreateCmd() *cobra.Command {
	var (
		players        []string
		skipReadyCheck bool
		botsAutoPlay   bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lobby from a fixed roster",
		Long: `Create a lobby from a fixed roster.

Each --player is id:name[:elo]. With fewer than ten players the lobby waits
for more, or for fill-bots.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.CreateMatchRequest{
				SkipReadyCheck: skipReadyCheck,
				BotsAutoPlay:   botsAutoPlay,
			}
			for _, raw := range players {
				p, err := parsePlayer(raw)
				if err != nil {
					return err
				}
				req.Players = append(req.Players, p)
			}

			var result response.MatchResponse

			if err := client.Post(cmd.Context(), "/matches", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&players, "player", nil, "Player as id:name[:elo] (repeatable)")
	cmd.Flags().BoolVar(&skipReadyCheck, "skip-ready-check", false, "Start the draft as soon as the roster is full")
	cmd.Flags().BoolVar(&botsAutoPlay, "bots-autoplay", false, "Let bot captains pick and ban on their own")

	return cmd
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <lobby-id>",
		Short: "Get lobby details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.MatchResponse

			if err := client.Get(cmd.Context(), fmt.Sprintf("/matches/%s", args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <lobby-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.MatchResponse

			if err := client.Post(cmd.Context(), fmt.Sprintf("/matches/%s/%s", args[0], action), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchResetCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reset <lobby-id>",
		Short: "Cancel a lobby, or end an in-progress match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if reason != "" {
				body = request.ResetMatchRequest{Reason: reason}
			}

			var result response.MatchResponse

			if err := client.Post(cmd.Context(), fmt.Sprintf("/matches/%s/reset", args[0]), body, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the roster")

	return cmd
}

// parsePlayer reads id:name[:elo]
func parsePlayer(raw string) (request.PlayerRequest, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return request.PlayerRequest{}, fmt.Errorf("player %q: want id:name[:elo]", raw)
	}

	p := request.PlayerRequest{
		UserID:   parts[0],
		Username: parts[1],
	}
	if len(parts) == 3 {
		elo, err := strconv.Atoi(parts[2])
		if err != nil || elo < 0 {
			return request.PlayerRequest{}, fmt.Errorf("player %q: elo must be a non-negative integer", raw)
		}
		p.EloRating = elo
	}
	return p, nil
}
