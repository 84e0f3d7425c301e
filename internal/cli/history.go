package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/lobbyengine/internal/api/response"
	"github.com/mcoot/lobbyengine/internal/model"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Archived match commands",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryGetCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently started matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.HistoryResponse

			if err := client.Get(cmd.Context(), fmt.Sprintf("/history?limit=%d", limit), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of matches")

	return cmd
}

func newHistoryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <lobby-id>",
		Short: "Show an archived match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.Match

			if err := client.Get(cmd.Context(), fmt.Sprintf("/history/%s", args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
