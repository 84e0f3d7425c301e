package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/lobbyengine/internal/services/auth"
)

func newHashTokenCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Hash an admin token for ADMIN_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashAdminToken(args[0])
			if err != nil {
				return err
			}

			if save {
				if err := cfg.SaveToken(args[0]); err != nil {
					return err
				}
			}

			out := NewOutput(cfg.Output)
			out.Print(HashResult{Hash: hash})
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Also store the token in the token file for later commands")

	return cmd
}
