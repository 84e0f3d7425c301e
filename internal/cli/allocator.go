package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/lobbyengine/internal/api/request"
	"github.com/mcoot/lobbyengine/internal/services/auth"
)

const webhookTokenTTL = time.Minute

func newAllocatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocator",
		Short: "Answer allocation requests in place of the allocator",
		Long: `Answer allocation requests in place of the game server allocator.

Requests are signed with the webhook secret (--webhook-secret or
LOBBYCTL_WEBHOOK_SECRET). The request id is shown by "match get".`,
	}

	cmd.AddCommand(newAllocatorAckCmd())
	cmd.AddCommand(newAllocatorFailCmd())

	return cmd
}

func newAllocatorAckCmd() *cobra.Command {
	var (
		lobbyID  string
		ip       string
		password string
	)

	cmd := &cobra.Command{
		Use:   "ack <request-id>",
		Short: "Report a provisioned server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWebhook(cmd.Context(), request.AllocatorWebhookRequest{
				RequestID: args[0],
				LobbyID:   lobbyID,
				IP:        ip,
				Password:  password,
			}, "Server assigned")
		},
	}

	cmd.Flags().StringVar(&lobbyID, "lobby", "", "Lobby id the request belongs to (optional cross-check)")
	cmd.Flags().StringVar(&ip, "ip", "", "Server address")
	cmd.Flags().StringVar(&password, "password", "", "Server password")
	_ = cmd.MarkFlagRequired("ip")

	return cmd
}

func newAllocatorFailCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "fail <request-id>",
		Short: "Report a failed allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWebhook(cmd.Context(), request.AllocatorWebhookRequest{
				RequestID:   args[0],
				FailureCode: code,
			}, "Failure reported")
		},
	}

	cmd.Flags().StringVar(&code, "code", "NO_CAPACITY", "Failure code")

	return cmd
}

func sendWebhook(ctx context.Context, req request.AllocatorWebhookRequest, done string) error {
	if cfg.WebhookSecret == "" {
		return errors.New("webhook secret is required")
	}
	token, err := auth.SignWebhookToken(cfg.WebhookSecret, time.Now(), webhookTokenTTL)
	if err != nil {
		return err
	}

	if err := client.PostWithToken(ctx, "/allocator/webhook", token, req, nil); err != nil {
		return err
	}

	out := NewOutput(cfg.Output)
	out.PrintMessage(done)
	return nil
}
