package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/protocol"
)

type watchOptions struct {
	userID    string
	username  string
	elo       int
	lobbyID   string
	joinQueue bool
	json      bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to the websocket feed as a player",
		Long: `Register on the websocket endpoint and print every server message.

Messages include:
  - REGISTER_ACK: Registration accepted
  - MATCH_READY: Lobby formed, captains chosen
  - READY_PHASE_STARTED: Ready check opened
  - LOBBY_UPDATE: Full lobby snapshot
  - MATCH_START: Server assigned
  - MATCH_RESET: Lobby reset by a moderator
  - SERVER_ERROR: Allocation problem
  - ERROR: A command was rejected

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.username == "" {
				opts.username = opts.userID
			}
			return watch(opts)
		},
	}

	cmd.Flags().StringVar(&opts.userID, "user", "", "User id to register as")
	cmd.Flags().StringVar(&opts.username, "username", "", "Display name (default: user id)")
	cmd.Flags().IntVar(&opts.elo, "elo", 1000, "Elo rating")
	cmd.Flags().StringVar(&opts.lobbyID, "lobby", "", "Request this lobby's state after registering")
	cmd.Flags().BoolVar(&opts.joinQueue, "queue", false, "Join the matchmaking queue after registering")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output messages as JSON lines")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// WatchEvent is one server message as printed with --json
type WatchEvent struct {
	Time    time.Time       `json:"time"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func watch(opts watchOptions) error {
	// Set up cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WebsocketURL(), nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	commands := []protocol.ClientMessage{protocol.Register{
		UserID:    model.UserID(opts.userID),
		Username:  opts.username,
		EloRating: opts.elo,
	}}
	if opts.joinQueue {
		commands = append(commands, protocol.JoinQueue{UserID: model.UserID(opts.userID)})
	}
	if opts.lobbyID != "" {
		commands = append(commands, protocol.RequestMatchState{LobbyID: model.LobbyID(opts.lobbyID)})
	}
	for _, c := range commands {
		data, err := protocol.EncodeClient(c)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return fmt.Errorf("send %s: %w", c.Type(), err)
		}
	}

	if !opts.json {
		fmt.Printf("Connected as %s\n", opts.userID)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Context cancellation is expected
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !opts.json {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		if err := printFrame(data, opts.json); err != nil && cfg.Verbose {
			fmt.Fprintf(os.Stderr, "unreadable frame: %s\n", err)
		}
	}
}

func printFrame(data []byte, jsonOutput bool) error {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Type == "" {
		return errors.New("missing type")
	}
	now := time.Now()

	if jsonOutput {
		evt := WatchEvent{
			Time:    now,
			Type:    string(env.Type),
			Payload: env.Payload,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Println(string(jsonData))
		return nil
	}

	timestamp := now.Format(time.DateTime)
	fmt.Printf("[%s] %s: %s\n", timestamp, env.Type, describeFrame(data, env.Payload))
	return nil
}

// describeFrame renders a one-line summary of a server message
func describeFrame(data []byte, payload json.RawMessage) string {
	msg, err := protocol.DecodeServer(data)
	if err != nil {
		return truncate(string(payload))
	}

	switch m := msg.(type) {
	case *protocol.RegisterAck:
		return fmt.Sprintf("%s (%s)", m.UserID, m.Role)
	case *protocol.MatchReady:
		return fmt.Sprintf("lobby %s, captains %s", m.LobbyID, joinIDs(m.Captains))
	case *protocol.LobbyUpdate:
		if m.Lobby == nil {
			return ""
		}
		return fmt.Sprintf("lobby %s %s v%d, %d players", m.Lobby.ID, m.Lobby.Status, m.Lobby.Version, len(m.Lobby.Players))
	case *protocol.MatchStart:
		return fmt.Sprintf("lobby %s on %s at %s", m.LobbyID, m.Map, m.ServerInfo.IP)
	case *protocol.ServerError:
		return fmt.Sprintf("lobby %s: %s (retryable: %t)", m.LobbyID, m.Error, m.Retryable)
	case *protocol.Error:
		return fmt.Sprintf("%s: %s", m.Code, m.Message)
	default:
		return truncate(string(payload))
	}
}

func joinIDs(ids []model.UserID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func truncate(s string) string {
	// Truncate data if it's too long for display
	if len(s) > 100 {
		s = s[:100] + "..."
	}
	return strings.ReplaceAll(s, "\n", " ")
}
