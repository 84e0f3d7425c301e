package protocol

import (
	"strings"

	"github.com/mcoot/lobbyengine/internal/model"
)

const (
	maxUsernameLength = 32
	maxChatLength     = 500
)

func (m Register) Validate() error {
	if strings.TrimSpace(string(m.UserID)) == "" {
		return model.Validationf("userId is required")
	}
	name := strings.TrimSpace(m.Username)
	if name == "" {
		return model.Validationf("username is required")
	}
	if len(name) > maxUsernameLength {
		return model.Validationf("username must be at most %d characters", maxUsernameLength)
	}
	if m.EloRating < 0 {
		return model.Validationf("eloRating must not be negative")
	}
	return nil
}

func (m JoinQueue) Validate() error {
	return requireUser(m.UserID)
}

func (m LeaveMatch) Validate() error {
	return requireUser(m.UserID)
}

func (m PlayerReady) Validate() error {
	if err := requireUser(m.UserID); err != nil {
		return err
	}
	return requireLobby(m.LobbyID)
}

func (m RequestMatchState) Validate() error {
	return requireLobby(m.LobbyID)
}

func (m DraftPick) Validate() error {
	if err := requireLobby(m.LobbyID); err != nil {
		return err
	}
	if m.PickedPlayerID == "" {
		return model.Validationf("pickedPlayerId is required")
	}
	return nil
}

func (m BanMap) Validate() error {
	if err := requireLobby(m.LobbyID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Map) == "" {
		return model.Validationf("map is required")
	}
	if m.Team != model.TeamAlpha && m.Team != model.TeamBravo {
		return model.Validationf("team must be %q or %q", model.TeamAlpha, model.TeamBravo)
	}
	return nil
}

func (m ResetMatch) Validate() error {
	return nil
}

func (m SendChat) Validate() error {
	if len(m.Content) > maxChatLength {
		return model.Validationf("content must be at most %d characters", maxChatLength)
	}
	return nil
}

func requireUser(id model.UserID) error {
	if strings.TrimSpace(string(id)) == "" {
		return model.Validationf("userId is required")
	}
	return nil
}

func requireLobby(id model.LobbyID) error {
	if strings.TrimSpace(string(id)) == "" {
		return model.Validationf("lobbyId is required")
	}
	return nil
}
