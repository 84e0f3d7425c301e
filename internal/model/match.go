package model

import "time"

// Match is the immutable audit record of a negotiated match
type Match struct {
	LobbyID    LobbyID    `json:"lobbyId"`
	Map        string     `json:"map"`
	ServerInfo ServerInfo `json:"serverInfo"`
	Lobby      Lobby      `json:"lobby"`
	// Alpha and Bravo list each captain followed by their picks, empty for lobbies that skipped the draft
	Alpha      []UserID  `json:"alpha,omitempty"`
	Bravo      []UserID  `json:"bravo,omitempty"`
	ArchivedAt time.Time `json:"archivedAt"`
}

// NewMatch freezes a lobby that has just been handed a server
func NewMatch(lobby *Lobby, now time.Time) *Match {
	m := &Match{
		LobbyID:    lobby.ID,
		Lobby:      *lobby.Clone(),
		ArchivedAt: now,
	}
	if lobby.MapBanState != nil {
		m.Map = lobby.MapBanState.SelectedMap
	}
	if lobby.ServerInfo != nil {
		m.ServerInfo = *lobby.ServerInfo
	}
	m.Alpha, m.Bravo = lobby.DraftState.Teams()
	return m
}
