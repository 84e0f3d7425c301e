package response

import (
	"time"

	"github.com/mcoot/lobbyengine/internal/model"
)

// MatchResponse wraps a lobby snapshot
type MatchResponse struct {
	Lobby *model.Lobby `json:"lobby"`
}

// MatchFromModel wraps a lobby snapshot
func MatchFromModel(l *model.Lobby) MatchResponse {
	return MatchResponse{Lobby: l}
}

// MatchSummary is one archived match in a history listing
type MatchSummary struct {
	LobbyID    string    `json:"lobbyId"`
	Map        string    `json:"map"`
	ServerIP   string    `json:"serverIp"`
	Source     string    `json:"source"`
	Players    int       `json:"players"`
	Bots       int       `json:"bots"`
	ArchivedAt time.Time `json:"archivedAt"`
}

// MatchSummaryFromModel summarises an archived match
func MatchSummaryFromModel(m *model.Match) MatchSummary {
	bots := 0
	for _, p := range m.Lobby.Players {
		if p.IsBot {
			bots++
		}
	}
	return MatchSummary{
		LobbyID:    string(m.LobbyID),
		Map:        m.Map,
		ServerIP:   m.ServerInfo.IP,
		Source:     string(m.Lobby.Source),
		Players:    len(m.Lobby.Players),
		Bots:       bots,
		ArchivedAt: m.ArchivedAt,
	}
}

// HistoryResponse lists archived matches, most recent first
type HistoryResponse struct {
	Matches []MatchSummary `json:"matches"`
}

// HistoryFromModel converts a page of archived matches
func HistoryFromModel(matches []*model.Match) HistoryResponse {
	summaries := make([]MatchSummary, 0, len(matches))
	for _, m := range matches {
		summaries = append(summaries, MatchSummaryFromModel(m))
	}
	return HistoryResponse{Matches: summaries}
}

// HealthResponse is the liveness probe body
type HealthResponse struct {
	Status        string `json:"status"`
	ActiveLobbies int    `json:"activeLobbies"`
	Connections   int    `json:"connections"`
	Queued        int    `json:"queued"`
}
