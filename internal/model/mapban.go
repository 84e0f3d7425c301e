package model

import (
	"slices"
	"strings"
	"time"
)

// DefaultMapPool is the catalog used when no pool is configured
var DefaultMapPool = []string{
	"Bank",
	"Border",
	"Chalet",
	"Clubhouse",
	"Coastline",
	"Consulate",
	"Kafe",
}

// NormalizeMapPool trims names and drops blanks and repeats, keeping first-seen order
func NormalizeMapPool(maps []string) []string {
	out := make([]string, 0, len(maps))
	for _, m := range maps {
		m = strings.TrimSpace(m)
		if m != "" && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// BanRecord is one accepted map ban
type BanRecord struct {
	Team      Team      `json:"team"`
	Map       string    `json:"map"`
	Auto      bool      `json:"auto,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MapBanState is the ban negotiation embedded in a lobby
type MapBanState struct {
	AvailableMaps  []string    `json:"availableMaps"`
	BannedMaps     []string    `json:"bannedMaps"`
	CurrentBanTeam Team        `json:"currentBanTeam"`
	SelectedMap    string      `json:"selectedMap"`
	BanHistory     []BanRecord `json:"banHistory"`
	MapBanPhase    bool        `json:"mapBanPhase"`
	TimeLeft       int         `json:"timeLeft"`
	TurnEndsAt     time.Time   `json:"turnEndsAt"`
}

// IsBanned reports whether a map has been eliminated
func (m *MapBanState) IsBanned(name string) bool {
	return slices.Contains(m.BannedMaps, name)
}

// Remaining returns the unbanned maps in catalog order
func (m *MapBanState) Remaining() []string {
	remaining := make([]string, 0, len(m.AvailableMaps))
	for _, name := range m.AvailableMaps {
		if !m.IsBanned(name) {
			remaining = append(remaining, name)
		}
	}
	return remaining
}

// Clone returns a deep copy
func (m *MapBanState) Clone() *MapBanState {
	if m == nil {
		return nil
	}
	c := *m
	c.AvailableMaps = slices.Clone(m.AvailableMaps)
	c.BannedMaps = slices.Clone(m.BannedMaps)
	c.BanHistory = slices.Clone(m.BanHistory)
	return &c
}
