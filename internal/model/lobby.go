package model

import (
	"slices"
	"time"
)

// Quorum is the fixed roster size of a lobby
const Quorum = 10

// LobbyID uniquely identifies a lobby
type LobbyID string

// LobbyStatus is the lifecycle phase of a lobby
type LobbyStatus string

const (
	LobbyStatusWaitingReady LobbyStatus = "WAITING_READY"
	LobbyStatusDrafting     LobbyStatus = "DRAFTING"
	LobbyStatusMapBan       LobbyStatus = "MAP_BAN"
	LobbyStatusServerAssign LobbyStatus = "SERVER_ASSIGN"
	LobbyStatusInProgress   LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted    LobbyStatus = "COMPLETED"
	LobbyStatusCancelled    LobbyStatus = "CANCELLED"
)

// statusOrder gives the forward ordering of non-cancelled statuses
var statusOrder = map[LobbyStatus]int{
	LobbyStatusWaitingReady: 0,
	LobbyStatusDrafting:     1,
	LobbyStatusMapBan:       2,
	LobbyStatusServerAssign: 3,
	LobbyStatusInProgress:   4,
	LobbyStatusCompleted:    5,
}

// IsTerminal reports whether no further transitions are possible
func (s LobbyStatus) IsTerminal() bool {
	return s == LobbyStatusCompleted || s == LobbyStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal step
func (s LobbyStatus) CanTransitionTo(next LobbyStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == LobbyStatusCancelled {
		return true
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	return ok && to == from+1
}

// Team is a side in the match
type Team string

const (
	TeamAlpha      Team = "alpha"
	TeamBravo      Team = "bravo"
	TeamUnassigned Team = "unassigned"
)

// Opponent returns the other team
func (t Team) Opponent() Team {
	switch t {
	case TeamAlpha:
		return TeamBravo
	case TeamBravo:
		return TeamAlpha
	default:
		return TeamUnassigned
	}
}

// PlayerRole distinguishes captains from members
type PlayerRole string

const (
	PlayerRoleCaptain PlayerRole = "captain"
	PlayerRoleMember  PlayerRole = "member"
)

// LobbySource records how a lobby was formed
type LobbySource string

const (
	LobbySourceQueue LobbySource = "queue"
	LobbySourceAdmin LobbySource = "admin"
)

// LobbyPlayer is one roster slot
type LobbyPlayer struct {
	UserID    UserID     `json:"userId"`
	Username  string     `json:"username"`
	Avatar    string     `json:"avatar,omitempty"`
	EloRating int        `json:"eloRating"`
	Team      Team       `json:"team"`
	Role      PlayerRole `json:"role"`
	Ready     bool       `json:"ready"`
	IsBot     bool       `json:"isBot"`
	JoinedAt  time.Time  `json:"joinedAt"`
}

// Entry converts the roster slot back into a queue-style entry for ranking
func (p LobbyPlayer) Entry() QueueEntry {
	return QueueEntry{
		UserID:    p.UserID,
		Username:  p.Username,
		Avatar:    p.Avatar,
		EloRating: p.EloRating,
		JoinedAt:  p.JoinedAt,
	}
}

// LobbyOptions are set when a lobby is created through the admin path
type LobbyOptions struct {
	SkipReadyCheck bool `json:"skipReadyCheck"`
	BotsAutoPlay   bool `json:"botsAutoPlay"`
}

// ServerInfo is the connection detail reported by the allocator
type ServerInfo struct {
	IP       string `json:"ip"`
	Password string `json:"password"`
}

// AllocationState tracks the outstanding allocator request for a lobby
type AllocationState struct {
	RequestID   string    `json:"requestId"`
	Attempt     int       `json:"attempt"`
	Pending     bool      `json:"pending"`
	LastError   string    `json:"lastError,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Lobby is one matchmaking session from merge through completion
type Lobby struct {
	ID            LobbyID          `json:"id"`
	Status        LobbyStatus      `json:"status"`
	Source        LobbySource      `json:"source"`
	Options       LobbyOptions     `json:"options"`
	Players       []LobbyPlayer    `json:"players"`
	Captains      []UserID         `json:"captains"`
	DraftState    *DraftState      `json:"draftState"`
	MapBanState   *MapBanState     `json:"mapBanState"`
	ServerInfo    *ServerInfo      `json:"serverInfo"`
	Allocation    *AllocationState `json:"allocation,omitempty"`
	ReadyDeadline *time.Time       `json:"readyDeadline,omitempty"`
	CancelReason  string           `json:"cancelReason,omitempty"`
	Version       int              `json:"version"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// GetPlayer returns the roster slot for a user, or nil if not on the roster
func (l *Lobby) GetPlayer(userID UserID) *LobbyPlayer {
	for i := range l.Players {
		if l.Players[i].UserID == userID {
			return &l.Players[i]
		}
	}
	return nil
}

// IsFull reports whether the roster has reached quorum
func (l *Lobby) IsFull() bool {
	return len(l.Players) >= Quorum
}

// AllReady reports whether every roster slot is ready
func (l *Lobby) AllReady() bool {
	if !l.IsFull() {
		return false
	}
	for _, p := range l.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// Unready returns the users who have not readied up
func (l *Lobby) Unready() []UserID {
	var ids []UserID
	for _, p := range l.Players {
		if !p.Ready {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// HumanIDs returns the non-bot roster members
func (l *Lobby) HumanIDs() []UserID {
	ids := make([]UserID, 0, len(l.Players))
	for _, p := range l.Players {
		if !p.IsBot {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// RosterIDs returns every roster member in order
func (l *Lobby) RosterIDs() []UserID {
	ids := make([]UserID, 0, len(l.Players))
	for _, p := range l.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

// CaptainOf returns the captain leading a team, or "" before the draft
func (l *Lobby) CaptainOf(team Team) UserID {
	if len(l.Captains) != 2 {
		return ""
	}
	switch team {
	case TeamAlpha:
		return l.Captains[0]
	case TeamBravo:
		return l.Captains[1]
	default:
		return ""
	}
}

// IsBot reports whether a roster member is synthetic
func (l *Lobby) IsBot(userID UserID) bool {
	p := l.GetPlayer(userID)
	return p != nil && p.IsBot
}

// Transition moves the lobby to next if the step is legal
func (l *Lobby) Transition(next LobbyStatus, now time.Time) error {
	if !l.Status.CanTransitionTo(next) {
		return ErrWrongPhase
	}
	l.Status = next
	l.UpdatedAt = now
	return nil
}

// Clone returns a deep copy safe to mutate independently
func (l *Lobby) Clone() *Lobby {
	if l == nil {
		return nil
	}
	c := *l
	c.Players = slices.Clone(l.Players)
	c.Captains = slices.Clone(l.Captains)
	c.DraftState = l.DraftState.Clone()
	c.MapBanState = l.MapBanState.Clone()
	if l.ServerInfo != nil {
		info := *l.ServerInfo
		c.ServerInfo = &info
	}
	if l.Allocation != nil {
		alloc := *l.Allocation
		c.Allocation = &alloc
	}
	if l.ReadyDeadline != nil {
		deadline := *l.ReadyDeadline
		c.ReadyDeadline = &deadline
	}
	return &c
}
