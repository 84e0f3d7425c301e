package lobby

import (
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/services/allocator"
)

// message is anything an actor's inbox accepts
type message interface {
	isMessage()
}

type reply struct {
	lobby *model.Lobby
	err   error
}

// replyTo is buffered so the actor never blocks answering a caller that gave up
type replyTo chan reply

func (r replyTo) send(lobby *model.Lobby, err error) {
	r <- reply{lobby: lobby, err: err}
}

type timerKind string

const (
	timerReady timerKind = "ready"
	timerBan   timerKind = "ban"
)

type (
	// resumeMsg is always the first message: it re-arms timers and, for a new lobby, announces it
	resumeMsg struct {
		announce bool
	}
	readyCmd struct {
		userID model.UserID
		reply  replyTo
	}
	pickCmd struct {
		userID   model.UserID
		pickedID model.UserID
		reply    replyTo
	}
	banCmd struct {
		userID  model.UserID
		team    model.Team
		mapName string
		reply   replyTo
	}
	leaveCmd struct {
		userID model.UserID
		reply  replyTo
	}
	resetCmd struct {
		reason string
		reply  replyTo
	}
	stateCmd struct {
		reply replyTo
	}
	fillBotsCmd struct {
		reply replyTo
	}
	retryCmd struct {
		reply replyTo
	}
	completeCmd struct {
		reply replyTo
	}
	allocationResult struct {
		result allocator.Result
	}
	timerFired struct {
		kind timerKind
		gen  uint64
	}
	// botTurn plays the bot captain's move if the lobby is still at version
	botTurn struct {
		version int
	}
)

func (resumeMsg) isMessage()        {}
func (readyCmd) isMessage()         {}
func (pickCmd) isMessage()          {}
func (banCmd) isMessage()           {}
func (leaveCmd) isMessage()         {}
func (resetCmd) isMessage()         {}
func (stateCmd) isMessage()         {}
func (fillBotsCmd) isMessage()      {}
func (retryCmd) isMessage()         {}
func (completeCmd) isMessage()      {}
func (allocationResult) isMessage() {}
func (timerFired) isMessage()       {}
func (botTurn) isMessage()          {}
