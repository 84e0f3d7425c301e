package model

import (
	"slices"
	"time"
)

// DraftPicks is the number of non-captain players assigned by the draft
const DraftPicks = Quorum - 2

// DraftTurn names which captain holds the pick
type DraftTurn string

const (
	DraftTurnCaptainA DraftTurn = "captainA"
	DraftTurnCaptainB DraftTurn = "captainB"
)

// Next returns the other captain's turn
func (t DraftTurn) Next() DraftTurn {
	if t == DraftTurnCaptainA {
		return DraftTurnCaptainB
	}
	return DraftTurnCaptainA
}

// PickRecord is one accepted draft pick
type PickRecord struct {
	Captain        UserID    `json:"captain"`
	PickedPlayerID UserID    `json:"pickedPlayerId"`
	Timestamp      time.Time `json:"timestamp"`
}

// DraftState is the captain draft embedded in a lobby
type DraftState struct {
	CaptainA    UserID       `json:"captainA"`
	CaptainB    UserID       `json:"captainB"`
	Pool        []UserID     `json:"pool"`
	PickHistory []PickRecord `json:"pickHistory"`
	CurrentTurn DraftTurn    `json:"currentTurn"`
	IsActive    bool         `json:"isActive"`
}

// CurrentCaptain returns the captain whose turn it is
func (d *DraftState) CurrentCaptain() UserID {
	if d.CurrentTurn == DraftTurnCaptainA {
		return d.CaptainA
	}
	return d.CaptainB
}

// InPool reports whether a user is still undrafted
func (d *DraftState) InPool(userID UserID) bool {
	return slices.Contains(d.Pool, userID)
}

// Teams returns each captain followed by their picks in draft order
func (d *DraftState) Teams() (alpha, bravo []UserID) {
	if d == nil {
		return nil, nil
	}
	alpha = []UserID{d.CaptainA}
	bravo = []UserID{d.CaptainB}
	for _, rec := range d.PickHistory {
		switch rec.Captain {
		case d.CaptainA:
			alpha = append(alpha, rec.PickedPlayerID)
		case d.CaptainB:
			bravo = append(bravo, rec.PickedPlayerID)
		}
	}
	return alpha, bravo
}

// Clone returns a deep copy
func (d *DraftState) Clone() *DraftState {
	if d == nil {
		return nil
	}
	c := *d
	c.Pool = slices.Clone(d.Pool)
	c.PickHistory = slices.Clone(d.PickHistory)
	return &c
}
