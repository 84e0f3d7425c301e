package model

// AllocationRequest asks the external allocator for a game server
type AllocationRequest struct {
	RequestID string   `json:"requestId"`
	LobbyID   LobbyID  `json:"lobbyId"`
	Map       string   `json:"map"`
	Roster    []UserID `json:"roster"`
	Attempt   int      `json:"attempt"`
}

// AllocationAck is the allocator's answer. A non-empty FailureCode marks a failed allocation.
type AllocationAck struct {
	RequestID   string  `json:"requestId"`
	LobbyID     LobbyID `json:"lobbyId"`
	IP          string  `json:"ip,omitempty"`
	Password    string  `json:"password,omitempty"`
	FailureCode string  `json:"failureCode,omitempty"`
}

// Failed reports whether the ack carries a failure code
func (a AllocationAck) Failed() bool {
	return a.FailureCode != ""
}
