package model

import "time"

const (
	// HostSeat is reserved for the session creator. Joiners are numbered
	// upward from FirstJoinerSeat by the roster transaction.
	HostSeat        = 100
	FirstJoinerSeat = 101
)

// Player is one roster row, keyed by identity inside the session's player
// bucket. Epoch stamps the occupancy the row belongs to; rows from an
// earlier occupancy of the same invite code are ghosts and are filtered
// out of every active-roster view.
type Player struct {
	Identity    string    `json:"identity"`
	Epoch       string    `json:"epoch"`
	SeatNumber  int       `json:"seatNumber"`
	DisplayName string    `json:"displayName"`
	AvatarType  string    `json:"avatarType,omitempty"`
	Skin        string    `json:"skin,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

func (p *Player) IsHost() bool {
	return p.SeatNumber == HostSeat
}
