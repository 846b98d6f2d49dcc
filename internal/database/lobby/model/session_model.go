package model

import "time"

type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusStarted  SessionStatus = "started"
	StatusFinished SessionStatus = "finished"
	StatusClosed   SessionStatus = "closed"
)

// Settings is the host-chosen configuration. TurnTimerSec is advisory only,
// the phase machine never enforces it.
type Settings struct {
	SelectedThemeID string `json:"selectedThemeId"`
	Difficulty      string `json:"difficulty,omitempty"`
	TurnTimerSec    int    `json:"turnTimerSec,omitempty"`
}

// Session is the shared document one invite code maps to. Game is present
// only while a round is running or finished; Close and Reset remove it
// entirely so no stale secret word can be read from a previous game.
type Session struct {
	InviteCode     string        `json:"inviteCode"`
	Status         SessionStatus `json:"status"`
	HostIdentity   string        `json:"hostIdentity"`
	NextSeatNumber int           `json:"nextSeatNumber"`
	Epoch          string        `json:"epoch"`
	Settings       *Settings     `json:"settings,omitempty"`
	Game           *Game         `json:"game,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (s *Session) IsHost(identity string) bool {
	return identity != "" && s.HostIdentity == identity
}

// Open reports whether the invite code is still occupied.
func (s *Session) Open() bool {
	return s.Status != StatusClosed
}
