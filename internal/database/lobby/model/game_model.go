package model

import "time"

type Phase string

const (
	PhaseReveal Phase = "reveal"
	PhaseChat   Phase = "chat"
	PhaseVote   Phase = "vote"
	PhaseResult Phase = "result"
)

type Role string

const (
	RoleImposter Role = "imposter"
	RoleCrew     Role = "crew"
)

type Side string

const (
	SideCrew     Side = "crew"
	SideImposter Side = "imposter"
)

// Game is embedded in the session document once the host starts a round.
// PlayerOrder is snapshotted from the active roster at start and never
// mutated afterward; it fixes both turn rotation and the vote quorum.
type Game struct {
	SecretWord       string          `json:"secretWord"`
	ThemeID          string          `json:"themeId"`
	ImposterIdentity string          `json:"imposterIdentity"`
	ImposterHint     string          `json:"imposterHint"`
	RoleAssignments  map[string]Role `json:"roleAssignments"`

	Phase       Phase    `json:"phase"`
	PlayerOrder []string `json:"playerOrder"`

	Chat      Chat              `json:"chat"`
	Votes     map[string]string `json:"votes"`
	Result    *Result           `json:"result,omitempty"`
	Guess     *ImposterGuess    `json:"imposterGuess,omitempty"`
	PostChat  []PostChatEntry   `json:"postChat,omitempty"`
	StartedAt time.Time         `json:"startedAt"`
}

type Chat struct {
	Round        int         `json:"round"`
	TurnIndex    int         `json:"turnIndex"`
	TurnIdentity string      `json:"turnIdentity"`
	Log          []ChatEntry `json:"log"`
}

type ChatEntry struct {
	Identity    string    `json:"identity"`
	Word        string    `json:"word"`
	Round       int       `json:"round"`
	Index       int       `json:"index"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Result is written exactly once, atomically with the final vote.
type Result struct {
	Winner             Side   `json:"winner"`
	Loser              Side   `json:"loser"`
	EliminatedIdentity string `json:"eliminatedIdentity"`
}

// ImposterGuess is the post-elimination guess sub-state: once the imposter
// has been voted out they get one shot at naming the secret word. Text is
// mirrored live while they type; FinalGuess and Correct are written once
// on submission.
type ImposterGuess struct {
	Text       string    `json:"text"`
	Submitted  bool      `json:"submitted"`
	FinalGuess string    `json:"finalGuess,omitempty"`
	Correct    *bool     `json:"correct,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PostChatEntry is one free-form message in the post-game chat.
type PostChatEntry struct {
	Identity    string    `json:"identity"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (g *Game) IsImposter(identity string) bool {
	return g.ImposterIdentity == identity
}

// InOrder reports whether identity participates in this game.
func (g *Game) InOrder(identity string) bool {
	for _, id := range g.PlayerOrder {
		if id == identity {
			return true
		}
	}
	return false
}
