package match

import (
	"strings"
	"time"

	"github.com/imposter-games/imposter/internal/database/lobby/model"
)

// MaxGuessLen caps the imposter's guess input.
const MaxGuessLen = 64

// MaxMessageLen caps one post-game chat message.
const MaxMessageLen = 220

// guessActive reports whether the imposter-guess window is open: the vote
// eliminated the imposter and the result stands.
func guessActive(g *model.Game) bool {
	return g.Phase == model.PhaseResult && g.Result != nil &&
		g.Result.EliminatedIdentity == g.ImposterIdentity
}

// SetGuessTyping mirrors the imposter's in-progress guess into the shared
// document so the table watches them type. Allowed only while the guess
// window is open and nothing has been submitted yet.
func SetGuessTyping(s *model.Session, caller, text string, now time.Time) error {
	game := s.Game
	if game == nil {
		return ErrNoGame
	}
	if !guessActive(game) {
		return ErrGuessNotActive
	}
	if caller != game.ImposterIdentity {
		return ErrNotTheImposter
	}
	if game.Guess != nil && game.Guess.Submitted {
		return ErrGuessAlreadySubmitted
	}

	runes := []rune(text)
	if len(runes) > MaxGuessLen {
		runes = runes[:MaxGuessLen]
	}

	if game.Guess == nil {
		game.Guess = &model.ImposterGuess{StartedAt: now}
	}
	game.Guess.Text = string(runes)
	game.Guess.UpdatedAt = now

	return nil
}

// SubmitGuess records the imposter's one final guess and marks it correct
// or incorrect against the secret word. The result of the vote is already
// immutable; the verdict is informational for the reveal screen.
func SubmitGuess(s *model.Session, caller, raw string, now time.Time) error {
	game := s.Game
	if game == nil {
		return ErrNoGame
	}
	if !guessActive(game) {
		return ErrGuessNotActive
	}
	if caller != game.ImposterIdentity {
		return ErrNotTheImposter
	}
	if game.Guess != nil && game.Guess.Submitted {
		return ErrGuessAlreadySubmitted
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return ErrInvalidGuess
	}
	runes := []rune(text)
	if len(runes) > MaxGuessLen {
		text = string(runes[:MaxGuessLen])
	}

	// a multi-word guess normalizes to "" and can never match
	correct := false
	if w := Normalize(text); w != "" && equalFold(w, Normalize(game.SecretWord)) {
		correct = true
	}

	if game.Guess == nil {
		game.Guess = &model.ImposterGuess{StartedAt: now}
	}
	game.Guess.Text = text
	game.Guess.FinalGuess = text
	game.Guess.Submitted = true
	game.Guess.Correct = &correct
	game.Guess.UpdatedAt = now

	return nil
}

// SubmitPostChat appends one free-form message to the post-game chat. Open
// to everyone in the game once the session is finished; a reset drops the
// log together with the rest of the game document.
func SubmitPostChat(s *model.Session, caller, raw string, now time.Time) error {
	game := s.Game
	if game == nil {
		return ErrNoGame
	}
	if s.Status != model.StatusFinished {
		return ErrPostChatClosed
	}
	if !game.InOrder(caller) {
		return ErrNotAPlayer
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return ErrInvalidMessage
	}
	runes := []rune(text)
	if len(runes) > MaxMessageLen {
		text = string(runes[:MaxMessageLen])
	}

	game.PostChat = append(game.PostChat, model.PostChatEntry{
		Identity:    caller,
		Text:        text,
		SubmittedAt: now,
	})

	return nil
}
