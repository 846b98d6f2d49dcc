package imposter

import (
	"errors"
	"fmt"

	"github.com/imposter-games/imposter/internal/imposter/match"
	"github.com/imposter-games/imposter/internal/imposter/resource"
)

var (
	// ErrCodeInUse is the only hard error Create can raise; the caller
	// retries with a different invite code.
	ErrCodeInUse = fmt.Errorf("invite code is currently in use")

	ErrInvalidCode        = fmt.Errorf("malformed invite code")
	ErrSessionNotFound    = fmt.Errorf("session not found")
	ErrSessionNotJoinable = fmt.Errorf("session is not joinable")
	ErrNotJoined          = fmt.Errorf("player is not in this session")
)

// guardErrs are the named errors surfaced to callers as-is.
var guardErrs = []error{
	ErrCodeInUse,
	ErrInvalidCode,
	ErrSessionNotFound,
	ErrSessionNotJoinable,
	ErrNotJoined,
	match.ErrOnlyHostAllowed,
	match.ErrNotEnoughPlayers,
	match.ErrGameAlreadyStarted,
	match.ErrNoGame,
	match.ErrChatNotActive,
	match.ErrNotYourTurn,
	match.ErrInvalidWord,
	match.ErrForbiddenWord,
	match.ErrVotingClosed,
	match.ErrAlreadyVoted,
	match.ErrNotAPlayer,
	match.ErrInvalidVoteTarget,
	match.ErrGuessNotActive,
	match.ErrNotTheImposter,
	match.ErrGuessAlreadySubmitted,
	match.ErrInvalidGuess,
	match.ErrPostChatClosed,
	match.ErrInvalidMessage,
	resource.ErrThemeNotFound,
	resource.ErrNoWords,
}

// unwrapGuard strips the store's transaction wrapping from guard errors so
// callers get the bare sentinel back.
func unwrapGuard(err error) error {
	if err == nil {
		return nil
	}
	for _, guard := range guardErrs {
		if errors.Is(err, guard) {
			return guard
		}
	}

	return err
}
