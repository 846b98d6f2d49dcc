package match

import "fmt"

// Guard errors are surfaced to the caller as-is and never retried; the
// client is expected to re-sync from the subscribed state first.
var (
	ErrOnlyHostAllowed    = fmt.Errorf("only the host can do that")
	ErrNotEnoughPlayers   = fmt.Errorf("need at least 2 players to start")
	ErrGameAlreadyStarted = fmt.Errorf("game already started")
	ErrNoGame             = fmt.Errorf("no active game")
	ErrChatNotActive      = fmt.Errorf("chat is not active")
	ErrNotYourTurn        = fmt.Errorf("not your turn")
	ErrInvalidWord        = fmt.Errorf("you must submit exactly one word")
	ErrForbiddenWord      = fmt.Errorf("crew cannot submit the secret word")
	ErrVotingClosed       = fmt.Errorf("voting is not active")
	ErrAlreadyVoted       = fmt.Errorf("you already voted")
	ErrNotAPlayer         = fmt.Errorf("not a player in this game")
	ErrInvalidVoteTarget  = fmt.Errorf("invalid vote target")

	ErrGuessNotActive        = fmt.Errorf("imposter guess is not open")
	ErrNotTheImposter        = fmt.Errorf("only the imposter can guess")
	ErrGuessAlreadySubmitted = fmt.Errorf("guess already submitted")
	ErrInvalidGuess          = fmt.Errorf("guess cannot be empty")
	ErrPostChatClosed        = fmt.Errorf("post-game chat is not open")
	ErrInvalidMessage        = fmt.Errorf("message cannot be empty")
)
