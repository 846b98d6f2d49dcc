// Package match is the game phase machine: reveal, chat, vote, result,
// strictly forward. Every operation is a pure mutation of the session
// document; the store applies it under a serialized transaction, so no
// locking happens here. Guards that protect against duplicate or late
// client triggers are idempotent no-ops rather than errors.
package match

import (
	"sort"
	"time"

	"github.com/imposter-games/imposter/internal/database/lobby/model"
)

// Rounds is how many full passes over the player order the chat phase runs
// before voting opens.
const Rounds = 3

// PickFn selects an index in [0,n). Production injects fastrand, tests a
// fixed pick.
type PickFn func(n int) int

// Start embeds a fresh game into the session and marks it started. The
// roster must already be epoch-filtered and ordered by join time; its
// order becomes the turn rotation for the whole game. Calling Start on an
// already-started session is a no-op so a double-tapped start button
// cannot re-deal roles.
func Start(s *model.Session, roster []model.Player, caller, word, themeID, hint string, pick PickFn) error {
	if !s.IsHost(caller) {
		return ErrOnlyHostAllowed
	}
	if s.Status == model.StatusStarted {
		return nil
	}
	if s.Status != model.StatusWaiting {
		return ErrGameAlreadyStarted
	}
	if len(roster) < 2 {
		return ErrNotEnoughPlayers
	}

	order := make([]string, 0, len(roster))
	for _, p := range roster {
		order = append(order, p.Identity)
	}

	imposter := order[pick(len(order))]

	assignments := make(map[string]model.Role, len(order))
	for _, identity := range order {
		role := model.RoleCrew
		if identity == imposter {
			role = model.RoleImposter
		}
		assignments[identity] = role
	}

	s.Status = model.StatusStarted
	s.Game = &model.Game{
		SecretWord:       word,
		ThemeID:          themeID,
		ImposterIdentity: imposter,
		ImposterHint:     hint,
		RoleAssignments:  assignments,
		Phase:            model.PhaseReveal,
		PlayerOrder:      order,
		Chat: model.Chat{
			Round:        1,
			TurnIndex:    0,
			TurnIdentity: order[0],
			Log:          []model.ChatEntry{},
		},
		Votes: map[string]string{},
	}

	return nil
}

// AdvanceToChat moves reveal to chat. Host only; a no-op once the phase
// has already moved on.
func AdvanceToChat(s *model.Session, caller string) error {
	if !s.IsHost(caller) {
		return ErrOnlyHostAllowed
	}
	if s.Game == nil {
		return ErrNoGame
	}
	if s.Game.Phase != model.PhaseReveal {
		return nil
	}

	s.Game.Phase = model.PhaseChat

	return nil
}

// SubmitWord validates one chat word from speaker, appends it to the log
// and rotates the turn. The last speaker of the final round flips the
// phase to vote.
func SubmitWord(s *model.Session, speaker, raw string, now time.Time) error {
	game := s.Game
	if game == nil {
		return ErrNoGame
	}
	if game.Phase != model.PhaseChat {
		return ErrChatNotActive
	}
	if game.Chat.TurnIdentity != speaker {
		return ErrNotYourTurn
	}

	word := Normalize(raw)
	if word == "" {
		return ErrInvalidWord
	}

	if !game.IsImposter(speaker) {
		if secret := Normalize(game.SecretWord); secret != "" && equalFold(word, secret) {
			return ErrForbiddenWord
		}
	}

	chat := &game.Chat
	chat.Log = append(chat.Log, model.ChatEntry{
		Identity:    speaker,
		Word:        word,
		Round:       chat.Round,
		Index:       chat.TurnIndex,
		SubmittedAt: now,
	})

	lastInRound := chat.TurnIndex == len(game.PlayerOrder)-1
	if lastInRound && chat.Round >= Rounds {
		game.Phase = model.PhaseVote
		if game.Votes == nil {
			game.Votes = map[string]string{}
		}
		chat.Round++
		chat.TurnIndex = 0
		return nil
	}

	if lastInRound {
		chat.Round++
		chat.TurnIndex = 0
	} else {
		chat.TurnIndex++
	}
	chat.TurnIdentity = game.PlayerOrder[chat.TurnIndex]

	return nil
}

// SubmitVote records voter's ballot. The vote completing the quorum also
// tallies, writes the immutable result and finishes the session, all in
// the same mutation.
func SubmitVote(s *model.Session, voter, target string) error {
	game := s.Game
	if game == nil {
		return ErrNoGame
	}
	if game.Phase != model.PhaseVote {
		return ErrVotingClosed
	}
	if !game.InOrder(voter) {
		return ErrNotAPlayer
	}
	if !game.InOrder(target) {
		return ErrInvalidVoteTarget
	}
	if game.Votes == nil {
		game.Votes = map[string]string{}
	}
	if _, ok := game.Votes[voter]; ok {
		return ErrAlreadyVoted
	}

	game.Votes[voter] = target

	if len(game.Votes) < len(game.PlayerOrder) {
		return nil
	}

	eliminated := tally(game.Votes)

	winner, loser := model.SideImposter, model.SideCrew
	if eliminated == game.ImposterIdentity {
		winner, loser = model.SideCrew, model.SideImposter
	}

	game.Result = &model.Result{
		Winner:             winner,
		Loser:              loser,
		EliminatedIdentity: eliminated,
	}
	game.Phase = model.PhaseResult
	s.Status = model.StatusFinished

	return nil
}

// tally picks the most-voted identity; ties break on the lexicographically
// smallest identity so every client converges on the same outcome.
func tally(votes map[string]string) string {
	counts := map[string]int{}
	for _, target := range votes {
		counts[target]++
	}

	max := -1
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	var top []string
	for target, n := range counts {
		if n == max {
			top = append(top, target)
		}
	}
	sort.Strings(top)

	return top[0]
}

// Reset drops the game entirely and returns the session to waiting, roster
// and settings intact. Host only.
func Reset(s *model.Session, caller string) error {
	if !s.IsHost(caller) {
		return ErrOnlyHostAllowed
	}

	s.Status = model.StatusWaiting
	s.Game = nil

	return nil
}
