// Package client is the synchronization layer one player runs: it follows
// the session's change stream and turns raw snapshots into the derived
// view state the presentation consumes.
package client

import (
	"context"

	"github.com/imposter-games/imposter/internal/cache"
	lobbyDb "github.com/imposter-games/imposter/internal/database/lobby/database"
	"github.com/imposter-games/imposter/internal/database/lobby/model"
)

// View is the per-client derivation of one snapshot. Gone means the
// session vanished or closed under us; the caller must drop all local
// session state and return to the entry screen.
type View struct {
	Code   string
	Epoch  string
	Status model.SessionStatus

	// active roster ordered by join time, self pinned first
	Players []model.Player

	Phase      model.Phase
	Round      int
	Turn       string
	IsHost     bool
	IsMyTurn   bool
	IsInGame   bool
	IsImposter bool
	Role       model.Role

	// advisory pacing hint from the session settings, never enforced
	TurnTimerSec int

	// SecretWord is filled for crew, Hint for the imposter. Both live in
	// the same shared document either way; this split is presentation,
	// not access control.
	SecretWord string
	Hint       string

	Result *model.Result

	// post-result extras: the imposter's live guess and the free chat
	Guess    *model.ImposterGuess
	PostChat []model.PostChatEntry

	Gone bool
}

// Derive computes the view of snap as seen by identity. Pure, so every
// subscriber converges on the same ordering for the same snapshot.
func Derive(identity, code string, snap lobbyDb.Snapshot) View {
	s := snap.Session
	if s == nil || s.Status == model.StatusClosed {
		return View{Code: code, Gone: true}
	}

	view := View{
		Code:     code,
		Epoch:    s.Epoch,
		Status:   s.Status,
		Players:  model.PinSelfFirst(identity, model.ActiveRoster(s.Epoch, snap.Players)),
		IsHost:   s.IsHost(identity),
		IsInGame: s.Status == model.StatusStarted || s.Status == model.StatusFinished,
	}

	if s.Settings != nil {
		view.TurnTimerSec = s.Settings.TurnTimerSec
	}

	if game := s.Game; game != nil {
		view.Phase = game.Phase
		view.Round = game.Chat.Round
		view.Turn = game.Chat.TurnIdentity
		view.IsMyTurn = game.Phase == model.PhaseChat && game.Chat.TurnIdentity == identity
		view.IsImposter = game.IsImposter(identity)
		view.Role = game.RoleAssignments[identity]
		view.Result = game.Result
		view.Guess = game.Guess
		view.PostChat = game.PostChat

		if view.IsImposter {
			view.Hint = game.ImposterHint
		} else if game.InOrder(identity) {
			view.SecretWord = game.SecretWord
		}
	}

	return view
}

func New(db *lobbyDb.DB, snapCache cache.Cache, identity string) *Client {
	return &Client{db: db, cache: snapCache, identity: identity}
}

// Client binds one identity to the store's change streams.
type Client struct {
	db       *lobbyDb.DB
	cache    cache.Cache
	identity string
}

func (c *Client) Identity() string { return c.identity }

// Subscribe follows code until ctx is cancelled. The first view arrives
// immediately, from the snapshot cache when warm, otherwise from a store
// read; later views follow committed mutations. The channel closes on
// cancellation.
func (c *Client) Subscribe(ctx context.Context, code string) <-chan View {
	out := make(chan View, 1)

	updates, cancel := c.db.Watch(code)

	initial, ok := c.cachedSnapshot(code)
	if !ok {
		if snap, err := c.db.Fetch(code); err == nil {
			initial = snap
			ok = true
		}
	}
	if ok {
		out <- Derive(c.identity, code, initial)
	}

	go func() {
		defer cancel()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-updates:
				c.cache.Add(CacheKey(code), snap)
				select {
				case out <- Derive(c.identity, code, snap):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (c *Client) cachedSnapshot(code string) (lobbyDb.Snapshot, bool) {
	if v, ok := c.cache.Get(CacheKey(code)); ok {
		if snap, ok := v.(lobbyDb.Snapshot); ok {
			return snap, true
		}
	}

	return lobbyDb.Snapshot{}, false
}

// CacheKey names the cached snapshot slot for one invite code; shared
// with the REST read path so both stay warm off the same entry.
func CacheKey(code string) string { return "snapshot:" + code }
