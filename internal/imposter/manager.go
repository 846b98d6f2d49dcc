// Package imposter is the lobby service: every operation runs as one
// transaction against the session store, with the pure phase machine from
// the match package doing the transition work.
package imposter

import (
	"context"

	"github.com/google/uuid"
	"github.com/imposter-games/imposter/internal/cache"
	"github.com/imposter-games/imposter/internal/codeutil"
	lobbyDb "github.com/imposter-games/imposter/internal/database/lobby/database"
	"github.com/imposter-games/imposter/internal/database/lobby/model"
	"github.com/imposter-games/imposter/internal/imposter/match"
	"github.com/imposter-games/imposter/internal/imposter/resource"
	"github.com/imposter-games/imposter/internal/logging"
	"github.com/valyala/fastrand"
)

// createAttempts bounds the code-collision retry loop of CreateSession.
const createAttempts = 5

// PlayerProfile is what a client supplies about itself. Identity is the
// client-held random token; it is always passed in explicitly, never read
// from ambient state.
type PlayerProfile struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	AvatarType  string `json:"avatarType,omitempty"`
	Skin        string `json:"skin,omitempty"`
}

// StartOptions parameterize a game start. Empty fields fall back to the
// session settings and the word bank.
type StartOptions struct {
	ThemeID    string `json:"themeId,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Word       string `json:"word,omitempty"`
	Hint       string `json:"hint,omitempty"`
}

func NewManager(config *Config, db *lobbyDb.DB, snapCache cache.Cache) *manager {
	return &manager{
		config:    config,
		db:        db,
		snapCache: snapCache,
		pick:      func(n int) int { return int(fastrand.Uint32n(uint32(n))) },
	}
}

type manager struct {
	config    *Config
	db        *lobbyDb.DB
	snapCache cache.Cache
	pick      match.PickFn
}

// CreateSession opens a fresh session under a reused closed code when one
// exists, otherwise under newly minted codes, retrying on collision.
// Returns the invite code and the new epoch.
func (m *manager) CreateSession(ctx context.Context, host PlayerProfile) (string, string, error) {
	code, err := m.db.FindClosedSession()
	if err != nil {
		code = ""
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		if code == "" {
			code = codeutil.Generate()
		}

		epoch, err := m.CreateSessionWithCode(ctx, code, host)
		if err == nil {
			return code, epoch, nil
		}
		if err != ErrCodeInUse {
			return "", "", err
		}
		code = ""
	}

	return "", "", ErrCodeInUse
}

// CreateSessionWithCode writes the session document and the host's roster
// row in one transaction. Fails with ErrCodeInUse while a previous
// occupancy of the code is still open.
func (m *manager) CreateSessionWithCode(ctx context.Context, code string, host PlayerProfile) (string, error) {
	logger := logging.FromContext(ctx).Named("imposter.manager")

	if !codeutil.Valid(code) {
		return "", ErrInvalidCode
	}
	if host.Identity == "" {
		return "", ErrNotJoined
	}

	epoch := uuid.NewString()

	if err := m.db.Update(code, func(tx *lobbyDb.Tx) error {
		existing, err := tx.Session()
		if err != nil {
			return err
		}
		if existing != nil && existing.Open() {
			return ErrCodeInUse
		}

		now := tx.Now()
		expires := now.Add(m.config.SessionTTL)
		if err := tx.PutSession(&model.Session{
			InviteCode:     code,
			Status:         model.StatusWaiting,
			HostIdentity:   host.Identity,
			NextSeatNumber: model.FirstJoinerSeat,
			Epoch:          epoch,
			CreatedAt:      now,
			ExpiresAt:      &expires,
		}); err != nil {
			return err
		}

		return tx.PutPlayer(&model.Player{
			Identity:    host.Identity,
			Epoch:       epoch,
			SeatNumber:  model.HostSeat,
			DisplayName: host.DisplayName,
			AvatarType:  host.AvatarType,
			Skin:        host.Skin,
			JoinedAt:    now,
		})
	}); err != nil {
		return "", unwrapGuard(err)
	}

	logger.Infof("session created, code: %s, host: %s", code, host.Identity)

	return epoch, nil
}

// Join adds candidate to the roster. A row from the current epoch is a
// reconnect and only merges display fields; anything else gets the next
// seat number, assigned and incremented in the same transaction so two
// simultaneous joiners can never share a seat.
func (m *manager) Join(ctx context.Context, code string, candidate PlayerProfile) error {
	if candidate.Identity == "" {
		return ErrNotJoined
	}

	return unwrapGuard(m.db.Update(code, func(tx *lobbyDb.Tx) error {
		s, err := tx.Session()
		if err != nil {
			return err
		}
		if s == nil {
			return ErrSessionNotFound
		}
		if s.Status != model.StatusWaiting {
			return ErrSessionNotJoinable
		}

		existing, err := tx.Player(candidate.Identity)
		if err != nil {
			return err
		}

		if existing != nil && existing.Epoch == s.Epoch {
			existing.DisplayName = candidate.DisplayName
			existing.AvatarType = candidate.AvatarType
			existing.Skin = candidate.Skin
			return tx.PutPlayer(existing)
		}

		seat := s.NextSeatNumber
		s.NextSeatNumber++
		if err := tx.PutSession(s); err != nil {
			return err
		}

		return tx.PutPlayer(&model.Player{
			Identity:    candidate.Identity,
			Epoch:       s.Epoch,
			SeatNumber:  seat,
			DisplayName: candidate.DisplayName,
			AvatarType:  candidate.AvatarType,
			Skin:        candidate.Skin,
			JoinedAt:    tx.Now(),
		})
	}))
}

// Leave removes identity's roster row. An emptied roster or a departing
// host closes the session; there is no host migration.
func (m *manager) Leave(ctx context.Context, code, identity string) error {
	logger := logging.FromContext(ctx).Named("imposter.manager")

	return unwrapGuard(m.db.Update(code, func(tx *lobbyDb.Tx) error {
		if err := tx.DeletePlayer(identity); err != nil {
			return err
		}

		s, err := tx.Session()
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}

		players, err := tx.Players()
		if err != nil {
			return err
		}

		if len(model.ActiveRoster(s.Epoch, players)) == 0 || s.HostIdentity == identity {
			logger.Infof("closing session %s after departure of %s", code, identity)
			closeSession(s, tx)
			return tx.PutSession(s)
		}

		return nil
	}))
}

// CloseSession is host-only and deliberately forgiving: a non-host caller
// or a vacant code is a silent no-op, this is a cleanup path.
func (m *manager) CloseSession(ctx context.Context, code, caller string) error {
	return unwrapGuard(m.db.Update(code, func(tx *lobbyDb.Tx) error {
		s, err := tx.Session()
		if err != nil {
			return err
		}
		if s == nil || !s.IsHost(caller) {
			return nil
		}

		closeSession(s, tx)

		return tx.PutSession(s)
	}))
}

// closeSession releases the invite code: expiry is pulled to now so the
// sweeper reclaims the document promptly. Player rows are left for the
// sweeper or explicit leaves.
func closeSession(s *model.Session, tx *lobbyDb.Tx) {
	now := tx.Now()
	s.Status = model.StatusClosed
	s.ClosedAt = &now
	s.ExpiresAt = &now
	s.Game = nil
	s.Settings = nil
	s.NextSeatNumber = model.FirstJoinerSeat
	s.HostIdentity = ""
}

// SetTheme stores the host's theme choice while the session is waiting.
func (m *manager) SetTheme(ctx context.Context, code, caller, themeID, difficulty string, turnTimerSec int) error {
	if _, err := resource.FindTheme(themeID); err != nil {
		return err
	}

	return unwrapGuard(m.db.Update(code, func(tx *lobbyDb.Tx) error {
		s, err := tx.Session()
		if err != nil {
			return err
		}
		if s == nil {
			return ErrSessionNotFound
		}
		if !s.IsHost(caller) {
			return match.ErrOnlyHostAllowed
		}
		if s.Status != model.StatusWaiting {
			return match.ErrGameAlreadyStarted
		}

		s.Settings = &model.Settings{
			SelectedThemeID: themeID,
			Difficulty:      difficulty,
			TurnTimerSec:    turnTimerSec,
		}

		return tx.PutSession(s)
	}))
}

// UpdatePlayerPrefs merges cosmetic fields into an existing roster row.
// Opaque to the game core.
func (m *manager) UpdatePlayerPrefs(ctx context.Context, code, identity, avatarType, skin string) error {
	return unwrapGuard(m.db.Update(code, func(tx *lobbyDb.Tx) error {
		p, err := tx.Player(identity)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotJoined
		}

		p.AvatarType = avatarType
		p.Skin = skin

		return tx.PutPlayer(p)
	}))
}

// StartGame snapshots the active roster, deals roles and embeds the game,
// all atomically. The secret word comes from opts or is drawn from the
// word bank for the selected theme.
func (m *manager) StartGame(ctx context.Context, code, caller string, opts StartOptions) error {
	logger := logging.FromContext(ctx).Named("imposter.manager")

	err := unwrapGuard(m.db.Update(code, func(tx *lobbyDb.Tx) error {
		s, err := tx.Session()
		if err != nil {
			return err
		}
		if s == nil {
			return ErrSessionNotFound
		}

		themeID := opts.ThemeID
		difficulty := opts.Difficulty
		if s.Settings != nil {
			if themeID == "" {
				themeID = s.Settings.SelectedThemeID
			}
			if difficulty == "" {
				difficulty = s.Settings.Difficulty
			}
		}

		word, hint := opts.Word, opts.Hint
		if word == "" || hint == "" {
			theme, err := resource.FindTheme(themeID)
			if err != nil {
				return err
			}
			if word == "" {
				if word, err = theme.PickWord(resource.Difficulty(difficulty), m.pick); err != nil {
					return err
				}
			}
			if hint == "" {
				hint = theme.Hint()
			}
		}

		players, err := tx.Players()
		if err != nil {
			return err
		}

		active := model.ActiveRoster(s.Epoch, players)
		if err := match.Start(s, active, caller, word, themeID, hint, m.pick); err != nil {
			return err
		}
		if s.Game != nil && s.Game.StartedAt.IsZero() {
			s.Game.StartedAt = tx.Now()
		}

		return tx.PutSession(s)
	}))
	if err != nil {
		return err
	}

	logger.Infof("game started, code: %s", code)

	return nil
}

// AdvanceToChatPhase moves reveal to chat; duplicate triggers no-op.
func (m *manager) AdvanceToChatPhase(ctx context.Context, code, caller string) error {
	return m.mutateGame(code, func(s *model.Session, tx *lobbyDb.Tx) error {
		return match.AdvanceToChat(s, caller)
	})
}

// SubmitChatWord submits one word for identity's turn.
func (m *manager) SubmitChatWord(ctx context.Context, code, speaker, raw string) error {
	return m.mutateGame(code, func(s *model.Session, tx *lobbyDb.Tx) error {
		return match.SubmitWord(s, speaker, raw, tx.Now())
	})
}

// SubmitVote records a ballot; the final ballot also writes the result.
func (m *manager) SubmitVote(ctx context.Context, code, voter, target string) error {
	return m.mutateGame(code, func(s *model.Session, tx *lobbyDb.Tx) error {
		return match.SubmitVote(s, voter, target)
	})
}

// SetImposterGuessTyping mirrors the eliminated imposter's in-progress
// guess so every subscriber watches it live.
func (m *manager) SetImposterGuessTyping(ctx context.Context, code, caller, text string) error {
	return m.mutateGame(code, func(s *model.Session, tx *lobbyDb.Tx) error {
		return match.SetGuessTyping(s, caller, text, tx.Now())
	})
}

// SubmitImposterGuess records the imposter's one final guess at the secret
// word.
func (m *manager) SubmitImposterGuess(ctx context.Context, code, caller, text string) error {
	return m.mutateGame(code, func(s *model.Session, tx *lobbyDb.Tx) error {
		return match.SubmitGuess(s, caller, text, tx.Now())
	})
}

// SubmitPostGameChat appends a free-form message to the finished game's
// chat log.
func (m *manager) SubmitPostGameChat(ctx context.Context, code, caller, text string) error {
	return m.mutateGame(code, func(s *model.Session, tx *lobbyDb.Tx) error {
		return match.SubmitPostChat(s, caller, text, tx.Now())
	})
}

// ResetGame returns a finished or running session to the lobby, dropping
// the game document entirely. Host only.
func (m *manager) ResetGame(ctx context.Context, code, caller string) error {
	return m.mutateGame(code, func(s *model.Session, tx *lobbyDb.Tx) error {
		return match.Reset(s, caller)
	})
}

// FindReusableClosedSession exposes the closed-code scan; ok is false when
// every code is occupied.
func (m *manager) FindReusableClosedSession(ctx context.Context) (string, bool) {
	code, err := m.db.FindClosedSession()
	if err != nil {
		return "", false
	}

	return code, true
}

// Fetch reads the current snapshot of one code.
func (m *manager) Fetch(code string) (lobbyDb.Snapshot, error) {
	return m.db.Fetch(code)
}

// Watch passes through the store's change subscription.
func (m *manager) Watch(code string) (<-chan lobbyDb.Snapshot, func()) {
	return m.db.Watch(code)
}

func (m *manager) mutateGame(code string, fn func(s *model.Session, tx *lobbyDb.Tx) error) error {
	return unwrapGuard(m.db.Update(code, func(tx *lobbyDb.Tx) error {
		s, err := tx.Session()
		if err != nil {
			return err
		}
		if s == nil {
			return ErrSessionNotFound
		}

		if err := fn(s, tx); err != nil {
			return err
		}

		return tx.PutSession(s)
	}))
}
