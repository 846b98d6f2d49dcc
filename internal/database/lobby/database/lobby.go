// Package database is the session document store. A session document and
// its player rows live under one invite code; every mutation runs inside a
// single bolt read-write transaction, which serializes concurrent writers
// and gives the roster counter and phase machine their atomicity. Committed
// mutations are pushed to subscribers, see watch.go.
package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/imposter-games/imposter/internal/database"
	"github.com/imposter-games/imposter/internal/database/lobby/model"
	bolt "go.etcd.io/bbolt"
)

const (
	sessionsPrefix = "sessions"
	playersPrefix  = "players"
)

var ErrSessionNotFound = fmt.Errorf("session not found")

func New(db *database.DB) *DB {
	return &DB{
		sDB:  db,
		now:  func() time.Time { return time.Now().UTC() },
		subs: map[string]map[int]chan Snapshot{},
	}
}

type DB struct {
	sDB *database.DB

	// store-assigned timestamps, swappable in tests
	now func() time.Time

	subMtx sync.Mutex
	subSeq int
	subs   map[string]map[int]chan Snapshot
}

// Snapshot is the full state one invite code maps to. Session is nil when
// the document does not exist (deleted or swept).
type Snapshot struct {
	Session *model.Session
	Players []model.Player
}

// Tx is the handle mutations receive. All reads and writes go through it
// and commit atomically.
type Tx struct {
	sessions *bolt.Bucket
	players  *bolt.Bucket
	code     string
	now      time.Time
}

// Now is the server-assigned timestamp of this transaction.
func (tx *Tx) Now() time.Time { return tx.now }

// Session returns the session document, or nil when the code is vacant.
func (tx *Tx) Session() (*model.Session, error) {
	raw := tx.sessions.Get([]byte(tx.code))
	if raw == nil {
		return nil, nil
	}

	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("json unmarshal session: %w", err)
	}

	return &s, nil
}

func (tx *Tx) PutSession(s *model.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("json marshal session: %w", err)
	}

	if err := tx.sessions.Put([]byte(tx.code), raw); err != nil {
		return fmt.Errorf("put session: %w", err)
	}

	return nil
}

func (tx *Tx) DeleteSession() error {
	if err := tx.sessions.Delete([]byte(tx.code)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// Player returns the roster row for identity, or nil when absent.
func (tx *Tx) Player(identity string) (*model.Player, error) {
	raw := tx.players.Get([]byte(identity))
	if raw == nil {
		return nil, nil
	}

	var p model.Player
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("json unmarshal player: %w", err)
	}

	return &p, nil
}

func (tx *Tx) PutPlayer(p *model.Player) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("json marshal player: %w", err)
	}

	if err := tx.players.Put([]byte(p.Identity), raw); err != nil {
		return fmt.Errorf("put player: %w", err)
	}

	return nil
}

func (tx *Tx) DeletePlayer(identity string) error {
	if err := tx.players.Delete([]byte(identity)); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}

	return nil
}

// Players returns every roster row for this code, ghosts included, ordered
// by join time. Epoch filtering is the reader's concern.
func (tx *Tx) Players() ([]model.Player, error) {
	var list []model.Player

	if err := tx.players.ForEach(func(k, v []byte) error {
		var p model.Player
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("json unmarshal player: %w", err)
		}
		list = append(list, p)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bucket for each: %w", err)
	}

	sortPlayers(list)

	return list, nil
}

func sortPlayers(list []model.Player) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].SeatNumber < list[j].SeatNumber
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
}

// Update runs fn against the session document and player rows of code in
// one bolt read-write transaction, then publishes the committed snapshot
// to watchers.
func (db *DB) Update(code string, fn func(tx *Tx) error) error {
	var snap Snapshot

	if err := db.sDB.DB.Update(func(btx *bolt.Tx) error {
		tx, err := db.begin(btx, code)
		if err != nil {
			return err
		}

		if err := fn(tx); err != nil {
			return err
		}

		snap.Session, err = tx.Session()
		if err != nil {
			return err
		}
		snap.Players, err = tx.Players()
		if err != nil {
			return err
		}

		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	db.publish(code, snap)

	return nil
}

// Fetch reads the current snapshot of code. The session may be nil when
// the code is vacant.
func (db *DB) Fetch(code string) (Snapshot, error) {
	var snap Snapshot

	if err := db.sDB.DB.View(func(btx *bolt.Tx) error {
		sessions := btx.Bucket([]byte(sessionsPrefix))
		if sessions == nil {
			return nil
		}

		raw := sessions.Get([]byte(code))
		if raw == nil {
			return nil
		}

		var s model.Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("json unmarshal session: %w", err)
		}
		snap.Session = &s

		root := btx.Bucket([]byte(playersPrefix))
		if root == nil {
			return nil
		}
		players := root.Bucket([]byte(code))
		if players == nil {
			return nil
		}

		if err := players.ForEach(func(k, v []byte) error {
			var p model.Player
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("json unmarshal player: %w", err)
			}
			snap.Players = append(snap.Players, p)
			return nil
		}); err != nil {
			return fmt.Errorf("bucket for each: %w", err)
		}

		return nil
	}); err != nil {
		return snap, fmt.Errorf("view transaction error: %w", err)
	}

	sortPlayers(snap.Players)

	return snap, nil
}

// FindClosedSession scans for any closed session so its invite code can be
// reused instead of minting a new one. Returns ErrSessionNotFound when no
// session is closed.
func (db *DB) FindClosedSession() (string, error) {
	var code string

	if err := db.sDB.DB.View(func(btx *bolt.Tx) error {
		sessions := btx.Bucket([]byte(sessionsPrefix))
		if sessions == nil {
			return nil
		}

		return sessions.ForEach(func(k, v []byte) error {
			if code != "" {
				return nil
			}

			var s model.Session
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("json unmarshal session: %w", err)
			}
			if s.Status == model.StatusClosed {
				code = string(k)
			}
			return nil
		})
	}); err != nil {
		return "", fmt.Errorf("view transaction error: %w", err)
	}

	if code == "" {
		return "", ErrSessionNotFound
	}

	return code, nil
}

// FetchAll returns every session document in the store.
func (db *DB) FetchAll() ([]model.Session, error) {
	return db.allSessions()
}

func (db *DB) allSessions() ([]model.Session, error) {
	var list []model.Session

	if err := db.sDB.DB.View(func(btx *bolt.Tx) error {
		sessions := btx.Bucket([]byte(sessionsPrefix))
		if sessions == nil {
			return nil
		}

		return sessions.ForEach(func(k, v []byte) error {
			var s model.Session
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("json unmarshal session: %w", err)
			}
			list = append(list, s)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func (db *DB) begin(btx *bolt.Tx, code string) (*Tx, error) {
	sessions, err := btx.CreateBucketIfNotExists([]byte(sessionsPrefix))
	if err != nil {
		return nil, fmt.Errorf("can not create bucket: %w", err)
	}

	root, err := btx.CreateBucketIfNotExists([]byte(playersPrefix))
	if err != nil {
		return nil, fmt.Errorf("can not create bucket: %w", err)
	}

	players, err := root.CreateBucketIfNotExists([]byte(code))
	if err != nil {
		return nil, fmt.Errorf("can not create players bucket: %w", err)
	}

	return &Tx{sessions: sessions, players: players, code: code, now: db.now()}, nil
}
