package database

import (
	"context"
	"time"

	"github.com/imposter-games/imposter/internal/logging"
)

// Watch subscribes to committed changes of one invite code. Each committed
// mutation delivers the full resulting snapshot; a nil Session means the
// document is gone. Delivery is latest-wins: a slow consumer only ever
// misses intermediate states, never the newest one. The returned cancel
// func releases the subscription.
func (db *DB) Watch(code string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	db.subMtx.Lock()
	db.subSeq++
	id := db.subSeq
	if db.subs[code] == nil {
		db.subs[code] = map[int]chan Snapshot{}
	}
	db.subs[code][id] = ch
	db.subMtx.Unlock()

	cancel := func() {
		db.subMtx.Lock()
		defer db.subMtx.Unlock()
		if subs, ok := db.subs[code]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(db.subs, code)
			}
		}
	}

	return ch, cancel
}

func (db *DB) publish(code string, snap Snapshot) {
	db.subMtx.Lock()
	defer db.subMtx.Unlock()

	for _, ch := range db.subs[code] {
		select {
		case ch <- snap:
		default:
			// replace the stale buffered snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Sweep deletes every session whose expiry watermark has passed, player
// rows included, and notifies watchers that the document is gone.
func (db *DB) Sweep(now time.Time) (int, error) {
	swept := 0

	codes, err := db.expiredCodes(now)
	if err != nil {
		return 0, err
	}

	for _, code := range codes {
		if err := db.Update(code, func(tx *Tx) error {
			players, err := tx.Players()
			if err != nil {
				return err
			}
			for _, p := range players {
				if err := tx.DeletePlayer(p.Identity); err != nil {
					return err
				}
			}
			return tx.DeleteSession()
		}); err != nil {
			return swept, err
		}
		swept++
	}

	return swept, nil
}

func (db *DB) expiredCodes(now time.Time) ([]string, error) {
	var codes []string

	snapAll, err := db.allSessions()
	if err != nil {
		return nil, err
	}

	for _, s := range snapAll {
		if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			codes = append(codes, s.InviteCode)
		}
	}

	return codes, nil
}

// RunSweeper is the best-effort garbage collector for abandoned sessions.
// It blocks until ctx is cancelled.
func (db *DB) RunSweeper(ctx context.Context, interval time.Duration) {
	logger := logging.FromContext(ctx).Named("lobby.sweeper")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.Sweep(db.now())
			if err != nil {
				logger.Errorf("sweep: %v", err)
				continue
			}
			if n > 0 {
				logger.Infof("swept %d expired sessions", n)
			}
		}
	}
}
