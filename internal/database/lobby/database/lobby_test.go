package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	basedb "github.com/imposter-games/imposter/internal/database"
	"github.com/imposter-games/imposter/internal/database/lobby/model"
)

func testStore(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	bdb, err := basedb.NewFromEnv(ctx, &basedb.Config{FilePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = bdb.Close(ctx)
	})

	return New(bdb)
}

func putWaiting(t *testing.T, db *DB, code, epoch string) {
	t.Helper()

	if err := db.Update(code, func(tx *Tx) error {
		return tx.PutSession(&model.Session{
			InviteCode:     code,
			Status:         model.StatusWaiting,
			HostIdentity:   "host",
			NextSeatNumber: model.FirstJoinerSeat,
			Epoch:          epoch,
			CreatedAt:      tx.Now(),
		})
	}); err != nil {
		t.Fatalf("put session: %v", err)
	}
}

func TestUpdateAndFetch(t *testing.T) {
	t.Parallel()

	db := testStore(t)
	putWaiting(t, db, "ABCDEF", "e1")

	if err := db.Update("ABCDEF", func(tx *Tx) error {
		return tx.PutPlayer(&model.Player{
			Identity:   "host",
			Epoch:      "e1",
			SeatNumber: model.HostSeat,
			JoinedAt:   tx.Now(),
		})
	}); err != nil {
		t.Fatalf("put player: %v", err)
	}

	snap, err := db.Fetch("ABCDEF")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.Session == nil || snap.Session.InviteCode != "ABCDEF" {
		t.Fatal("session missing from snapshot")
	}
	if len(snap.Players) != 1 || snap.Players[0].Identity != "host" {
		t.Fatalf("players = %+v, want the host row", snap.Players)
	}
}

func TestFetchVacantCode(t *testing.T) {
	t.Parallel()

	db := testStore(t)

	snap, err := db.Fetch("NOPE22")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.Session != nil {
		t.Error("vacant code must yield a nil session")
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	t.Parallel()

	db := testStore(t)
	putWaiting(t, db, "ABCDEF", "e1")

	wantErr := context.Canceled
	if err := db.Update("ABCDEF", func(tx *Tx) error {
		s, err := tx.Session()
		if err != nil {
			return err
		}
		s.Status = model.StatusStarted
		if err := tx.PutSession(s); err != nil {
			return err
		}
		return wantErr
	}); err == nil {
		t.Fatal("expected the mutation error to propagate")
	}

	snap, err := db.Fetch("ABCDEF")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Session.Status != model.StatusWaiting {
		t.Errorf("status = %s, failed mutation must not commit", snap.Session.Status)
	}
}

func TestPlayersOrderedByJoinTime(t *testing.T) {
	t.Parallel()

	db := testStore(t)
	putWaiting(t, db, "ABCDEF", "e1")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []model.Player{
		{Identity: "c", Epoch: "e1", SeatNumber: 102, JoinedAt: base.Add(2 * time.Second)},
		{Identity: "a", Epoch: "e1", SeatNumber: model.HostSeat, JoinedAt: base},
		{Identity: "b", Epoch: "e1", SeatNumber: 101, JoinedAt: base.Add(time.Second)},
	}

	if err := db.Update("ABCDEF", func(tx *Tx) error {
		for i := range rows {
			row := rows[i]
			if err := tx.PutPlayer(&row); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	snap, err := db.Fetch("ABCDEF")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "b", "c"}
	for i, p := range snap.Players {
		if p.Identity != want[i] {
			t.Errorf("players[%d] = %s, want %s", i, p.Identity, want[i])
		}
	}
}

func TestWatchDeliversCommittedSnapshots(t *testing.T) {
	t.Parallel()

	db := testStore(t)

	updates, cancel := db.Watch("ABCDEF")
	defer cancel()

	putWaiting(t, db, "ABCDEF", "e1")

	select {
	case snap := <-updates:
		if snap.Session == nil || snap.Session.Epoch != "e1" {
			t.Fatalf("snapshot = %+v, want the committed session", snap.Session)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestWatchLatestWins(t *testing.T) {
	t.Parallel()

	db := testStore(t)

	updates, cancel := db.Watch("ABCDEF")
	defer cancel()

	// nobody draining: only the newest snapshot may remain buffered
	putWaiting(t, db, "ABCDEF", "e1")
	putWaiting(t, db, "ABCDEF", "e2")
	putWaiting(t, db, "ABCDEF", "e3")

	select {
	case snap := <-updates:
		if snap.Session.Epoch != "e3" {
			t.Fatalf("epoch = %s, want the latest (e3)", snap.Session.Epoch)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestWatchCancel(t *testing.T) {
	t.Parallel()

	db := testStore(t)

	_, cancel := db.Watch("ABCDEF")
	cancel()

	// publish must not block or panic after cancellation
	putWaiting(t, db, "ABCDEF", "e1")
}

func TestFindClosedSession(t *testing.T) {
	t.Parallel()

	db := testStore(t)

	if _, err := db.FindClosedSession(); err != ErrSessionNotFound {
		t.Errorf("empty store: %v, want ErrSessionNotFound", err)
	}

	putWaiting(t, db, "AAAAAA", "e1")

	if err := db.Update("BBBBBB", func(tx *Tx) error {
		now := tx.Now()
		return tx.PutSession(&model.Session{
			InviteCode: "BBBBBB",
			Status:     model.StatusClosed,
			ClosedAt:   &now,
		})
	}); err != nil {
		t.Fatal(err)
	}

	code, err := db.FindClosedSession()
	if err != nil {
		t.Fatalf("find closed: %v", err)
	}
	if code != "BBBBBB" {
		t.Errorf("code = %s, want BBBBBB", code)
	}
}

func TestSweep(t *testing.T) {
	t.Parallel()

	db := testStore(t)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	expired := now.Add(-time.Minute)
	alive := now.Add(time.Hour)

	for code, expires := range map[string]time.Time{
		"AAAAAA": expired,
		"BBBBBB": alive,
	} {
		code, expires := code, expires
		if err := db.Update(code, func(tx *Tx) error {
			e := expires
			if err := tx.PutSession(&model.Session{
				InviteCode: code,
				Status:     model.StatusClosed,
				ExpiresAt:  &e,
			}); err != nil {
				return err
			}
			return tx.PutPlayer(&model.Player{Identity: "ghost", Epoch: "old"})
		}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.Sweep(now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}

	snap, err := db.Fetch("AAAAAA")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Session != nil {
		t.Error("expired session must be deleted")
	}
	if len(snap.Players) != 0 {
		t.Error("expired session's player rows must be deleted")
	}

	snap, err = db.Fetch("BBBBBB")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Session == nil {
		t.Error("unexpired session must survive the sweep")
	}
}
