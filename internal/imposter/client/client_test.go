package client

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	basedb "github.com/imposter-games/imposter/internal/database"
	lobbyDb "github.com/imposter-games/imposter/internal/database/lobby/database"
	"github.com/imposter-games/imposter/internal/database/lobby/model"
)

type mapCache map[interface{}]interface{}

func (c mapCache) Get(key interface{}) (interface{}, bool) {
	v, ok := c[key]
	return v, ok
}

func (c mapCache) Add(key, value interface{}) { c[key] = value }

func (c mapCache) Keys() []interface{} {
	keys := make([]interface{}, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func (c mapCache) Delete(key interface{}) { delete(c, key) }

func snapshot(epoch string) lobbyDb.Snapshot {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	return lobbyDb.Snapshot{
		Session: &model.Session{
			InviteCode:   "ABCDEF",
			Status:       model.StatusWaiting,
			HostIdentity: "h",
			Epoch:        epoch,
		},
		Players: []model.Player{
			{Identity: "h", Epoch: epoch, SeatNumber: model.HostSeat, JoinedAt: base},
			{Identity: "p2", Epoch: epoch, SeatNumber: 101, JoinedAt: base.Add(time.Second)},
			{Identity: "ghost", Epoch: "stale", SeatNumber: 101, JoinedAt: base.Add(2 * time.Second)},
		},
	}
}

func TestDeriveLobby(t *testing.T) {
	t.Parallel()

	view := Derive("p2", "ABCDEF", snapshot("e1"))

	if view.Gone {
		t.Fatal("open session must not derive as gone")
	}
	if view.Epoch != "e1" || view.Status != model.StatusWaiting {
		t.Errorf("view = %+v, session fields not carried over", view)
	}
	if view.IsHost {
		t.Error("p2 is not the host")
	}

	// ghost filtered, self pinned first
	if len(view.Players) != 2 {
		t.Fatalf("players = %+v, stale-epoch rows must be dropped", view.Players)
	}
	if view.Players[0].Identity != "p2" || view.Players[1].Identity != "h" {
		t.Errorf("player order = %s, %s, want self first", view.Players[0].Identity, view.Players[1].Identity)
	}
}

func TestDeriveGone(t *testing.T) {
	t.Parallel()

	if view := Derive("p2", "ABCDEF", lobbyDb.Snapshot{}); !view.Gone {
		t.Error("nil session must derive as gone")
	}

	snap := snapshot("e1")
	snap.Session.Status = model.StatusClosed
	if view := Derive("p2", "ABCDEF", snap); !view.Gone {
		t.Error("closed session must derive as gone")
	}
}

func TestDeriveGame(t *testing.T) {
	t.Parallel()

	snap := snapshot("e1")
	snap.Session.Status = model.StatusStarted
	snap.Session.Game = &model.Game{
		SecretWord:       "zebra",
		ImposterIdentity: "h",
		ImposterHint:     "Theme: Animals",
		RoleAssignments:  map[string]model.Role{"h": model.RoleImposter, "p2": model.RoleCrew},
		Phase:            model.PhaseChat,
		PlayerOrder:      []string{"h", "p2"},
		Chat:             model.Chat{Round: 2, TurnIdentity: "p2"},
		Guess:            &model.ImposterGuess{Text: "zeb"},
		PostChat:         []model.PostChatEntry{{Identity: "h", Text: "gg"}},
	}

	crew := Derive("p2", "ABCDEF", snap)
	if !crew.IsInGame || !crew.IsMyTurn {
		t.Errorf("crew view = %+v, want in-game on own turn", crew)
	}
	if crew.SecretWord != "zebra" || crew.Hint != "" {
		t.Errorf("crew sees word %q hint %q, want the secret word only", crew.SecretWord, crew.Hint)
	}
	if crew.Round != 2 || crew.Turn != "p2" {
		t.Errorf("crew view = %+v, chat fields not carried over", crew)
	}

	imp := Derive("h", "ABCDEF", snap)
	if !imp.IsImposter || imp.Role != model.RoleImposter {
		t.Errorf("imposter view = %+v, role not derived", imp)
	}
	if imp.SecretWord != "" || imp.Hint != "Theme: Animals" {
		t.Errorf("imposter sees word %q hint %q, want the hint only", imp.SecretWord, imp.Hint)
	}
	if imp.IsMyTurn {
		t.Error("it is p2's turn, not the imposter's")
	}

	if crew.Guess == nil || crew.Guess.Text != "zeb" {
		t.Error("live guess state must be carried into the view")
	}
	if len(crew.PostChat) != 1 || crew.PostChat[0].Text != "gg" {
		t.Error("post-game chat log must be carried into the view")
	}
}

func testStore(t *testing.T) *lobbyDb.DB {
	t.Helper()

	ctx := context.Background()
	bdb, err := basedb.NewFromEnv(ctx, &basedb.Config{FilePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = bdb.Close(ctx)
	})

	return lobbyDb.New(bdb)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	db := testStore(t)
	putSnapshot(t, db, "e1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(db, mapCache{}, "p2")
	views := c.Subscribe(ctx, "ABCDEF")

	// first view arrives without any mutation, from the store read
	select {
	case view := <-views:
		if view.Epoch != "e1" {
			t.Fatalf("initial epoch = %s, want e1", view.Epoch)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial view")
	}

	putSnapshot(t, db, "e2")

	select {
	case view := <-views:
		if view.Epoch != "e2" {
			t.Fatalf("epoch = %s, want the committed e2", view.Epoch)
		}
	case <-time.After(time.Second):
		t.Fatal("no view after commit")
	}
}

func TestSubscribePrefersCachedSnapshot(t *testing.T) {
	t.Parallel()

	db := testStore(t)
	putSnapshot(t, db, "store")

	warm := mapCache{}
	warm.Add(CacheKey("ABCDEF"), snapshot("cached"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := New(db, warm, "p2").Subscribe(ctx, "ABCDEF")

	select {
	case view := <-views:
		if view.Epoch != "cached" {
			t.Fatalf("initial epoch = %s, a warm cache must win over the store read", view.Epoch)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial view")
	}
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	t.Parallel()

	db := testStore(t)
	putSnapshot(t, db, "e1")

	ctx, cancel := context.WithCancel(context.Background())
	views := New(db, mapCache{}, "p2").Subscribe(ctx, "ABCDEF")

	<-views
	cancel()

	select {
	case _, ok := <-views:
		if ok {
			t.Fatal("channel must close after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("channel did not close")
	}
}

func putSnapshot(t *testing.T, db *lobbyDb.DB, epoch string) {
	t.Helper()

	snap := snapshot(epoch)
	if err := db.Update("ABCDEF", func(tx *lobbyDb.Tx) error {
		if err := tx.PutSession(snap.Session); err != nil {
			return err
		}
		for i := range snap.Players {
			p := snap.Players[i]
			if err := tx.PutPlayer(&p); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("put snapshot: %v", err)
	}
}
