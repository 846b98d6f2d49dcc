package imposter

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	lobbyDb "github.com/imposter-games/imposter/internal/database/lobby/database"
	"github.com/imposter-games/imposter/internal/identity"
	"github.com/imposter-games/imposter/internal/imposter/client"
	"github.com/imposter-games/imposter/internal/logging"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWatch is the listen stream: one websocket per subscriber, pushing
// the caller's derived view after every committed mutation of the code.
func (m *manager) handleWatch(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	logger := logging.FromContext(r.Context()).Named("imposter.ws")

	id := identity.GetOrCreate(w, r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("upgrade: %v", err)
		return
	}

	// the upgrade hijacks the connection, so the request context no longer
	// ends on peer disconnect; the reader cancels for it
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := client.New(m.db, m.snapCache, id)
	views := c.Subscribe(ctx, code(p))

	// reader only detects the peer going away
	go func() {
		defer cancel()
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer conn.Close()
	for view := range views {
		if err := conn.WriteJSON(view); err != nil {
			return
		}
		if view.Gone {
			return
		}
	}
}

func (m *manager) deriveView(id, inviteCode string, snap lobbyDb.Snapshot) client.View {
	m.snapCache.Add(client.CacheKey(inviteCode), snap)
	return client.Derive(id, inviteCode, snap)
}
