package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/chatline/internal/server/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The session cookie is the access control; cross-origin pages cannot
	// read it, so the upgrade itself is open.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebsocket upgrades an authenticated request and attaches the client
// to the hub. History is not replayed here; clients backfill via GET
// /messages and receive only events published after they attach.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	client := hub.NewClient(s.hub, conn, r.RemoteAddr)
	s.hub.Register(client)
	client.Start()
}
