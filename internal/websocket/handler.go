package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/smartshop/internal/auth"
)

// HandleWebSocket upgrades signed-in requests and streams that session's
// toasts. It expects to run behind middleware.RequireAuth.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok || ac.SessionID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			hub.logger.Warn("accept", "session_id", ac.SessionID, "error", err)
			return
		}

		NewClient(hub, conn, ac.SessionID).Run(r.Context())
	}
}
