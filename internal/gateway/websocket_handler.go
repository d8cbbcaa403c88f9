package gateway

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for match streams.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleMatchConnection subscribes the caller to one match's event stream.
func (h *WebSocketHandler) HandleMatchConnection(w http.ResponseWriter, r *http.Request) {
	matchIDStr := r.URL.Query().Get("match_id")
	if matchIDStr == "" {
		http.Error(w, "match_id is required", http.StatusBadRequest)
		return
	}

	matchID, err := uuid.Parse(matchIDStr)
	if err != nil {
		http.Error(w, "invalid match_id format", http.StatusBadRequest)
		return
	}

	// In production the user comes from the session; spectators connect
	// anonymously.
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID, matchID); err != nil {
		log.Error().
			Err(err).
			Str("match_id", matchID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleConnectionStats reports active connection counts.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, matches := h.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"total_connections":%d,"active_matches":%d}`, total, matches)
}

// RegisterRoutes registers the WebSocket routes on an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/match", h.HandleMatchConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
