// Package api serves the read-only REST surface: persisted history queries
// that back the client's ledger and chart views between WebSocket frames.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"btcsim/internal/store/sqlite"
)

// Router serves history endpoints backed by the SQLite reader.
type Router struct {
	reader *sqlite.Reader
	roomID string
}

// NewRouter creates the history router. reader may be nil, in which case
// every endpoint answers 503.
func NewRouter(reader *sqlite.Reader, roomID string) *Router {
	return &Router{reader: reader, roomID: roomID}
}

// Register mounts the history endpoints on mux.
func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/history/trades", rt.handleTrades)
	mux.HandleFunc("/api/history/costs", rt.handleCosts)
	mux.HandleFunc("/api/history/news", rt.handleNews)
	mux.HandleFunc("/api/history/leaderboard", rt.handleLeaderboard)
}

func (rt *Router) handleTrades(w http.ResponseWriter, r *http.Request) {
	if !rt.guard(w, r) {
		return
	}
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, `{"error":"playerId required"}`, http.StatusBadRequest)
		return
	}
	trades, err := rt.reader.TradesByPlayer(playerID, queryInt(r, "limit"))
	if err != nil {
		rt.fail(w, "trades", err)
		return
	}
	writeJSON(w, trades)
}

func (rt *Router) handleCosts(w http.ResponseWriter, r *http.Request) {
	if !rt.guard(w, r) {
		return
	}
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, `{"error":"playerId required"}`, http.StatusBadRequest)
		return
	}
	costs, err := rt.reader.CostsByPlayer(playerID, r.URL.Query().Get("type"), queryInt(r, "limit"))
	if err != nil {
		rt.fail(w, "costs", err)
		return
	}
	writeJSON(w, costs)
}

func (rt *Router) handleNews(w http.ResponseWriter, r *http.Request) {
	if !rt.guard(w, r) {
		return
	}
	news, err := rt.reader.NewsArchive(queryInt(r, "limit"))
	if err != nil {
		rt.fail(w, "news", err)
		return
	}
	writeJSON(w, news)
}

func (rt *Router) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !rt.guard(w, r) {
		return
	}
	fromTick, _ := strconv.ParseInt(r.URL.Query().Get("fromTick"), 10, 64)
	snaps, err := rt.reader.LeaderboardHistory(rt.roomID, fromTick, queryInt(r, "limit"))
	if err != nil {
		rt.fail(w, "leaderboard", err)
		return
	}
	writeJSON(w, snaps)
}

func (rt *Router) guard(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if rt.reader == nil {
		http.Error(w, `{"error":"history store unavailable"}`, http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (rt *Router) fail(w http.ResponseWriter, what string, err error) {
	log.Printf("[api] %s query failed: %v", what, err)
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if v == nil {
		w.Write([]byte("[]"))
		return
	}
	json.NewEncoder(w).Encode(v)
}
