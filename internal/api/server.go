// Package api serves the game over HTTP. GET endpoints are the public
// read-only query façade; the websocket stream relays turn events; the
// POST endpoints carry the decision protocol for human players and
// require a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/economy"
	"github.com/talgya/streetsim/internal/game"
	"github.com/talgya/streetsim/internal/ownership"
	"github.com/talgya/streetsim/internal/persistence"
	"github.com/talgya/streetsim/internal/query"
)

// Server serves one running game.
type Server struct {
	Runner *game.Runner
	Hub    *Hub
	Port   int
	// DB and GameID back the persisted event log endpoint; nil
	// disables it.
	DB     *persistence.DB
	GameID string
	// PlayKey is the bearer token for the POST play endpoints.
	// Empty disables them.
	PlayKey string
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	playLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public read-only endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/players", s.handlePlayers)
	mux.HandleFunc("/api/v1/player/", s.handlePlayer)
	mux.HandleFunc("/api/v1/districts", s.handleDistricts)
	mux.HandleFunc("/api/v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/v1/board", s.handleBoard)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Live turn event stream.
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Decision protocol endpoints for human players.
	mux.HandleFunc("/api/v1/roll", s.playOnly(RateLimitMiddleware(playLimiter, s.handleRoll)))
	mux.HandleFunc("/api/v1/decision", s.playOnly(RateLimitMiddleware(playLimiter, s.handleDecision)))
	mux.HandleFunc("/api/v1/trade", s.playOnly(RateLimitMiddleware(playLimiter, s.handleTrade)))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "play_auth", s.PlayKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) playOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.PlayKey == "" {
			http.Error(w, "play endpoints disabled (no STREETSIM_PLAY_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	return strings.HasPrefix(auth, prefix) && strings.TrimPrefix(auth, prefix) == s.PlayKey
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st query.Status
	s.Runner.View(func(m *game.Machine) { st = query.GameStatus(m) })
	writeJSON(w, st)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	var players []query.PlayerSummary
	s.Runner.View(func(m *game.Machine) { players = query.Players(m) })
	writeJSON(w, players)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/player/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	var summary query.PlayerSummary
	var ok bool
	s.Runner.View(func(m *game.Machine) {
		summary, ok = query.Summarize(m, ownership.PlayerID(id))
	})
	if !ok {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	var districts []query.DistrictSummary
	s.Runner.View(func(m *game.Machine) { districts = query.Districts(m) })
	writeJSON(w, districts)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	var lb []query.PlayerSummary
	s.Runner.View(func(m *game.Machine) { lb = query.Leaderboard(m) })
	writeJSON(w, lb)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	var def board.Definition
	s.Runner.View(func(m *game.Machine) { def = m.Board().Definition() })
	writeJSON(w, def)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "event log unavailable", http.StatusNotFound)
		return
	}
	events, err := s.DB.LoadEvents(s.GameID)
	if err != nil {
		slog.Error("event log read failed", "game", s.GameID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleRoll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Player int `json:"player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if err := s.Runner.SubmitRoll(ownership.PlayerID(body.Player)); err != nil {
		writePlayError(w, err)
		return
	}
	writeJSON(w, s.status())
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var d game.Decision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if err := s.Runner.SubmitDecision(d); err != nil {
		writePlayError(w, err)
		return
	}
	writeJSON(w, s.status())
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var tr game.Trade
	if err := json.NewDecoder(r.Body).Decode(&tr); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if tr.Count == 0 {
		http.Error(w, "trade count must be nonzero", http.StatusBadRequest)
		return
	}
	if err := s.Runner.SubmitTrade(tr); err != nil {
		writePlayError(w, err)
		return
	}
	writeJSON(w, s.status())
}

func (s *Server) status() query.Status {
	var st query.Status
	s.Runner.View(func(m *game.Machine) { st = query.GameStatus(m) })
	return st
}

// writePlayError maps engine errors onto HTTP statuses: out-of-turn
// stimuli are conflicts, recoverable economy errors are payment
// failures, anything else is internal.
func writePlayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrOutOfTurn):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, economy.ErrInsufficientFunds),
		errors.Is(err, economy.ErrInsufficientShares),
		errors.Is(err, economy.ErrInsufficientHoldings):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	default:
		slog.Error("play endpoint error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
