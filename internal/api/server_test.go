package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/entropy"
	"github.com/talgya/streetsim/internal/game"
	"github.com/talgya/streetsim/internal/ownership"
	"github.com/talgya/streetsim/internal/query"
	"github.com/talgya/streetsim/internal/rules"
)

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	tiles := []board.Tile{
		{Kind: board.TileBank},
		{Kind: board.TileShop, Shop: &board.Shop{BasePrice: 300, FeeMult: 0.25, Suit: board.SuitSpade, District: "Downtown"}},
		{Kind: board.TileChance},
		{Kind: board.TileNeutral},
	}
	districts := []board.District{{ID: "Downtown", SharePool: 50, BasePrice: 20}}
	b, err := board.New(tiles, districts)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	players := []game.Player{
		{ID: 1, Name: "Hero", Kind: game.KindHuman},
		{ID: 2, Name: "Rival", Kind: game.KindHuman},
	}
	m, err := game.NewMachine(b, players, rules.Default(), entropy.New(1), nil)
	if err != nil {
		t.Fatalf("machine: %v", err)
	}

	r := game.NewRunner(m, nil, time.Hour)
	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	stop := func() {
		r.Stop()
		<-done
	}
	return &Server{Runner: r, Hub: NewHub(), PlayKey: "secret"}, stop
}

func TestHandleStatus(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var st query.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Round != 1 || st.Phase != "awaiting_roll" || st.CurrentPlayer != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestHandlePlayer(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	s.handlePlayer(rec, httptest.NewRequest(http.MethodGet, "/api/v1/player/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handlePlayer(rec, httptest.NewRequest(http.MethodGet, "/api/v1/player/99", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown player code = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handlePlayer(rec, httptest.NewRequest(http.MethodGet, "/api/v1/player/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id code = %d, want 400", rec.Code)
	}
}

func TestHandleEventsWithoutDB(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	s.handleEvents(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestPlayOnlyAuth(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	h := s.playOnly(s.handleRoll)

	// GET is rejected before auth.
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/roll", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET code = %d, want 405", rec.Code)
	}

	// Missing token.
	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/roll", strings.NewReader(`{"player":1}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token code = %d, want 401", rec.Code)
	}

	// Wrong token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/roll", strings.NewReader(`{"player":1}`))
	req.Header.Set("Authorization", "Bearer wrong")
	h(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token code = %d, want 401", rec.Code)
	}

	// Valid token reaches the handler; rolling for the wrong player is
	// a conflict.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/roll", strings.NewReader(`{"player":2}`))
	req.Header.Set("Authorization", "Bearer secret")
	h(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("off-turn roll code = %d, want 409", rec.Code)
	}
}

func TestPlayOnlyDisabledWithoutKey(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	s.PlayKey = ""

	h := s.playOnly(s.handleRoll)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/roll", strings.NewReader(`{"player":1}`)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", rec.Code)
	}
}

// acceptAll answers every decision request affirmatively so a bot game
// can run unattended under the tests below.
type acceptAll struct{}

func (acceptAll) Decide(_ *game.Machine, req game.DecisionRequest) game.Decision {
	return game.Decision{Player: req.Player, Kind: req.Kind, Accept: true}
}

// The read endpoints must stay safe while the game loop is mutating
// the machine; run this under the race detector.
func TestQueriesConcurrentWithGameLoop(t *testing.T) {
	tiles := []board.Tile{
		{Kind: board.TileBank},
		{Kind: board.TileShop, Shop: &board.Shop{BasePrice: 300, FeeMult: 0.25, Suit: board.SuitSpade, District: "Downtown"}},
		{Kind: board.TileChance},
		{Kind: board.TileShop, Shop: &board.Shop{BasePrice: 200, FeeMult: 0.25, Suit: board.SuitHeart, District: "Downtown"}},
	}
	districts := []board.District{{ID: "Downtown", SharePool: 50, BasePrice: 20}}
	b, err := board.New(tiles, districts)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	players := []game.Player{
		{ID: 1, Name: "Alpha", Kind: game.KindBot},
		{ID: 2, Name: "Beta", Kind: game.KindBot},
	}
	rl := rules.Default()
	rl.MaxRounds = 10
	m, err := game.NewMachine(b, players, rl, entropy.New(7), nil)
	if err != nil {
		t.Fatalf("machine: %v", err)
	}

	r := game.NewRunner(m, map[ownership.PlayerID]game.Actor{1: acceptAll{}, 2: acceptAll{}}, time.Millisecond)
	s := &Server{Runner: r, Hub: NewHub()}

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				s.handleStatus(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
				s.handlePlayers(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/players", nil))
				s.handleLeaderboard(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))
			}
		}()
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		r.Stop()
		t.Fatalf("game did not finish")
	}
	wg.Wait()
}

func TestHandleTrade(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	s.handleTrade(rec, httptest.NewRequest(http.MethodPost, "/api/v1/trade",
		strings.NewReader(`{"player":1,"district":"Downtown","count":5}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body=%s", rec.Code, rec.Body.String())
	}
	var holding int
	s.Runner.View(func(m *game.Machine) { holding = m.Ledger().Holding(1, "Downtown") })
	if holding != 5 {
		t.Fatalf("holding = %d, want 5", holding)
	}

	// Overselling maps to a payment error.
	rec = httptest.NewRecorder()
	s.handleTrade(rec, httptest.NewRequest(http.MethodPost, "/api/v1/trade",
		strings.NewReader(`{"player":1,"district":"Downtown","count":-50}`)))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("oversell code = %d, want 402", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleTrade(rec, httptest.NewRequest(http.MethodPost, "/api/v1/trade",
		strings.NewReader(`{"player":1,"district":"Downtown","count":0}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero count code = %d, want 400", rec.Code)
	}
}
