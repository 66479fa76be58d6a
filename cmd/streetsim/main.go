// Command streetsim runs one game of the street-loop board engine:
// bot players take turns on a timer, the HTTP API serves the query
// façade and the decision protocol, and every event and decision is
// persisted for replay.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/streetsim/internal/api"
	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/bot"
	"github.com/talgya/streetsim/internal/entropy"
	"github.com/talgya/streetsim/internal/game"
	"github.com/talgya/streetsim/internal/ownership"
	"github.com/talgya/streetsim/internal/persistence"
	"github.com/talgya/streetsim/internal/rules"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	seed := int64(envIntOrDefault("STREETSIM_SEED", 42))
	dbPath := envOrDefault("STREETSIM_DB", "data/streetsim.db")
	apiPort := envIntOrDefault("STREETSIM_PORT", 8080)
	turnMs := envIntOrDefault("STREETSIM_TURN_MS", 2000)
	boardPath := os.Getenv("STREETSIM_BOARD")
	rulesPath := os.Getenv("STREETSIM_RULES")
	roster := envOrDefault("STREETSIM_PLAYERS", "Hero:human,Bot A:bot,Bot B:bot")
	playKey := os.Getenv("STREETSIM_PLAY_KEY")

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Rules ─────────────────────────────────────────────────────────
	rl := rules.Default()
	if rulesPath != "" {
		rl, err = rules.Load(rulesPath)
		if err != nil {
			slog.Error("failed to load rules", "path", rulesPath, "error", err)
			os.Exit(1)
		}
	}

	// ── Board ─────────────────────────────────────────────────────────
	var b *board.Board
	if boardPath != "" {
		b, err = board.LoadDefinition(boardPath)
		if err != nil {
			slog.Error("failed to load board", "path", boardPath, "error", err)
			os.Exit(1)
		}
		slog.Info("board loaded", "path", boardPath, "tiles", b.CycleLength())
	} else {
		cfg := board.DefaultGenConfig()
		cfg.Seed = seed
		b, err = board.Generate(cfg)
		if err != nil {
			slog.Error("board generation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("board generated", "seed", seed, "tiles", b.CycleLength(), "districts", len(b.Districts()))
	}

	// ── Players & actors ──────────────────────────────────────────────
	players, actors, err := parseRoster(roster)
	if err != nil {
		slog.Error("bad player roster", "roster", roster, "error", err)
		os.Exit(1)
	}

	// ── Game ──────────────────────────────────────────────────────────
	m, err := game.NewMachine(b, players, rl, entropy.New(seed), nil)
	if err != nil {
		slog.Error("failed to start game", "error", err)
		os.Exit(1)
	}

	gameID := uuid.NewString()
	if err := db.CreateGame(gameID, seed, b.Definition(), rl, players); err != nil {
		slog.Error("failed to record game", "error", err)
		os.Exit(1)
	}

	hub := api.NewHub()
	runner := game.NewRunner(m, actors, time.Duration(turnMs)*time.Millisecond)

	decisionOrd := 0
	runner.OnEvents = func(events []game.Event) {
		if err := db.AppendEvents(gameID, events); err != nil {
			slog.Error("event persist failed", "error", err)
		}
		hub.Broadcast(events)
	}
	runner.OnDecision = func(d game.Decision) {
		if err := db.AppendDecision(gameID, decisionOrd, d); err != nil {
			slog.Error("decision persist failed", "error", err)
		}
		decisionOrd++
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if playKey == "" {
		slog.Warn("STREETSIM_PLAY_KEY not set — play POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Runner:  runner,
		Hub:     hub,
		Port:    apiPort,
		DB:      db,
		GameID:  gameID,
		PlayKey: playKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		runner.Stop()
	}()

	fmt.Printf("Game %s: %d players on %d tiles (seed %d).\n", gameID, len(players), b.CycleLength(), seed)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Starting game... (Ctrl+C to stop)")

	runner.Run()

	if m.Phase() == game.PhaseGameEnded {
		if err := db.FinishGame(gameID, m.Round()); err != nil {
			slog.Error("archive failed", "error", err)
		}
		fmt.Println("Game over. Event log archived.")
	} else {
		fmt.Println("Game stopped.")
	}
}

// parseRoster turns "Name:kind,Name:kind" into a player list plus the
// actor map for the bot entries.
func parseRoster(roster string) ([]game.Player, map[ownership.PlayerID]game.Actor, error) {
	var players []game.Player
	actors := make(map[ownership.PlayerID]game.Actor)

	for i, entry := range strings.Split(roster, ",") {
		entry = strings.TrimSpace(entry)
		name, kindName, ok := strings.Cut(entry, ":")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("roster entry %q must be name:kind", entry)
		}
		kind, err := game.ParseKind(kindName)
		if err != nil {
			return nil, nil, err
		}
		id := ownership.PlayerID(i + 1)
		players = append(players, game.Player{ID: id, Name: name, Kind: kind})
		if kind == game.KindBot {
			actors[id] = bot.Policy{CashReserve: 200}
		}
	}
	if len(players) == 0 {
		return nil, nil, fmt.Errorf("empty roster")
	}
	return players, actors, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
