// Package persistence provides SQLite-backed game storage: the game
// row (seed, board, rules), the ordered event log, the decision log
// that makes replay possible, and a compressed archive for finished
// games.
package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/game"
	"github.com/talgya/streetsim/internal/ownership"
	"github.com/talgya/streetsim/internal/rules"
)

// DB wraps a SQLite connection for game storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		board_json TEXT NOT NULL,
		rules_json TEXT NOT NULL,
		players_json TEXT NOT NULL,
		status TEXT NOT NULL,
		rounds INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS events (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (game_id, seq)
	);

	CREATE TABLE IF NOT EXISTS decisions (
		game_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		player INTEGER NOT NULL,
		kind TEXT NOT NULL,
		accept INTEGER NOT NULL,
		PRIMARY KEY (game_id, ord)
	);

	CREATE TABLE IF NOT EXISTS archives (
		game_id TEXT PRIMARY KEY,
		events_zst BLOB NOT NULL,
		archived_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_events_game ON events(game_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// GameRecord is the stored description of one game, everything needed
// to reconstruct and replay it.
type GameRecord struct {
	ID      string
	Seed    int64
	Board   board.Definition
	Rules   rules.Rules
	Players []game.Player
	Status  string
	Rounds  int
}

// CreateGame records a new game before its first turn.
func (db *DB) CreateGame(id string, seed int64, def board.Definition, rl rules.Rules, players []game.Player) error {
	boardJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	rulesJSON, err := json.Marshal(rl)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	playersJSON, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT INTO games (id, seed, board_json, rules_json, players_json, status) VALUES (?, ?, ?, ?, ?, 'running')`,
		id, seed, string(boardJSON), string(rulesJSON), string(playersJSON))
	return err
}

// LoadGame reads a game record back.
func (db *DB) LoadGame(id string) (GameRecord, error) {
	var row struct {
		ID          string `db:"id"`
		Seed        int64  `db:"seed"`
		BoardJSON   string `db:"board_json"`
		RulesJSON   string `db:"rules_json"`
		PlayersJSON string `db:"players_json"`
		Status      string `db:"status"`
		Rounds      int    `db:"rounds"`
	}
	err := db.conn.Get(&row, `SELECT id, seed, board_json, rules_json, players_json, status, rounds FROM games WHERE id = ?`, id)
	if err != nil {
		return GameRecord{}, fmt.Errorf("load game %s: %w", id, err)
	}

	rec := GameRecord{ID: row.ID, Seed: row.Seed, Status: row.Status, Rounds: row.Rounds}
	if err := json.Unmarshal([]byte(row.BoardJSON), &rec.Board); err != nil {
		return GameRecord{}, fmt.Errorf("decode board for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(row.RulesJSON), &rec.Rules); err != nil {
		return GameRecord{}, fmt.Errorf("decode rules for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(row.PlayersJSON), &rec.Players); err != nil {
		return GameRecord{}, fmt.Errorf("decode players for %s: %w", id, err)
	}
	return rec, nil
}

// AppendEvents writes an event batch to the log in one transaction.
func (db *DB) AppendEvents(gameID string, events []game.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", e.Seq, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO events (game_id, seq, type, payload) VALUES (?, ?, ?, ?)`,
			gameID, e.Seq, string(e.Type), string(payload)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadEvents reads the full event log in sequence order.
func (db *DB) LoadEvents(gameID string) ([]game.Event, error) {
	var payloads []string
	err := db.conn.Select(&payloads,
		`SELECT payload FROM events WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load events for %s: %w", gameID, err)
	}
	return decodeEvents(payloads)
}

// AppendDecision records one decision at the given ordinal.
func (db *DB) AppendDecision(gameID string, ord int, d game.Decision) error {
	_, err := db.conn.Exec(
		`INSERT INTO decisions (game_id, ord, player, kind, accept) VALUES (?, ?, ?, ?, ?)`,
		gameID, ord, int(d.Player), string(d.Kind), boolToInt(d.Accept))
	return err
}

// LoadDecisions reads the decision log in order.
func (db *DB) LoadDecisions(gameID string) ([]game.Decision, error) {
	var rows []struct {
		Player int    `db:"player"`
		Kind   string `db:"kind"`
		Accept int    `db:"accept"`
	}
	err := db.conn.Select(&rows,
		`SELECT player, kind, accept FROM decisions WHERE game_id = ? ORDER BY ord`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load decisions for %s: %w", gameID, err)
	}
	out := make([]game.Decision, 0, len(rows))
	for _, r := range rows {
		out = append(out, game.Decision{
			Player: ownership.PlayerID(r.Player),
			Kind:   game.RequestKind(r.Kind),
			Accept: r.Accept != 0,
		})
	}
	return out, nil
}

// FinishGame marks the game finished, records the round count, and
// archives the event log as a zstd-compressed JSONL blob.
func (db *DB) FinishGame(gameID string, rounds int) error {
	events, err := db.LoadEvents(gameID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return err
	}
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			enc.Close()
			return err
		}
		if _, err := enc.Write(append(line, '\n')); err != nil {
			enc.Close()
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO archives (game_id, events_zst) VALUES (?, ?)`,
		gameID, buf.Bytes()); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`UPDATE games SET status = 'finished', rounds = ? WHERE id = ?`,
		rounds, gameID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("game archived", "game", gameID, "events", len(events), "bytes", buf.Len())
	return nil
}

// LoadArchive decompresses a finished game's archived event log.
func (db *DB) LoadArchive(gameID string) ([]game.Event, error) {
	var blob []byte
	err := db.conn.Get(&blob, `SELECT events_zst FROM archives WHERE game_id = ?`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load archive for %s: %w", gameID, err)
	}

	dec, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}

	var payloads []string
	for _, line := range bytes.Split(raw, []byte{'\n'}) {
		if len(line) > 0 {
			payloads = append(payloads, string(line))
		}
	}
	return decodeEvents(payloads)
}

func decodeEvents(payloads []string) ([]game.Event, error) {
	out := make([]game.Event, 0, len(payloads))
	for _, p := range payloads {
		var e game.Event
		if err := json.Unmarshal([]byte(p), &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
