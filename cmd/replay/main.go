// Command replay re-runs a recorded game from its seed and decision
// log and verifies that the engine reproduces the stored event stream
// bit for bit.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/entropy"
	"github.com/talgya/streetsim/internal/game"
	"github.com/talgya/streetsim/internal/persistence"
)

func main() {
	var (
		dbPath  = flag.String("db", "data/streetsim.db", "path to the game database")
		gameID  = flag.String("game", "", "game id to replay")
		archive = flag.Bool("archive", false, "verify against the compressed archive instead of the live log")
	)
	flag.Parse()

	if *gameID == "" {
		fmt.Fprintln(os.Stderr, "missing -game")
		os.Exit(2)
	}

	db, err := persistence.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer db.Close()

	rec, err := db.LoadGame(*gameID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load game:", err)
		os.Exit(1)
	}
	fmt.Printf("game %s seed=%d players=%d status=%s rounds=%d\n",
		rec.ID, rec.Seed, len(rec.Players), rec.Status, rec.Rounds)

	want, err := loadRecorded(db, *gameID, *archive)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load events:", err)
		os.Exit(1)
	}
	decisions, err := db.LoadDecisions(*gameID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load decisions:", err)
		os.Exit(1)
	}

	got, err := rerun(rec, decisions, want)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}

	if len(got) < len(want) {
		fmt.Fprintf(os.Stderr, "DIVERGED: engine produced %d events, log has %d\n", len(got), len(want))
		os.Exit(1)
	}
	for i := range want {
		w, _ := json.Marshal(want[i])
		g, _ := json.Marshal(got[i])
		if string(w) != string(g) {
			fmt.Fprintf(os.Stderr, "DIVERGED at event %d:\n  recorded: %s\n  replayed: %s\n", i, w, g)
			os.Exit(1)
		}
	}

	fmt.Printf("OK: %d events match\n", len(want))
}

func loadRecorded(db *persistence.DB, gameID string, fromArchive bool) ([]game.Event, error) {
	if fromArchive {
		return db.LoadArchive(gameID)
	}
	return db.LoadEvents(gameID)
}

// rerun reconstructs the machine and feeds it the recorded stimuli:
// decisions from the decision log, pre-roll share trades re-applied
// from their shares_traded events, and rolls whenever nothing is
// pending, until the recorded event count is reached.
func rerun(rec persistence.GameRecord, decisions []game.Decision, want []game.Event) ([]game.Event, error) {
	b, err := board.FromDefinition(rec.Board)
	if err != nil {
		return nil, err
	}
	m, err := game.NewMachine(b, rec.Players, rec.Rules, entropy.New(rec.Seed), nil)
	if err != nil {
		return nil, err
	}

	var got []game.Event
	next := 0
	for len(got) < len(want) && m.Phase() != game.PhaseGameEnded {
		var events []game.Event
		switch {
		case m.Pending() != nil:
			if next >= len(decisions) {
				return got, nil
			}
			events, err = m.Resolve(decisions[next])
			next++
		case want[len(got)].Type == game.EventSharesTraded:
			// A trade recorded between turns is a player order, not a
			// forced liquidation; replay it as one.
			tr := want[len(got)]
			if tr.Count > 0 {
				events, err = m.BuyShares(tr.Player, tr.District, tr.Count)
			} else {
				events, err = m.SellShares(tr.Player, tr.District, -tr.Count)
			}
		default:
			events, err = m.Roll()
		}
		if err != nil {
			return got, fmt.Errorf("at event %d: %w", len(got), err)
		}
		got = append(got, events...)
	}
	return got, nil
}
