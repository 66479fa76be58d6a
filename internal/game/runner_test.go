package game

import (
	"errors"
	"testing"
	"time"

	"github.com/talgya/streetsim/internal/ownership"
	"github.com/talgya/streetsim/internal/rules"
)

// acceptAll accepts every request it is asked about.
type acceptAll struct{}

func (acceptAll) Decide(_ *Machine, req DecisionRequest) Decision {
	return Decision{Player: req.Player, Kind: req.Kind, Accept: true}
}

func TestRunnerPlaysBotsToCompletion(t *testing.T) {
	rl := rules.Default()
	rl.MaxRounds = 2
	m := newGame(t, rl, 11)

	var batches int
	var decisions []Decision
	r := NewRunner(m, map[ownership.PlayerID]Actor{1: acceptAll{}, 2: acceptAll{}}, time.Millisecond)
	r.OnEvents = func(events []Event) { batches += len(events) }
	r.OnDecision = func(d Decision) { decisions = append(decisions, d) }

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("runner did not finish")
	}

	if m.Phase() != PhaseGameEnded {
		t.Fatalf("phase = %s, want game_ended", m.Phase())
	}
	if batches == 0 {
		t.Fatalf("no events published")
	}
	if len(decisions) == 0 {
		t.Fatalf("no decisions recorded")
	}
}

func TestRunnerRejectsWrongPlayerRoll(t *testing.T) {
	m := newGame(t, rules.Default(), 1)
	// No actors: both players are human, the loop only serves stimuli.
	r := NewRunner(m, nil, time.Hour)

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	defer func() {
		r.Stop()
		<-done
	}()

	if err := r.SubmitRoll(2); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("expected ErrOutOfTurn, got %v", err)
	}
	if err := r.SubmitRoll(1); err != nil {
		t.Fatalf("SubmitRoll: %v", err)
	}
}

func TestRunnerSubmitAfterStop(t *testing.T) {
	m := newGame(t, rules.Default(), 1)
	r := NewRunner(m, nil, time.Hour)

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	r.Stop()
	<-done

	if err := r.SubmitRoll(1); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("expected stopped-runner error, got %v", err)
	}
}

func TestRunnerSubmitTrade(t *testing.T) {
	m := newGame(t, rules.Default(), 1)
	r := NewRunner(m, nil, time.Hour)

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	defer func() {
		r.Stop()
		<-done
	}()

	if err := r.SubmitTrade(Trade{Player: 1, District: "Downtown", Count: 5}); err != nil {
		t.Fatalf("buy trade: %v", err)
	}
	if got := m.Ledger().Holding(1, "Downtown"); got != 5 {
		t.Fatalf("holding = %d, want 5", got)
	}
	if err := r.SubmitTrade(Trade{Player: 1, District: "Downtown", Count: -5}); err != nil {
		t.Fatalf("sell trade: %v", err)
	}
	if got := m.Ledger().Holding(1, "Downtown"); got != 0 {
		t.Fatalf("holding = %d, want 0", got)
	}
	if err := r.SubmitTrade(Trade{Player: 1, District: "Downtown"}); err == nil {
		t.Fatalf("zero-count trade accepted")
	}
	if err := r.SubmitTrade(Trade{Player: 2, District: "Downtown", Count: 1}); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("off-turn trade: expected ErrOutOfTurn, got %v", err)
	}
}

func TestRunnerHumanDecisionFlow(t *testing.T) {
	m := newGame(t, rules.Default(), 1)
	var decisions []Decision
	r := NewRunner(m, nil, time.Hour)
	r.OnDecision = func(d Decision) { decisions = append(decisions, d) }

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	defer func() {
		if m.Phase() != PhaseGameEnded {
			r.Stop()
		}
		<-done
	}()

	if err := r.SubmitRoll(1); err != nil {
		t.Fatalf("SubmitRoll: %v", err)
	}
	if req := m.Pending(); req != nil {
		d := Decision{Player: req.Player, Kind: req.Kind}
		if err := r.SubmitDecision(d); err != nil {
			t.Fatalf("SubmitDecision: %v", err)
		}
		if len(decisions) != 1 || decisions[0].Kind != req.Kind {
			t.Fatalf("decision log = %+v", decisions)
		}
	}
	// Turn passed to player 2 either way.
	if got := m.CurrentPlayer().ID; got != 2 {
		t.Fatalf("current player = %d, want 2", got)
	}
}
