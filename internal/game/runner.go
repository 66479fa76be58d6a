package game

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/ownership"
)

// Actor supplies decisions for one player's suspension points. Actors
// must be deterministic for replay to hold.
type Actor interface {
	Decide(m *Machine, req DecisionRequest) Decision
}

// Runner drives a machine to completion: bot players take whole turns
// on a timer tick, human players advance the machine through SubmitRoll
// and SubmitDecision. One goroutine owns the machine; external stimuli
// are funneled through a channel, which is the single-writer
// discipline.
type Runner struct {
	M *Machine
	// Actors maps bot players to their decision policies. Players
	// without an actor wait for submitted stimuli.
	Actors   map[ownership.PlayerID]Actor
	Interval time.Duration
	// OnEvents receives every emitted event batch in order, for
	// persistence and streaming.
	OnEvents func([]Event)
	// OnDecision receives every applied decision in order; the
	// decision log plus the seed is what makes a game replayable.
	OnDecision func(Decision)

	// mu guards the machine: the loop holds the write lock while
	// applying stimuli, readers go through View.
	mu      sync.RWMutex
	stimuli chan stimulus
	quit    chan struct{}
}

type stimulus struct {
	roll     bool
	player   ownership.PlayerID
	decision Decision
	trade    *Trade
	resp     chan error
}

// Trade is a pre-roll share order submitted by a human player.
// Negative counts sell.
type Trade struct {
	Player   ownership.PlayerID `json:"player"`
	District board.DistrictID   `json:"district"`
	Count    int                `json:"count"`
}

// NewRunner wires a runner around a machine.
func NewRunner(m *Machine, actors map[ownership.PlayerID]Actor, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	return &Runner{
		M:        m,
		Actors:   actors,
		Interval: interval,
		stimuli:  make(chan stimulus),
		quit:     make(chan struct{}),
	}
}

// Run blocks until the game ends or Stop is called.
func (r *Runner) Run() {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	slog.Info("game loop started", "players", len(r.M.Players()), "interval", r.Interval)
	for {
		select {
		case <-r.quit:
			return
		case st := <-r.stimuli:
			st.resp <- r.apply(st)
		case <-ticker.C:
			r.stepBot()
		}
		if r.M.Phase() == PhaseGameEnded {
			slog.Info("game over", "round", r.M.Round())
			return
		}
	}
}

// Stop halts the loop without ending the game.
func (r *Runner) Stop() {
	close(r.quit)
}

// SubmitRoll requests a roll on behalf of a human player. It blocks
// until the loop has applied or rejected the stimulus.
func (r *Runner) SubmitRoll(p ownership.PlayerID) error {
	return r.submit(stimulus{roll: true, player: p})
}

// SubmitDecision answers the pending decision request on behalf of a
// human player.
func (r *Runner) SubmitDecision(d Decision) error {
	return r.submit(stimulus{decision: d, player: d.Player})
}

// SubmitTrade executes a pre-roll share order on behalf of a human
// player.
func (r *Runner) SubmitTrade(tr Trade) error {
	if tr.Count == 0 {
		return fmt.Errorf("game: trade with zero count")
	}
	return r.submit(stimulus{trade: &tr, player: tr.Player})
}

func (r *Runner) submit(st stimulus) error {
	st.resp = make(chan error, 1)
	select {
	case r.stimuli <- st:
		return <-st.resp
	case <-r.quit:
		return fmt.Errorf("game: runner stopped: %w", ErrOutOfTurn)
	}
}

// View runs fn with the machine locked against the game loop. Query
// snapshots for concurrent readers are built inside fn; the machine
// must not escape it.
func (r *Runner) View(fn func(*Machine)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.M)
}

func (r *Runner) apply(st stimulus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st.trade != nil {
		tr := *st.trade
		var events []Event
		var err error
		if tr.Count > 0 {
			events, err = r.M.BuyShares(tr.Player, tr.District, tr.Count)
		} else {
			events, err = r.M.SellShares(tr.Player, tr.District, -tr.Count)
		}
		r.publish(events)
		return err
	}
	if st.roll {
		if cur := r.M.CurrentPlayer(); cur.ID != st.player {
			slog.Debug("roll for wrong player rejected", "player", st.player, "current", cur.ID)
			return fmt.Errorf("game: roll by player %d on player %d's turn: %w", st.player, cur.ID, ErrOutOfTurn)
		}
		events, err := r.M.Roll()
		r.publish(events)
		return err
	}
	events, err := r.M.Resolve(st.decision)
	r.publish(events)
	if err == nil {
		r.record(st.decision)
	}
	return err
}

// stepBot plays out the current turn when a bot is up: one roll, then
// every pending decision the bot owes.
func (r *Runner) stepBot() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.M.CurrentPlayer()
	actor := r.Actors[cur.ID]

	if r.M.Phase() == PhaseAwaitingRoll {
		if actor == nil {
			return
		}
		events, err := r.M.Roll()
		r.publish(events)
		if err != nil {
			slog.Error("bot roll failed", "player", cur.ID, "error", err)
			return
		}
	}

	for {
		req := r.M.Pending()
		if req == nil {
			return
		}
		a := r.Actors[req.Player]
		if a == nil {
			return
		}
		d := a.Decide(r.M, *req)
		events, err := r.M.Resolve(d)
		r.publish(events)
		if err != nil {
			// A bot that cannot act leaves the decision pending; a
			// failed purchase falls back to declining.
			if req.Kind == RequestPurchase {
				d = Decision{Player: req.Player, Kind: RequestPurchase}
				events, err = r.M.Resolve(d)
				r.publish(events)
				if err == nil {
					r.record(d)
					continue
				}
			}
			slog.Error("bot decision failed", "player", req.Player, "kind", req.Kind, "error", err)
			return
		}
		r.record(d)
	}
}

func (r *Runner) record(d Decision) {
	if r.OnDecision != nil {
		r.OnDecision(d)
	}
}

func (r *Runner) publish(events []Event) {
	if r.OnEvents != nil && len(events) > 0 {
		r.OnEvents(events)
	}
}
