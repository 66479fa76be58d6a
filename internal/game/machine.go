package game

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/economy"
	"github.com/talgya/streetsim/internal/entropy"
	"github.com/talgya/streetsim/internal/ownership"
	"github.com/talgya/streetsim/internal/rules"
)

// Phase is the turn state machine's current state. Moving, Resolving,
// and Settled are transient: they only exist inside a single Roll or
// Resolve call and are never observed between stimuli.
type Phase uint8

const (
	PhaseAwaitingRoll Phase = iota
	PhaseMoving
	PhaseResolving
	PhaseAwaitingPurchase
	PhaseAwaitingFee
	PhaseAwaitingBank
	PhaseAwaitingChance
	PhaseSettled
	PhaseGameEnded
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingRoll:
		return "awaiting_roll"
	case PhaseMoving:
		return "moving"
	case PhaseResolving:
		return "resolving"
	case PhaseAwaitingPurchase:
		return "awaiting_purchase"
	case PhaseAwaitingFee:
		return "awaiting_fee"
	case PhaseAwaitingBank:
		return "awaiting_bank"
	case PhaseAwaitingChance:
		return "awaiting_chance"
	case PhaseSettled:
		return "settled"
	case PhaseGameEnded:
		return "game_ended"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// EndPredicate is evaluated after every settled turn; returning true
// ends the game.
type EndPredicate func(*Machine) bool

// RoundLimit ends the game once n full rounds have completed. n <= 0
// never ends.
func RoundLimit(n int) EndPredicate {
	return func(m *Machine) bool {
		return n > 0 && m.round > n
	}
}

// Machine owns the complete game aggregate and advances it one
// stimulus at a time. It is a plain value with no background work;
// callers serialize access.
type Machine struct {
	b       *board.Board
	players []Player
	reg     *ownership.Registry
	led     *economy.Ledger
	rl      rules.Rules
	src     *entropy.Source
	end     EndPredicate

	phase   Phase
	turn    int
	round   int
	seq     int
	pending *DecisionRequest
}

// NewMachine assembles a game from a board, a player roster, a rule
// set, and a seeded entropy source. A nil end predicate defaults to
// the rule set's round limit.
func NewMachine(b *board.Board, players []Player, rl rules.Rules, src *entropy.Source, end EndPredicate) (*Machine, error) {
	if b == nil {
		return nil, fmt.Errorf("game: nil board")
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("game: no players")
	}
	if src == nil {
		return nil, fmt.Errorf("game: nil entropy source")
	}
	if err := rl.Validate(); err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}

	seen := make(map[ownership.PlayerID]bool, len(players))
	ids := make([]ownership.PlayerID, 0, len(players))
	for i, p := range players {
		if p.ID == ownership.NoOwner {
			return nil, fmt.Errorf("game: player %d has reserved id 0", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("game: duplicate player id %d", p.ID)
		}
		if p.Position < 0 || p.Position >= b.CycleLength() {
			return nil, fmt.Errorf("game: player %d position %d outside cycle", i, p.Position)
		}
		seen[p.ID] = true
		ids = append(ids, p.ID)
	}

	reg := ownership.NewRegistry(b)
	if end == nil {
		end = RoundLimit(rl.MaxRounds)
	}
	return &Machine{
		b:       b,
		players: append([]Player(nil), players...),
		reg:     reg,
		led:     economy.NewLedger(b, reg, rl, ids),
		rl:      rl,
		src:     src,
		end:     end,
		phase:   PhaseAwaitingRoll,
		round:   1,
	}, nil
}

// Board returns the immutable board.
func (m *Machine) Board() *board.Board { return m.b }

// Registry returns the ownership registry. Read-only for callers.
func (m *Machine) Registry() *ownership.Registry { return m.reg }

// Ledger returns the economy ledger. Read-only for callers.
func (m *Machine) Ledger() *economy.Ledger { return m.led }

// Rules returns the active rule set.
func (m *Machine) Rules() rules.Rules { return m.rl }

// Phase returns the machine's current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Round returns the current round, starting at 1.
func (m *Machine) Round() int { return m.round }

// Players returns a copy of the roster in turn order.
func (m *Machine) Players() []Player {
	return append([]Player(nil), m.players...)
}

// Player returns the roster entry with the given id.
func (m *Machine) Player(id ownership.PlayerID) (Player, bool) {
	for _, p := range m.players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// CurrentPlayer returns the player whose turn is in progress.
func (m *Machine) CurrentPlayer() Player { return m.players[m.turn] }

// Pending returns a copy of the suspended decision request, or nil
// when no decision is awaited.
func (m *Machine) Pending() *DecisionRequest {
	if m.pending == nil {
		return nil
	}
	cp := *m.pending
	return &cp
}

// EntropyState exposes the randomness source state for snapshots.
func (m *Machine) EntropyState() uint64 { return m.src.State() }

func (m *Machine) emit(events *[]Event, e Event) {
	m.seq++
	e.Seq = m.seq
	e.Round = m.round
	*events = append(*events, e)
}

// Roll is the AwaitingRoll stimulus: draw a die, move the current
// player, and resolve the landed tile. If the tile needs a decision
// the machine parks in the matching Awaiting phase; otherwise the turn
// settles and play advances.
func (m *Machine) Roll() ([]Event, error) {
	if m.phase != PhaseAwaitingRoll {
		slog.Debug("roll rejected", "phase", m.phase)
		return nil, fmt.Errorf("game: roll in phase %s: %w", m.phase, ErrOutOfTurn)
	}

	var events []Event
	cur := &m.players[m.turn]

	die := m.src.RollDie()
	m.phase = PhaseMoving
	m.emit(&events, Event{Type: EventDiceRolled, Player: cur.ID, Die: die})

	from := cur.Position
	cur.Position = (from + die) % m.b.CycleLength()
	if from+die >= m.b.CycleLength() {
		// The move wrapped past tile 0: salary hook.
		if m.rl.PassStartBonus > 0 {
			if err := m.led.Credit(cur.ID, m.rl.PassStartBonus); err != nil {
				return events, err
			}
		}
		m.emit(&events, Event{Type: EventPassedStart, Player: cur.ID, Amount: m.rl.PassStartBonus})
	}
	m.emit(&events, Event{Type: EventTileLanded, Player: cur.ID, Tile: cur.Position})

	m.phase = PhaseResolving
	m.resolveTile(&events, cur)

	if m.pending == nil {
		m.settle(&events)
	}
	return events, nil
}

// resolveTile dispatches on the landed tile's variant. Decision tiles
// park a pending request; the rest resolve in place.
func (m *Machine) resolveTile(events *[]Event, cur *Player) {
	t := m.b.TileAt(cur.Position)
	switch t.Kind {
	case board.TileNeutral:
		// Nothing happens.
	case board.TileBank:
		m.pending = &DecisionRequest{
			Kind:          RequestBank,
			Player:        cur.ID,
			Tile:          cur.Position,
			SuitsComplete: m.reg.SuitSetComplete(cur.ID),
		}
		m.phase = PhaseAwaitingBank
	case board.TileChance:
		m.pending = &DecisionRequest{
			Kind:   RequestChance,
			Player: cur.ID,
			Tile:   cur.Position,
			Delta:  m.src.ChanceEffect(m.rl.ChanceMin, m.rl.ChanceMax),
		}
		m.phase = PhaseAwaitingChance
	case board.TileShop:
		owner, owned := m.reg.OwnerOf(cur.Position)
		switch {
		case !owned:
			m.pending = &DecisionRequest{
				Kind:   RequestPurchase,
				Player: cur.ID,
				Tile:   cur.Position,
				Price:  t.Shop.BasePrice,
			}
			m.phase = PhaseAwaitingPurchase
		case owner == cur.ID:
			// Landing on your own shop never prompts a purchase.
			if m.rl.SuitAward == rules.AwardOnLanding {
				m.awardSuit(events, cur.ID, t.Shop.Suit)
			}
		default:
			m.pending = &DecisionRequest{
				Kind:   RequestFee,
				Player: cur.ID,
				Tile:   cur.Position,
				Fee:    m.led.Fee(cur.Position),
				Owner:  owner,
			}
			m.phase = PhaseAwaitingFee
		}
	}
}

// Resolve is the Awaiting* stimulus: it applies exactly one typed
// decision matching the pending request, then settles the turn. A
// mismatched decision is rejected with ErrOutOfTurn and no mutation. A
// recoverable economy error (for example accepting a purchase without
// the cash) is returned to the actor with the request still pending.
func (m *Machine) Resolve(d Decision) ([]Event, error) {
	if m.pending == nil {
		slog.Debug("decision rejected, nothing pending", "phase", m.phase, "player", d.Player)
		return nil, fmt.Errorf("game: decision in phase %s: %w", m.phase, ErrOutOfTurn)
	}
	req := *m.pending
	if d.Player != req.Player || d.Kind != req.Kind {
		slog.Debug("decision rejected, mismatched request",
			"want_kind", req.Kind, "got_kind", d.Kind,
			"want_player", req.Player, "got_player", d.Player)
		return nil, fmt.Errorf("game: decision %s by player %d does not match pending %s for player %d: %w",
			d.Kind, d.Player, req.Kind, req.Player, ErrOutOfTurn)
	}

	var events []Event
	switch req.Kind {
	case RequestPurchase:
		if d.Accept {
			if err := m.led.Debit(req.Player, req.Price); err != nil {
				return nil, err
			}
			if err := m.reg.Transfer(req.Tile, req.Player); err != nil {
				return nil, err
			}
			m.emit(&events, Event{Type: EventOwnershipChanged, Player: req.Player, Tile: req.Tile, Amount: req.Price})
			if m.rl.SuitAward == rules.AwardOnPurchase {
				if shop, ok := m.b.ShopAt(req.Tile); ok {
					m.awardSuit(&events, req.Player, shop.Suit)
				}
			}
		}

	case RequestFee:
		m.payFee(&events, req)

	case RequestBank:
		if m.reg.SuitSetComplete(req.Player) {
			level, err := m.led.IncrementLevel(req.Player)
			if err != nil {
				return nil, err
			}
			m.emit(&events, Event{Type: EventLevelUp, Player: req.Player, Level: level})
			salary := m.rl.SalaryBase*level +
				int(math.Round(m.rl.SalaryNetWorthRate*float64(m.led.NetWorth(req.Player))))
			if err := m.led.Credit(req.Player, salary); err != nil {
				return nil, err
			}
			m.reg.ResetSuits(req.Player)
			m.emit(&events, Event{Type: EventSalaryPaid, Player: req.Player, Amount: salary})
		}

	case RequestChance:
		applied := req.Delta
		if applied >= 0 {
			if err := m.led.Credit(req.Player, applied); err != nil {
				return nil, err
			}
		} else {
			// A chance loss never drives cash below the floor; it
			// pays what it can.
			pay := m.led.Affordable(req.Player, -applied)
			if err := m.led.Debit(req.Player, pay); err != nil {
				return nil, err
			}
			applied = -pay
		}
		m.emit(&events, Event{Type: EventChanceApplied, Player: req.Player, Tile: req.Tile, Amount: applied})
	}

	m.pending = nil
	m.settle(&events)
	return events, nil
}

// payFee settles a fee owed to another player's shop, applying the
// bankruptcy consequence policy when the visitor cannot cover it:
// forced share liquidation, then a payment reduced to what the floor
// allows, with a Bankrupt event for the shortfall.
func (m *Machine) payFee(events *[]Event, req DecisionRequest) {
	fee := req.Fee
	if err := m.led.Debit(req.Player, fee); err == nil {
		m.creditOwner(events, req, fee)
		return
	}

	m.liquidate(events, req.Player, fee)

	paid := fee
	if err := m.led.Debit(req.Player, fee); err != nil {
		paid = m.led.Affordable(req.Player, fee)
		if err := m.led.Debit(req.Player, paid); err != nil {
			paid = 0
		}
		m.emit(events, Event{Type: EventBankrupt, Player: req.Player, Tile: req.Tile, Amount: fee - paid})
	}
	m.creditOwner(events, req, paid)
}

func (m *Machine) creditOwner(events *[]Event, req DecisionRequest, amount int) {
	if err := m.led.Credit(req.Owner, amount); err != nil {
		slog.Error("fee credit failed", "owner", req.Owner, "amount", amount, "error", err)
		return
	}
	m.emit(events, Event{Type: EventFeePaid, Player: req.Player, To: req.Owner, Tile: req.Tile, Amount: amount})
}

// liquidate force-sells holdings until the player can cover need,
// emitting a shares_traded event per district sold.
func (m *Machine) liquidate(events *[]Event, p ownership.PlayerID, need int) {
	for _, d := range m.b.Districts() {
		if m.led.Cash(p) >= need {
			return
		}
		held := m.led.Holding(p, d.ID)
		if held == 0 {
			continue
		}
		price := m.led.DistrictPrice(d.ID)
		sell := held
		if price > 0 {
			short := need - m.led.Cash(p)
			if want := (short + price - 1) / price; want < sell {
				sell = want
			}
		}
		if err := m.led.SellShares(p, d.ID, sell); err != nil {
			slog.Error("forced liquidation failed", "player", p, "district", d.ID, "error", err)
			continue
		}
		m.emit(events, Event{Type: EventSharesTraded, Player: p, District: d.ID, Count: -sell, Amount: sell * price})
	}
}

func (m *Machine) awardSuit(events *[]Event, p ownership.PlayerID, s board.Suit) {
	if m.reg.HasSuit(p, s) {
		return
	}
	complete := m.reg.AwardSuit(p, s)
	m.emit(events, Event{Type: EventSuitAwarded, Player: p, Suit: s.String()})
	if complete {
		m.emit(events, Event{Type: EventSuitSetComplete, Player: p})
	}
}

// BuyShares executes a pre-roll share purchase for the current player.
func (m *Machine) BuyShares(p ownership.PlayerID, id board.DistrictID, count int) ([]Event, error) {
	if err := m.checkTrade(p); err != nil {
		return nil, err
	}
	price := m.led.DistrictPrice(id)
	if err := m.led.BuyShares(p, id, count); err != nil {
		return nil, err
	}
	var events []Event
	m.emit(&events, Event{Type: EventSharesTraded, Player: p, District: id, Count: count, Amount: count * price})
	return events, nil
}

// SellShares executes a pre-roll share sale for the current player.
func (m *Machine) SellShares(p ownership.PlayerID, id board.DistrictID, count int) ([]Event, error) {
	if err := m.checkTrade(p); err != nil {
		return nil, err
	}
	price := m.led.DistrictPrice(id)
	if err := m.led.SellShares(p, id, count); err != nil {
		return nil, err
	}
	var events []Event
	m.emit(&events, Event{Type: EventSharesTraded, Player: p, District: id, Count: -count, Amount: count * price})
	return events, nil
}

// checkTrade keeps share trading inside the single-writer turn
// discipline: only the current player, only before rolling.
func (m *Machine) checkTrade(p ownership.PlayerID) error {
	if m.phase != PhaseAwaitingRoll {
		return fmt.Errorf("game: trade in phase %s: %w", m.phase, ErrOutOfTurn)
	}
	if p != m.players[m.turn].ID {
		return fmt.Errorf("game: trade by player %d on player %d's turn: %w", p, m.players[m.turn].ID, ErrOutOfTurn)
	}
	return nil
}

// settle closes the turn, advances play round-robin, and re-evaluates
// the end predicate.
func (m *Machine) settle(events *[]Event) {
	m.phase = PhaseSettled
	m.emit(events, Event{Type: EventTurnSettled, Player: m.players[m.turn].ID})

	m.turn = (m.turn + 1) % len(m.players)
	if m.turn == 0 {
		m.round++
	}

	if m.end(m) {
		m.phase = PhaseGameEnded
		m.emit(events, Event{Type: EventGameEnded, Player: m.richest()})
		return
	}
	m.phase = PhaseAwaitingRoll
}

// richest returns the player with the highest net worth, for the
// game_ended event. Ties go to the earlier turn order.
func (m *Machine) richest() ownership.PlayerID {
	best := m.players[0].ID
	bestWorth := m.led.NetWorth(best)
	for _, p := range m.players[1:] {
		if w := m.led.NetWorth(p.ID); w > bestWorth {
			best, bestWorth = p.ID, w
		}
	}
	return best
}
