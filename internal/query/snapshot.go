// Package query provides read-only projections over a game for UI
// layers: per-player summaries, per-district stock state, and a net
// worth leaderboard. Nothing here mutates game state.
package query

import (
	"sort"

	"github.com/talgya/streetsim/internal/game"
	"github.com/talgya/streetsim/internal/ownership"
)

// PlayerSummary is the sidebar view of one player.
type PlayerSummary struct {
	ID       ownership.PlayerID `json:"id"`
	Name     string             `json:"name"`
	Kind     string             `json:"kind"`
	Position int                `json:"position"`
	Cash     int                `json:"cash"`
	NetWorth int                `json:"net_worth"`
	Level    int                `json:"level"`
	Suits    []string           `json:"suits"`
	Shops    []int              `json:"shops"`
	Holdings map[string]int     `json:"holdings"`
}

// DistrictSummary is the stock-market view of one district.
type DistrictSummary struct {
	ID            string  `json:"id"`
	Shops         []int   `json:"shops"`
	OwnedFraction float64 `json:"owned_fraction"`
	SharePrice    int     `json:"share_price"`
	PoolRemaining int     `json:"pool_remaining"`
}

// Status is the headline game state.
type Status struct {
	Round         int                   `json:"round"`
	Phase         string                `json:"phase"`
	CurrentPlayer ownership.PlayerID    `json:"current_player"`
	Pending       *game.DecisionRequest `json:"pending,omitempty"`
	Players       int                   `json:"players"`
	CycleLength   int                   `json:"cycle_length"`
}

// GameStatus summarizes the machine's headline state.
func GameStatus(m *game.Machine) Status {
	return Status{
		Round:         m.Round(),
		Phase:         m.Phase().String(),
		CurrentPlayer: m.CurrentPlayer().ID,
		Pending:       m.Pending(),
		Players:       len(m.Players()),
		CycleLength:   m.Board().CycleLength(),
	}
}

// Summarize builds the player's sidebar snapshot.
func Summarize(m *game.Machine, id ownership.PlayerID) (PlayerSummary, bool) {
	p, ok := m.Player(id)
	if !ok {
		return PlayerSummary{}, false
	}
	led, reg := m.Ledger(), m.Registry()

	suits := []string{}
	for _, s := range reg.Suits(id) {
		suits = append(suits, s.String())
	}
	holdings := make(map[string]int)
	for d, n := range led.Holdings(id) {
		holdings[string(d)] = n
	}
	shops := reg.ShopsOwnedBy(id)
	if shops == nil {
		shops = []int{}
	}

	return PlayerSummary{
		ID:       p.ID,
		Name:     p.Name,
		Kind:     p.Kind.String(),
		Position: p.Position,
		Cash:     led.Cash(id),
		NetWorth: led.NetWorth(id),
		Level:    led.Level(id),
		Suits:    suits,
		Shops:    shops,
		Holdings: holdings,
	}, true
}

// Players summarizes every player in turn order.
func Players(m *game.Machine) []PlayerSummary {
	var out []PlayerSummary
	for _, p := range m.Players() {
		if s, ok := Summarize(m, p.ID); ok {
			out = append(out, s)
		}
	}
	return out
}

// Leaderboard returns player summaries sorted by net worth, highest
// first. Ties keep turn order.
func Leaderboard(m *game.Machine) []PlayerSummary {
	out := Players(m)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetWorth > out[j].NetWorth
	})
	return out
}

// Districts summarizes the stock market.
func Districts(m *game.Machine) []DistrictSummary {
	led, reg := m.Ledger(), m.Registry()
	var out []DistrictSummary
	for _, d := range m.Board().Districts() {
		out = append(out, DistrictSummary{
			ID:            string(d.ID),
			Shops:         append([]int(nil), d.Shops...),
			OwnedFraction: reg.OwnedFraction(d.ID),
			SharePrice:    led.DistrictPrice(d.ID),
			PoolRemaining: led.PoolRemaining(d.ID),
		})
	}
	return out
}
