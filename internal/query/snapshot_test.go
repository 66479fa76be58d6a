package query

import (
	"testing"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/entropy"
	"github.com/talgya/streetsim/internal/game"
	"github.com/talgya/streetsim/internal/rules"
)

func newMachine(t *testing.T) *game.Machine {
	t.Helper()
	tiles := []board.Tile{
		{Kind: board.TileBank},
		{Kind: board.TileShop, Shop: &board.Shop{BasePrice: 300, FeeMult: 0.25, Suit: board.SuitSpade, District: "Downtown"}},
		{Kind: board.TileShop, Shop: &board.Shop{BasePrice: 200, FeeMult: 0.25, Suit: board.SuitHeart, District: "Downtown"}},
		{Kind: board.TileChance},
	}
	districts := []board.District{{ID: "Downtown", SharePool: 50, BasePrice: 20}}
	b, err := board.New(tiles, districts)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	players := []game.Player{
		{ID: 1, Name: "Hero", Kind: game.KindHuman},
		{ID: 2, Name: "Rival", Kind: game.KindBot},
	}
	m, err := game.NewMachine(b, players, rules.Default(), entropy.New(1), nil)
	if err != nil {
		t.Fatalf("machine: %v", err)
	}
	return m
}

func TestGameStatus(t *testing.T) {
	m := newMachine(t)
	st := GameStatus(m)
	if st.Round != 1 || st.Phase != "awaiting_roll" || st.CurrentPlayer != 1 {
		t.Fatalf("status = %+v", st)
	}
	if st.Pending != nil {
		t.Fatalf("fresh game has pending request")
	}
	if st.Players != 2 || st.CycleLength != 4 {
		t.Fatalf("status = %+v", st)
	}
}

func TestSummarize(t *testing.T) {
	m := newMachine(t)
	m.Registry().Transfer(1, 1)
	m.Registry().AwardSuit(1, board.SuitSpade)
	if _, err := m.BuyShares(1, "Downtown", 2); err != nil {
		t.Fatalf("buy: %v", err)
	}

	s, ok := Summarize(m, 1)
	if !ok {
		t.Fatalf("player 1 missing")
	}
	if s.Name != "Hero" || s.Kind != "human" {
		t.Fatalf("summary = %+v", s)
	}
	if len(s.Shops) != 1 || s.Shops[0] != 1 {
		t.Fatalf("shops = %v", s.Shops)
	}
	if len(s.Suits) != 1 || s.Suits[0] != "spade" {
		t.Fatalf("suits = %v", s.Suits)
	}
	if s.Holdings["Downtown"] != 2 {
		t.Fatalf("holdings = %v", s.Holdings)
	}
	if s.NetWorth != s.Cash+m.Ledger().Valuation(1)+2*m.Ledger().DistrictPrice("Downtown") {
		t.Fatalf("net worth %d does not match formula", s.NetWorth)
	}

	if _, ok := Summarize(m, 99); ok {
		t.Fatalf("unknown player summarized")
	}
}

func TestLeaderboardOrder(t *testing.T) {
	m := newMachine(t)
	m.Ledger().Credit(2, 1000)

	lb := Leaderboard(m)
	if len(lb) != 2 || lb[0].ID != 2 || lb[1].ID != 1 {
		t.Fatalf("leaderboard = %+v", lb)
	}
}

func TestDistricts(t *testing.T) {
	m := newMachine(t)
	m.Registry().Transfer(1, 1)

	ds := Districts(m)
	if len(ds) != 1 {
		t.Fatalf("districts = %+v", ds)
	}
	d := ds[0]
	if d.ID != "Downtown" || d.OwnedFraction != 0.5 || d.SharePrice != 30 || d.PoolRemaining != 50 {
		t.Fatalf("district = %+v", d)
	}
	if len(d.Shops) != 2 {
		t.Fatalf("shops = %v", d.Shops)
	}
}
