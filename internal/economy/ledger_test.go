package economy

import (
	"errors"
	"testing"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/ownership"
	"github.com/talgya/streetsim/internal/rules"
)

func newTestLedger(t *testing.T) (*Ledger, *ownership.Registry, *board.Board) {
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
	reg := ownership.NewRegistry(b)
	l := NewLedger(b, reg, rules.Default(), []ownership.PlayerID{1, 2})
	return l, reg, b
}

func TestNewLedgerOpensAccounts(t *testing.T) {
	l, _, _ := newTestLedger(t)
	if got := l.Cash(1); got != 2500 {
		t.Fatalf("starting cash = %d, want 2500", got)
	}
	if got := l.Level(1); got != 1 {
		t.Fatalf("starting level = %d, want 1", got)
	}
	if got := l.PoolRemaining("Downtown"); got != 50 {
		t.Fatalf("pool = %d, want 50", got)
	}
	if got := l.Cash(99); got != 0 {
		t.Fatalf("unknown player cash = %d, want 0", got)
	}
}

func TestDebitFloor(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if err := l.Debit(1, 2500); err != nil {
		t.Fatalf("debit to floor: %v", err)
	}
	if got := l.Cash(1); got != 0 {
		t.Fatalf("cash = %d, want 0", got)
	}

	err := l.Debit(1, 1)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := l.Cash(1); got != 0 {
		t.Fatalf("failed debit changed cash to %d", got)
	}

	if err := l.Debit(1, -5); err == nil {
		t.Fatalf("negative debit accepted")
	}
	if err := l.Credit(1, -5); err == nil {
		t.Fatalf("negative credit accepted")
	}
}

func TestAffordable(t *testing.T) {
	l, _, _ := newTestLedger(t)
	if got := l.Affordable(1, 100); got != 100 {
		t.Fatalf("affordable = %d, want 100", got)
	}
	if got := l.Affordable(1, 9999); got != 2500 {
		t.Fatalf("affordable = %d, want 2500", got)
	}
	if got := l.Affordable(99, 100); got != 0 {
		t.Fatalf("unknown player affordable = %d, want 0", got)
	}
}

func TestValuationAndFeeTrackOwnerLevel(t *testing.T) {
	l, reg, _ := newTestLedger(t)

	// Unowned: base price, fee = price * fee_mult * fee_rate.
	if got := l.Valuation(1); got != 300 {
		t.Fatalf("unowned valuation = %d, want 300", got)
	}
	if got := l.Fee(1); got != 75 {
		t.Fatalf("unowned fee = %d, want 75", got)
	}

	reg.Transfer(1, 2)
	if got := l.Valuation(1); got != 300 {
		t.Fatalf("level-1 owner valuation = %d, want 300", got)
	}

	l.IncrementLevel(2)
	// 300 * (1 + 0.2) = 360, fee = round(360 * 0.25 * 1.0) = 90.
	if got := l.Valuation(1); got != 360 {
		t.Fatalf("level-2 owner valuation = %d, want 360", got)
	}
	if got := l.Fee(1); got != 90 {
		t.Fatalf("level-2 fee = %d, want 90", got)
	}

	if got := l.Valuation(0); got != 0 {
		t.Fatalf("non-shop valuation = %d, want 0", got)
	}
}

func TestDistrictPriceFollowsOwnership(t *testing.T) {
	l, reg, _ := newTestLedger(t)

	if got := l.DistrictPrice("Downtown"); got != 20 {
		t.Fatalf("empty district price = %d, want 20", got)
	}
	reg.Transfer(1, 1)
	// 20 * (1 + 1.0*0.5) = 30.
	if got := l.DistrictPrice("Downtown"); got != 30 {
		t.Fatalf("half-owned price = %d, want 30", got)
	}
	reg.Transfer(2, 2)
	if got := l.DistrictPrice("Downtown"); got != 40 {
		t.Fatalf("fully-owned price = %d, want 40", got)
	}
	if got := l.DistrictPrice("Nowhere"); got != 0 {
		t.Fatalf("unknown district price = %d, want 0", got)
	}
}

func TestBuySellShares(t *testing.T) {
	l, _, _ := newTestLedger(t)

	// Price 20, buy 5 for 100.
	if err := l.BuyShares(1, "Downtown", 5); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := l.Cash(1); got != 2400 {
		t.Fatalf("cash = %d, want 2400", got)
	}
	if got := l.Holding(1, "Downtown"); got != 5 {
		t.Fatalf("holding = %d, want 5", got)
	}
	if got := l.PoolRemaining("Downtown"); got != 45 {
		t.Fatalf("pool = %d, want 45", got)
	}

	// Overbuy the pool: nothing changes.
	err := l.BuyShares(1, "Downtown", 1000)
	if !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	if l.Cash(1) != 2400 || l.Holding(1, "Downtown") != 5 || l.PoolRemaining("Downtown") != 45 {
		t.Fatalf("failed buy mutated state")
	}

	// Oversell the holding: nothing changes.
	err = l.SellShares(1, "Downtown", 6)
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
	if l.Cash(1) != 2400 || l.Holding(1, "Downtown") != 5 {
		t.Fatalf("failed sell mutated state")
	}

	if err := l.SellShares(1, "Downtown", 5); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if got := l.Cash(1); got != 2500 {
		t.Fatalf("cash after sell = %d, want 2500", got)
	}
	if got := l.PoolRemaining("Downtown"); got != 50 {
		t.Fatalf("pool after sell = %d, want 50", got)
	}
	if got := len(l.Holdings(1)); got != 0 {
		t.Fatalf("holdings after full sell = %v", l.Holdings(1))
	}

	if err := l.BuyShares(1, "Nowhere", 1); err == nil {
		t.Fatalf("unknown district buy accepted")
	}
	if err := l.BuyShares(1, "Downtown", 0); err == nil {
		t.Fatalf("zero-count buy accepted")
	}
}

func TestBuyRespectsCashFloor(t *testing.T) {
	l, _, _ := newTestLedger(t)
	if err := l.Debit(1, 2460); err != nil {
		t.Fatalf("debit: %v", err)
	}
	// Cash 40, price 20: 2 shares fit, 3 do not.
	err := l.BuyShares(1, "Downtown", 3)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := l.BuyShares(1, "Downtown", 2); err != nil {
		t.Fatalf("buy within floor: %v", err)
	}
	if got := l.Cash(1); got != 0 {
		t.Fatalf("cash = %d, want 0", got)
	}
}

func TestNetWorthFormula(t *testing.T) {
	l, reg, _ := newTestLedger(t)

	if got := l.NetWorth(1); got != 2500 {
		t.Fatalf("net worth = %d, want 2500", got)
	}

	// Own shop 1 and hold 5 shares: price rises to 30 with the purchase.
	reg.Transfer(1, 1)
	if err := l.BuyShares(1, "Downtown", 5); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// cash 2500-150 + valuation 300 + 5*30 = 2800.
	if got := l.NetWorth(1); got != 2800 {
		t.Fatalf("net worth = %d, want 2800", got)
	}
	if got := l.NetWorth(99); got != 0 {
		t.Fatalf("unknown player net worth = %d, want 0", got)
	}
}
