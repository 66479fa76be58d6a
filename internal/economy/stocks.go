// District stock trading: a fixed share pool per district whose price
// follows the fraction of member shops in player hands.
package economy

import (
	"fmt"
	"math"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/ownership"
)

// DistrictPrice returns the current share price: base price scaled by
// the owned-member fraction. Pure function of ownership state,
// recomputed on every call, non-decreasing in the owned fraction.
func (l *Ledger) DistrictPrice(id board.DistrictID) int {
	d, ok := l.b.District(id)
	if !ok {
		return 0
	}
	frac := l.reg.OwnedFraction(id)
	return int(math.Round(float64(d.BasePrice) * (1 + l.rules.StockPriceSlope*frac)))
}

// PoolRemaining returns how many shares of the district are still
// unsold.
func (l *Ledger) PoolRemaining(id board.DistrictID) int {
	return l.pools[id]
}

// Holding returns the player's share count in the district.
func (l *Ledger) Holding(p ownership.PlayerID, id board.DistrictID) int {
	if a, ok := l.accounts[p]; ok {
		return a.Holdings[id]
	}
	return 0
}

// Holdings returns a copy of the player's nonzero share counts.
func (l *Ledger) Holdings(p ownership.PlayerID) map[board.DistrictID]int {
	out := make(map[board.DistrictID]int)
	if a, ok := l.accounts[p]; ok {
		for id, n := range a.Holdings {
			if n > 0 {
				out[id] = n
			}
		}
	}
	return out
}

// BuyShares moves count shares from the district pool to the player at
// the current price. Nothing changes on failure.
func (l *Ledger) BuyShares(p ownership.PlayerID, id board.DistrictID, count int) error {
	if count <= 0 {
		return fmt.Errorf("economy: share count %d must be positive", count)
	}
	a, err := l.account(p)
	if err != nil {
		return err
	}
	if _, ok := l.b.District(id); !ok {
		return fmt.Errorf("economy: unknown district %q", id)
	}
	if count > l.pools[id] {
		return fmt.Errorf("economy: buy %d of %q with pool %d: %w",
			count, id, l.pools[id], ErrInsufficientShares)
	}
	cost := l.DistrictPrice(id) * count
	if a.Cash-cost < l.rules.CashFloor {
		return fmt.Errorf("economy: buy %d of %q costs %d, cash %d: %w",
			count, id, cost, a.Cash, ErrInsufficientFunds)
	}

	a.Cash -= cost
	a.Holdings[id] += count
	l.pools[id] -= count
	return nil
}

// SellShares returns count shares to the pool and credits the player at
// the current price. Nothing changes on failure.
func (l *Ledger) SellShares(p ownership.PlayerID, id board.DistrictID, count int) error {
	if count <= 0 {
		return fmt.Errorf("economy: share count %d must be positive", count)
	}
	a, err := l.account(p)
	if err != nil {
		return err
	}
	if _, ok := l.b.District(id); !ok {
		return fmt.Errorf("economy: unknown district %q", id)
	}
	if count > a.Holdings[id] {
		return fmt.Errorf("economy: sell %d of %q holding %d: %w",
			count, id, a.Holdings[id], ErrInsufficientHoldings)
	}

	a.Cash += l.DistrictPrice(id) * count
	a.Holdings[id] -= count
	if a.Holdings[id] == 0 {
		delete(a.Holdings, id)
	}
	l.pools[id] += count
	return nil
}
