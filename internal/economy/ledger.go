// Package economy provides the per-player ledger: cash, levels, stock
// holdings, district share pools, share pricing, and net worth. Every
// operation either fully applies or fully fails.
package economy

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/ownership"
	"github.com/talgya/streetsim/internal/rules"
)

var (
	// ErrInsufficientFunds means a debit or purchase would drive cash
	// below the configured floor.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientShares means a buy exceeds the district's
	// remaining share pool.
	ErrInsufficientShares = errors.New("insufficient shares in pool")
	// ErrInsufficientHoldings means a sell exceeds the player's
	// holding.
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// Account is one player's economic state.
type Account struct {
	Cash     int
	Level    int
	Holdings map[board.DistrictID]int
}

// Ledger holds all accounts and share pools for one game.
type Ledger struct {
	b        *board.Board
	reg      *ownership.Registry
	rules    rules.Rules
	accounts map[ownership.PlayerID]*Account
	pools    map[board.DistrictID]int
}

// NewLedger opens an account with the starting cash for each player and
// fills every district's share pool to capacity.
func NewLedger(b *board.Board, reg *ownership.Registry, r rules.Rules, players []ownership.PlayerID) *Ledger {
	l := &Ledger{
		b:        b,
		reg:      reg,
		rules:    r,
		accounts: make(map[ownership.PlayerID]*Account, len(players)),
		pools:    make(map[board.DistrictID]int),
	}
	for _, p := range players {
		l.accounts[p] = &Account{
			Cash:     r.StartingCash,
			Level:    1,
			Holdings: make(map[board.DistrictID]int),
		}
	}
	for _, d := range b.Districts() {
		l.pools[d.ID] = d.SharePool
	}
	return l
}

func (l *Ledger) account(p ownership.PlayerID) (*Account, error) {
	a, ok := l.accounts[p]
	if !ok {
		return nil, fmt.Errorf("economy: unknown player %d", p)
	}
	return a, nil
}

// Cash returns the player's cash balance.
func (l *Ledger) Cash(p ownership.PlayerID) int {
	if a, ok := l.accounts[p]; ok {
		return a.Cash
	}
	return 0
}

// Level returns the player's bank level, starting at 1.
func (l *Ledger) Level(p ownership.PlayerID) int {
	if a, ok := l.accounts[p]; ok {
		return a.Level
	}
	return 0
}

// IncrementLevel raises the player's level by one and returns the new
// level.
func (l *Ledger) IncrementLevel(p ownership.PlayerID) (int, error) {
	a, err := l.account(p)
	if err != nil {
		return 0, err
	}
	a.Level++
	return a.Level, nil
}

// Credit adds a non-negative amount to the player's cash.
func (l *Ledger) Credit(p ownership.PlayerID, amount int) error {
	if amount < 0 {
		return fmt.Errorf("economy: negative credit %d", amount)
	}
	a, err := l.account(p)
	if err != nil {
		return err
	}
	a.Cash += amount
	return nil
}

// Debit removes a non-negative amount from the player's cash. It fails
// with ErrInsufficientFunds, without clamping, when the result would
// fall below the cash floor.
func (l *Ledger) Debit(p ownership.PlayerID, amount int) error {
	if amount < 0 {
		return fmt.Errorf("economy: negative debit %d", amount)
	}
	a, err := l.account(p)
	if err != nil {
		return err
	}
	if a.Cash-amount < l.rules.CashFloor {
		return fmt.Errorf("economy: debit %d from %d (floor %d): %w",
			amount, a.Cash, l.rules.CashFloor, ErrInsufficientFunds)
	}
	a.Cash -= amount
	return nil
}

// Affordable returns the largest payment the player can make without
// breaching the cash floor, used by the bankruptcy reduced-payment
// path.
func (l *Ledger) Affordable(p ownership.PlayerID, amount int) int {
	a, ok := l.accounts[p]
	if !ok {
		return 0
	}
	max := a.Cash - l.rules.CashFloor
	if max < 0 {
		max = 0
	}
	if amount < max {
		return amount
	}
	return max
}

// Valuation returns the shop's current value: base price scaled by the
// owner's level. Unowned shops are valued at base price. Valuation
// never decreases while the owner levels up.
func (l *Ledger) Valuation(shopIndex int) int {
	shop, ok := l.b.ShopAt(shopIndex)
	if !ok {
		return 0
	}
	level := 1
	if owner, owned := l.reg.OwnerOf(shopIndex); owned {
		if a, ok := l.accounts[owner]; ok {
			level = a.Level
		}
	}
	mult := 1 + l.rules.ValuationPerLevel*float64(level-1)
	return int(math.Round(float64(shop.BasePrice) * mult))
}

// Fee returns the amount a visitor pays the owner of the given shop.
func (l *Ledger) Fee(shopIndex int) int {
	shop, ok := l.b.ShopAt(shopIndex)
	if !ok {
		return 0
	}
	return int(math.Round(float64(l.Valuation(shopIndex)) * shop.FeeMult * l.rules.FeeRate))
}

// NetWorth recomputes the player's net worth from the formula: cash
// plus owned shop valuations plus holdings at current district prices.
// It is never cached.
func (l *Ledger) NetWorth(p ownership.PlayerID) int {
	a, ok := l.accounts[p]
	if !ok {
		return 0
	}
	total := a.Cash
	for _, idx := range l.reg.ShopsOwnedBy(p) {
		total += l.Valuation(idx)
	}
	for id, count := range a.Holdings {
		total += count * l.DistrictPrice(id)
	}
	return total
}
