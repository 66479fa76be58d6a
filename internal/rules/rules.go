// Package rules holds the tunable rule set for a game: fee and salary
// formulas, cash floor, stock price slope, chance range, and policy
// switches. Loaded once at game start and treated as immutable.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SuitAwardPolicy fixes the moment a shop's suit symbol is granted.
type SuitAwardPolicy string

const (
	// AwardOnPurchase grants the suit once, when the shop is bought.
	AwardOnPurchase SuitAwardPolicy = "on_purchase"
	// AwardOnLanding grants the suit each time the owner lands on
	// their own shop.
	AwardOnLanding SuitAwardPolicy = "on_landing"
)

// Rules is the tunable configuration for one game.
type Rules struct {
	StartingCash int `yaml:"starting_cash"`
	CashFloor    int `yaml:"cash_floor"`

	// Fee paid when landing on another player's shop:
	// valuation × tile fee multiplier × FeeRate.
	FeeRate float64 `yaml:"fee_rate"`

	// Shop valuation grows with the owner's level:
	// base price × (1 + ValuationPerLevel × (level − 1)).
	ValuationPerLevel float64 `yaml:"valuation_per_level"`

	// Bonus credited when a move wraps past tile 0.
	PassStartBonus int `yaml:"pass_start_bonus"`

	// Bank salary on level-up: SalaryBase × new level +
	// SalaryNetWorthRate × net worth.
	SalaryBase         int     `yaml:"salary_base"`
	SalaryNetWorthRate float64 `yaml:"salary_net_worth_rate"`

	// District share price: base price × (1 + StockPriceSlope ×
	// owned-member fraction).
	StockPriceSlope float64 `yaml:"stock_price_slope"`

	// Signed cash delta range for chance tiles, inclusive.
	ChanceMin int `yaml:"chance_min"`
	ChanceMax int `yaml:"chance_max"`

	SuitAward SuitAwardPolicy `yaml:"suit_award"`

	// Game ends after this many completed rounds. Zero means no limit.
	MaxRounds int `yaml:"max_rounds"`
}

// Default returns the baseline rule set.
func Default() Rules {
	return Rules{
		StartingCash:       2500,
		CashFloor:          0,
		FeeRate:            1.0,
		ValuationPerLevel:  0.2,
		PassStartBonus:     200,
		SalaryBase:         500,
		SalaryNetWorthRate: 0.1,
		StockPriceSlope:    1.0,
		ChanceMin:          -150,
		ChanceMax:          200,
		SuitAward:          AwardOnPurchase,
		MaxRounds:          50,
	}
}

// Load reads a rule set from a YAML file. Missing fields keep their
// defaults.
func Load(path string) (Rules, error) {
	r := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("rules %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return r, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// Validate rejects rule sets that would break engine invariants.
func (r Rules) Validate() error {
	if r.StartingCash < r.CashFloor {
		return fmt.Errorf("starting cash %d below cash floor %d", r.StartingCash, r.CashFloor)
	}
	if r.FeeRate < 0 {
		return fmt.Errorf("negative fee rate %v", r.FeeRate)
	}
	if r.ValuationPerLevel < 0 {
		return fmt.Errorf("negative valuation per level %v", r.ValuationPerLevel)
	}
	if r.StockPriceSlope < 0 {
		return fmt.Errorf("negative stock price slope %v", r.StockPriceSlope)
	}
	if r.ChanceMin > r.ChanceMax {
		return fmt.Errorf("chance range inverted: %d..%d", r.ChanceMin, r.ChanceMax)
	}
	switch r.SuitAward {
	case AwardOnPurchase, AwardOnLanding:
	default:
		return fmt.Errorf("unknown suit award policy %q", r.SuitAward)
	}
	return nil
}
